package http

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/example/meeting-scheduler/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWithIdentity_DerivesPrincipal(t *testing.T) {
	t.Parallel()

	ctx := ContextWithIdentity(context.Background(), auth.Identity{
		Subject:     "alice",
		Permissions: []auth.Permission{auth.PermCalendarAdmin},
	})

	identity, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", identity.Subject)

	principal, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", principal.UserID)
	assert.True(t, principal.IsAdmin)
}

func TestHandlerLogger_PrefersRequestLogger(t *testing.T) {
	t.Parallel()

	var request, fallback bytes.Buffer
	requestLogger := slog.New(slog.NewTextHandler(&request, nil)).With("subject", "alice")
	fallbackLogger := slog.New(slog.NewTextHandler(&fallback, nil))

	ctx := ContextWithLogger(context.Background(), requestLogger)
	handlerLogger(ctx, fallbackLogger, "MeetingHandler", "Create", "meeting_id", "m-1").Info("done")

	assert.Empty(t, fallback.String())
	line := request.String()
	assert.Contains(t, line, "subject=alice")
	assert.Contains(t, line, "handler=MeetingHandler")
	assert.Contains(t, line, "operation=Create")
	assert.Contains(t, line, "meeting_id=m-1")

	handlerLogger(context.Background(), fallbackLogger, "HealthHandler", "").Info("ready")
	assert.Contains(t, fallback.String(), "handler=HealthHandler")
	assert.NotContains(t, fallback.String(), "operation=")
}
