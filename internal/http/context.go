package http

import (
	"context"
	"log/slog"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/auth"
	"github.com/example/meeting-scheduler/internal/logging"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	identityContextKey  contextKey = "identity"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithIdentity stores the verified caller and the principal derived from it.
func ContextWithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	ctx = context.WithValue(ctx, identityContextKey, identity)
	return ContextWithPrincipal(ctx, principalFor(identity))
}

// IdentityFromContext returns the verified caller, if any.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(auth.Identity)
	return identity, ok
}

// ContextWithLogger attaches a request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

func principalFor(identity auth.Identity) application.Principal {
	return application.Principal{UserID: identity.Subject, IsAdmin: identity.IsAdmin()}
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// handlerLogger prefers the request logger set by RequestLogger and
// Authenticate, so request and subject attributes carry over to handler logs.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handler, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	fields := []any{slog.String("handler", handler)}
	if operation != "" {
		fields = append(fields, slog.String("operation", operation))
	}
	return logger.With(append(fields, attrs...)...)
}
