package http

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/example/meeting-scheduler/internal/auth"
)

type RouterConfig struct {
	Authenticator Authenticator
	Availability  *AvailabilityHandler
	Meetings      *MeetingHandler
	Calendar      *CalendarHandler
	Health        *HealthHandler
	// AvailabilityLimiter throttles the speculative check endpoint.
	AvailabilityLimiter *rate.Limiter
	Logger              *slog.Logger
	Middleware          []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	logger := defaultLogger(cfg.Logger)
	authenticate := Authenticate(cfg.Authenticator, logger)

	route := func(pattern string, perm auth.Permission, handler http.HandlerFunc, extra ...func(http.Handler) http.Handler) {
		var h http.Handler = handler
		for i := len(extra) - 1; i >= 0; i-- {
			h = extra[i](h)
		}
		h = RequirePermission(perm, logger)(h)
		mux.Handle(pattern, authenticate(h))
	}

	if cfg.Health != nil {
		mux.HandleFunc("GET /healthz", cfg.Health.Live)
		mux.HandleFunc("GET /readyz", cfg.Health.Ready)
	}

	if cfg.Availability != nil {
		route("POST /availability/check", auth.PermMeetingsRead, cfg.Availability.Check,
			RateLimit(cfg.AvailabilityLimiter, logger))
	}

	if m := cfg.Meetings; m != nil {
		route("GET /meetings", auth.PermMeetingsRead, m.List)
		route("POST /meetings", auth.PermMeetingsWrite, m.Create)
		route("GET /meetings/{id}", auth.PermMeetingsRead, m.Get)
		route("DELETE /meetings/{id}", auth.PermMeetingsWrite, m.Cancel)
		route("POST /meetings/{id}/cancel", auth.PermMeetingsWrite, m.Cancel)
		route("PUT /meetings/{id}/time-slots", auth.PermMeetingsWrite, m.UpdateTimeSlots)
		route("PATCH /meetings/{id}/status", auth.PermMeetingsWrite, m.UpdateStatus)
		route("GET /meetings/{id}/availability-logs", auth.PermMeetingsRead, m.AvailabilityLogs)
	}

	if c := cfg.Calendar; c != nil {
		route("GET /employees/{id}/availability-blocks", auth.PermMeetingsRead, c.ListBlocks)
		route("POST /employees/{id}/availability-blocks", auth.PermCalendarWrite, c.CreateBlock)
		route("PUT /availability-blocks/{id}", auth.PermCalendarWrite, c.UpdateBlock)
		route("DELETE /availability-blocks/{id}", auth.PermCalendarWrite, c.DeleteBlock)
		route("GET /employees/{id}/schedule-entries", auth.PermMeetingsRead, c.ListEntries)
		route("POST /employees/{id}/schedule-entries", auth.PermCalendarWrite, c.CreateEntry)
		route("DELETE /schedule-entries/{id}", auth.PermCalendarWrite, c.DeleteEntry)
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}
