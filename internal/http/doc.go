// Package http exposes the scheduling engine over HTTP/JSON.
//
// Every route except the probes requires a JWT bearer token or an X-API-Key
// header, and each route is gated on one permission:
//   - POST /availability/check (meetings:read): speculative check. Body:
//     {"participant_ids","time_slots":[{"date","start","end"}],"exclude_meeting_id"}.
//     Response: {"participant_ids","availability","satisfiable_slots"}. Rate limited.
//   - POST /meetings (meetings:write, plus meetings:force when "force" is true):
//     201 with {"meeting","availability","availability_logs"}, or 409 with
//     {"error_code":"AVAILABILITY_CONFLICT","availability"} when no slot works.
//   - GET /meetings, GET /meetings/{id} (meetings:read). The list accepts
//     participant, status (comma separated), from, to (RFC 3339) and limit.
//   - PUT /meetings/{id}/time-slots (meetings:write): same responses as create.
//   - POST /meetings/{id}/cancel, DELETE /meetings/{id}, PATCH /meetings/{id}/status
//     (meetings:write).
//   - GET /meetings/{id}/availability-logs (meetings:read); ?format=xlsx returns
//     a spreadsheet.
//   - GET|POST /employees/{id}/availability-blocks, PUT|DELETE /availability-blocks/{id},
//     GET|POST /employees/{id}/schedule-entries, DELETE /schedule-entries/{id}
//     (meetings:read to list, calendar:write to change).
//   - GET /healthz, GET /readyz: unauthenticated probes.
//
// Errors use {"error_code","message","errors"}: 422 for validation, 403 for
// missing permissions, 404 for unknown resources and 503 with Retry-After for
// contended writes.
package http
