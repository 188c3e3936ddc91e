package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/auth"
	"github.com/example/meeting-scheduler/internal/export"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type meetingService interface {
	CreateMeeting(ctx context.Context, params application.CreateMeetingParams) (application.ScheduleResult, error)
	UpdateMeetingTimeSlots(ctx context.Context, params application.UpdateTimeSlotsParams) (application.ScheduleResult, error)
	CancelMeeting(ctx context.Context, principal application.Principal, meetingID string) (scheduler.Meeting, error)
	UpdateMeetingStatus(ctx context.Context, params application.UpdateStatusParams) (scheduler.Meeting, error)
	GetMeeting(ctx context.Context, meetingID string) (scheduler.Meeting, error)
	ListMeetings(ctx context.Context, params application.ListMeetingsParams) ([]scheduler.Meeting, error)
	GetMeetingAvailabilityLogs(ctx context.Context, meetingID string) ([]scheduler.AvailabilityLog, error)
}

type MeetingHandler struct {
	service   meetingService
	responder responder
	logger    *slog.Logger
	location  *time.Location
}

// NewMeetingHandler builds the meeting endpoints. location controls how
// spreadsheet exports render times.
func NewMeetingHandler(service meetingService, location *time.Location, logger *slog.Logger) *MeetingHandler {
	if location == nil {
		location = time.UTC
	}
	logger = defaultLogger(logger)
	return &MeetingHandler{service: service, responder: newResponder(logger), logger: logger, location: location}
}

func (h *MeetingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "MeetingHandler", operation, attrs...)
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createMeetingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if req.Force && !canForce(r.Context()) {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	result, err := h.service.CreateMeeting(r.Context(), application.CreateMeetingParams{
		Principal: principal,
		Draft:     req.toDraft(),
		Force:     req.Force,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderResult(r.Context(), w, "Create", result, http.StatusCreated)
}

func (h *MeetingHandler) UpdateTimeSlots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req updateTimeSlotsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if req.Force && !canForce(r.Context()) {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	result, err := h.service.UpdateMeetingTimeSlots(r.Context(), application.UpdateTimeSlotsParams{
		Principal: principal,
		MeetingID: r.PathValue("id"),
		TimeSlots: toSlotInputs(req.TimeSlots),
		Force:     req.Force,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderResult(r.Context(), w, "UpdateTimeSlots", result, http.StatusOK)
}

func (h *MeetingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	meeting, err := h.service.CancelMeeting(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

func (h *MeetingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	meeting, err := h.service.UpdateMeetingStatus(r.Context(), application.UpdateStatusParams{
		Principal: principal,
		MeetingID: r.PathValue("id"),
		Status:    scheduler.MeetingStatus(strings.ToLower(strings.TrimSpace(req.Status))),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meeting, err := h.service.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params, err := buildListParams(r.URL.Query(), principal)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	meetings, err := h.service.ListMeetings(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]meetingDTO, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, toMeetingDTO(m))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMeetingsResponse{Meetings: out})
}

// AvailabilityLogs returns the evidence recorded for a meeting, as JSON or,
// with ?format=xlsx, as a spreadsheet.
func (h *MeetingHandler) AvailabilityLogs(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID := r.PathValue("id")
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "json" && format != "xlsx" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	logs, err := h.service.GetMeetingAvailabilityLogs(r.Context(), meetingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if format != "xlsx" {
		out := make([]availabilityLogDTO, 0, len(logs))
		for _, l := range logs {
			out = append(out, toAvailabilityLogDTO(l))
		}
		h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityLogsResponse{MeetingID: meetingID, Logs: out})
		return
	}

	meeting, err := h.service.GetMeeting(r.Context(), meetingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteAvailabilityLogs(&buf, meeting, logs, h.location); err != nil {
		h.responder.handleServiceError(r.Context(), w, fmt.Errorf("export availability logs: %w", err))
		return
	}

	h.log(r.Context(), "AvailabilityLogs", "meeting_id", meetingID).InfoContext(r.Context(), "availability logs exported", "rows", len(logs))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="availability-%s.xlsx"`, meetingID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *MeetingHandler) renderResult(ctx context.Context, w http.ResponseWriter, operation string, result application.ScheduleResult, status int) {
	if result.Conflict() {
		h.log(ctx, operation).InfoContext(ctx, "schedule rejected", "slots", len(result.Availability))
		h.responder.writeConflict(ctx, w, result)
		return
	}

	logs := make([]availabilityLogDTO, 0, len(result.Logs))
	for _, l := range result.Logs {
		logs = append(logs, toAvailabilityLogDTO(l))
	}
	h.responder.writeJSON(ctx, w, status, scheduleResponse{
		Meeting:          toMeetingDTO(result.Meeting),
		Availability:     toMatrixDTO(result.Availability),
		AvailabilityLogs: logs,
	})
}

func canForce(ctx context.Context) bool {
	identity, ok := IdentityFromContext(ctx)
	return ok && identity.Has(auth.PermMeetingsForce)
}

type createMeetingRequest struct {
	OrganizerID    string        `json:"organizer_id"`
	HostID         string        `json:"host_id"`
	ParticipantIDs []string      `json:"participant_ids"`
	DepartmentIDs  []string      `json:"department_ids"`
	Title          string        `json:"title"`
	Agenda         string        `json:"agenda"`
	Location       string        `json:"location"`
	Remarks        string        `json:"remarks"`
	IsVirtual      bool          `json:"is_virtual"`
	TimeSlots      []timeSlotDTO `json:"time_slots"`
	Force          bool          `json:"force"`
}

func (r createMeetingRequest) toDraft() application.MeetingDraft {
	return application.MeetingDraft{
		OrganizerID:    r.OrganizerID,
		HostID:         r.HostID,
		ParticipantIDs: r.ParticipantIDs,
		DepartmentIDs:  r.DepartmentIDs,
		Title:          r.Title,
		Agenda:         r.Agenda,
		Location:       r.Location,
		Remarks:        r.Remarks,
		IsVirtual:      r.IsVirtual,
		TimeSlots:      toSlotInputs(r.TimeSlots),
	}
}

type updateTimeSlotsRequest struct {
	TimeSlots []timeSlotDTO `json:"time_slots"`
	Force     bool          `json:"force"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type meetingDTO struct {
	ID             string        `json:"id"`
	OrganizerID    string        `json:"organizer_id"`
	HostID         string        `json:"host_id"`
	ParticipantIDs []string      `json:"participant_ids"`
	DepartmentIDs  []string      `json:"department_ids,omitempty"`
	Title          string        `json:"title"`
	Agenda         string        `json:"agenda,omitempty"`
	Location       string        `json:"location,omitempty"`
	Remarks        string        `json:"remarks,omitempty"`
	IsVirtual      bool          `json:"is_virtual"`
	TimeSlots      []timeSlotDTO `json:"time_slots"`
	Status         string        `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type availabilityLogDTO struct {
	ID                   string    `json:"id"`
	EmployeeID           string    `json:"employee_id"`
	TimeSlot             slotDTO   `json:"time_slot"`
	AvailabilityStatus   string    `json:"availability_status"`
	Reason               *string   `json:"reason,omitempty"`
	ConflictingMeetingID *string   `json:"conflicting_meeting_id,omitempty"`
	CheckedAt            time.Time `json:"checked_at"`
}

type slotDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type meetingResponse struct {
	Meeting meetingDTO `json:"meeting"`
}

type scheduleResponse struct {
	Meeting          meetingDTO           `json:"meeting"`
	Availability     matrixDTO            `json:"availability"`
	AvailabilityLogs []availabilityLogDTO `json:"availability_logs"`
}

type listMeetingsResponse struct {
	Meetings []meetingDTO `json:"meetings"`
}

type availabilityLogsResponse struct {
	MeetingID string               `json:"meeting_id"`
	Logs      []availabilityLogDTO `json:"logs"`
}

func toMeetingDTO(m scheduler.Meeting) meetingDTO {
	slots := make([]timeSlotDTO, 0, len(m.TimeSlots))
	for _, s := range m.TimeSlots {
		slots = append(slots, toTimeSlotDTO(s))
	}
	return meetingDTO{
		ID:             m.ID,
		OrganizerID:    m.OrganizerID,
		HostID:         m.HostID,
		ParticipantIDs: m.ParticipantIDs,
		DepartmentIDs:  m.DepartmentIDs,
		Title:          m.Title,
		Agenda:         m.Agenda,
		Location:       m.Location,
		Remarks:        m.Remarks,
		IsVirtual:      m.IsVirtual,
		TimeSlots:      slots,
		Status:         string(m.Status),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toAvailabilityLogDTO(l scheduler.AvailabilityLog) availabilityLogDTO {
	return availabilityLogDTO{
		ID:                   l.ID,
		EmployeeID:           l.EmployeeID,
		TimeSlot:             slotDTO{Start: l.Slot.Start, End: l.Slot.End},
		AvailabilityStatus:   string(l.Status),
		Reason:               optionPtr(l.Reason),
		ConflictingMeetingID: optionPtr(l.ConflictingMeetingID),
		CheckedAt:            l.CheckedAt,
	}
}

// buildListParams reads participant, status, from, to and limit. Without an
// explicit participant a non-admin caller sees their own meetings.
func buildListParams(values url.Values, principal application.Principal) (application.ListMeetingsParams, error) {
	params := application.ListMeetingsParams{
		ParticipantID: strings.TrimSpace(values.Get("participant")),
	}
	if params.ParticipantID == "" && !principal.IsAdmin {
		params.ParticipantID = principal.UserID
	}

	for _, raw := range parseCSV(values.Get("status")) {
		params.Statuses = append(params.Statuses, scheduler.MeetingStatus(strings.ToLower(raw)))
	}

	var err error
	if params.From, err = parseTimeParam(values.Get("from")); err != nil {
		return params, err
	}
	if params.To, err = parseTimeParam(values.Get("to")); err != nil {
		return params, err
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, fmt.Errorf("limit: %w", err)
		}
		params.Limit = limit
	}
	return params, nil
}

func parseTimeParam(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
