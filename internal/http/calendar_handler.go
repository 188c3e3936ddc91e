package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

type calendarService interface {
	CreateBlock(ctx context.Context, params application.CreateBlockParams) (scheduler.AvailabilityBlock, error)
	UpdateBlock(ctx context.Context, params application.UpdateBlockParams) (scheduler.AvailabilityBlock, error)
	DeleteBlock(ctx context.Context, principal application.Principal, blockID string) error
	ListBlocks(ctx context.Context, query application.CalendarQuery) ([]scheduler.AvailabilityBlock, error)
	CreateEntry(ctx context.Context, params application.CreateEntryParams) (scheduler.ScheduleEntry, error)
	DeleteEntry(ctx context.Context, principal application.Principal, entryID string) error
	ListEntries(ctx context.Context, query application.CalendarQuery) ([]scheduler.ScheduleEntry, error)
}

// CalendarHandler manages availability blocks and schedule entries.
type CalendarHandler struct {
	service   calendarService
	responder responder
}

func NewCalendarHandler(service calendarService, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{service: service, responder: newResponder(logger)}
}

func (h *CalendarHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req blockRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	block, err := h.service.CreateBlock(r.Context(), application.CreateBlockParams{
		Principal: principal,
		Input:     req.toInput(r.PathValue("id")),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toBlockDTO(block))
}

func (h *CalendarHandler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req blockRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	block, err := h.service.UpdateBlock(r.Context(), application.UpdateBlockParams{
		Principal: principal,
		BlockID:   r.PathValue("id"),
		Input:     req.toInput(req.EmployeeID),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBlockDTO(block))
}

func (h *CalendarHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteBlock(r.Context(), principal, r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *CalendarHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query, err := calendarQuery(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	blocks, err := h.service.ListBlocks(r.Context(), query)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]blockDTO, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, toBlockDTO(b))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBlocksResponse{Blocks: out})
}

func (h *CalendarHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	entry, err := h.service.CreateEntry(r.Context(), application.CreateEntryParams{
		Principal: principal,
		Input:     req.toInput(r.PathValue("id")),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEntryDTO(entry))
}

func (h *CalendarHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteEntry(r.Context(), principal, r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *CalendarHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query, err := calendarQuery(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	entries, err := h.service.ListEntries(r.Context(), query)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]entryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryDTO(e))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEntriesResponse{Entries: out})
}

func calendarQuery(r *http.Request) (application.CalendarQuery, error) {
	principal, _ := PrincipalFromContext(r.Context())
	query := application.CalendarQuery{Principal: principal, EmployeeID: r.PathValue("id")}

	values := r.URL.Query()
	var err error
	if query.From, err = parseTimeParam(values.Get("from")); err != nil {
		return query, err
	}
	if query.To, err = parseTimeParam(values.Get("to")); err != nil {
		return query, err
	}
	return query, nil
}

type blockRequest struct {
	EmployeeID string    `json:"employee_id,omitempty"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason"`
}

func (r blockRequest) toInput(employeeID string) application.BlockInput {
	return application.BlockInput{
		EmployeeID: employeeID,
		Start:      r.Start,
		End:        r.End,
		Status:     scheduler.BlockStatus(strings.ToUpper(strings.TrimSpace(r.Status))),
		Reason:     r.Reason,
	}
}

type entryRequest struct {
	Source      string    `json:"source,omitempty"`
	Type        string    `json:"type"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Remarks     string    `json:"remarks"`
	IsConfirmed bool      `json:"is_confirmed"`
}

func (r entryRequest) toInput(employeeID string) application.EntryInput {
	return application.EntryInput{
		EmployeeID:  employeeID,
		Source:      scheduler.EntrySource(strings.ToUpper(strings.TrimSpace(r.Source))),
		Type:        scheduler.EntryType(strings.ToUpper(strings.TrimSpace(r.Type))),
		Start:       r.Start,
		End:         r.End,
		Remarks:     r.Remarks,
		IsConfirmed: r.IsConfirmed,
	}
}

type blockDTO struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type entryDTO struct {
	ID          string    `json:"id"`
	EmployeeID  string    `json:"employee_id"`
	CreatedBy   string    `json:"created_by"`
	Source      string    `json:"source"`
	Type        string    `json:"type"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Remarks     string    `json:"remarks,omitempty"`
	IsConfirmed bool      `json:"is_confirmed"`
	MeetingID   string    `json:"meeting_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type listBlocksResponse struct {
	Blocks []blockDTO `json:"availability_blocks"`
}

type listEntriesResponse struct {
	Entries []entryDTO `json:"schedule_entries"`
}

func toBlockDTO(b scheduler.AvailabilityBlock) blockDTO {
	return blockDTO{
		ID:         b.ID,
		EmployeeID: b.EmployeeID,
		Start:      b.Start,
		End:        b.End,
		Status:     string(b.Status),
		Reason:     b.Reason,
		CreatedBy:  b.CreatedBy,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func toEntryDTO(e scheduler.ScheduleEntry) entryDTO {
	return entryDTO{
		ID:          e.ID,
		EmployeeID:  e.EmployeeID,
		CreatedBy:   e.CreatedBy,
		Source:      string(e.Source),
		Type:        string(e.Type),
		Start:       e.Start,
		End:         e.End,
		Remarks:     e.Remarks,
		IsConfirmed: e.IsConfirmed,
		MeetingID:   e.MeetingID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
