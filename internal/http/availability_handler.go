package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/mo"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

type availabilityService interface {
	CheckAvailability(ctx context.Context, params application.CheckAvailabilityParams) (application.AvailabilityReport, error)
}

// AvailabilityHandler serves the speculative availability check.
type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	logger = defaultLogger(logger)
	return &AvailabilityHandler{service: service, responder: newResponder(logger), logger: logger}
}

// Check evaluates the posted participants against the posted slots without
// persisting anything.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req availabilityCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	report, err := h.service.CheckAvailability(r.Context(), application.CheckAvailabilityParams{
		ParticipantIDs:   req.ParticipantIDs,
		TimeSlots:        toSlotInputs(req.TimeSlots),
		ExcludeMeetingID: req.ExcludeMeetingID,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "AvailabilityHandler", "Check").DebugContext(r.Context(), "availability evaluated",
		"slots", len(report.Matrix),
		"satisfiable", len(report.SatisfiableSlots),
	)

	satisfiable := report.SatisfiableSlots
	if satisfiable == nil {
		satisfiable = []int{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityCheckResponse{
		ParticipantIDs:   report.ParticipantIDs,
		Availability:     toMatrixDTO(report.Matrix),
		SatisfiableSlots: satisfiable,
	})
}

type availabilityCheckRequest struct {
	ParticipantIDs   []string      `json:"participant_ids"`
	TimeSlots        []timeSlotDTO `json:"time_slots"`
	ExcludeMeetingID string        `json:"exclude_meeting_id,omitempty"`
}

type availabilityCheckResponse struct {
	ParticipantIDs   []string  `json:"participant_ids"`
	Availability     matrixDTO `json:"availability"`
	SatisfiableSlots []int     `json:"satisfiable_slots"`
}

type timeSlotDTO struct {
	Date  string    `json:"date,omitempty"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type matrixDTO []slotAvailabilityDTO

type slotAvailabilityDTO struct {
	Index            int                     `json:"index"`
	TimeSlot         timeSlotDTO             `json:"time_slot"`
	FullySatisfiable bool                    `json:"fully_satisfiable"`
	Results          []availabilityResultDTO `json:"results"`
}

type availabilityResultDTO struct {
	EmployeeID           string  `json:"employee_id"`
	Status               string  `json:"status"`
	Reason               *string `json:"reason,omitempty"`
	ConflictingMeetingID *string `json:"conflicting_meeting_id,omitempty"`
}

func toSlotInputs(slots []timeSlotDTO) []application.TimeSlotInput {
	if slots == nil {
		return nil
	}
	out := make([]application.TimeSlotInput, len(slots))
	for i, s := range slots {
		out[i] = application.TimeSlotInput{Date: s.Date, Start: s.Start, End: s.End}
	}
	return out
}

func toTimeSlotDTO(slot scheduler.TimeSlot) timeSlotDTO {
	return timeSlotDTO{Date: slot.Date, Start: slot.Start, End: slot.End}
}

func toMatrixDTO(matrix scheduler.Matrix) matrixDTO {
	out := make(matrixDTO, 0, len(matrix))
	for _, slot := range matrix {
		results := make([]availabilityResultDTO, 0, len(slot.Results))
		for _, res := range slot.Results {
			results = append(results, availabilityResultDTO{
				EmployeeID:           res.EmployeeID,
				Status:               string(res.Status),
				Reason:               optionPtr(res.Reason),
				ConflictingMeetingID: optionPtr(res.ConflictingMeetingID),
			})
		}
		out = append(out, slotAvailabilityDTO{
			Index:            slot.Index,
			TimeSlot:         toTimeSlotDTO(slot.Slot),
			FullySatisfiable: slot.FullySatisfiable(),
			Results:          results,
		})
	}
	return out
}

func optionPtr(opt mo.Option[string]) *string {
	value, ok := opt.Get()
	if !ok {
		return nil
	}
	return &value
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
