package task

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/frahmantamala/ad-user-manager/internal/core/common/validation"
	"github.com/frahmantamala/ad-user-manager/internal/transport"
)

const maxScheduleBodyBytes = 64 << 10

type SchedulerAPI interface {
	Schedule(ctx context.Context, dto ScheduleTaskDTO) (*Task, error)
	ListActive() []Task
}

type Handler struct {
	*transport.BaseHandler
	Scheduler SchedulerAPI
	Schemas   *validation.SchemaValidator
}

// NewHandler wires the task routes. schemas may be nil, in which case bodies
// are only checked by ScheduleTaskDTO.Validate.
func NewHandler(baseHandler *transport.BaseHandler, scheduler SchedulerAPI, schemas *validation.SchemaValidator) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Scheduler:   scheduler,
		Schemas:     schemas,
	}
}

// ScheduleTask handles POST /api/schedule-task
func (h *Handler) ScheduleTask(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxScheduleBodyBytes))
	if err != nil {
		h.Logger.Error("ScheduleTask: failed to read body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if h.Schemas != nil {
		if appErr := h.Schemas.ValidateBody(ScheduleTaskRequestSchema, body); appErr != nil {
			h.HandleServiceError(w, appErr)
			return
		}
	}

	var dto ScheduleTaskDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		h.Logger.Error("ScheduleTask: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Scheduler.Schedule(r.Context(), dto)
	if err != nil {
		h.Logger.Error("ScheduleTask: service error", "error", err, "type", dto.Type, "username", dto.Username)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ScheduleTaskResponse{
		Success: true,
		ID:      t.ID,
	})
}

// GetActiveTasks handles GET /api/active-tasks
func (h *Handler) GetActiveTasks(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.Scheduler.ListActive())
}
