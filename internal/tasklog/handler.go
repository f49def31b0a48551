package tasklog

import (
	"net/http"

	"github.com/frahmantamala/ad-user-manager/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Log *Log
}

func NewHandler(baseHandler *transport.BaseHandler, log *Log) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Log:         log,
	}
}

// GetTaskLogs handles GET /api/task-logs
func (h *Handler) GetTaskLogs(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.Log.All())
}
