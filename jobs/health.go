package jobs

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-school/internal/platform/httpx"
)

// QueueInspector reports queue state.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler serves the queue health endpoint.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler constructs a Handler. A nil inspector reports every queue idle.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

type queueHealth struct {
	Queue   string `json:"queue"`
	Pending int    `json:"pending"`
	Active  int    `json:"active"`
	Retry   int    `json:"retry"`
	Paused  bool   `json:"paused"`
	Status  string `json:"status"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	out := make([]queueHealth, 0, 2)
	for _, name := range []string{QueueRBAC, QueueDefault} {
		out = append(out, h.queue(name))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queues": out})
}

func (h *Handler) queue(name string) queueHealth {
	entry := queueHealth{Queue: name, Status: "idle"}
	if h.inspector == nil {
		return entry
	}
	info, err := h.inspector.GetQueueInfo(name)
	if err != nil || info == nil {
		// asynq reports an error for queues that never held a task.
		h.logger.Debug("queue info", slog.String("queue", name), slog.Any("error", err))
		return entry
	}
	entry.Pending, entry.Active, entry.Retry, entry.Paused = info.Pending, info.Active, info.Retry, info.Paused
	switch {
	case info.Paused:
		entry.Status = "paused"
	case info.Retry > 0:
		entry.Status = "degraded"
	default:
		entry.Status = "ok"
	}
	return entry
}
