package tasklog

import (
	"context"
	"fmt"

	"github.com/frahmantamala/ad-user-manager/internal/core/events"
)

type EventHandler struct {
	log *Log
}

func NewEventHandler(log *Log) *EventHandler {
	return &EventHandler{log: log}
}

// Subscribe registers the log on task.completed.
func (h *EventHandler) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeTaskCompleted, h.HandleTaskCompleted)
}

func (h *EventHandler) HandleTaskCompleted(ctx context.Context, event events.Event) error {
	completed, ok := event.(*events.TaskCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for %s", event, event.EventType())
	}

	h.log.Append(ctx, Entry{
		Username:  completed.Username,
		Type:      completed.TaskType,
		Status:    completed.Status,
		Timestamp: completed.OccurredAt(),
		Message:   completed.Message,
		Label:     completed.Label,
	})
	return nil
}
