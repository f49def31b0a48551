package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeTaskCompleted = "task.completed"
)

const (
	TaskStatusSuccess = "success"
	TaskStatusError   = "error"
)

// TaskCompletedEvent carries the outcome of one executed task, successful
// or not.
type TaskCompletedEvent struct {
	BaseEvent
	TaskID   string `json:"task_id"`
	TaskType string `json:"task_type"`
	Username string `json:"username"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Label    string `json:"label"`
}

func NewTaskCompletedEvent(taskID, taskType, username, status, message, label string) *TaskCompletedEvent {
	return &TaskCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTaskCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"task_id":   taskID,
				"task_type": taskType,
				"username":  username,
				"status":    status,
				"message":   message,
				"label":     label,
			},
		},
		TaskID:   taskID,
		TaskType: taskType,
		Username: username,
		Status:   status,
		Message:  message,
		Label:    label,
	}
}
