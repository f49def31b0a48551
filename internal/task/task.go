package task

import (
	"time"

	"github.com/frahmantamala/ad-user-manager/internal"
)

type Type string

const (
	TypeActivateUser   Type = "activate_user"
	TypeDeactivateUser Type = "deactivate_user"
	TypeResetPassword  Type = "reset_password"
)

var typeAliases = map[string]Type{
	"activate":   TypeActivateUser,
	"deactivate": TypeDeactivateUser,
}

// ParseType accepts the canonical task types and the short activate /
// deactivate aliases.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeActivateUser, TypeDeactivateUser, TypeResetPassword:
		return t, nil
	}
	if t, ok := typeAliases[s]; ok {
		return t, nil
	}
	return "", internal.NewInvalidTaskTypeError(s)
}

// Task is a scheduled directory operation. Tasks stay in the scheduler after
// they fire; whether one is still pending is decided by comparing RunAt with
// the current time.
type Task struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	Username    string    `json:"username"`
	RunAt       time.Time `json:"runAt"`
	Description string    `json:"description"`
	Label       string    `json:"label"`
}

func NewTask(id string, taskType Type, username string, runAt time.Time, description, label string) *Task {
	if description == "" {
		description = string(taskType) + " task"
	}
	if label == "" {
		label = username
	}
	return &Task{
		ID:          id,
		Type:        taskType,
		Username:    username,
		RunAt:       runAt,
		Description: description,
		Label:       label,
	}
}

func (t *Task) IsActive(now time.Time) bool {
	return t.RunAt.After(now)
}
