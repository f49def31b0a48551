package task

import (
	"fmt"
	"time"

	"github.com/frahmantamala/ad-user-manager/internal"
	"github.com/frahmantamala/ad-user-manager/internal/core/common/validation"
)

// ScheduleTaskRequestSchema names the request body schema in api/openapi.yml.
const ScheduleTaskRequestSchema = "ScheduleTaskRequest"

type ScheduleTaskDTO struct {
	Type        string `json:"type"`
	Username    string `json:"username"`
	RunAt       string `json:"runAt"`
	Description string `json:"description,omitempty"`
	Label       string `json:"label,omitempty"`
}

func (d *ScheduleTaskDTO) Validate() error {
	validator := validation.NewValidator()
	validator.Field("username", d.Username).
		Required().
		MaxLength(256)
	validator.Field("runAt", d.RunAt).
		Required()
	validator.Field("description", d.Description).
		MaxLength(1024)
	validator.Field("label", d.Label).
		MaxLength(256)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type ScheduleTaskResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// Local layouts are read in the server's location; RFC 3339 carries its own
// offset.
var localRunAtLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func ParseRunAt(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range localRunAtLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, internal.NewValidationFieldError("runAt",
		fmt.Sprintf("runAt %q is not a valid date-time", value),
		internal.ErrCodeInvalidRunAt)
}
