package task

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/frahmantamala/ad-user-manager/internal"
	"github.com/frahmantamala/ad-user-manager/internal/core/events"
	"github.com/frahmantamala/ad-user-manager/internal/directory"
)

const passwordSuffix = "1q2w3e!!"

const (
	msgAccountActivated   = "Account activated"
	msgAccountDeactivated = "Account deactivated"
	msgPasswordReset      = "Password reset"
)

// Directory is the part of directory.Client that tasks write through.
type Directory interface {
	FindUserDN(ctx context.Context, username string) (string, error)
	FindUserNames(ctx context.Context, username string) (*directory.Names, error)
	SetAccountDisabled(ctx context.Context, dn string, disabled bool) error
	SetPassword(ctx context.Context, dn, password string) error
}

type ExecutorConfig struct {
	// RedactPasswords keeps generated passwords out of success messages.
	RedactPasswords bool
	// Timeout bounds one task's directory round trips. Zero means 5s.
	Timeout time.Duration
}

// Executor performs a fired task against the directory and publishes exactly
// one task.completed event for it. Failures are never retried.
type Executor struct {
	dir       Directory
	publisher events.Publisher
	logger    *slog.Logger
	redact    bool
	timeout   time.Duration
}

func NewExecutor(dir Directory, publisher events.Publisher, cfg ExecutorConfig, logger *slog.Logger) *Executor {
	return &Executor{
		dir:       dir,
		publisher: publisher,
		logger:    logger,
		redact:    cfg.RedactPasswords,
		timeout:   cfg.Timeout,
	}
}

func (e *Executor) Execute(ctx context.Context, t Task) {
	ctx = internal.ContextWithTaskID(ctx, t.ID)
	runCtx, cancel := internal.WithTimeout(ctx, e.timeout)
	defer cancel()

	status := events.TaskStatusSuccess
	message, err := e.run(runCtx, t)
	if err != nil {
		status = events.TaskStatusError
		message = err.Error()
		e.logger.Error("task failed",
			"task_id", t.ID,
			"type", t.Type,
			"username", t.Username,
			"error", err)
	} else {
		e.logger.Info("task succeeded", "task_id", t.ID, "type", t.Type, "username", t.Username)
	}

	event := events.NewTaskCompletedEvent(t.ID, string(t.Type), t.Username, status, message, t.Label)
	if err := e.publisher.PublishSync(ctx, event); err != nil {
		e.logger.Error("failed to publish task outcome", "task_id", t.ID, "error", err)
	}
}

func (e *Executor) run(ctx context.Context, t Task) (string, error) {
	switch t.Type {
	case TypeActivateUser:
		return msgAccountActivated, e.setDisabled(ctx, t.Username, false)
	case TypeDeactivateUser:
		return msgAccountDeactivated, e.setDisabled(ctx, t.Username, true)
	case TypeResetPassword:
		return e.resetPassword(ctx, t.Username)
	default:
		return "", internal.NewInvalidTaskTypeError(string(t.Type))
	}
}

func (e *Executor) setDisabled(ctx context.Context, username string, disabled bool) error {
	dn, err := e.dir.FindUserDN(ctx, username)
	if err != nil {
		return err
	}
	return e.dir.SetAccountDisabled(ctx, dn, disabled)
}

func (e *Executor) resetPassword(ctx context.Context, username string) (string, error) {
	names, err := e.dir.FindUserNames(ctx, username)
	if err != nil {
		return "", err
	}

	var missing []string
	if names.GivenName == "" {
		missing = append(missing, directory.AttrGivenName)
	}
	if names.Surname == "" {
		missing = append(missing, directory.AttrSurname)
	}
	if names.DN == "" {
		missing = append(missing, directory.AttrDistinguishedName)
	}
	if len(missing) > 0 {
		return "", internal.NewIncompleteUserInfoError(username, missing...)
	}

	password := GeneratePassword(names.GivenName, names.Surname)
	if err := e.dir.SetPassword(ctx, names.DN, password); err != nil {
		return "", err
	}

	if e.redact {
		return msgPasswordReset, nil
	}
	return msgPasswordReset + ": " + password, nil
}

// GeneratePassword builds the initial password from the first letter of the
// given name (upper-cased), the first letter of the surname (lower-cased)
// and a fixed suffix.
func GeneratePassword(givenName, surname string) string {
	return strings.ToUpper(firstRune(givenName)) + strings.ToLower(firstRune(surname)) + passwordSuffix
}

func firstRune(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return ""
	}
	return string(r)
}
