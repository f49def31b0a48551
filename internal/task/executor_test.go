package task_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/frahmantamala/ad-user-manager/internal"
	"github.com/frahmantamala/ad-user-manager/internal/core/events"
	"github.com/frahmantamala/ad-user-manager/internal/directory"
	"github.com/frahmantamala/ad-user-manager/internal/task"
	"github.com/frahmantamala/ad-user-manager/internal/tasklog"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type disableCall struct {
	DN       string
	Disabled bool
}

type passwordCall struct {
	DN       string
	Password string
}

// MockDirectory implements task.Directory for testing
type MockDirectory struct {
	mu            sync.Mutex
	dns           map[string]string
	names         map[string]*directory.Names
	findErr       error
	modifyErr     error
	disableCalls  []disableCall
	passwordCalls []passwordCall
	taskIDs       []string
	deadlines     []bool
}

func NewMockDirectory() *MockDirectory {
	return &MockDirectory{
		dns:   map[string]string{},
		names: map[string]*directory.Names{},
	}
}

func (m *MockDirectory) FindUserDN(ctx context.Context, username string) (string, error) {
	if m.findErr != nil {
		return "", m.findErr
	}
	dn, ok := m.dns[username]
	if !ok {
		return "", internal.NewUserNotFoundError(username)
	}
	return dn, nil
}

func (m *MockDirectory) FindUserNames(ctx context.Context, username string) (*directory.Names, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	n, ok := m.names[username]
	if !ok {
		return nil, internal.NewUserNotFoundError(username)
	}
	return n, nil
}

func (m *MockDirectory) SetAccountDisabled(ctx context.Context, dn string, disabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disableCalls = append(m.disableCalls, disableCall{DN: dn, Disabled: disabled})
	m.taskIDs = append(m.taskIDs, internal.TaskIDFromContext(ctx))
	_, hasDeadline := ctx.Deadline()
	m.deadlines = append(m.deadlines, hasDeadline)
	return m.modifyErr
}

func (m *MockDirectory) SetPassword(ctx context.Context, dn, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passwordCalls = append(m.passwordCalls, passwordCall{DN: dn, Password: password})
	return m.modifyErr
}

func (m *MockDirectory) DisableCalls() []disableCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]disableCall(nil), m.disableCalls...)
}

// memStore keeps persisted entries in memory
type memStore struct{}

func (memStore) Load(ctx context.Context) ([]tasklog.Entry, error) { return nil, nil }

func (memStore) Append(ctx context.Context, entry tasklog.Entry, all []tasklog.Entry) error {
	return nil
}

func newTask(t task.Type, username string) task.Task {
	return *task.NewTask("task-1", t, username, time.Now(), "", "")
}

var _ = Describe("Executor", func() {
	var (
		dir      *MockDirectory
		bus      *events.EventBus
		log      *tasklog.Log
		executor *task.Executor
		ctx      context.Context
	)

	BeforeEach(func() {
		dir = NewMockDirectory()
		dir.dns["alice"] = "CN=Alice,OU=Staff,DC=example,DC=com"
		dir.names["ayse"] = &directory.Names{GivenName: "ayşe", Surname: "yılmaz", DN: "CN=Ayse,DC=example,DC=com"}

		bus = events.NewEventBus(testLogger())
		log = tasklog.New(memStore{}, testLogger())
		tasklog.NewEventHandler(log).Subscribe(bus)

		executor = task.NewExecutor(dir, bus, task.ExecutorConfig{}, testLogger())
		ctx = context.Background()
	})

	It("should deactivate an account and log one success entry", func() {
		executor.Execute(ctx, newTask(task.TypeDeactivateUser, "alice"))

		Expect(dir.DisableCalls()).To(Equal([]disableCall{{DN: "CN=Alice,OU=Staff,DC=example,DC=com", Disabled: true}}))
		entries := log.All()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Username).To(Equal("alice"))
		Expect(entries[0].Type).To(Equal("deactivate_user"))
		Expect(entries[0].Status).To(Equal(tasklog.StatusSuccess))
		Expect(entries[0].Message).To(Equal("Account deactivated"))
		Expect(entries[0].Label).To(Equal("alice"))
	})

	It("should run the directory calls under the task id with a deadline", func() {
		executor.Execute(ctx, newTask(task.TypeDeactivateUser, "alice"))

		Expect(dir.taskIDs).To(Equal([]string{"task-1"}))
		Expect(dir.deadlines).To(Equal([]bool{true}))
	})

	It("should activate an account", func() {
		executor.Execute(ctx, newTask(task.TypeActivateUser, "alice"))

		Expect(dir.DisableCalls()).To(Equal([]disableCall{{DN: "CN=Alice,OU=Staff,DC=example,DC=com", Disabled: false}}))
		Expect(log.All()[0].Message).To(Equal("Account activated"))
	})

	It("should log an error entry for an unknown user without writing", func() {
		executor.Execute(ctx, newTask(task.TypeDeactivateUser, "ghost"))

		Expect(dir.DisableCalls()).To(BeEmpty())
		entries := log.All()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Status).To(Equal(tasklog.StatusError))
		Expect(entries[0].Message).To(ContainSubstring("ghost"))
	})

	It("should log the modify error and not retry", func() {
		dir.modifyErr = internal.NewDirectoryModifyError(errors.New("Insufficient Access Rights"))

		executor.Execute(ctx, newTask(task.TypeActivateUser, "alice"))

		Expect(dir.DisableCalls()).To(HaveLen(1))
		entries := log.All()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Status).To(Equal(tasklog.StatusError))
		Expect(entries[0].Message).To(ContainSubstring("Insufficient Access Rights"))
	})

	It("should log an error entry when the directory is unreachable", func() {
		dir.findErr = internal.NewDirectoryUnavailableError(errors.New("connection refused"))

		executor.Execute(ctx, newTask(task.TypeResetPassword, "ayse"))

		entries := log.All()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Status).To(Equal(tasklog.StatusError))
		Expect(entries[0].Message).To(ContainSubstring("connection refused"))
	})

	Describe("reset_password", func() {
		It("should derive the password and report it", func() {
			executor.Execute(ctx, newTask(task.TypeResetPassword, "ayse"))

			Expect(dir.passwordCalls).To(Equal([]passwordCall{{DN: "CN=Ayse,DC=example,DC=com", Password: "Ay1q2w3e!!"}}))
			entries := log.All()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Status).To(Equal(tasklog.StatusSuccess))
			Expect(entries[0].Message).To(Equal("Password reset: Ay1q2w3e!!"))
		})

		It("should keep the password out of the log when redaction is on", func() {
			executor = task.NewExecutor(dir, bus, task.ExecutorConfig{RedactPasswords: true}, testLogger())

			executor.Execute(ctx, newTask(task.TypeResetPassword, "ayse"))

			Expect(dir.passwordCalls).To(HaveLen(1))
			Expect(log.All()[0].Message).To(Equal("Password reset"))
		})

		It("should log exactly one error entry and not write when the surname is missing", func() {
			dir.names["nosn"] = &directory.Names{GivenName: "Cem", DN: "CN=Cem,DC=example,DC=com"}

			executor.Execute(ctx, newTask(task.TypeResetPassword, "nosn"))

			Expect(dir.passwordCalls).To(BeEmpty())
			entries := log.All()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Status).To(Equal(tasklog.StatusError))
			Expect(entries[0].Message).To(ContainSubstring("incomplete user information"))
			Expect(entries[0].Message).To(ContainSubstring("sn"))
		})

		It("should not write when the DN is missing", func() {
			dir.names["nodn"] = &directory.Names{GivenName: "Cem", Surname: "Kaya"}

			executor.Execute(ctx, newTask(task.TypeResetPassword, "nodn"))

			Expect(dir.passwordCalls).To(BeEmpty())
			Expect(log.All()[0].Status).To(Equal(tasklog.StatusError))
		})
	})
})

var _ = Describe("GeneratePassword", func() {
	DescribeTable("derivation",
		func(given, surname, expected string) {
			Expect(task.GeneratePassword(given, surname)).To(Equal(expected))
		},
		Entry("lower-case input", "ayşe", "yılmaz", "Ay1q2w3e!!"),
		Entry("mixed case input", "JOHN", "Smith", "Js1q2w3e!!"),
		Entry("non-ASCII first letters", "ömer", "Çelik", "Öç1q2w3e!!"),
	)
})
