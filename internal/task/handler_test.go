package task_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/ad-user-manager/api"
	"github.com/frahmantamala/ad-user-manager/internal"
	"github.com/frahmantamala/ad-user-manager/internal/core/common/validation"
	"github.com/frahmantamala/ad-user-manager/internal/task"
	"github.com/frahmantamala/ad-user-manager/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Task Handler", func() {
	var (
		submitter *MockSubmitter
		scheduler *task.Scheduler
		handler   *task.Handler
	)

	BeforeEach(func() {
		submitter = &MockSubmitter{}
		scheduler = task.NewScheduler(submitter, task.Config{}, testLogger())

		schemas, err := validation.NewSchemaValidator(api.Spec)
		Expect(err).NotTo(HaveOccurred())

		handler = task.NewHandler(&transport.BaseHandler{Logger: testLogger()}, scheduler, schemas)
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/schedule-task", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.ScheduleTask(w, req)
		return w
	}

	errorOf := func(w *httptest.ResponseRecorder) string {
		var response internal.Response
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		return response.Error
	}

	It("should schedule a task and return its id", func() {
		runAt := time.Now().Add(time.Hour).Format(time.RFC3339)
		w := post(`{"type":"reset_password","username":"alice","runAt":"` + runAt + `"}`)

		Expect(w.Code).To(Equal(http.StatusOK))
		var response task.ScheduleTaskResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response.Success).To(BeTrue())
		Expect(response.ID).NotTo(BeEmpty())

		active := scheduler.ListActive()
		Expect(active).To(HaveLen(1))
		Expect(active[0].ID).To(Equal(response.ID))
		Expect(active[0].Description).To(Equal("reset_password task"))
	})

	It("should reject an unknown task type with 400 and schedule nothing", func() {
		w := post(`{"type":"delete_user","username":"alice","runAt":"2030-01-01T10:00"}`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(errorOf(w)).To(ContainSubstring("invalid task type"))
		Expect(scheduler.ListActive()).To(BeEmpty())
	})

	It("should reject a body missing required fields", func() {
		w := post(`{"type":"activate_user","runAt":"2030-01-01T10:00"}`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(errorOf(w)).To(ContainSubstring("username"))
	})

	It("should reject a body with the wrong field types", func() {
		w := post(`{"type":"activate_user","username":42,"runAt":"2030-01-01T10:00"}`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should reject malformed JSON", func() {
		w := post(`{"type":`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(errorOf(w)).To(Equal("invalid JSON body"))
	})

	It("should reject an unparsable runAt", func() {
		w := post(`{"type":"activate_user","username":"alice","runAt":"soon"}`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(errorOf(w)).To(ContainSubstring("runAt"))
		Expect(scheduler.ListActive()).To(BeEmpty())
	})

	It("should list active tasks as JSON", func() {
		post(`{"type":"deactivate","username":"bob","runAt":"` + time.Now().Add(time.Hour).Format(time.RFC3339) + `","label":"offboarding"}`)
		post(`{"type":"activate","username":"carl","runAt":"` + time.Now().Add(-time.Hour).Format(time.RFC3339) + `"}`)

		req := httptest.NewRequest(http.MethodGet, "/api/active-tasks", nil)
		w := httptest.NewRecorder()
		handler.GetActiveTasks(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var response []map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response).To(HaveLen(1))
		Expect(response[0]).To(HaveKeyWithValue("username", "bob"))
		Expect(response[0]).To(HaveKeyWithValue("type", "deactivate_user"))
		Expect(response[0]).To(HaveKeyWithValue("label", "offboarding"))
		Expect(response[0]).To(HaveKey("runAt"))
		Expect(response[0]).To(HaveKey("id"))
	})

	It("should render no active tasks as []", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/active-tasks", nil)
		w := httptest.NewRecorder()
		handler.GetActiveTasks(w, req)

		Expect(w.Body.String()).To(Equal("[]\n"))
	})
})
