package user_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/frahmantamala/ad-user-manager/internal"
	"github.com/frahmantamala/ad-user-manager/internal/transport"
	"github.com/frahmantamala/ad-user-manager/internal/user"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("User Handler", func() {
	var (
		mockDir *MockDirectory
		service *user.Service
		router  chi.Router
		slogger *slog.Logger
	)

	BeforeEach(func() {
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		mockDir = NewMockDirectory()
		mockDir.AddUser("bob", "bob", "bob", "512")
		mockDir.AddUser("alice", "Alice", "Alice Smith", "514")

		service = user.NewService(mockDir, user.Config{Locale: "en"}, slogger)
		handler := user.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		router = chi.NewRouter()
		router.Get("/users", handler.GetUsers)
		router.Get("/users/{username}", handler.GetUser)
		router.Post("/api/refresh-users-cache", handler.RefreshCache)
	})

	serve := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("should handle GET /users request successfully", func() {
		w := serve(http.MethodGet, "/users")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		var response []user.UserResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response).To(HaveLen(2))
		Expect(response[0]).To(Equal(user.UserResponse{
			Name:     "Alice",
			Username: "alice",
			FullName: "Alice Smith",
			Email:    "alice@example.com",
			Disabled: true,
		}))
		Expect(response[1].Username).To(Equal("bob"))
	})

	It("should return 500 with an error body when the directory is down", func() {
		mockDir.SetShouldFail(true, internal.NewDirectoryUnavailableError(errors.New("dial tcp: refused")))

		w := serve(http.MethodGet, "/users")

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		var response internal.Response
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response.Error).To(Equal("directory service unavailable"))
	})

	It("should return 404 when the directory is empty", func() {
		mockDir.entries = nil

		w := serve(http.MethodGet, "/users")

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should clear the cache on refresh", func() {
		Expect(serve(http.MethodGet, "/users").Code).To(Equal(http.StatusOK))
		Expect(serve(http.MethodGet, "/users").Code).To(Equal(http.StatusOK))
		Expect(mockDir.searchCalls).To(Equal(1))

		w := serve(http.MethodPost, "/api/refresh-users-cache")
		Expect(w.Code).To(Equal(http.StatusOK))

		var response user.RefreshCacheResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response.Success).To(BeTrue())
		Expect(response.Message).To(Equal("User cache cleared."))

		Expect(serve(http.MethodGet, "/users").Code).To(Equal(http.StatusOK))
		Expect(mockDir.searchCalls).To(Equal(2))
	})

	It("should return user detail", func() {
		w := serve(http.MethodGet, "/users/alice")

		Expect(w.Code).To(Equal(http.StatusOK))
		var response user.UserDetailResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response.Username).To(Equal("alice"))
		Expect(response.Name).To(Equal("Alice"))
		Expect(response.DN).To(Equal("CN=Alice Smith,DC=example,DC=com"))
	})

	It("should return 404 for an unknown user", func() {
		w := serve(http.MethodGet, "/users/ghost")

		Expect(w.Code).To(Equal(http.StatusNotFound))
		var response internal.Response
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response.Error).To(ContainSubstring("ghost"))
	})
})
