package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fieldlog/auth"
	"fieldlog/handlers"
	"fieldlog/middleware"
	"fieldlog/models"
	"fieldlog/store"
	"fieldlog/syncer"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "handlers-test-secret"

// testApp wires the handlers against an in-memory store the same way
// main does against Firestore.
type testApp struct {
	store  *store.MemoryStore
	codec  *auth.TokenCodec
	router http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mem := store.NewMemoryStore()
	codec := auth.NewTokenCodec(testSecret, 15*time.Minute, time.Hour)
	logger := zap.NewNop()

	reconciler := syncer.NewReconciler(mem, mem, 5*time.Minute, logger)
	authHandler := handlers.NewAuthHandler(mem, codec, logger)
	recordsHandler := handlers.NewRecordsHandler(reconciler, logger)
	adminHandler := handlers.NewAdminHandler(mem, mem, logger)
	exportHandler := handlers.NewExportHandler(mem, logger)

	r := chi.NewRouter()
	r.Post("/auth/login", authHandler.Login)
	r.Post("/auth/refresh", authHandler.Refresh)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(codec, logger))
		r.Post("/records", recordsHandler.Submit)
		r.Get("/records", recordsHandler.List)

		reviewers := middleware.RequireRole(logger, models.RoleAdmin, models.RoleSupervisor)
		r.With(reviewers).Patch("/records/{id}", recordsHandler.Correct)
		r.With(reviewers).Get("/export/records", exportHandler.Records)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logger, models.RoleAdmin))
			r.Post("/users", adminHandler.CreateUser)
			r.Get("/users", adminHandler.GetUsers)
			r.Post("/work-types", adminHandler.CreateWorkType)
			r.Get("/work-types", adminHandler.GetWorkTypes)
		})
	})

	return &testApp{store: mem, codec: codec, router: r}
}

// addUser creates an account with credentials directly in the store.
func (a *testApp) addUser(t *testing.T, email, password string, role models.Role, companyID string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Role:      role,
		CompanyID: companyID,
	}
	require.NoError(t, a.store.CreateUser(context.Background(), user))
	require.NoError(t, a.store.StorePasswordHash(context.Background(), user.ID, hash))
	return user
}

func (a *testApp) accessToken(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := a.codec.Issue(user.Identity(), auth.KindAccess)
	require.NoError(t, err)
	return token
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}
