package handlers_test

import (
	"net/http"
	"testing"

	"fieldlog/handlers"
	"fieldlog/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	app := newTestApp(t)
	admin := app.addUser(t, "admin@example.com", "admin1password", models.RoleAdmin, "")

	w := app.do(t, http.MethodPost, "/admin/users", app.accessToken(t, admin), handlers.CreateUserRequest{
		Email:    "new-op@example.com",
		Password: "operator1pass",
		Role:     models.RoleOperator,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	created := decode[models.User](t, w)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.RoleOperator, created.Role)

	// The new account can log in right away.
	login := app.do(t, http.MethodPost, "/auth/login", "", handlers.LoginRequest{
		Email:    "new-op@example.com",
		Password: "operator1pass",
	})
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestCreateUser_NonAdminForbidden(t *testing.T) {
	app := newTestApp(t)
	supervisor := app.addUser(t, "sv@example.com", "supervisor1pass", models.RoleSupervisor, "")

	w := app.do(t, http.MethodPost, "/admin/users", app.accessToken(t, supervisor), handlers.CreateUserRequest{
		Email:    "new-op@example.com",
		Password: "operator1pass",
		Role:     models.RoleOperator,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateUser_Invalid(t *testing.T) {
	app := newTestApp(t)
	admin := app.addUser(t, "admin@example.com", "admin1password", models.RoleAdmin, "")
	token := app.accessToken(t, admin)

	tests := []struct {
		name       string
		req        handlers.CreateUserRequest
		wantStatus int
	}{
		{"unknown role", handlers.CreateUserRequest{Email: "x@example.com", Password: "operator1pass", Role: "root"}, http.StatusBadRequest},
		{"weak password", handlers.CreateUserRequest{Email: "x@example.com", Password: "short1", Role: models.RoleOperator}, http.StatusBadRequest},
		{"duplicate email", handlers.CreateUserRequest{Email: "admin@example.com", Password: "operator1pass", Role: models.RoleOperator}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(t, http.MethodPost, "/admin/users", token, tt.req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestWorkTypes(t *testing.T) {
	app := newTestApp(t)
	admin := app.addUser(t, "admin@example.com", "admin1password", models.RoleAdmin, "")
	token := app.accessToken(t, admin)

	w := app.do(t, http.MethodPost, "/admin/work-types", token, models.WorkType{Name: "Paving"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.WorkType](t, w)
	assert.NotEmpty(t, created.ID)

	list := app.do(t, http.MethodGet, "/admin/work-types", token, nil)
	require.Equal(t, http.StatusOK, list.Code)
	workTypes := decode[[]models.WorkType](t, list)
	require.Len(t, workTypes, 1)
	assert.Equal(t, "Paving", workTypes[0].Name)
}
