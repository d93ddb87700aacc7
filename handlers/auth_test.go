package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"fieldlog/handlers"
	"fieldlog/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	app := newTestApp(t)
	user := app.addUser(t, "op@example.com", "operator1pass", models.RoleOperator, "")

	w := app.do(t, http.MethodPost, "/auth/login", "", handlers.LoginRequest{
		Email:    "op@example.com",
		Password: "operator1pass",
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[handlers.LoginResponse](t, w)
	assert.Equal(t, user.ID, resp.Identity.ID)
	assert.Equal(t, models.RoleOperator, resp.Identity.Role)

	// Both tokens must verify against the codec and carry the identity.
	for _, token := range []string{resp.AccessToken, resp.RefreshToken} {
		identity, err := app.codec.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, identity.ID)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	app := newTestApp(t)
	app.addUser(t, "op@example.com", "operator1pass", models.RoleOperator, "")

	tests := []struct {
		name string
		req  handlers.LoginRequest
	}{
		{"wrong password", handlers.LoginRequest{Email: "op@example.com", Password: "nottherightone1"}},
		{"unknown user", handlers.LoginRequest{Email: "ghost@example.com", Password: "operator1pass"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(t, http.MethodPost, "/auth/login", "", tt.req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestLogin_MissingFields(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodPost, "/auth/login", "", handlers.LoginRequest{Email: "op@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefresh_Success(t *testing.T) {
	app := newTestApp(t)
	user := app.addUser(t, "op@example.com", "operator1pass", models.RoleOperator, "")

	login := decode[handlers.LoginResponse](t, app.do(t, http.MethodPost, "/auth/login", "", handlers.LoginRequest{
		Email:    "op@example.com",
		Password: "operator1pass",
	}))

	w := app.do(t, http.MethodPost, "/auth/refresh", "", handlers.RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[handlers.RefreshResponse](t, w)
	identity, err := app.codec.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.ID)
}

func TestRefresh_PicksUpRoleChange(t *testing.T) {
	app := newTestApp(t)
	user := app.addUser(t, "op@example.com", "operator1pass", models.RoleOperator, "")

	login := decode[handlers.LoginResponse](t, app.do(t, http.MethodPost, "/auth/login", "", handlers.LoginRequest{
		Email:    "op@example.com",
		Password: "operator1pass",
	}))

	user.Role = models.RoleSupervisor
	require.NoError(t, app.store.UpdateUser(context.Background(), user))

	resp := decode[handlers.RefreshResponse](t, app.do(t, http.MethodPost, "/auth/refresh", "", handlers.RefreshRequest{
		RefreshToken: login.RefreshToken,
	}))

	identity, err := app.codec.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSupervisor, identity.Role)
}

func TestRefresh_InvalidToken(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/auth/refresh", "", handlers.RefreshRequest{
		RefreshToken: "not-a-token",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_DeletedAccount(t *testing.T) {
	app := newTestApp(t)
	user := app.addUser(t, "op@example.com", "operator1pass", models.RoleOperator, "")

	login := decode[handlers.LoginResponse](t, app.do(t, http.MethodPost, "/auth/login", "", handlers.LoginRequest{
		Email:    "op@example.com",
		Password: "operator1pass",
	}))

	require.NoError(t, app.store.DeleteUser(context.Background(), user.ID))

	w := app.do(t, http.MethodPost, "/auth/refresh", "", handlers.RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
