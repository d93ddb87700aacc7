package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fieldlog/auth"
	"fieldlog/models"
	"fieldlog/store"

	"go.uber.org/zap"
)

// AuthHandler serves login and token refresh.
type AuthHandler struct {
	users store.UserStore
	codec *auth.TokenCodec
	log   *zap.Logger
}

func NewAuthHandler(users store.UserStore, codec *auth.TokenCodec, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		users: users,
		codec: codec,
		log:   log,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Identity     models.Identity `json:"identity"`
}

// Login authenticates credentials and issues an access/refresh token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		h.log.Info("login failed", zap.String("email", req.Email), zap.String("reason", "user not found"))
		writeError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	hash, err := h.users.GetPasswordHash(r.Context(), user.ID)
	if err != nil {
		h.log.Info("login failed", zap.String("email", req.Email), zap.String("reason", "no credentials"))
		writeError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if err := auth.CheckPassword(req.Password, hash); err != nil {
		h.log.Info("login failed", zap.String("email", req.Email), zap.String("reason", "bad password"))
		writeError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	// Best effort; a failed timestamp update must not block the login.
	user.LastLogin = time.Now()
	if err := h.users.UpdateUser(r.Context(), user); err != nil {
		h.log.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	identity := user.Identity()
	accessToken, err := h.codec.Issue(identity, auth.KindAccess)
	if err != nil {
		h.log.Error("failed to issue access token", zap.String("user_id", user.ID), zap.Error(err))
		writeError(w, "Failed to generate authentication token", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.codec.Issue(identity, auth.KindRefresh)
	if err != nil {
		h.log.Error("failed to issue refresh token", zap.String("user_id", user.ID), zap.Error(err))
		writeError(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	h.log.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Identity:     identity,
	})
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// Refresh mints a new access token from a still-valid refresh token. The
// account is re-read so the new token carries the user's current role and a
// deleted account can no longer refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	identity, err := h.codec.Verify(req.RefreshToken)
	if err != nil {
		writeError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUser(r.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "Account no longer exists", http.StatusUnauthorized)
			return
		}
		writeError(w, "Failed to load account", http.StatusInternalServerError)
		return
	}

	accessToken, err := h.codec.Issue(user.Identity(), auth.KindAccess)
	if err != nil {
		h.log.Error("failed to issue access token", zap.String("user_id", user.ID), zap.Error(err))
		writeError(w, "Failed to generate authentication token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{AccessToken: accessToken})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
