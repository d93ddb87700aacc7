package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fieldlog/auth"
	"fieldlog/middleware"
	"fieldlog/models"
	"fieldlog/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminHandler serves account and reference-data management.
type AdminHandler struct {
	users store.UserStore
	refs  store.ReferenceStore
	log   *zap.Logger
}

func NewAdminHandler(users store.UserStore, refs store.ReferenceStore, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		users: users,
		refs:  refs,
		log:   log,
	}
}

// --- User management ---

type CreateUserRequest struct {
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	Role        models.Role `json:"role"`
	CompanyID   string      `json:"company_id,omitempty"`
	DisplayName string      `json:"display_name,omitempty"`
}

type UpdateUserRequest struct {
	UserID      string      `json:"user_id"`
	Role        models.Role `json:"role,omitempty"`
	CompanyID   *string     `json:"company_id,omitempty"`
	DisplayName *string     `json:"display_name,omitempty"`
}

type DeleteUserRequest struct {
	UserID string `json:"user_id"`
}

type ResetPasswordRequest struct {
	UserID      string `json:"user_id"`
	NewPassword string `json:"new_password"`
}

func (h *AdminHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.log.Error("failed to list users", zap.Error(err))
		writeError(w, "Failed to retrieve users", http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, "Email and password are required", http.StatusBadRequest)
		return
	}
	if !req.Role.Valid() {
		writeError(w, "Unknown role", http.StatusBadRequest)
		return
	}
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if existing, _ := h.users.GetUserByEmail(r.Context(), req.Email); existing != nil {
		writeError(w, "Email already registered", http.StatusConflict)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user := &models.User{
		ID:          uuid.NewString(),
		Email:       req.Email,
		Role:        req.Role,
		CompanyID:   req.CompanyID,
		DisplayName: req.DisplayName,
		LastLogin:   time.Time{},
	}

	if err := h.users.CreateUser(r.Context(), user); err != nil {
		h.log.Error("failed to create user", zap.String("email", req.Email), zap.Error(err))
		writeError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}
	if err := h.users.StorePasswordHash(r.Context(), user.ID, hash); err != nil {
		h.log.Error("failed to store credentials", zap.String("user_id", user.ID), zap.Error(err))
		writeError(w, "Failed to store credentials", http.StatusInternalServerError)
		return
	}

	h.audit(r, "ADMIN_CREATE_USER", user.ID, zap.String("role", string(user.Role)))
	writeJSON(w, http.StatusCreated, user)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUser(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "User not found", http.StatusNotFound)
			return
		}
		writeError(w, "Failed to load user", http.StatusInternalServerError)
		return
	}

	if req.Role != "" {
		if !req.Role.Valid() {
			writeError(w, "Unknown role", http.StatusBadRequest)
			return
		}
		// Already-issued tokens keep the old role until natural expiry;
		// the next refresh picks up the new one.
		user.Role = req.Role
	}
	if req.CompanyID != nil {
		user.CompanyID = *req.CompanyID
	}
	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}

	if err := h.users.UpdateUser(r.Context(), user); err != nil {
		h.log.Error("failed to update user", zap.String("user_id", user.ID), zap.Error(err))
		writeError(w, "Failed to update user", http.StatusInternalServerError)
		return
	}

	h.audit(r, "ADMIN_UPDATE_USER", user.ID, zap.String("role", string(user.Role)))
	writeJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	var req DeleteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	if err := h.users.DeleteUser(r.Context(), req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "User not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to delete user", zap.String("user_id", req.UserID), zap.Error(err))
		writeError(w, "Failed to delete user", http.StatusInternalServerError)
		return
	}

	h.audit(r, "ADMIN_DELETE_USER", req.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ResetPassword lets a supervisor or admin set a new password for an
// account that lost its device or credentials in the field.
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.NewPassword == "" {
		writeError(w, "user_id and new_password are required", http.StatusBadRequest)
		return
	}
	if err := auth.ValidatePasswordStrength(req.NewPassword); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := h.users.GetUser(r.Context(), req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "User not found", http.StatusNotFound)
			return
		}
		writeError(w, "Failed to load user", http.StatusInternalServerError)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.users.StorePasswordHash(r.Context(), req.UserID, hash); err != nil {
		h.log.Error("failed to reset password", zap.String("user_id", req.UserID), zap.Error(err))
		writeError(w, "Failed to reset password", http.StatusInternalServerError)
		return
	}

	h.audit(r, "RESET_PASSWORD", req.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "password reset"})
}

// --- Reference data ---

func (h *AdminHandler) CreateWorkType(w http.ResponseWriter, r *http.Request) {
	var wt models.WorkType
	if err := json.NewDecoder(r.Body).Decode(&wt); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if wt.Name == "" {
		writeError(w, "Name is required", http.StatusBadRequest)
		return
	}
	if wt.ID == "" {
		wt.ID = uuid.NewString()
	}

	if err := h.refs.CreateWorkType(r.Context(), &wt); err != nil {
		h.log.Error("failed to create work type", zap.Error(err))
		writeError(w, "Failed to create work type", http.StatusInternalServerError)
		return
	}

	h.audit(r, "ADMIN_CREATE_WORK_TYPE", wt.ID)
	writeJSON(w, http.StatusCreated, wt)
}

func (h *AdminHandler) GetWorkTypes(w http.ResponseWriter, r *http.Request) {
	workTypes, err := h.refs.ListWorkTypes(r.Context())
	if err != nil {
		h.log.Error("failed to list work types", zap.Error(err))
		writeError(w, "Failed to retrieve work types", http.StatusInternalServerError)
		return
	}
	if workTypes == nil {
		workTypes = []models.WorkType{}
	}
	writeJSON(w, http.StatusOK, workTypes)
}

func (h *AdminHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var c models.Company
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if c.Name == "" {
		writeError(w, "Name is required", http.StatusBadRequest)
		return
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	if err := h.refs.CreateCompany(r.Context(), &c); err != nil {
		h.log.Error("failed to create company", zap.Error(err))
		writeError(w, "Failed to create company", http.StatusInternalServerError)
		return
	}

	h.audit(r, "ADMIN_CREATE_COMPANY", c.ID)
	writeJSON(w, http.StatusCreated, c)
}

func (h *AdminHandler) GetCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.refs.ListCompanies(r.Context())
	if err != nil {
		h.log.Error("failed to list companies", zap.Error(err))
		writeError(w, "Failed to retrieve companies", http.StatusInternalServerError)
		return
	}
	if companies == nil {
		companies = []models.Company{}
	}
	writeJSON(w, http.StatusOK, companies)
}

// audit records an administrative mutation with the acting identity.
func (h *AdminHandler) audit(r *http.Request, action, subject string, fields ...zap.Field) {
	actor := ""
	if identity, ok := middleware.GetIdentityFromContext(r.Context()); ok {
		actor = identity.ID
	}
	h.log.Info("audit",
		append([]zap.Field{
			zap.String("action", action),
			zap.String("actor", actor),
			zap.String("subject", subject),
		}, fields...)...)
}
