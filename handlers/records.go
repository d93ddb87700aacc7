package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fieldlog/middleware"
	"fieldlog/models"
	"fieldlog/store"
	"fieldlog/syncer"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RecordsHandler serves record submission, listing and correction.
type RecordsHandler struct {
	reconciler *syncer.Reconciler
	log        *zap.Logger
}

func NewRecordsHandler(reconciler *syncer.Reconciler, log *zap.Logger) *RecordsHandler {
	return &RecordsHandler{
		reconciler: reconciler,
		log:        log,
	}
}

type ListRecordsResponse struct {
	Records []models.SurveyRecord `json:"records"`
	Count   int                   `json:"count"`
}

// Submit reconciles one offline record. Validation failures and store
// outages are reported as a failed submission result so the client queue
// keeps the record eligible for retry; nothing is ever silently dropped.
func (h *RecordsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var offline models.OfflineRecord
	if err := json.NewDecoder(r.Body).Decode(&offline); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.reconciler.Submit(r.Context(), offline, identity)
	if err != nil {
		var vErr *syncer.ValidationError
		switch {
		case errors.Is(err, syncer.ErrForbidden):
			writeError(w, "Role not permitted to submit records", http.StatusForbidden)
		case errors.As(err, &vErr):
			writeJSON(w, http.StatusUnprocessableEntity, models.SubmitResult{
				SyncStatus: models.SyncStatusFailed,
				Reason:     vErr.Reason,
			})
		default:
			h.log.Error("record submission failed", zap.String("local_id", offline.LocalID), zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, models.SubmitResult{
				SyncStatus: models.SyncStatusFailed,
				Reason:     "store_unavailable",
			})
		}
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// List returns the canonical records the caller may see, optionally only
// those submitted after ?since=<RFC3339>.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var since time.Time
	if sinceParam := r.URL.Query().Get("since"); sinceParam != "" {
		parsed, err := time.Parse(time.RFC3339, sinceParam)
		if err != nil {
			writeError(w, "Invalid 'since' parameter format. Use RFC3339", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	records, err := h.reconciler.ListForIdentity(r.Context(), identity, since)
	if err != nil {
		h.log.Error("failed to list records", zap.String("user_id", identity.ID), zap.Error(err))
		writeError(w, "Failed to retrieve records", http.StatusServiceUnavailable)
		return
	}
	if records == nil {
		records = []models.SurveyRecord{}
	}

	writeJSON(w, http.StatusOK, ListRecordsResponse{Records: records, Count: len(records)})
}

// Correct applies an authorized correction to a canonical record.
// Route-level gating already restricts this to admins and supervisors.
func (h *RecordsHandler) Correct(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, "Record id is required", http.StatusBadRequest)
		return
	}

	var patch syncer.Correction
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := h.reconciler.Correct(r.Context(), id, patch, identity)
	if err != nil {
		var vErr *syncer.ValidationError
		switch {
		case errors.Is(err, syncer.ErrForbidden):
			writeError(w, "Insufficient permissions", http.StatusForbidden)
		case errors.Is(err, store.ErrNotFound):
			writeError(w, "Record not found", http.StatusNotFound)
		case errors.As(err, &vErr):
			writeError(w, vErr.Error(), http.StatusUnprocessableEntity)
		default:
			h.log.Error("record correction failed", zap.String("record_id", id), zap.Error(err))
			writeError(w, "Failed to update record", http.StatusServiceUnavailable)
		}
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
