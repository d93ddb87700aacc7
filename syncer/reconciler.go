// Package syncer owns the offline-to-online convergence state machine for
// survey records. A record captured offline is submitted here once
// connectivity returns; the reconciler validates it, assigns a canonical id,
// and performs the conditional insert that makes retries idempotent.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldlog/models"
	"fieldlog/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrForbidden is returned when the identity's role may not perform the
// requested record operation.
var ErrForbidden = errors.New("role not permitted for this operation")

// ErrStoreUnavailable wraps transient backend failures. The server never
// retries on its own; retry is client-driven.
var ErrStoreUnavailable = errors.New("record store unavailable")

// ValidationError describes a malformed record payload. Nothing is written
// when validation fails.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid record: " + e.Reason
}

// Reconciler reconciles offline records against the authoritative record
// store. The store handle is injected so tests can substitute an in-memory
// implementation.
type Reconciler struct {
	records store.RecordStore
	users   store.UserStore
	skew    time.Duration
	log     *zap.Logger
}

// NewReconciler constructs a Reconciler. skew is the tolerated clock drift
// between devices and the server when judging capture timestamps.
func NewReconciler(records store.RecordStore, users store.UserStore, skew time.Duration, log *zap.Logger) *Reconciler {
	return &Reconciler{
		records: records,
		users:   users,
		skew:    skew,
		log:     log,
	}
}

// Submit reconciles one offline record. On first submission it inserts a
// canonical record and returns its server-assigned id with status synced.
// A retry of a record that already reached the store (an acknowledgment
// lost to a flaky connection) resolves to the existing canonical record
// instead of a duplicate insert; both calls report the same id.
//
// Errors: ErrForbidden when the role may not author records,
// *ValidationError for malformed payloads, ErrStoreUnavailable (wrapped)
// for backend failures. The record is never partially written.
func (r *Reconciler) Submit(ctx context.Context, offline models.OfflineRecord, identity models.Identity) (models.SubmitResult, error) {
	switch identity.Role {
	case models.RoleOperator, models.RoleCompany, models.RoleSupervisor:
		// may author records
	default:
		r.log.Warn("record submission forbidden",
			zap.String("role", string(identity.Role)),
			zap.String("user_id", identity.ID))
		return models.SubmitResult{}, ErrForbidden
	}

	if err := r.validate(offline); err != nil {
		r.log.Info("record submission rejected",
			zap.String("local_id", offline.LocalID),
			zap.String("reason", err.Reason))
		return models.SubmitResult{}, err
	}

	now := time.Now().UTC()
	rec := &models.SurveyRecord{
		ID:           uuid.NewString(),
		LocalID:      offline.LocalID,
		OperatorID:   identity.ID,
		SiteLocation: offline.SiteLocation,
		WorkTypeID:   offline.WorkTypeID,
		CompanyID:    offline.CompanyID,
		CrewCount:    offline.CrewCount,
		Coordinates:  offline.Coordinates,
		CapturedAt:   offline.CapturedAt,
		SubmittedAt:  now,
		Notes:        offline.Notes,
		SyncStatus:   models.SyncStatusSynced,
	}

	err := r.records.InsertRecord(ctx, rec)
	if errors.Is(err, store.ErrDuplicateRecord) {
		// Retry of a record that actually succeeded. Re-acknowledge the
		// existing canonical record; no second insert happens.
		existing, getErr := r.records.GetRecordByLocalID(ctx, offline.LocalID)
		if getErr != nil {
			return models.SubmitResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, getErr)
		}
		r.log.Info("record re-acknowledged",
			zap.String("local_id", offline.LocalID),
			zap.String("record_id", existing.ID))
		return models.SubmitResult{ID: existing.ID, SyncStatus: models.SyncStatusSynced}, nil
	}
	if err != nil {
		return models.SubmitResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	r.log.Info("record synced",
		zap.String("local_id", rec.LocalID),
		zap.String("record_id", rec.ID),
		zap.String("operator_id", rec.OperatorID))
	return models.SubmitResult{ID: rec.ID, SyncStatus: models.SyncStatusSynced}, nil
}

// validate checks the required fields of an offline record. The capture
// timestamp may not lie in the future beyond the configured clock-skew
// tolerance; such records are rejected, never clamped.
func (r *Reconciler) validate(offline models.OfflineRecord) *ValidationError {
	switch {
	case offline.LocalID == "":
		return &ValidationError{Reason: "missing_local_id"}
	case offline.SiteLocation == "":
		return &ValidationError{Reason: "missing_site_location"}
	case offline.WorkTypeID == "":
		return &ValidationError{Reason: "missing_work_type"}
	case offline.CapturedAt.IsZero():
		return &ValidationError{Reason: "missing_captured_at"}
	case !offline.Coordinates.Observed.InRange():
		return &ValidationError{Reason: "invalid_coordinates"}
	case offline.Coordinates.ManualOverride != nil && !offline.Coordinates.ManualOverride.InRange():
		return &ValidationError{Reason: "invalid_coordinates"}
	case offline.CrewCount < 0:
		return &ValidationError{Reason: "invalid_crew_count"}
	case offline.CapturedAt.After(time.Now().Add(r.skew)):
		return &ValidationError{Reason: "captured_at_in_future"}
	}
	return nil
}

// Correction is a partial update applied to a canonical record by an
// authorized reviewer. Nil fields are left untouched.
type Correction struct {
	SiteLocation   *string             `json:"site_location,omitempty"`
	WorkTypeID     *string             `json:"work_type_id,omitempty"`
	CrewCount      *int                `json:"crew_count,omitempty"`
	Notes          *string             `json:"notes,omitempty"`
	ManualOverride *models.Coordinates `json:"manual_override,omitempty"`
}

// Correct applies an authorized correction to an existing canonical record.
// This is a distinct update path, not a sync-state transition: the record
// stays synced. Only admins and supervisors may correct records.
func (r *Reconciler) Correct(ctx context.Context, id string, patch Correction, identity models.Identity) (*models.SurveyRecord, error) {
	if identity.Role != models.RoleAdmin && identity.Role != models.RoleSupervisor {
		return nil, ErrForbidden
	}

	rec, err := r.records.GetRecordByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if patch.SiteLocation != nil {
		rec.SiteLocation = *patch.SiteLocation
	}
	if patch.WorkTypeID != nil {
		rec.WorkTypeID = *patch.WorkTypeID
	}
	if patch.CrewCount != nil {
		if *patch.CrewCount < 0 {
			return nil, &ValidationError{Reason: "invalid_crew_count"}
		}
		rec.CrewCount = *patch.CrewCount
	}
	if patch.Notes != nil {
		rec.Notes = *patch.Notes
	}
	if patch.ManualOverride != nil {
		if !patch.ManualOverride.InRange() {
			return nil, &ValidationError{Reason: "invalid_coordinates"}
		}
		override := *patch.ManualOverride
		rec.Coordinates.ManualOverride = &override
	}

	if err := r.records.UpdateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	r.log.Info("record corrected",
		zap.String("record_id", rec.ID),
		zap.String("corrected_by", identity.ID))
	return rec, nil
}

// ListForIdentity returns canonical records scoped to what the identity is
// allowed to see: operators their own submissions, company accounts their
// company's records, supervisors and admins everything.
func (r *Reconciler) ListForIdentity(ctx context.Context, identity models.Identity, since time.Time) ([]models.SurveyRecord, error) {
	switch identity.Role {
	case models.RoleOperator:
		records, err := r.records.ListRecordsByOperator(ctx, identity.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if since.IsZero() {
			return records, nil
		}
		var filtered []models.SurveyRecord
		for _, rec := range records {
			if rec.SubmittedAt.After(since) {
				filtered = append(filtered, rec)
			}
		}
		return filtered, nil

	case models.RoleCompany:
		user, err := r.users.GetUser(ctx, identity.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		records, err := r.records.ListRecordsSince(ctx, since)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		var filtered []models.SurveyRecord
		for _, rec := range records {
			if rec.CompanyID != "" && rec.CompanyID == user.CompanyID {
				filtered = append(filtered, rec)
			}
		}
		return filtered, nil

	case models.RoleSupervisor, models.RoleAdmin:
		records, err := r.records.ListRecordsSince(ctx, since)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return records, nil
	}

	return nil, ErrForbidden
}
