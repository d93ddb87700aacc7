// models.go
// Defines the core data structures shared by the FieldLog API:
// identities, survey records, sync status, and reference data.

package models

import (
	"time"
)

// Role defines the access level of an account.
type Role string

const (
	RoleOperator   Role = "operator"
	RoleAdmin      Role = "admin"
	RoleCompany    Role = "company"
	RoleSupervisor Role = "supervisor"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOperator, RoleAdmin, RoleCompany, RoleSupervisor:
		return true
	}
	return false
}

// Identity is the authenticated principal carried by a session token
// and attached to the request context by the session gate.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// User represents an account as persisted in the user store.
type User struct {
	ID          string    `firestore:"id" json:"id"`
	Email       string    `firestore:"email" json:"email"`
	Role        Role      `firestore:"role" json:"role"`
	CompanyID   string    `firestore:"company_id,omitempty" json:"company_id,omitempty"`
	DisplayName string    `firestore:"display_name,omitempty" json:"display_name,omitempty"`
	LastLogin   time.Time `firestore:"last_login" json:"last_login"`
}

// Identity returns the token-facing view of the user.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Role: u.Role}
}

// SyncStatus is the three-state convergence indicator reported to clients.
// No other value is ever produced or accepted.
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusPending SyncStatus = "pending"
	SyncStatusFailed  SyncStatus = "failed"
)

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64 `firestore:"lat" json:"lat"`
	Lon float64 `firestore:"lon" json:"lon"`
}

// InRange reports whether the position is a plausible WGS84 coordinate.
func (c Coordinates) InRange() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// RecordCoordinates holds the device-observed GPS fix and an optional
// manual correction entered by the operator.
type RecordCoordinates struct {
	Observed       Coordinates  `firestore:"observed" json:"observed"`
	ManualOverride *Coordinates `firestore:"manual_override,omitempty" json:"manual_override,omitempty"`
}

// Effective returns the coordinates that should be treated as authoritative:
// the manual override when present, otherwise the observed fix. An override
// signals the operator corrected an inaccurate reading.
func (rc RecordCoordinates) Effective() Coordinates {
	if rc.ManualOverride != nil {
		return *rc.ManualOverride
	}
	return rc.Observed
}

// SurveyRecord is the canonical, server-authoritative survey record.
// ID is server-assigned; LocalID is the client-generated key the record
// was first submitted under and never changes afterwards.
type SurveyRecord struct {
	ID           string            `firestore:"id" json:"id"`
	LocalID      string            `firestore:"local_id" json:"local_id"`
	OperatorID   string            `firestore:"operator_id" json:"operator_id"`
	SiteLocation string            `firestore:"site_location" json:"site_location"`
	WorkTypeID   string            `firestore:"work_type_id" json:"work_type_id"`
	CompanyID    string            `firestore:"company_id,omitempty" json:"company_id,omitempty"`
	CrewCount    int               `firestore:"crew_count" json:"crew_count"`
	Coordinates  RecordCoordinates `firestore:"coordinates" json:"coordinates"`
	CapturedAt   time.Time         `firestore:"captured_at" json:"captured_at"`
	SubmittedAt  time.Time         `firestore:"submitted_at" json:"submitted_at"`
	Notes        string            `firestore:"notes,omitempty" json:"notes,omitempty"`
	SyncStatus   SyncStatus        `firestore:"sync_status" json:"sync_status"`
}

// OfflineRecord is the client-side capture submitted for synchronization.
// LocalID is generated on the device and never collides with server ids.
type OfflineRecord struct {
	LocalID        string            `json:"local_id"`
	SiteLocation   string            `json:"site_location"`
	WorkTypeID     string            `json:"work_type_id"`
	CompanyID      string            `json:"company_id,omitempty"`
	CrewCount      int               `json:"crew_count"`
	Coordinates    RecordCoordinates `json:"coordinates"`
	CapturedAt     time.Time         `json:"captured_at"`
	LocalCreatedAt time.Time         `json:"local_created_at"`
	Notes          string            `json:"notes,omitempty"`
	AttachedMedia  []string          `json:"attached_media,omitempty"`
}

// SubmitResult is the terminal outcome of one submission attempt,
// reported back to the client queue.
type SubmitResult struct {
	ID         string     `json:"id,omitempty"`
	SyncStatus SyncStatus `json:"sync_status"`
	Reason     string     `json:"reason,omitempty"`
}

// WorkType is an admin-managed reference value describing the kind of
// work performed at a site.
type WorkType struct {
	ID   string `firestore:"id" json:"id"`
	Name string `firestore:"name" json:"name"`
}

// Company is an admin-managed contractor reference.
type Company struct {
	ID   string `firestore:"id" json:"id"`
	Name string `firestore:"name" json:"name"`
}
