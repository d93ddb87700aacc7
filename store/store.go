// Package store defines the persistence interfaces the API is written
// against, plus the sentinel errors implementations translate their
// backend failures into. The production implementation is Firestore;
// tests inject the in-memory implementation.
package store

import (
	"context"
	"errors"
	"time"

	"fieldlog/models"
)

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicateRecord is returned by InsertRecord when a record with the
	// same local id already exists. The conditional insert is the primitive
	// the at-most-once submission guarantee is built on.
	ErrDuplicateRecord = errors.New("store: duplicate record")
)

// RecordStore persists canonical survey records.
type RecordStore interface {
	// InsertRecord writes a new record keyed by its client-generated
	// LocalID. Fails with ErrDuplicateRecord if that key is taken;
	// concurrent inserts of the same LocalID resolve to exactly one write.
	InsertRecord(ctx context.Context, rec *models.SurveyRecord) error
	// GetRecordByLocalID fetches the record submitted under localID.
	GetRecordByLocalID(ctx context.Context, localID string) (*models.SurveyRecord, error)
	// GetRecordByID fetches a record by its server-assigned id.
	GetRecordByID(ctx context.Context, id string) (*models.SurveyRecord, error)
	// UpdateRecord overwrites an existing record. The record must already
	// exist under its LocalID key.
	UpdateRecord(ctx context.Context, rec *models.SurveyRecord) error
	// ListRecordsSince returns records submitted after the given time.
	// A zero time returns everything.
	ListRecordsSince(ctx context.Context, since time.Time) ([]models.SurveyRecord, error)
	// ListRecordsByOperator returns records authored by one operator.
	ListRecordsByOperator(ctx context.Context, operatorID string) ([]models.SurveyRecord, error)
}

// UserStore persists accounts and their credentials.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error
	StorePasswordHash(ctx context.Context, userID, hash string) error
	GetPasswordHash(ctx context.Context, userID string) (string, error)
}

// ReferenceStore persists admin-managed reference data.
type ReferenceStore interface {
	CreateWorkType(ctx context.Context, wt *models.WorkType) error
	ListWorkTypes(ctx context.Context) ([]models.WorkType, error)
	CreateCompany(ctx context.Context, c *models.Company) error
	ListCompanies(ctx context.Context) ([]models.Company, error)
}
