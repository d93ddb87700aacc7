package store

import (
	"context"
	"testing"
	"time"

	"fieldlog/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(localID string) *models.SurveyRecord {
	return &models.SurveyRecord{
		ID:           "rec-" + localID,
		LocalID:      localID,
		OperatorID:   "op-1",
		SiteLocation: "Via Appia km 12",
		WorkTypeID:   "wt-paving",
		CrewCount:    3,
		Coordinates: models.RecordCoordinates{
			Observed: models.Coordinates{Lat: 41.9, Lon: 12.5},
		},
		CapturedAt:  time.Now().Add(-time.Hour),
		SubmittedAt: time.Now(),
		SyncStatus:  models.SyncStatusSynced,
	}
}

func TestMemoryStore_InsertRecord_Duplicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.InsertRecord(ctx, sampleRecord("L1")))

	err := s.InsertRecord(ctx, sampleRecord("L1"))
	assert.ErrorIs(t, err, ErrDuplicateRecord)

	records, err := s.ListRecordsSince(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMemoryStore_GetRecord(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	rec := sampleRecord("L1")
	require.NoError(t, s.InsertRecord(ctx, rec))

	byLocal, err := s.GetRecordByLocalID(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byLocal.ID)

	byID, err := s.GetRecordByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "L1", byID.LocalID)

	_, err = s.GetRecordByLocalID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetRecordByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_UpdateRecord(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	rec := sampleRecord("L1")
	require.NoError(t, s.InsertRecord(ctx, rec))

	rec.CrewCount = 5
	require.NoError(t, s.UpdateRecord(ctx, rec))

	got, err := s.GetRecordByLocalID(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.CrewCount)

	assert.ErrorIs(t, s.UpdateRecord(ctx, sampleRecord("missing")), ErrNotFound)
}

func TestMemoryStore_ListRecordsSince(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	old := sampleRecord("L1")
	old.SubmittedAt = time.Now().Add(-2 * time.Hour)
	recent := sampleRecord("L2")
	recent.SubmittedAt = time.Now()

	require.NoError(t, s.InsertRecord(ctx, old))
	require.NoError(t, s.InsertRecord(ctx, recent))

	all, err := s.ListRecordsSince(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	since, err := s.ListRecordsSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, "L2", since[0].LocalID)
}

func TestMemoryStore_ListRecordsByOperator(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	mine := sampleRecord("L1")
	other := sampleRecord("L2")
	other.OperatorID = "op-2"
	require.NoError(t, s.InsertRecord(ctx, mine))
	require.NoError(t, s.InsertRecord(ctx, other))

	records, err := s.ListRecordsByOperator(ctx, "op-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "L1", records[0].LocalID)
}

func TestMemoryStore_Users(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	user := &models.User{ID: "u1", Email: "op@example.com", Role: models.RoleOperator}
	require.NoError(t, s.CreateUser(ctx, user))
	assert.Error(t, s.CreateUser(ctx, user))

	byEmail, err := s.GetUserByEmail(ctx, "op@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)

	require.NoError(t, s.StorePasswordHash(ctx, "u1", "hash"))
	hash, err := s.GetPasswordHash(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "hash", hash)

	user.Role = models.RoleSupervisor
	require.NoError(t, s.UpdateUser(ctx, user))
	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSupervisor, got.Role)

	require.NoError(t, s.DeleteUser(ctx, "u1"))
	_, err = s.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetPasswordHash(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ReferenceData(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateWorkType(ctx, &models.WorkType{ID: "wt-1", Name: "Paving"}))
	require.NoError(t, s.CreateCompany(ctx, &models.Company{ID: "co-1", Name: "Northway"}))

	workTypes, err := s.ListWorkTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, workTypes, 1)

	companies, err := s.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Len(t, companies, 1)
}
