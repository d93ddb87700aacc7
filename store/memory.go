package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fieldlog/models"
)

// MemoryStore is a mutex-guarded in-memory implementation of RecordStore,
// UserStore and ReferenceStore. It backs the test suite and the seed tool's
// dry-run mode; insert-if-absent under the lock mirrors Firestore's
// document-create semantics.
type MemoryStore struct {
	mu        sync.RWMutex
	records   map[string]models.SurveyRecord // keyed by local id
	users     map[string]models.User
	hashes    map[string]string
	workTypes map[string]models.WorkType
	companies map[string]models.Company
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:   make(map[string]models.SurveyRecord),
		users:     make(map[string]models.User),
		hashes:    make(map[string]string),
		workTypes: make(map[string]models.WorkType),
		companies: make(map[string]models.Company),
	}
}

// --- Record operations ---

func (s *MemoryStore) InsertRecord(ctx context.Context, rec *models.SurveyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.LocalID]; exists {
		return ErrDuplicateRecord
	}
	s.records[rec.LocalID] = *rec
	return nil
}

func (s *MemoryStore) GetRecordByLocalID(ctx context.Context, localID string) (*models.SurveyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, found := s.records[localID]
	if !found {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) GetRecordByID(ctx context.Context, id string) (*models.SurveyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.ID == id {
			r := rec
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateRecord(ctx context.Context, rec *models.SurveyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.records[rec.LocalID]; !found {
		return ErrNotFound
	}
	s.records[rec.LocalID] = *rec
	return nil
}

func (s *MemoryStore) ListRecordsSince(ctx context.Context, since time.Time) ([]models.SurveyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []models.SurveyRecord
	for _, rec := range s.records {
		if since.IsZero() || rec.SubmittedAt.After(since) {
			records = append(records, rec)
		}
	}
	sortRecords(records)
	return records, nil
}

func (s *MemoryStore) ListRecordsByOperator(ctx context.Context, operatorID string) ([]models.SurveyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []models.SurveyRecord
	for _, rec := range s.records {
		if rec.OperatorID == operatorID {
			records = append(records, rec)
		}
	}
	sortRecords(records)
	return records, nil
}

func sortRecords(records []models.SurveyRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].SubmittedAt.Before(records[j].SubmittedAt)
	})
}

// --- User operations ---

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; exists {
		return fmt.Errorf("user %s already exists", user.ID)
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, found := s.users[id]
	if !found {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.users[user.ID]; !found {
		return ErrNotFound
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.users[id]; !found {
		return ErrNotFound
	}
	delete(s.users, id)
	delete(s.hashes, id)
	return nil
}

func (s *MemoryStore) StorePasswordHash(ctx context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[userID] = hash
	return nil
}

func (s *MemoryStore) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, found := s.hashes[userID]
	if !found {
		return "", ErrNotFound
	}
	return hash, nil
}

// --- Reference data ---

func (s *MemoryStore) CreateWorkType(ctx context.Context, wt *models.WorkType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workTypes[wt.ID] = *wt
	return nil
}

func (s *MemoryStore) ListWorkTypes(ctx context.Context) ([]models.WorkType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workTypes := make([]models.WorkType, 0, len(s.workTypes))
	for _, wt := range s.workTypes {
		workTypes = append(workTypes, wt)
	}
	sort.Slice(workTypes, func(i, j int) bool { return workTypes[i].ID < workTypes[j].ID })
	return workTypes, nil
}

func (s *MemoryStore) CreateCompany(ctx context.Context, c *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.ID] = *c
	return nil
}

func (s *MemoryStore) ListCompanies(ctx context.Context) ([]models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	companies := make([]models.Company, 0, len(s.companies))
	for _, c := range s.companies {
		companies = append(companies, c)
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i].ID < companies[j].ID })
	return companies, nil
}
