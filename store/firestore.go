package store

import (
	"context"
	"fmt"
	"time"

	"fieldlog/models"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	recordsCollection     = "records"
	usersCollection       = "users"
	credentialsCollection = "credentials"
	workTypesCollection   = "work_types"
	companiesCollection   = "companies"
)

// FirestoreStore implements RecordStore, UserStore and ReferenceStore on
// top of Firestore. Records are keyed by their client-generated local id,
// so document-create semantics give the uniqueness constraint the sync
// reconciler relies on.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore initializes the Firestore client for the given project.
func NewFirestoreStore(ctx context.Context, projectID, credentialsPath string) (*FirestoreStore, error) {
	opt := option.WithCredentialsFile(credentialsPath)

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}

	return &FirestoreStore{client: client}, nil
}

// Close closes the underlying Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// --- Record operations ---

// InsertRecord performs a conditional create keyed by the record's local id.
// Firestore rejects a second create of the same document atomically, which
// serializes concurrent retries of one offline record without any
// application-level locking.
func (s *FirestoreStore) InsertRecord(ctx context.Context, rec *models.SurveyRecord) error {
	_, err := s.client.Collection(recordsCollection).Doc(rec.LocalID).Create(ctx, rec)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GetRecordByLocalID(ctx context.Context, localID string) (*models.SurveyRecord, error) {
	doc, err := s.client.Collection(recordsCollection).Doc(localID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	var rec models.SurveyRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return &rec, nil
}

func (s *FirestoreStore) GetRecordByID(ctx context.Context, id string) (*models.SurveyRecord, error) {
	iter := s.client.Collection(recordsCollection).
		Where("id", "==", id).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query record: %w", err)
	}

	var rec models.SurveyRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return &rec, nil
}

func (s *FirestoreStore) UpdateRecord(ctx context.Context, rec *models.SurveyRecord) error {
	_, err := s.client.Collection(recordsCollection).Doc(rec.LocalID).Set(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListRecordsSince(ctx context.Context, since time.Time) ([]models.SurveyRecord, error) {
	q := s.client.Collection(recordsCollection).Query
	if !since.IsZero() {
		q = q.Where("submitted_at", ">", since)
	}
	return s.collectRecords(q.Documents(ctx))
}

func (s *FirestoreStore) ListRecordsByOperator(ctx context.Context, operatorID string) ([]models.SurveyRecord, error) {
	q := s.client.Collection(recordsCollection).Where("operator_id", "==", operatorID)
	return s.collectRecords(q.Documents(ctx))
}

func (s *FirestoreStore) collectRecords(iter *firestore.DocumentIterator) ([]models.SurveyRecord, error) {
	defer iter.Stop()

	var records []models.SurveyRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate records: %w", err)
		}

		var rec models.SurveyRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("failed to parse record %s: %w", doc.Ref.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// --- User operations ---

func (s *FirestoreStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.client.Collection(usersCollection).Doc(user.ID).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user %s already exists", user.ID)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	doc, err := s.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}
	return &user, nil
}

func (s *FirestoreStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	iter := s.client.Collection(usersCollection).
		Where("email", "==", email).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}
	return &user, nil
}

func (s *FirestoreStore) ListUsers(ctx context.Context) ([]models.User, error) {
	iter := s.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()

	var users []models.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate users: %w", err)
		}

		var user models.User
		if err := doc.DataTo(&user); err != nil {
			return nil, fmt.Errorf("failed to parse user %s: %w", doc.Ref.ID, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *FirestoreStore) UpdateUser(ctx context.Context, user *models.User) error {
	_, err := s.client.Collection(usersCollection).Doc(user.ID).Set(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *FirestoreStore) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.client.Collection(usersCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if _, err := s.client.Collection(credentialsCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// StorePasswordHash keeps credentials in a separate collection so user
// documents can be returned to clients without scrubbing.
func (s *FirestoreStore) StorePasswordHash(ctx context.Context, userID, hash string) error {
	_, err := s.client.Collection(credentialsCollection).Doc(userID).Set(ctx, map[string]interface{}{
		"password_hash": hash,
	})
	if err != nil {
		return fmt.Errorf("failed to store password hash: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	doc, err := s.client.Collection(credentialsCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get password hash: %w", err)
	}

	hash, err := doc.DataAt("password_hash")
	if err != nil {
		return "", fmt.Errorf("failed to read password hash: %w", err)
	}
	str, ok := hash.(string)
	if !ok {
		return "", fmt.Errorf("password hash for %s has unexpected type", userID)
	}
	return str, nil
}

// --- Reference data ---

func (s *FirestoreStore) CreateWorkType(ctx context.Context, wt *models.WorkType) error {
	_, err := s.client.Collection(workTypesCollection).Doc(wt.ID).Set(ctx, wt)
	if err != nil {
		return fmt.Errorf("failed to create work type: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListWorkTypes(ctx context.Context) ([]models.WorkType, error) {
	iter := s.client.Collection(workTypesCollection).Documents(ctx)
	defer iter.Stop()

	var workTypes []models.WorkType
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate work types: %w", err)
		}

		var wt models.WorkType
		if err := doc.DataTo(&wt); err != nil {
			return nil, fmt.Errorf("failed to parse work type %s: %w", doc.Ref.ID, err)
		}
		workTypes = append(workTypes, wt)
	}
	return workTypes, nil
}

func (s *FirestoreStore) CreateCompany(ctx context.Context, c *models.Company) error {
	_, err := s.client.Collection(companiesCollection).Doc(c.ID).Set(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListCompanies(ctx context.Context) ([]models.Company, error) {
	iter := s.client.Collection(companiesCollection).Documents(ctx)
	defer iter.Stop()

	var companies []models.Company
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate companies: %w", err)
		}

		var c models.Company
		if err := doc.DataTo(&c); err != nil {
			return nil, fmt.Errorf("failed to parse company %s: %w", doc.Ref.ID, err)
		}
		companies = append(companies, c)
	}
	return companies, nil
}
