// Seed tool: loads reference data and demo accounts into the configured
// Firestore project. Run once against a fresh environment:
//
//	go run ./scripts
//
// Pass -dry-run to exercise the seed against an in-memory store instead.
package main

import (
	"context"
	"flag"
	"log"

	"fieldlog/auth"
	"fieldlog/config"
	"fieldlog/models"
	"fieldlog/store"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// seedTarget is the slice of the store layer the seed writes through.
type seedTarget interface {
	store.UserStore
	store.ReferenceStore
}

func main() {
	dryRun := flag.Bool("dry-run", false, "seed an in-memory store instead of Firestore")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	ctx := context.Background()

	var db seedTarget
	if *dryRun {
		db = store.NewMemoryStore()
		log.Println("dry run: seeding in-memory store")
	} else {
		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid configuration: %v", err)
		}
		fs, err := store.NewFirestoreStore(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
		if err != nil {
			log.Fatalf("failed to initialize Firestore: %v", err)
		}
		defer fs.Close()
		db = fs
	}

	log.Println("seeding reference data...")

	if err := seedWorkTypes(ctx, db); err != nil {
		log.Fatalf("failed to seed work types: %v", err)
	}
	if err := seedCompanies(ctx, db); err != nil {
		log.Fatalf("failed to seed companies: %v", err)
	}
	if err := seedUsers(ctx, db); err != nil {
		log.Fatalf("failed to seed users: %v", err)
	}

	log.Println("seeding completed")
}

func seedWorkTypes(ctx context.Context, db seedTarget) error {
	workTypes := []models.WorkType{
		{ID: "wt-excavation", Name: "Excavation"},
		{ID: "wt-paving", Name: "Paving"},
		{ID: "wt-drainage", Name: "Drainage"},
		{ID: "wt-inspection", Name: "Site Inspection"},
	}
	for i := range workTypes {
		if err := db.CreateWorkType(ctx, &workTypes[i]); err != nil {
			return err
		}
		log.Printf("  work type: %s", workTypes[i].Name)
	}
	return nil
}

func seedCompanies(ctx context.Context, db seedTarget) error {
	companies := []models.Company{
		{ID: "co-northway", Name: "Northway Contracting"},
		{ID: "co-meridian", Name: "Meridian Civil Works"},
	}
	for i := range companies {
		if err := db.CreateCompany(ctx, &companies[i]); err != nil {
			return err
		}
		log.Printf("  company: %s", companies[i].Name)
	}
	return nil
}

func seedUsers(ctx context.Context, db seedTarget) error {
	users := []struct {
		user     models.User
		password string
	}{
		{
			user: models.User{
				ID:          uuid.NewString(),
				Email:       "operator@example.com",
				Role:        models.RoleOperator,
				DisplayName: "Demo Operator",
			},
			password: "operator1pass",
		},
		{
			user: models.User{
				ID:          uuid.NewString(),
				Email:       "supervisor@example.com",
				Role:        models.RoleSupervisor,
				DisplayName: "Demo Supervisor",
			},
			password: "supervisor1pass",
		},
		{
			user: models.User{
				ID:          uuid.NewString(),
				Email:       "company@example.com",
				Role:        models.RoleCompany,
				CompanyID:   "co-northway",
				DisplayName: "Northway Office",
			},
			password: "company1pass",
		},
	}

	for _, u := range users {
		if existing, _ := db.GetUserByEmail(ctx, u.user.Email); existing != nil {
			log.Printf("  user exists, skipping: %s", u.user.Email)
			continue
		}
		hash, err := auth.HashPassword(u.password)
		if err != nil {
			return err
		}
		if err := db.CreateUser(ctx, &u.user); err != nil {
			return err
		}
		if err := db.StorePasswordHash(ctx, u.user.ID, hash); err != nil {
			return err
		}
		log.Printf("  user: %s (%s)", u.user.Email, u.user.Role)
	}
	return nil
}
