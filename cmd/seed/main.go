package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/carewell/hospital-booking/internal/booking"
	"github.com/carewell/hospital-booking/internal/config"
	"github.com/carewell/hospital-booking/internal/db"
)

var specializations = []string{
	"Dermatology",
	"Cardiology",
	"General Medicine",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	_ = godotenv.Load()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())
	root := context.Background()

	if err := seedSpecializations(root, pool); err != nil {
		log.Fatalf("seed specializations: %v", err)
	}
	doctorIDs, err := seedDoctors(root, pool, 40)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(root, pool, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedTemplates(root, pool, doctorIDs); err != nil {
		log.Fatalf("seed slot templates: %v", err)
	}
	if err := generateSlots(root, pool, doctorIDs, 14); err != nil {
		log.Fatalf("generate slots: %v", err)
	}

	log.Println("seed complete")
}

func seedSpecializations(ctx context.Context, pool *pgxpool.Pool) error {
	log.Printf("seeding %d specializations", len(specializations))

	for _, name := range specializations {
		_, err := pool.Exec(ctx, `
			INSERT INTO specializations (name) VALUES ($1)
			ON CONFLICT (name) DO NOTHING
		`, name)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]int64, error) {
	log.Printf("seeding %d doctors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		specID := int64(gofakeit.Number(1, len(specializations)))
		fee := int64(gofakeit.Number(6, 30)) * 50 // 300 to 1500 in steps of 50

		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO doctors (first_name, last_name, specialization_id, consultation_fee, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
			RETURNING id
		`, gofakeit.FirstName(), gofakeit.LastName(), specID, fee).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			first := gofakeit.FirstName()
			last := gofakeit.LastName()
			email := fmt.Sprintf("%s.%s.%d@%s", first, last, i, gofakeit.DomainName())

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (first_name, last_name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, first, last, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
		log.Printf("patients seeded: %d/%d", end, count)
	}
	return nil
}

// seedTemplates gives every doctor a morning and an afternoon window,
// Monday through Saturday, cut into 30-minute slots.
func seedTemplates(ctx context.Context, pool *pgxpool.Pool, doctorIDs []int64) error {
	log.Printf("seeding slot templates for %d doctors", len(doctorIDs))

	windows := []struct {
		start, end string
	}{
		{"09:00", "13:00"},
		{"14:00", "17:00"},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doctorID := range doctorIDs {
		for day := time.Monday; day <= time.Saturday; day++ {
			for _, w := range windows {
				_, err := tx.Exec(ctx, `
					INSERT INTO slot_templates (doctor_id, day_of_week, start_time, end_time, duration_minutes, active)
					VALUES ($1, $2, $3, $4, 30, TRUE)
				`, doctorID, int(day), w.start, w.end)
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Println("slot templates seeded")
	return nil
}

func generateSlots(ctx context.Context, pool *pgxpool.Pool, doctorIDs []int64, days int) error {
	log.Printf("generating slots for %d doctors over %d days", len(doctorIDs), days)

	repo := booking.NewPgRepository(pool)
	// The generator never takes slot locks, so no Redis connection is needed.
	svc := booking.NewService(repo, nil, config.Config{})

	start := time.Now()
	end := start.AddDate(0, 0, days)

	total := 0
	for _, doctorID := range doctorIDs {
		created, err := svc.GenerateSlots(ctx, doctorID, start, end)
		if err != nil {
			return fmt.Errorf("doctor %d: %w", doctorID, err)
		}
		total += len(created)
	}

	log.Printf("generated %d slots", total)
	return nil
}
