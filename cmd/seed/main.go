package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/medagenda/citas-api/pkg/config"
	"github.com/medagenda/citas-api/pkg/database"
)

// Demo dataset: an admin account, two specialties, internal and external
// rooms, one doctor of each type with weekday schedules, and a handful of
// patients.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer db.Close()

	gofakeit.Seed(time.Now().UnixNano())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := seed(ctx, db); err != nil {
		log.Fatalf("seed: %v", err)
	}

	log.Println("seed complete")
}

func seed(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	insertUser := func(email, fullName, role, password string) (string, error) {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return "", err
		}
		id := uuid.NewString()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO users (id, email, password_hash, full_name, role, active, created_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, now())
		`, id, email, string(hash), fullName, role)
		return id, err
	}

	if _, err := insertUser("admin@citas.local", "Administrador", "ADMIN", "admin123"); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	insertSpecialty := func(name string, duration int) (string, error) {
		id := uuid.NewString()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO specialties (id, name, duration_minutes, description)
			VALUES ($1, $2, $3, $4)
		`, id, name, duration, gofakeit.Sentence(8))
		return id, err
	}

	cardiologyID, err := insertSpecialty("Cardiología", 30)
	if err != nil {
		return fmt.Errorf("seed specialty: %w", err)
	}
	dermatologyID, err := insertSpecialty("Dermatología", 15)
	if err != nil {
		return fmt.Errorf("seed specialty: %w", err)
	}

	insertRoom := func(number int, roomType string) (string, error) {
		id := uuid.NewString()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rooms (id, number, type, active, description)
			VALUES ($1, $2, $3, TRUE, $4)
		`, id, number, roomType, gofakeit.Sentence(6))
		return id, err
	}

	room101, err := insertRoom(101, "internal")
	if err != nil {
		return fmt.Errorf("seed room: %w", err)
	}
	if _, err := insertRoom(102, "internal"); err != nil {
		return fmt.Errorf("seed room: %w", err)
	}
	if _, err := insertRoom(201, "external"); err != nil {
		return fmt.Errorf("seed room: %w", err)
	}

	insertDoctor := func(specialtyID, doctorType string, roomID *string) (string, error) {
		name := gofakeit.Name()
		userID, err := insertUser(gofakeit.Email(), name, "DOCTOR", "doctor123")
		if err != nil {
			return "", err
		}
		id := uuid.NewString()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO doctors (id, user_id, full_name, specialty_id, type, room_id, registered_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
		`, id, userID, name, specialtyID, doctorType, roomID)
		return id, err
	}

	internalDoctor, err := insertDoctor(cardiologyID, "internal", &room101)
	if err != nil {
		return fmt.Errorf("seed doctor: %w", err)
	}
	externalDoctor, err := insertDoctor(dermatologyID, "external", nil)
	if err != nil {
		return fmt.Errorf("seed doctor: %w", err)
	}

	insertSchedule := func(doctorID string, weekday int, start, end string) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO weekly_schedules (id, doctor_id, weekday, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.NewString(), doctorID, weekday, start, end)
		return err
	}

	// Monday through Friday.
	for weekday := 0; weekday < 5; weekday++ {
		if err := insertSchedule(internalDoctor, weekday, "07:00:00", "15:00:00"); err != nil {
			return fmt.Errorf("seed schedule: %w", err)
		}
		if err := insertSchedule(externalDoctor, weekday, "09:00:00", "13:00:00"); err != nil {
			return fmt.Errorf("seed schedule: %w", err)
		}
	}

	for i := 0; i < 10; i++ {
		if _, err := insertUser(gofakeit.Email(), gofakeit.Name(), "PATIENT", "patient123"); err != nil {
			return fmt.Errorf("seed patient: %w", err)
		}
	}

	return tx.Commit()
}
