package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"health-consent/internal/domain/patients"
)

type PatientsRepo struct {
	db *sql.DB
}

func NewPatientsRepo(db *sql.DB) *PatientsRepo {
	return &PatientsRepo{db: db}
}

func (r *PatientsRepo) Upsert(ctx context.Context, p patients.Patient) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (
			id, name, birth_date, gender,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			birth_date = EXCLUDED.birth_date,
			gender = EXCLUDED.gender,
			updated_at = EXCLUDED.updated_at
	`,
		p.ID,
		p.Name,
		toNullDate(p.BirthDate),
		string(p.Gender),
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *PatientsRepo) GetByID(ctx context.Context, id string) (patients.Patient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return patients.Patient{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, name, birth_date, gender,
			created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)

	var p patients.Patient
	var bd sql.NullTime
	var gender string
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&bd,
		&gender,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return patients.Patient{}, ErrNotFound
		}
		return patients.Patient{}, err
	}

	// ojo: birth_date es date, pgx lo mapea a time.Time midnight UTC
	p.BirthDate = fromNullTime(bd)
	p.Gender = patients.Gender(gender)

	return p, nil
}

// birth_date es DATE, lo pasamos como NullTime para simplificar
func toNullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
