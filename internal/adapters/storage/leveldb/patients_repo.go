package leveldb

import (
	"context"
	"strings"

	"health-consent/internal/domain/patients"

	"github.com/pkg/errors"
)

type PatientsRepo struct {
	d *DB
}

func NewPatientsRepo(d *DB) *PatientsRepo {
	return &PatientsRepo{d: d}
}

func (r *PatientsRepo) Upsert(ctx context.Context, p patients.Patient) error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("patient id required")
	}

	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var prev patients.Patient
	switch err := r.d.get(prefixPatient+p.ID, &prev); {
	case err == nil:
		p.CreatedAt = prev.CreatedAt
	case !errors.Is(err, ErrNotFound):
		return err
	}
	return r.d.put(prefixPatient+p.ID, p)
}

func (r *PatientsRepo) GetByID(ctx context.Context, id string) (patients.Patient, error) {
	var p patients.Patient
	if err := r.d.get(prefixPatient+id, &p); err != nil {
		return patients.Patient{}, err
	}
	return p, nil
}
