package leveldb

import (
	"context"
	"sort"
	"strings"

	"health-consent/internal/domain/records"

	"github.com/pkg/errors"
)

type RecordsRepo struct {
	d *DB
}

func NewRecordsRepo(d *DB) *RecordsRepo {
	return &RecordsRepo{d: d}
}

func (r *RecordsRepo) Create(ctx context.Context, rec records.Record) error {
	if rec.ID == "" {
		return errors.New("record id required")
	}

	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	exists, err := r.d.has(prefixRecord + rec.ID)
	if err != nil {
		return err
	}
	if exists {
		return errors.New("record already exists")
	}
	return r.d.put(prefixRecord+rec.ID, rec)
}

func (r *RecordsRepo) GetByID(ctx context.Context, id string) (records.Record, error) {
	var rec records.Record
	if err := r.d.get(prefixRecord+id, &rec); err != nil {
		if errors.Is(err, ErrNotFound) {
			return records.Record{}, records.ErrRecordNotFound
		}
		return records.Record{}, err
	}
	return rec, nil
}

func (r *RecordsRepo) ListByPatient(ctx context.Context, patientID string, filter records.ListFilter) ([]records.Record, error) {
	q := strings.ToLower(strings.TrimSpace(filter.Query))

	out := make([]records.Record, 0)
	err := scanJSON(r.d, prefixRecord, func(_ string, rec records.Record) bool {
		if rec.PatientID != patientID || !matches(rec, filter, q) {
			return true
		}
		out = append(out, rec)
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []records.Record{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matches(rec records.Record, f records.ListFilter, q string) bool {
	if len(f.Types) > 0 {
		ok := false
		for _, t := range f.Types {
			if rec.Type == t {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.From != nil && rec.OccurredAt.Before(*f.From) {
		return false
	}
	if f.To != nil && rec.OccurredAt.After(*f.To) {
		return false
	}
	if q != "" && !strings.Contains(strings.ToLower(rec.Title+" "+rec.Notes), q) {
		return false
	}
	return true
}

func (r *RecordsRepo) Void(ctx context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var rec records.Record
	if err := r.d.get(prefixRecord+id, &rec); err != nil {
		if errors.Is(err, ErrNotFound) {
			return records.ErrRecordNotFound
		}
		return err
	}
	rec.Status = records.StatusVoided
	return r.d.put(prefixRecord+id, rec)
}
