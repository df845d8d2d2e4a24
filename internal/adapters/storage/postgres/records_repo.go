package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"health-consent/internal/domain/records"
)

const recordColumns = `
	id, patient_id,
	type, occurred_at, recorded_at,
	title, notes,
	author_type, author_id,
	session_id, source,
	status
`

type RecordsRepo struct {
	db *sql.DB
}

func NewRecordsRepo(db *sql.DB) *RecordsRepo {
	return &RecordsRepo{db: db}
}

func (r *RecordsRepo) Create(ctx context.Context, rec records.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medical_records (`+recordColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		rec.ID,
		rec.PatientID,
		string(rec.Type),
		rec.OccurredAt,
		rec.RecordedAt,
		rec.Title,
		rec.Notes,
		string(rec.Author.Type),
		rec.Author.ID,
		rec.SessionID,
		string(rec.Source),
		string(rec.Status),
	)
	return err
}

func (r *RecordsRepo) GetByID(ctx context.Context, id string) (records.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return records.Record{}, records.ErrRecordNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM medical_records
		WHERE id::text = $1
	`, id)

	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return records.Record{}, records.ErrRecordNotFound
		}
		return records.Record{}, err
	}
	return rec, nil
}

func (r *RecordsRepo) ListByPatient(ctx context.Context, patientID string, filter records.ListFilter) ([]records.Record, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, nil
	}

	// Base query
	sb := strings.Builder{}
	sb.WriteString(`
		SELECT ` + recordColumns + `
		FROM medical_records
		WHERE patient_id = $1
	`)

	args := []any{patientID}
	argN := 2

	// types filter
	if len(filter.Types) > 0 {
		placeholders := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argN))
			args = append(args, string(t))
			argN++
		}
		sb.WriteString(" AND type IN (" + strings.Join(placeholders, ",") + ")")
	}

	// from/to
	if filter.From != nil {
		sb.WriteString(fmt.Sprintf(" AND occurred_at >= $%d", argN))
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		sb.WriteString(fmt.Sprintf(" AND occurred_at <= $%d", argN))
		args = append(args, *filter.To)
		argN++
	}

	// q: búsqueda simple en title + notes
	if strings.TrimSpace(filter.Query) != "" {
		sb.WriteString(fmt.Sprintf(" AND (title ILIKE $%d OR notes ILIKE $%d)", argN, argN))
		args = append(args, "%"+strings.TrimSpace(filter.Query)+"%")
		argN++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	sb.WriteString(" ORDER BY occurred_at DESC")
	sb.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argN, argN+1))
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]records.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

func (r *RecordsRepo) Void(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return records.ErrRecordNotFound
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE medical_records
		SET status = 'voided'
		WHERE id::text = $1
	`, id)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return records.ErrRecordNotFound
	}
	return nil
}

func scanRecord(s scanner) (records.Record, error) {
	var rec records.Record
	var typ, authorType, source, status string

	if err := s.Scan(
		&rec.ID,
		&rec.PatientID,
		&typ,
		&rec.OccurredAt,
		&rec.RecordedAt,
		&rec.Title,
		&rec.Notes,
		&authorType,
		&rec.Author.ID,
		&rec.SessionID,
		&source,
		&status,
	); err != nil {
		return records.Record{}, err
	}

	rec.Type = records.RecordType(typ)
	rec.Author.Type = records.AuthorType(authorType)
	rec.Source = records.Source(source)
	rec.Status = records.Status(status)
	return rec, nil
}
