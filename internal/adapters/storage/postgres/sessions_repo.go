package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"health-consent/internal/domain/sessions"
)

const sessionColumns = `
	id, owner_id, holder_id, provider,
	status, created_at, ended_at
`

type SessionsRepo struct {
	db *sql.DB
}

func NewSessionsRepo(db *sql.DB) *SessionsRepo {
	return &SessionsRepo{db: db}
}

func (r *SessionsRepo) GetByID(ctx context.Context, id string) (sessions.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return sessions.Session{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id::text = $1
	`, id)
	return scanSession(row)
}

// End solo toca sesiones activas; sobre una terminada devuelve la fila tal cual.
func (r *SessionsRepo) End(ctx context.Context, id string, at time.Time) (sessions.Session, error) {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = 'ended', ended_at = $2
		WHERE id::text = $1 AND status = 'active'
	`, id, at); err != nil {
		return sessions.Session{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *SessionsRepo) ListByOwner(ctx context.Context, owner string) ([]sessions.Session, error) {
	return r.list(ctx, "owner_id", owner)
}

func (r *SessionsRepo) ListByHolder(ctx context.Context, holder string) ([]sessions.Session, error) {
	return r.list(ctx, "holder_id", holder)
}

// column viene de las constantes de arriba, nunca del request.
func (r *SessionsRepo) list(ctx context.Context, column, value string) ([]sessions.Session, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE `+column+` = $1
		ORDER BY created_at DESC
	`, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]sessions.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(sc scanner) (sessions.Session, error) {
	var (
		s       sessions.Session
		status  string
		endedAt sql.NullTime
	)
	if err := sc.Scan(
		&s.ID,
		&s.Owner,
		&s.Holder,
		&s.Scope.Provider,
		&status,
		&s.CreatedAt,
		&endedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sessions.Session{}, ErrNotFound
		}
		return sessions.Session{}, err
	}

	s.Scope.Owner = s.Owner
	s.Status = sessions.Status(status)
	s.EndedAt = fromNullTime(endedAt)
	return s, nil
}
