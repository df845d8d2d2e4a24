package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"health-consent/internal/domain/consent"
	"health-consent/internal/domain/groups"
	"health-consent/internal/domain/sessions"
)

const consentColumns = `
	id, code, owner_id, state,
	issued_at, expires_at,
	claimed_by, claimed_at, session_id,
	group_origin, invitee,
	revoked_at
`

type ConsentRepo struct {
	db *sql.DB
}

func NewConsentRepo(db *sql.DB) *ConsentRepo {
	return &ConsentRepo{db: db}
}

func (r *ConsentRepo) Create(ctx context.Context, c consent.ConsentCode, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Libera el valor si el pending anterior ya venció.
	if _, err := tx.ExecContext(ctx, `
		UPDATE consent_codes
		SET state = 'expired'
		WHERE code = $1 AND state = 'pending' AND expires_at <= $2
	`, c.Code, now); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO consent_codes (
			id, code, owner_id, state,
			issued_at, expires_at,
			group_origin, invitee
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		c.ID,
		c.Code,
		c.Owner,
		string(c.State),
		c.IssuedAt,
		c.ExpiresAt,
		c.GroupOrigin,
		c.Invitee,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return consent.ErrCodeCollision
		}
		return err
	}

	return tx.Commit()
}

func (r *ConsentRepo) Lookup(ctx context.Context, code string) (consent.ConsentCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return consent.ConsentCode{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+consentColumns+`
		FROM consent_codes
		WHERE code = $1
		ORDER BY issued_at DESC, id DESC
		LIMIT 1
	`, code)
	return scanConsent(row)
}

func (r *ConsentRepo) GetByID(ctx context.Context, id string) (consent.ConsentCode, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return consent.ConsentCode{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+consentColumns+`
		FROM consent_codes
		WHERE id = $1
	`, id)
	return scanConsent(row)
}

// Claim: la sesión (o el miembro, para un código de grupo) y la transición
// pending -> claimed van en la misma transacción. El WHERE del UPDATE es el compare-and-swap entre réplicas.
func (r *ConsentRepo) Claim(ctx context.Context, p consent.ClaimParams) (consent.ConsentCode, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return consent.ConsentCode{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var sessionID sql.NullString
	if p.Session != nil {
		if err := insertSession(ctx, tx, *p.Session); err != nil {
			return consent.ConsentCode{}, err
		}
		sessionID = sql.NullString{String: p.Session.ID, Valid: true}
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE consent_codes
		SET
			state = 'claimed',
			claimed_by = $2,
			claimed_at = $3,
			session_id = $4
		WHERE id = $1 AND state = 'pending' AND expires_at > $3
		RETURNING `+consentColumns,
		p.ID,
		p.Claimant,
		p.At,
		sessionID,
	)

	c, err := scanConsent(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return consent.ConsentCode{}, consent.ErrStateConflict
		}
		return consent.ConsentCode{}, err
	}

	if p.Admission != nil {
		if err := insertAdmission(ctx, tx, *p.Admission); err != nil {
			return consent.ConsentCode{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return consent.ConsentCode{}, err
	}
	return c, nil
}

func (r *ConsentRepo) Revoke(ctx context.Context, id string, at time.Time) (consent.ConsentCode, error) {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE consent_codes
		SET state = 'revoked', revoked_at = $2
		WHERE id = $1 AND state = 'pending' AND expires_at > $2
	`, id, at); err != nil {
		return consent.ConsentCode{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *ConsentRepo) ListByOwner(ctx context.Context, owner string) ([]consent.ConsentCode, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+consentColumns+`
		FROM consent_codes
		WHERE owner_id = $1
		ORDER BY issued_at DESC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]consent.ConsentCode, 0)
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ConsentRepo) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE consent_codes
		SET state = 'expired'
		WHERE state = 'pending' AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanConsent(s scanner) (consent.ConsentCode, error) {
	var (
		c         consent.ConsentCode
		state     string
		claimedAt sql.NullTime
		sessionID sql.NullString
		revokedAt sql.NullTime
	)
	if err := s.Scan(
		&c.ID,
		&c.Code,
		&c.Owner,
		&state,
		&c.IssuedAt,
		&c.ExpiresAt,
		&c.ClaimedBy,
		&claimedAt,
		&sessionID,
		&c.GroupOrigin,
		&c.Invitee,
		&revokedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return consent.ConsentCode{}, ErrNotFound
		}
		return consent.ConsentCode{}, err
	}

	c.State = consent.State(state)
	c.ClaimedAt = fromNullTime(claimedAt)
	c.SessionID = sessionID.String
	c.RevokedAt = fromNullTime(revokedAt)
	return c, nil
}

func insertAdmission(ctx context.Context, tx *sql.Tx, a consent.Admission) error {
	err := insertMember(ctx, tx, groups.Member{
		GroupID:   a.GroupID,
		PatientID: a.PatientID,
		Role:      groups.RoleMember,
		Relation:  groups.Relation(a.Relation),
		JoinedAt:  a.JoinedAt,
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return consent.ErrGroupGone
	case errors.Is(err, groups.ErrDuplicate):
		return consent.ErrAlreadyMember
	}
	return err
}

func insertSession(ctx context.Context, tx *sql.Tx, s sessions.Session) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (
			id, owner_id, holder_id, provider,
			status, created_at, ended_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		s.ID,
		s.Owner,
		s.Holder,
		s.Scope.Provider,
		string(s.Status),
		s.CreatedAt,
		toNullTime(s.EndedAt),
	)
	return err
}
