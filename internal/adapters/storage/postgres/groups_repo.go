package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"health-consent/internal/domain/groups"
)

type GroupsRepo struct {
	db *sql.DB
}

func NewGroupsRepo(db *sql.DB) *GroupsRepo {
	return &GroupsRepo{db: db}
}

func (r *GroupsRepo) Create(ctx context.Context, g groups.Group, leader groups.Member) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO family_groups (id, name, leader_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, g.ID, g.Name, g.Leader, g.CreatedAt, g.UpdatedAt); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO family_members (group_id, patient_id, role, relation, joined_at)
		VALUES ($1,$2,$3,$4,$5)
	`, leader.GroupID, leader.PatientID, string(leader.Role), string(leader.Relation), leader.JoinedAt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *GroupsRepo) GetByID(ctx context.Context, id string) (groups.Group, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return groups.Group{}, ErrNotFound
	}

	var g groups.Group
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, leader_id, created_at, updated_at
		FROM family_groups
		WHERE id::text = $1
	`, id).Scan(&g.ID, &g.Name, &g.Leader, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return groups.Group{}, ErrNotFound
		}
		return groups.Group{}, err
	}
	return g, nil
}

// Delete: miembros y grants caen por ON DELETE CASCADE.
func (r *GroupsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM family_groups WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GroupsRepo) ListByMember(ctx context.Context, patientID string) ([]groups.Group, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.leader_id, g.created_at, g.updated_at
		FROM family_groups g
		JOIN family_members m ON m.group_id = g.id
		WHERE m.patient_id = $1
		ORDER BY g.created_at ASC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]groups.Group, 0)
	for rows.Next() {
		var g groups.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Leader, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *GroupsRepo) AddMember(ctx context.Context, m groups.Member) error {
	return insertMember(ctx, r.db, m)
}

func insertMember(ctx context.Context, ex execer, m groups.Member) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO family_members (group_id, patient_id, role, relation, joined_at)
		VALUES ($1,$2,$3,$4,$5)
	`, m.GroupID, m.PatientID, string(m.Role), string(m.Relation), m.JoinedAt)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return groups.ErrDuplicate
	case isMissingParent(err):
		return ErrNotFound
	}
	return err
}

func (r *GroupsRepo) GetMember(ctx context.Context, groupID, patientID string) (groups.Member, error) {
	var (
		m             groups.Member
		role, relType string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT group_id, patient_id, role, relation, joined_at
		FROM family_members
		WHERE group_id::text = $1 AND patient_id = $2
	`, groupID, patientID).Scan(&m.GroupID, &m.PatientID, &role, &relType, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return groups.Member{}, ErrNotFound
		}
		return groups.Member{}, err
	}
	m.Role = groups.Role(role)
	m.Relation = groups.Relation(relType)
	return m, nil
}

func (r *GroupsRepo) RemoveMember(ctx context.Context, groupID, patientID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM family_grants
		WHERE group_id::text = $1 AND (grantee_id = $2 OR granted_by = $2)
	`, groupID, patientID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM family_members
		WHERE group_id::text = $1 AND patient_id = $2
	`, groupID, patientID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *GroupsRepo) ListMembers(ctx context.Context, groupID string) ([]groups.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT group_id, patient_id, role, relation, joined_at
		FROM family_members
		WHERE group_id::text = $1
		ORDER BY (role = 'leader') DESC, joined_at ASC, patient_id ASC
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]groups.Member, 0)
	for rows.Next() {
		var (
			m             groups.Member
			role, relType string
		)
		if err := rows.Scan(&m.GroupID, &m.PatientID, &role, &relType, &m.JoinedAt); err != nil {
			return nil, err
		}
		m.Role = groups.Role(role)
		m.Relation = groups.Relation(relType)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *GroupsRepo) PutGrant(ctx context.Context, g groups.Grant) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO family_grants (group_id, grantee_id, granted_by, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT DO NOTHING
	`, g.GroupID, g.Grantee, g.GrantedBy, g.CreatedAt)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *GroupsRepo) DeleteGrants(ctx context.Context, grantedBy, grantee, groupID string) (int, error) {
	q := `DELETE FROM family_grants WHERE granted_by = $1 AND grantee_id = $2`
	args := []any{grantedBy, grantee}
	if strings.TrimSpace(groupID) != "" {
		q += ` AND group_id::text = $3`
		args = append(args, groupID)
	}

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *GroupsRepo) ListGrants(ctx context.Context, groupID string) ([]groups.Grant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT group_id, grantee_id, granted_by, created_at
		FROM family_grants
		WHERE group_id::text = $1
		ORDER BY created_at ASC
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]groups.Grant, 0)
	for rows.Next() {
		var g groups.Grant
		if err := rows.Scan(&g.GroupID, &g.Grantee, &g.GrantedBy, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *GroupsRepo) HasGrant(ctx context.Context, grantee, grantedBy string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM family_grants
			WHERE grantee_id = $1 AND granted_by = $2
		)
	`, grantee, grantedBy).Scan(&ok)
	return ok, err
}
