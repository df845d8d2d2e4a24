package groups

import (
	"context"
	"errors"
)

// ErrDuplicate lo devuelven los repos al insertar un miembro que ya existe.
var ErrDuplicate = errors.New("duplicate")

type Repository interface {
	// Create inserta el grupo y al líder como miembro en un solo paso.
	Create(ctx context.Context, g Group, leader Member) error
	GetByID(ctx context.Context, id string) (Group, error)
	// Delete borra grupo, miembros y grants (cascada).
	Delete(ctx context.Context, id string) error
	ListByMember(ctx context.Context, patientID string) ([]Group, error)

	AddMember(ctx context.Context, m Member) error
	GetMember(ctx context.Context, groupID, patientID string) (Member, error)
	// RemoveMember saca al miembro y los grants que dio o recibió en ese grupo.
	RemoveMember(ctx context.Context, groupID, patientID string) error
	// ListMembers ordena líder primero y después por JoinedAt.
	ListMembers(ctx context.Context, groupID string) ([]Member, error)

	// PutGrant es idempotente: created=false si ya existía.
	PutGrant(ctx context.Context, g Grant) (created bool, err error)
	// DeleteGrants borra los grants grantedBy->grantee; groupID vacío = todos los grupos.
	DeleteGrants(ctx context.Context, grantedBy, grantee, groupID string) (int, error)
	ListGrants(ctx context.Context, groupID string) ([]Grant, error)
	HasGrant(ctx context.Context, grantee, grantedBy string) (bool, error)
}
