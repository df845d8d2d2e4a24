package consent

import (
	"context"
	"errors"
	"time"

	"health-consent/internal/domain/sessions"
)

// ErrStateConflict lo devuelve el repo cuando el compare-and-swap no aplica
// (la fila ya no está pending o ya venció). El service reclasifica.
var ErrStateConflict = errors.New("consent state conflict")

// Errores de la admisión escrita junto con un claim de grupo. Con cualquiera
// de los dos el código queda pending.
var (
	ErrGroupGone     = errors.New("group no longer exists")
	ErrAlreadyMember = errors.New("claimant already a member")
)

// Admission es la fila de miembro que entra con un claim de grupo. consent no
// conoce el modelo de groups; cada driver la traduce a su tabla de miembros.
type Admission struct {
	GroupID   string
	PatientID string
	Relation  string
	JoinedAt  time.Time
}

type ClaimParams struct {
	ID       string
	Claimant string
	At       time.Time

	// Session se escribe en el mismo paso atómico. nil para códigos de grupo.
	Session *sessions.Session

	// Admission, para códigos de grupo, también va en el mismo paso: si el
	// miembro no se puede escribir el código no cambia.
	Admission *Admission
}

type Repository interface {
	// Create inserta una fila pending. Si existe otra fila pending no vencida
	// (a la fecha now) con el mismo Code devuelve ErrCodeCollision.
	Create(ctx context.Context, c ConsentCode, now time.Time) error

	// Lookup devuelve la fila más reciente con ese código.
	Lookup(ctx context.Context, code string) (ConsentCode, error)
	GetByID(ctx context.Context, id string) (ConsentCode, error)

	// Claim hace pending -> claimed solo si ExpiresAt > At. Si no aplica,
	// ErrStateConflict y nada se escribe. Si la admisión falla devuelve
	// ErrGroupGone, ErrAlreadyMember o el error del backend, y tampoco se
	// escribe nada.
	Claim(ctx context.Context, p ClaimParams) (ConsentCode, error)

	// Revoke hace pending -> revoked si ExpiresAt > at. En cualquier otro caso
	// devuelve la fila sin cambios.
	Revoke(ctx context.Context, id string, at time.Time) (ConsentCode, error)

	ListByOwner(ctx context.Context, owner string) ([]ConsentCode, error)

	// ExpirePending marca expired los pending con ExpiresAt <= now.
	ExpirePending(ctx context.Context, now time.Time) (int, error)
}
