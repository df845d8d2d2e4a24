package sessions

import (
	"context"
	"time"
)

// Repository no tiene Create: la sesión se escribe en el mismo paso atómico
// que marca el código como reclamado (ver consent.Repository.Claim).
type Repository interface {
	GetByID(ctx context.Context, id string) (Session, error)
	// End pasa active -> ended. Sobre una sesión ya terminada no cambia nada.
	End(ctx context.Context, id string, at time.Time) (Session, error)
	ListByOwner(ctx context.Context, owner string) ([]Session, error)
	ListByHolder(ctx context.Context, holder string) ([]Session, error)
}
