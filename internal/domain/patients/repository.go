package patients

import "context"

type Repository interface {
	Upsert(ctx context.Context, p Patient) error
	GetByID(ctx context.Context, id string) (Patient, error)
}
