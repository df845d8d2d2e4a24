package records

import (
	"context"
	"errors"
	"time"
)

// ErrRecordNotFound lo devuelven los stores cuando el id no existe.
var ErrRecordNotFound = errors.New("record not found")

// Store es el colaborador externo que guarda la historia clínica. El gateway
// solo decide quién puede leer o escribir; el store no conoce de permisos.
type Store interface {
	Create(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	ListByPatient(ctx context.Context, patientID string, filter ListFilter) ([]Record, error)
	Void(ctx context.Context, id string) error
}

type ListFilter struct {
	Types  []RecordType
	From   *time.Time
	To     *time.Time
	Query  string
	Limit  int
	Offset int
}
