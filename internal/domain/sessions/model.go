package sessions

import "time"

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Scope define qué puede leer el holder: los registros de Owner, dentro del
// contexto de proveedor Provider (vacío = sin restricción de proveedor).
type Scope struct {
	Owner    string
	Provider string
}

// Session es el permiso que deja un claim exitoso. No tiene vencimiento:
// vive hasta que el owner la termina.
type Session struct {
	ID string

	Owner  string // paciente cuyos registros se leen
	Holder string // quien reclamó el código

	Scope  Scope
	Status Status

	CreatedAt time.Time
	EndedAt   *time.Time
}

func (s Session) Active() bool {
	return s.Status == StatusActive
}
