package records

import "time"

// Author es quien escribió el registro: el propio paciente o un proveedor
// dentro de una sesión.
type Author struct {
	Type AuthorType
	ID   string
}

// Record es una entrada de la historia clínica de un paciente.
type Record struct {
	ID        string
	PatientID string

	Type RecordType

	OccurredAt time.Time
	RecordedAt time.Time

	Title string
	Notes string

	Author Author
	// SessionID queda vacío si el registro no se escribió bajo una sesión.
	SessionID string

	Source Source
	Status Status
}
