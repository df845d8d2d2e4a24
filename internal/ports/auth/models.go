package auth

// Claims representa la identidad extraída del token.
type Claims struct {
	// UserID es el NIK del paciente, o el id del hospital/staff que reclama.
	UserID string
	Name   string

	// Provider es el contexto de proveedor (hospital) del llamador, si lo hay.
	// Define el scope de las sesiones que ese llamador obtiene.
	Provider string
}
