package patients

import "time"

// Gender del paciente.
// @Enum male, female, unknown
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Patient es el perfil mínimo de una identidad del sistema.
// ID es el NIK (número de identidad) y es lo que viaja en las claims.
type Patient struct {
	ID string

	Name      string
	BirthDate *time.Time
	Gender    Gender

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AgeAt devuelve la edad en años cumplidos; nil si no hay fecha de nacimiento.
func (p Patient) AgeAt(now time.Time) *int {
	if p.BirthDate == nil {
		return nil
	}
	bd := p.BirthDate.UTC()
	now = now.UTC()

	age := now.Year() - bd.Year()
	if now.Month() < bd.Month() || (now.Month() == bd.Month() && now.Day() < bd.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return &age
}
