package consent

import "time"

type State string

const (
	StatePending State = "pending"
	StateClaimed State = "claimed"
	StateExpired State = "expired"
	StateRevoked State = "revoked"
)

// ConsentCode es una fila del ledger. El estado solo avanza:
// pending -> claimed | expired | revoked.
type ConsentCode struct {
	ID   string
	Code string

	Owner string // NIK cuyos registros autoriza el código
	State State

	IssuedAt  time.Time
	ExpiresAt time.Time

	// Solo después de un claim exitoso.
	ClaimedBy string
	ClaimedAt *time.Time
	SessionID string // vacío para códigos de grupo

	// Códigos emitidos vía grupo.
	GroupOrigin string
	Invitee     string // NIK esperado como claimant (opcional)

	RevokedAt *time.Time
}

// ExpiredAt: el vencimiento se evalúa en forma lazy contra ExpiresAt.
func (c ConsentCode) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Effective devuelve la fila con el estado que tendría si un barrido hubiese
// corrido en now (pending vencido => expired).
func (c ConsentCode) Effective(now time.Time) ConsentCode {
	if c.State == StatePending && c.ExpiredAt(now) {
		c.State = StateExpired
	}
	return c
}

func (c ConsentCode) IsGroupCode() bool {
	return c.GroupOrigin != ""
}
