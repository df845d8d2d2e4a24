package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"health-consent/internal/domain/consent"
	"health-consent/internal/domain/groups"
)

type consentRepo struct {
	mu       sync.Mutex
	byID     map[string]consent.ConsentCode
	sessions *SessionRepo
	groups   *GroupRepo
}

// NewConsentRepo recibe los repos donde Claim escribe la sesión (claim
// directo) o el miembro nuevo (claim de grupo).
func NewConsentRepo(sessions *SessionRepo, members *GroupRepo) consent.Repository {
	return &consentRepo{
		byID:     make(map[string]consent.ConsentCode),
		sessions: sessions,
		groups:   members,
	}
}

func (r *consentRepo) Create(ctx context.Context, c consent.ConsentCode, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		return errors.New("consent id required")
	}
	if _, exists := r.byID[c.ID]; exists {
		return errors.New("consent already exists")
	}

	for id, existing := range r.byID {
		if existing.Code != c.Code || existing.State != consent.StatePending {
			continue
		}
		if !existing.ExpiredAt(now) {
			return consent.ErrCodeCollision
		}
		// El valor se reusa: la fila vieja queda expired.
		existing.State = consent.StateExpired
		r.byID[id] = existing
	}

	r.byID[c.ID] = c
	return nil
}

func (r *consentRepo) Lookup(ctx context.Context, code string) (consent.ConsentCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var winner consent.ConsentCode
	has := false
	for _, c := range r.byID {
		if c.Code != code {
			continue
		}
		if !has || newer(c, winner) {
			winner = c
			has = true
		}
	}
	if !has {
		return consent.ConsentCode{}, ErrNotFound
	}
	return winner, nil
}

// newer desempata por ID igual que el orden de claves en LevelDB.
func newer(a, b consent.ConsentCode) bool {
	if a.IssuedAt.Equal(b.IssuedAt) {
		return a.ID > b.ID
	}
	return a.IssuedAt.After(b.IssuedAt)
}

func (r *consentRepo) GetByID(ctx context.Context, id string) (consent.ConsentCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return consent.ConsentCode{}, ErrNotFound
	}
	return c, nil
}

func (r *consentRepo) Claim(ctx context.Context, p consent.ClaimParams) (consent.ConsentCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[p.ID]
	if !ok {
		return consent.ConsentCode{}, ErrNotFound
	}
	if c.State != consent.StatePending || c.ExpiredAt(p.At) {
		return consent.ConsentCode{}, consent.ErrStateConflict
	}

	// La admisión va primero: si falla, el código no cambia.
	if p.Admission != nil {
		if err := r.admit(ctx, *p.Admission); err != nil {
			return consent.ConsentCode{}, err
		}
	}

	at := p.At
	c.State = consent.StateClaimed
	c.ClaimedBy = p.Claimant
	c.ClaimedAt = &at
	if p.Session != nil {
		c.SessionID = p.Session.ID
		r.sessions.insert(*p.Session)
	}
	r.byID[c.ID] = c
	return c, nil
}

func (r *consentRepo) admit(ctx context.Context, a consent.Admission) error {
	if r.groups == nil {
		return consent.ErrGroupGone
	}
	err := r.groups.AddMember(ctx, groups.Member{
		GroupID:   a.GroupID,
		PatientID: a.PatientID,
		Role:      groups.RoleMember,
		Relation:  groups.Relation(a.Relation),
		JoinedAt:  a.JoinedAt,
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return consent.ErrGroupGone
	case errors.Is(err, groups.ErrDuplicate):
		return consent.ErrAlreadyMember
	}
	return err
}

func (r *consentRepo) Revoke(ctx context.Context, id string, at time.Time) (consent.ConsentCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return consent.ConsentCode{}, ErrNotFound
	}
	if c.State == consent.StatePending && !c.ExpiredAt(at) {
		c.State = consent.StateRevoked
		c.RevokedAt = &at
		r.byID[id] = c
	}
	return c, nil
}

func (r *consentRepo) ListByOwner(ctx context.Context, owner string) ([]consent.ConsentCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]consent.ConsentCode, 0)
	for _, c := range r.byID {
		if c.Owner == owner {
			out = append(out, c)
		}
	}

	// Más reciente primero
	sort.Slice(out, func(i, j int) bool {
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})
	return out, nil
}

func (r *consentRepo) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, c := range r.byID {
		if c.State == consent.StatePending && c.ExpiredAt(now) {
			c.State = consent.StateExpired
			r.byID[id] = c
			n++
		}
	}
	return n, nil
}
