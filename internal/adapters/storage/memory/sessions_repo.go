package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"health-consent/internal/domain/sessions"
)

// SessionRepo también lo usa ConsentRepo para escribir la sesión en el mismo
// paso que el claim.
type SessionRepo struct {
	mu   sync.RWMutex
	byID map[string]sessions.Session
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{
		byID: make(map[string]sessions.Session),
	}
}

func (r *SessionRepo) insert(s sessions.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.ID] = s
}

func (r *SessionRepo) GetByID(ctx context.Context, id string) (sessions.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return sessions.Session{}, ErrNotFound
	}
	return s, nil
}

func (r *SessionRepo) End(ctx context.Context, id string, at time.Time) (sessions.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return sessions.Session{}, ErrNotFound
	}
	if s.Status == sessions.StatusActive {
		s.Status = sessions.StatusEnded
		s.EndedAt = &at
		r.byID[id] = s
	}
	return s, nil
}

func (r *SessionRepo) ListByOwner(ctx context.Context, owner string) ([]sessions.Session, error) {
	return r.list(func(s sessions.Session) bool { return s.Owner == owner }), nil
}

func (r *SessionRepo) ListByHolder(ctx context.Context, holder string) ([]sessions.Session, error) {
	return r.list(func(s sessions.Session) bool { return s.Holder == holder }), nil
}

func (r *SessionRepo) list(match func(sessions.Session) bool) []sessions.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]sessions.Session, 0)
	for _, s := range r.byID {
		if match(s) {
			out = append(out, s)
		}
	}

	// Más reciente primero
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
