package leveldb

import (
	"context"
	"sort"
	"time"

	"health-consent/internal/domain/sessions"
)

type SessionsRepo struct {
	d *DB
}

func NewSessionsRepo(d *DB) *SessionsRepo {
	return &SessionsRepo{d: d}
}

func (r *SessionsRepo) GetByID(ctx context.Context, id string) (sessions.Session, error) {
	var s sessions.Session
	if err := r.d.get(prefixSession+id, &s); err != nil {
		return sessions.Session{}, err
	}
	return s, nil
}

func (r *SessionsRepo) End(ctx context.Context, id string, at time.Time) (sessions.Session, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var s sessions.Session
	if err := r.d.get(prefixSession+id, &s); err != nil {
		return sessions.Session{}, err
	}
	if s.Status != sessions.StatusActive {
		return s, nil
	}

	s.Status = sessions.StatusEnded
	s.EndedAt = &at
	if err := r.d.put(prefixSession+id, s); err != nil {
		return sessions.Session{}, err
	}
	return s, nil
}

func (r *SessionsRepo) ListByOwner(ctx context.Context, owner string) ([]sessions.Session, error) {
	return r.list(func(s sessions.Session) bool { return s.Owner == owner })
}

func (r *SessionsRepo) ListByHolder(ctx context.Context, holder string) ([]sessions.Session, error) {
	return r.list(func(s sessions.Session) bool { return s.Holder == holder })
}

func (r *SessionsRepo) list(match func(sessions.Session) bool) ([]sessions.Session, error) {
	out := make([]sessions.Session, 0)
	err := scanJSON(r.d, prefixSession, func(_ string, s sessions.Session) bool {
		if match(s) {
			out = append(out, s)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
