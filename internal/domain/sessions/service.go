package sessions

import (
	"context"
	"errors"
	"strings"
	"time"

	"health-consent/internal/platform/keylock"
	"health-consent/internal/ports/storage"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("session not found")
	ErrForbidden    = errors.New("forbidden")
	ErrSessionEnded = errors.New("session ended")
)

type Service struct {
	repo  Repository
	locks *keylock.Locker
	now   func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		locks: keylock.New(),
		now:   time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, ErrInvalidInput
	}
	return s.get(ctx, id)
}

func (s *Service) get(ctx context.Context, id string) (Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Finish termina la sesión. Solo el owner puede hacerlo; terminar una sesión
// ya terminada es no-op.
func (s *Service) Finish(ctx context.Context, caller, id string) (Session, error) {
	caller = strings.TrimSpace(caller)
	id = strings.TrimSpace(id)
	if caller == "" || id == "" {
		return Session{}, ErrInvalidInput
	}

	unlock := s.locks.Lock("session:" + id)
	defer unlock()

	sess, err := s.get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if sess.Owner != caller {
		return Session{}, ErrForbidden
	}
	if !sess.Active() {
		return sess, nil
	}

	return s.repo.End(ctx, id, s.now())
}

// Authorize valida que holder pueda leer bajo la sesión id.
// Sesión terminada => ErrSessionEnded (distinto de not found).
func (s *Service) Authorize(ctx context.Context, id, holder string) (Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if sess.Holder != strings.TrimSpace(holder) {
		return Session{}, ErrForbidden
	}
	if !sess.Active() {
		return Session{}, ErrSessionEnded
	}
	return sess, nil
}

func (s *Service) ListByOwner(ctx context.Context, owner string) ([]Session, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByOwner(ctx, owner)
}

func (s *Service) ListByHolder(ctx context.Context, holder string) ([]Session, error) {
	holder = strings.TrimSpace(holder)
	if holder == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByHolder(ctx, holder)
}
