package patients

import (
	"context"
	"errors"
	"strings"
	"time"

	"health-consent/internal/ports/storage"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type ProfileInput struct {
	Name      string
	BirthDate *time.Time
	Gender    Gender
}

// SaveProfile crea o actualiza el perfil del propio llamador.
func (s *Service) SaveProfile(ctx context.Context, id string, in ProfileInput) (Patient, error) {
	id = strings.TrimSpace(id)
	name := strings.TrimSpace(in.Name)
	if id == "" || name == "" {
		return Patient{}, ErrInvalidInput
	}

	gender, err := normalizeGender(in.Gender)
	if err != nil {
		return Patient{}, err
	}

	now := s.now()
	if in.BirthDate != nil && in.BirthDate.After(now) {
		return Patient{}, ErrInvalidInput
	}

	p := Patient{
		ID:        id,
		Name:      name,
		BirthDate: in.BirthDate,
		Gender:    gender,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := s.repo.GetByID(ctx, id); err == nil {
		p.CreatedAt = existing.CreatedAt
	}

	if err := s.repo.Upsert(ctx, p); err != nil {
		return Patient{}, err
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Patient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Patient{}, ErrInvalidInput
	}
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return Patient{}, ErrNotFound
	}
	if err != nil {
		return Patient{}, err
	}
	return p, nil
}

// DisplayName expone el nombre para mostrar de una identidad.
// Si no hay perfil cargado devuelve el propio id: nunca falla.
// Se usa desde consent/groups sin importar este paquete (rompe ciclos).
func (s *Service) DisplayName(ctx context.Context, id string) string {
	p, err := s.GetByID(ctx, id)
	if err != nil || p.Name == "" {
		return id
	}
	return p.Name
}

// Profile devuelve el perfil o false si no existe.
func (s *Service) Profile(ctx context.Context, id string) (Patient, bool) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return Patient{}, false
	}
	return p, true
}

func (s *Service) Now() time.Time { return s.now() }

func normalizeGender(g Gender) (Gender, error) {
	switch Gender(strings.ToLower(strings.TrimSpace(string(g)))) {
	case "":
		return GenderUnknown, nil
	case GenderMale:
		return GenderMale, nil
	case GenderFemale:
		return GenderFemale, nil
	case GenderUnknown:
		return GenderUnknown, nil
	default:
		return "", ErrInvalidInput
	}
}
