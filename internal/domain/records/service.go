package records

import (
	"context"
	"errors"
	"strings"
	"time"

	"health-consent/internal/domain/sessions"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("record not found")
	ErrForbidden    = errors.New("no access to these records")
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// SessionAuthorizer valida que el holder tenga una sesión activa.
type SessionAuthorizer interface {
	Authorize(ctx context.Context, sessionID, holder string) (sessions.Session, error)
}

// GrantChecker responde si reader tiene un grant de grupo sobre owner.
type GrantChecker interface {
	HasGrant(ctx context.Context, reader, owner string) (bool, error)
}

// Service es el gateway de lectura/escritura sobre el record store. Hay tres
// caminos de acceso: el propio paciente, una sesión activa (proveedor) y un
// grant de grupo (solo lectura).
type Service struct {
	store    Store
	sessions SessionAuthorizer
	grants   GrantChecker
	now      func() time.Time
}

func NewService(store Store, sess SessionAuthorizer, grants GrantChecker) *Service {
	return &Service{
		store:    store,
		sessions: sess,
		grants:   grants,
		now:      time.Now,
	}
}

type AppendInput struct {
	Type       RecordType
	OccurredAt time.Time
	Title      string
	Notes      string
	Source     Source
}

// AppendOwn agrega un registro a la historia del propio llamador.
func (s *Service) AppendOwn(ctx context.Context, caller string, in AppendInput) (Record, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return Record{}, ErrInvalidInput
	}
	return s.append(ctx, caller, Author{Type: AuthorTypePatient, ID: caller}, "", in)
}

// AppendViaSession: el holder de una sesión activa escribe en la historia del owner.
func (s *Service) AppendViaSession(ctx context.Context, caller, sessionID string, in AppendInput) (Record, error) {
	sess, err := s.sessions.Authorize(ctx, sessionID, caller)
	if err != nil {
		return Record{}, err
	}
	return s.append(ctx, sess.Owner, Author{Type: AuthorTypeProvider, ID: sess.Holder}, sess.ID, in)
}

func (s *Service) append(ctx context.Context, patientID string, author Author, sessionID string, in AppendInput) (Record, error) {
	if !in.Type.Valid() || in.OccurredAt.IsZero() {
		return Record{}, ErrInvalidInput
	}

	src := in.Source
	if src == "" {
		src = SourceManual
	}

	rec := Record{
		ID:         uuid.NewString(),
		PatientID:  patientID,
		Type:       in.Type,
		OccurredAt: in.OccurredAt,
		RecordedAt: s.now(),
		Title:      strings.TrimSpace(in.Title),
		Notes:      strings.TrimSpace(in.Notes),
		Author:     author,
		SessionID:  sessionID,
		Source:     src,
		Status:     StatusActive,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListViaSession lista la historia del owner de la sesión. Cada llamada
// re-valida la sesión: terminarla corta el acceso de inmediato.
func (s *Service) ListViaSession(ctx context.Context, caller, sessionID string, filter ListFilter) ([]Record, error) {
	sess, err := s.sessions.Authorize(ctx, sessionID, caller)
	if err != nil {
		return nil, err
	}
	return s.store.ListByPatient(ctx, sess.Owner, normalizeFilter(filter))
}

func (s *Service) GetViaSession(ctx context.Context, caller, sessionID, recordID string) (Record, error) {
	sess, err := s.sessions.Authorize(ctx, sessionID, caller)
	if err != nil {
		return Record{}, err
	}
	return s.get(ctx, sess.Owner, recordID)
}

// ListForPatient: el propio paciente o un miembro con grant.
func (s *Service) ListForPatient(ctx context.Context, caller, patientID string, filter ListFilter) ([]Record, error) {
	if err := s.canRead(ctx, caller, patientID); err != nil {
		return nil, err
	}
	return s.store.ListByPatient(ctx, strings.TrimSpace(patientID), normalizeFilter(filter))
}

func (s *Service) GetForPatient(ctx context.Context, caller, patientID, recordID string) (Record, error) {
	if err := s.canRead(ctx, caller, patientID); err != nil {
		return Record{}, err
	}
	return s.get(ctx, strings.TrimSpace(patientID), recordID)
}

// Void anula un registro propio. No se borra.
func (s *Service) Void(ctx context.Context, caller, recordID string) (Record, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return Record{}, ErrInvalidInput
	}

	rec, err := s.get(ctx, caller, recordID)
	if err != nil {
		return Record{}, err
	}
	if rec.Status == StatusVoided {
		return rec, nil
	}

	if err := s.store.Void(ctx, rec.ID); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.Status = StatusVoided
	return rec, nil
}

func (s *Service) canRead(ctx context.Context, caller, patientID string) error {
	caller = strings.TrimSpace(caller)
	patientID = strings.TrimSpace(patientID)
	if caller == "" || patientID == "" {
		return ErrInvalidInput
	}
	if caller == patientID {
		return nil
	}

	ok, err := s.grants.HasGrant(ctx, caller, patientID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// get devuelve el registro solo si pertenece a patientID; si no, not found
// para no filtrar ids ajenos.
func (s *Service) get(ctx context.Context, patientID, recordID string) (Record, error) {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return Record{}, ErrInvalidInput
	}
	rec, err := s.store.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	if rec.PatientID != patientID {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func normalizeFilter(f ListFilter) ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
