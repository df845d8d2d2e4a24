package consent

import (
	"context"
	"errors"
	"strings"
	"time"

	"health-consent/internal/domain/sessions"
	"health-consent/internal/platform/keylock"
	"health-consent/internal/ports/storage"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrForbidden          = errors.New("forbidden")
	ErrCodeNotFound       = errors.New("code not found")
	ErrCodeExpired        = errors.New("code expired")
	ErrCodeAlreadyClaimed = errors.New("code already claimed")
	ErrCodeRevoked        = errors.New("code revoked")
	ErrCodeCollision      = errors.New("code collision")
	ErrSelfClaim          = errors.New("cannot claim own code")
	ErrGroupCode          = errors.New("group code must be redeemed through the group")
)

const (
	DefaultTTL              = 30 * time.Second
	DefaultMaxIssueAttempts = 5
)

// NameLookup resuelve el nombre para mostrar de un NIK (patients.Service).
type NameLookup interface {
	DisplayName(ctx context.Context, id string) string
}

// GroupLeaderLookup evita importar el paquete groups (rompe ciclos).
type GroupLeaderLookup interface {
	LeaderOf(ctx context.Context, groupID string) (string, error)
}

type Settings struct {
	TTL              time.Duration
	MaxIssueAttempts int
}

type Service struct {
	repo    Repository
	codes   CodeSource
	names   NameLookup
	leaders GroupLeaderLookup
	locks   *keylock.Locker

	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewService(repo Repository, codes CodeSource, st Settings) *Service {
	if st.TTL <= 0 {
		st.TTL = DefaultTTL
	}
	if st.MaxIssueAttempts <= 0 {
		st.MaxIssueAttempts = DefaultMaxIssueAttempts
	}
	return &Service{
		repo:        repo,
		codes:       codes,
		locks:       keylock.New(),
		ttl:         st.TTL,
		maxAttempts: st.MaxIssueAttempts,
		now:         time.Now,
	}
}

func (s *Service) WithNames(n NameLookup) *Service {
	s.names = n
	return s
}

func (s *Service) WithGroupLeaders(g GroupLeaderLookup) *Service {
	s.leaders = g
	return s
}

func (s *Service) TTL() time.Duration { return s.ttl }

// Issue emite un código pending para owner.
func (s *Service) Issue(ctx context.Context, owner string) (ConsentCode, error) {
	return s.issue(ctx, owner, "", "")
}

// IssueForGroup emite un código cuyo claim admite a un miembro en groupID en
// lugar de abrir una sesión. invitee (opcional) restringe quién puede reclamarlo.
func (s *Service) IssueForGroup(ctx context.Context, owner, groupID, invitee string) (ConsentCode, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return ConsentCode{}, ErrInvalidInput
	}
	return s.issue(ctx, owner, groupID, strings.TrimSpace(invitee))
}

func (s *Service) issue(ctx context.Context, owner, groupID, invitee string) (ConsentCode, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return ConsentCode{}, ErrInvalidInput
	}

	// Reintento explícito ante colisión; nunca se pisa un pending vigente.
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return ConsentCode{}, err
		}

		now := s.now()
		c := ConsentCode{
			ID:          uuid.NewString(),
			Code:        code,
			Owner:       owner,
			State:       StatePending,
			IssuedAt:    now,
			ExpiresAt:   now.Add(s.ttl),
			GroupOrigin: groupID,
			Invitee:     invitee,
		}

		unlock := s.locks.Lock("code:" + code)
		err = s.repo.Create(ctx, c, now)
		unlock()

		if errors.Is(err, ErrCodeCollision) {
			continue
		}
		if err != nil {
			return ConsentCode{}, err
		}
		return c, nil
	}
	return ConsentCode{}, ErrCodeCollision
}

// Lookup devuelve la fila del código con su estado efectivo.
func (s *Service) Lookup(ctx context.Context, code string) (ConsentCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return ConsentCode{}, ErrInvalidInput
	}
	c, err := s.lookup(ctx, code)
	if err != nil {
		return ConsentCode{}, err
	}
	return c.Effective(s.now()), nil
}

// lookup traduce solo el "no existe" del repo; el resto sube como falla.
func (s *Service) lookup(ctx context.Context, code string) (ConsentCode, error) {
	c, err := s.repo.Lookup(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return ConsentCode{}, ErrCodeNotFound
	}
	if err != nil {
		return ConsentCode{}, err
	}
	return c, nil
}

// Claimant es quien presenta el código.
type Claimant struct {
	ID       string
	Provider string
}

type ClaimResult struct {
	SessionID string
	OwnerName string
	Code      ConsentCode
}

// Claim canjea un código directo por una sesión. Exactamente un claim gana
// aunque lleguen varios a la vez; los demás reciben ErrCodeAlreadyClaimed.
func (s *Service) Claim(ctx context.Context, who Claimant, code string) (ClaimResult, error) {
	who.ID = strings.TrimSpace(who.ID)
	code = strings.TrimSpace(code)
	if who.ID == "" || code == "" {
		return ClaimResult{}, ErrInvalidInput
	}

	unlock := s.locks.Lock("code:" + code)
	defer unlock()

	c, err := s.lookup(ctx, code)
	if err != nil {
		return ClaimResult{}, err
	}

	now := s.now()
	if err := checkClaimable(c, now); err != nil {
		return ClaimResult{}, err
	}
	if c.IsGroupCode() {
		return ClaimResult{}, ErrGroupCode
	}
	if c.Owner == who.ID {
		return ClaimResult{}, ErrSelfClaim
	}

	sess := &sessions.Session{
		ID:     uuid.NewString(),
		Owner:  c.Owner,
		Holder: who.ID,
		Scope: sessions.Scope{
			Owner:    c.Owner,
			Provider: strings.TrimSpace(who.Provider),
		},
		Status:    sessions.StatusActive,
		CreatedAt: now,
	}

	updated, err := s.repo.Claim(ctx, ClaimParams{
		ID:       c.ID,
		Claimant: who.ID,
		At:       now,
		Session:  sess,
	})
	if err != nil {
		return ClaimResult{}, s.classifyConflict(ctx, c.ID, now, err)
	}

	return ClaimResult{
		SessionID: sess.ID,
		OwnerName: s.displayName(ctx, c.Owner),
		Code:      updated,
	}, nil
}

// ClaimForGroup canjea un código de grupo y admite al claimant (adm.PatientID)
// en adm.GroupID en el mismo paso. No crea sesión.
func (s *Service) ClaimForGroup(ctx context.Context, code string, adm Admission) (ConsentCode, error) {
	claimant := strings.TrimSpace(adm.PatientID)
	groupID := strings.TrimSpace(adm.GroupID)
	code = strings.TrimSpace(code)
	if claimant == "" || groupID == "" || code == "" {
		return ConsentCode{}, ErrInvalidInput
	}

	unlock := s.locks.Lock("code:" + code)
	defer unlock()

	c, err := s.lookup(ctx, code)
	if err != nil {
		return ConsentCode{}, err
	}
	if c.GroupOrigin != groupID {
		return ConsentCode{}, ErrCodeNotFound
	}

	now := s.now()
	if err := checkClaimable(c, now); err != nil {
		return ConsentCode{}, err
	}
	if c.Invitee != "" && c.Invitee != claimant {
		return ConsentCode{}, ErrForbidden
	}

	joined := adm.JoinedAt
	if joined.IsZero() {
		joined = now
	}
	updated, err := s.repo.Claim(ctx, ClaimParams{
		ID:       c.ID,
		Claimant: claimant,
		At:       now,
		Admission: &Admission{
			GroupID:   groupID,
			PatientID: claimant,
			Relation:  adm.Relation,
			JoinedAt:  joined,
		},
	})
	if err != nil {
		return ConsentCode{}, s.classifyConflict(ctx, c.ID, now, err)
	}
	return updated, nil
}

// checkClaimable aplica el orden de guardas: vencido gana sobre cualquier
// estado previo; después revocado y ya reclamado.
func checkClaimable(c ConsentCode, now time.Time) error {
	if c.ExpiredAt(now) {
		return ErrCodeExpired
	}
	switch c.State {
	case StatePending:
		return nil
	case StateRevoked:
		return ErrCodeRevoked
	case StateClaimed:
		return ErrCodeAlreadyClaimed
	default:
		return ErrCodeExpired
	}
}

func (s *Service) classifyConflict(ctx context.Context, id string, now time.Time, err error) error {
	if !errors.Is(err, ErrStateConflict) {
		return err
	}
	current, gerr := s.repo.GetByID(ctx, id)
	if errors.Is(gerr, storage.ErrNotFound) {
		return ErrCodeNotFound
	}
	if gerr != nil {
		return gerr
	}
	if cerr := checkClaimable(current, now); cerr != nil {
		return cerr
	}
	// Otra réplica ganó entre el lookup y el CAS.
	return ErrCodeAlreadyClaimed
}

type ClaimStatus struct {
	Claimed bool
	Info    ConsentCode
}

// IsClaimed es lectura pura para el polling del cliente que emitió el código.
func (s *Service) IsClaimed(ctx context.Context, caller, code string) (ClaimStatus, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return ClaimStatus{}, ErrInvalidInput
	}

	c, err := s.Lookup(ctx, code)
	if err != nil {
		return ClaimStatus{}, err
	}
	ok, err := s.canManage(ctx, caller, c)
	if err != nil {
		return ClaimStatus{}, err
	}
	if !ok {
		return ClaimStatus{}, ErrForbidden
	}

	return ClaimStatus{
		Claimed: c.State == StateClaimed,
		Info:    c,
	}, nil
}

// Revoke invalida los códigos indicados. Idempotente: códigos desconocidos,
// vencidos o ya reclamados no cambian. Revocar un código reclamado NO toca la
// sesión que produjo; para eso está sessions.Finish.
// Devuelve ErrForbidden solo si ninguno de los códigos pertenecía al llamador.
func (s *Service) Revoke(ctx context.Context, caller string, codes []string) ([]ConsentCode, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" || len(codes) == 0 {
		return nil, ErrInvalidInput
	}

	seen := map[string]struct{}{}
	out := make([]ConsentCode, 0, len(codes))
	denied := 0

	for _, raw := range codes {
		code := strings.TrimSpace(raw)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}

		c, err := s.revokeOne(ctx, caller, code)
		switch {
		case err == nil:
			out = append(out, c)
		case errors.Is(err, ErrCodeNotFound):
		case errors.Is(err, ErrForbidden):
			denied++
		default:
			return nil, err
		}
	}

	if len(seen) == 0 {
		return nil, ErrInvalidInput
	}
	if denied > 0 && len(out) == 0 {
		return nil, ErrForbidden
	}
	return out, nil
}

func (s *Service) revokeOne(ctx context.Context, caller, code string) (ConsentCode, error) {
	unlock := s.locks.Lock("code:" + code)
	defer unlock()

	c, err := s.lookup(ctx, code)
	if err != nil {
		return ConsentCode{}, err
	}
	ok, err := s.canManage(ctx, caller, c)
	if err != nil {
		return ConsentCode{}, err
	}
	if !ok {
		return ConsentCode{}, ErrForbidden
	}

	now := s.now()
	updated, err := s.repo.Revoke(ctx, c.ID, now)
	if err != nil {
		return ConsentCode{}, err
	}
	return updated.Effective(now), nil
}

// ListByOwner devuelve el historial de códigos del owner con estado efectivo.
func (s *Service) ListByOwner(ctx context.Context, owner string) ([]ConsentCode, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, ErrInvalidInput
	}
	items, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range items {
		items[i] = items[i].Effective(now)
	}
	return items, nil
}

// SweepExpired es housekeeping: el vencimiento ya se evalúa en cada claim.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	return s.repo.ExpirePending(ctx, s.now())
}

// canManage: el owner, o el líder del grupo para un código de grupo. Un grupo
// disuelto no tiene líder (LeaderOf devuelve "").
func (s *Service) canManage(ctx context.Context, caller string, c ConsentCode) (bool, error) {
	if c.Owner == caller {
		return true, nil
	}
	if !c.IsGroupCode() || s.leaders == nil {
		return false, nil
	}
	leader, err := s.leaders.LeaderOf(ctx, c.GroupOrigin)
	if err != nil {
		return false, err
	}
	return leader != "" && leader == caller, nil
}

func (s *Service) displayName(ctx context.Context, id string) string {
	if s.names == nil {
		return id
	}
	return s.names.DisplayName(ctx, id)
}
