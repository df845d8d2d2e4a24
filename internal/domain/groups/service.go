package groups

import (
	"context"
	"errors"
	"strings"
	"time"

	"health-consent/internal/domain/consent"
	"health-consent/internal/domain/patients"
	"health-consent/internal/platform/keylock"
	"health-consent/internal/ports/storage"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("group not found")
	ErrForbidden     = errors.New("not group leader or self")
	ErrNotMember     = errors.New("not a group member")
	ErrAlreadyMember = errors.New("already a group member")
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// GroupCodes es la parte de consent.Service que usa la delegación.
type GroupCodes interface {
	IssueForGroup(ctx context.Context, owner, groupID, invitee string) (consent.ConsentCode, error)
	ClaimForGroup(ctx context.Context, code string, adm consent.Admission) (consent.ConsentCode, error)
}

// Profiles resuelve nombre, edad y género para el roster.
type Profiles interface {
	Profile(ctx context.Context, id string) (patients.Patient, bool)
}

type Service struct {
	repo     Repository
	codes    GroupCodes
	profiles Profiles
	locks    *keylock.Locker
	now      func() time.Time
}

func NewService(repo Repository, codes GroupCodes, profiles Profiles) *Service {
	return &Service{
		repo:     repo,
		codes:    codes,
		profiles: profiles,
		locks:    keylock.New(),
		now:      time.Now,
	}
}

func (s *Service) Create(ctx context.Context, caller, name string) (Group, error) {
	caller = strings.TrimSpace(caller)
	name = strings.TrimSpace(name)
	if caller == "" || name == "" {
		return Group{}, ErrInvalidInput
	}

	now := s.now()
	g := Group{
		ID:        uuid.NewString(),
		Name:      name,
		Leader:    caller,
		CreatedAt: now,
		UpdatedAt: now,
	}
	leader := Member{
		GroupID:   g.ID,
		PatientID: caller,
		Role:      RoleLeader,
		JoinedAt:  now,
	}

	if err := s.repo.Create(ctx, g, leader); err != nil {
		return Group{}, err
	}
	return g, nil
}

// LeaderOf implementa consent.GroupLeaderLookup. Un grupo que ya no existe
// devuelve "" sin error.
func (s *Service) LeaderOf(ctx context.Context, groupID string) (string, error) {
	g, err := s.get(ctx, groupID)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return g.Leader, nil
}

// CreateConsentForGroup: un miembro pide un código cuyo claim (vía AddMember)
// admite a un nuevo miembro. nik, si viene, es el único que puede canjearlo.
func (s *Service) CreateConsentForGroup(ctx context.Context, caller, groupID, nik string) (consent.ConsentCode, error) {
	caller = strings.TrimSpace(caller)
	nik = strings.TrimSpace(nik)
	if caller == "" {
		return consent.ConsentCode{}, ErrInvalidInput
	}

	if _, err := s.get(ctx, groupID); err != nil {
		return consent.ConsentCode{}, err
	}
	if err := s.requireMember(ctx, groupID, caller); err != nil {
		return consent.ConsentCode{}, err
	}
	if nik != "" {
		member, err := s.isMember(ctx, groupID, nik)
		if err != nil {
			return consent.ConsentCode{}, err
		}
		if member {
			return consent.ConsentCode{}, ErrAlreadyMember
		}
	}

	return s.codes.IssueForGroup(ctx, caller, groupID, nik)
}

// AddMember canjea el código de grupo y agrega al llamador con la relación
// declarada en un solo paso del repo: si el miembro no se escribe, el código
// sigue pending. Los fallos del claim se propagan tal cual
// (consent.ErrCodeExpired, consent.ErrCodeAlreadyClaimed, ...).
func (s *Service) AddMember(ctx context.Context, caller, groupID, code string, rel Relation) (Member, error) {
	caller = strings.TrimSpace(caller)
	groupID = strings.TrimSpace(groupID)
	if caller == "" || strings.TrimSpace(code) == "" {
		return Member{}, ErrInvalidInput
	}
	rel, err := normalizeRelation(rel)
	if err != nil {
		return Member{}, err
	}

	unlock := s.locks.Lock("group:" + groupID)
	defer unlock()

	if _, err := s.get(ctx, groupID); err != nil {
		return Member{}, err
	}
	member, err := s.isMember(ctx, groupID, caller)
	if err != nil {
		return Member{}, err
	}
	if member {
		return Member{}, ErrAlreadyMember
	}

	m := Member{
		GroupID:   groupID,
		PatientID: caller,
		Role:      RoleMember,
		Relation:  rel,
		JoinedAt:  s.now(),
	}
	_, err = s.codes.ClaimForGroup(ctx, code, consent.Admission{
		GroupID:   m.GroupID,
		PatientID: m.PatientID,
		Relation:  string(m.Relation),
		JoinedAt:  m.JoinedAt,
	})
	switch {
	case errors.Is(err, consent.ErrGroupGone):
		return Member{}, ErrNotFound
	case errors.Is(err, consent.ErrAlreadyMember):
		return Member{}, ErrAlreadyMember
	case err != nil:
		return Member{}, err
	}

	return m, nil
}

// Grant: caller autoriza a granteeNIK (miembro del mismo grupo) a leer sus
// registros. Idempotente.
func (s *Service) Grant(ctx context.Context, caller, groupID, granteeNIK string) (Grant, error) {
	caller = strings.TrimSpace(caller)
	groupID = strings.TrimSpace(groupID)
	granteeNIK = strings.TrimSpace(granteeNIK)
	if caller == "" || granteeNIK == "" || caller == granteeNIK {
		return Grant{}, ErrInvalidInput
	}

	unlock := s.locks.Lock("group:" + groupID)
	defer unlock()

	if _, err := s.get(ctx, groupID); err != nil {
		return Grant{}, err
	}
	if err := s.requireMember(ctx, groupID, caller); err != nil {
		return Grant{}, err
	}
	member, err := s.isMember(ctx, groupID, granteeNIK)
	if err != nil {
		return Grant{}, err
	}
	if !member {
		return Grant{}, ErrNotMember
	}

	g := Grant{
		GroupID:   groupID,
		Grantee:   granteeNIK,
		GrantedBy: caller,
		CreatedAt: s.now(),
	}
	if _, err := s.repo.PutGrant(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

// Revoke borra los grants caller -> granteeNIK. groupID vacío = en todos los
// grupos. Idempotente: no tener nada que borrar no es error.
func (s *Service) Revoke(ctx context.Context, caller, granteeNIK, groupID string) (int, error) {
	caller = strings.TrimSpace(caller)
	granteeNIK = strings.TrimSpace(granteeNIK)
	groupID = strings.TrimSpace(groupID)
	if caller == "" || granteeNIK == "" {
		return 0, ErrInvalidInput
	}

	if groupID != "" {
		unlock := s.locks.Lock("group:" + groupID)
		defer unlock()
	}
	return s.repo.DeleteGrants(ctx, caller, granteeNIK, groupID)
}

// Leave saca al llamador. Si es el líder, el grupo se disuelve: se borran
// grupo, miembros y grants.
func (s *Service) Leave(ctx context.Context, caller, groupID string) (dissolved bool, err error) {
	caller = strings.TrimSpace(caller)
	groupID = strings.TrimSpace(groupID)
	if caller == "" {
		return false, ErrInvalidInput
	}

	unlock := s.locks.Lock("group:" + groupID)
	defer unlock()

	g, err := s.get(ctx, groupID)
	if err != nil {
		return false, err
	}
	if err := s.requireMember(ctx, groupID, caller); err != nil {
		return false, err
	}

	if g.Leader == caller {
		return true, s.repo.Delete(ctx, groupID)
	}
	return false, s.repo.RemoveMember(ctx, groupID, caller)
}

type MemberDetail struct {
	NIK      string
	Name     string
	Age      *int
	Gender   patients.Gender
	Role     Role
	Relation Relation
	JoinedAt time.Time
}

type Details struct {
	Group       Group
	LeaderName  string
	MemberCount int
	Page        int
	Limit       int
	Members     []MemberDetail
}

// Details devuelve el roster paginado (page 1-based). Solo para miembros.
func (s *Service) Details(ctx context.Context, caller, groupID string, page, limit int) (Details, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return Details{}, ErrInvalidInput
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	g, err := s.get(ctx, groupID)
	if err != nil {
		return Details{}, err
	}
	if err := s.requireMember(ctx, groupID, caller); err != nil {
		return Details{}, err
	}

	members, err := s.repo.ListMembers(ctx, groupID)
	if err != nil {
		return Details{}, err
	}

	now := s.now()
	out := Details{
		Group:       g,
		LeaderName:  g.Leader,
		MemberCount: len(members),
		Page:        page,
		Limit:       limit,
		Members:     []MemberDetail{},
	}
	if p, ok := s.profile(ctx, g.Leader); ok && p.Name != "" {
		out.LeaderName = p.Name
	}

	start := (page - 1) * limit
	if start >= len(members) {
		return out, nil
	}
	end := start + limit
	if end > len(members) {
		end = len(members)
	}

	for _, m := range members[start:end] {
		d := MemberDetail{
			NIK:      m.PatientID,
			Name:     m.PatientID,
			Gender:   patients.GenderUnknown,
			Role:     m.Role,
			Relation: m.Relation,
			JoinedAt: m.JoinedAt,
		}
		if p, ok := s.profile(ctx, m.PatientID); ok {
			if p.Name != "" {
				d.Name = p.Name
			}
			d.Age = p.AgeAt(now)
			d.Gender = p.Gender
		}
		out.Members = append(out.Members, d)
	}
	return out, nil
}

// ListGrants devuelve los grants del grupo que involucran al llamador.
func (s *Service) ListGrants(ctx context.Context, caller, groupID string) ([]Grant, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.get(ctx, groupID); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, groupID, caller); err != nil {
		return nil, err
	}

	items, err := s.repo.ListGrants(ctx, groupID)
	if err != nil {
		return nil, err
	}
	out := make([]Grant, 0, len(items))
	for _, g := range items {
		if g.Grantee == caller || g.GrantedBy == caller {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Service) ListMine(ctx context.Context, caller string) ([]Group, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByMember(ctx, caller)
}

// HasGrant dice si reader tiene un grant vigente para leer los registros de owner.
func (s *Service) HasGrant(ctx context.Context, reader, owner string) (bool, error) {
	reader = strings.TrimSpace(reader)
	owner = strings.TrimSpace(owner)
	if reader == "" || owner == "" {
		return false, nil
	}
	return s.repo.HasGrant(ctx, reader, owner)
}

func (s *Service) get(ctx context.Context, groupID string) (Group, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return Group{}, ErrInvalidInput
	}
	g, err := s.repo.GetByID(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return Group{}, ErrNotFound
	}
	if err != nil {
		return Group{}, err
	}
	return g, nil
}

func (s *Service) isMember(ctx context.Context, groupID, patientID string) (bool, error) {
	_, err := s.repo.GetMember(ctx, groupID, patientID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *Service) requireMember(ctx context.Context, groupID, patientID string) error {
	member, err := s.isMember(ctx, groupID, patientID)
	if err != nil {
		return err
	}
	if !member {
		return ErrForbidden
	}
	return nil
}

func (s *Service) profile(ctx context.Context, id string) (patients.Patient, bool) {
	if s.profiles == nil {
		return patients.Patient{}, false
	}
	return s.profiles.Profile(ctx, id)
}

func normalizeRelation(r Relation) (Relation, error) {
	switch Relation(strings.ToLower(strings.TrimSpace(string(r)))) {
	case RelationSpouse:
		return RelationSpouse, nil
	case RelationParent:
		return RelationParent, nil
	case RelationSibling:
		return RelationSibling, nil
	case RelationChild:
		return RelationChild, nil
	case RelationOther:
		return RelationOther, nil
	default:
		return "", ErrInvalidInput
	}
}
