package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"health-consent/internal/domain/groups"
)

// GroupRepo también recibe las admisiones de los claims de grupo (ver
// NewConsentRepo).
type GroupRepo struct {
	mu      sync.RWMutex
	byID    map[string]groups.Group
	members map[string]map[string]groups.Member // groupID -> patientID
	grants  map[grantKey]groups.Grant
}

type grantKey struct {
	groupID   string
	grantee   string
	grantedBy string
}

func NewGroupRepo() *GroupRepo {
	return &GroupRepo{
		byID:    make(map[string]groups.Group),
		members: make(map[string]map[string]groups.Member),
		grants:  make(map[grantKey]groups.Grant),
	}
}

func (r *GroupRepo) Create(ctx context.Context, g groups.Group, leader groups.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(g.ID) == "" {
		return errors.New("group id required")
	}
	if _, exists := r.byID[g.ID]; exists {
		return errors.New("group already exists")
	}
	r.byID[g.ID] = g
	r.members[g.ID] = map[string]groups.Member{leader.PatientID: leader}
	return nil
}

func (r *GroupRepo) GetByID(ctx context.Context, id string) (groups.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.byID[id]
	if !ok {
		return groups.Group{}, ErrNotFound
	}
	return g, nil
}

func (r *GroupRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	delete(r.members, id)
	for k := range r.grants {
		if k.groupID == id {
			delete(r.grants, k)
		}
	}
	return nil
}

func (r *GroupRepo) ListByMember(ctx context.Context, patientID string) ([]groups.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]groups.Group, 0)
	for id, ms := range r.members {
		if _, ok := ms[patientID]; ok {
			out = append(out, r.byID[id])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *GroupRepo) AddMember(ctx context.Context, m groups.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms, ok := r.members[m.GroupID]
	if !ok {
		return ErrNotFound
	}
	if _, exists := ms[m.PatientID]; exists {
		return groups.ErrDuplicate
	}
	ms[m.PatientID] = m
	return nil
}

func (r *GroupRepo) GetMember(ctx context.Context, groupID, patientID string) (groups.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[groupID][patientID]
	if !ok {
		return groups.Member{}, ErrNotFound
	}
	return m, nil
}

func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, patientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms, ok := r.members[groupID]
	if !ok {
		return ErrNotFound
	}
	delete(ms, patientID)
	for k := range r.grants {
		if k.groupID == groupID && (k.grantee == patientID || k.grantedBy == patientID) {
			delete(r.grants, k)
		}
	}
	return nil
}

func (r *GroupRepo) ListMembers(ctx context.Context, groupID string) ([]groups.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]groups.Member, 0, len(r.members[groupID]))
	for _, m := range r.members[groupID] {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role == groups.RoleLeader
		}
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].PatientID < out[j].PatientID
	})
	return out, nil
}

func (r *GroupRepo) PutGrant(ctx context.Context, g groups.Grant) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := grantKey{groupID: g.GroupID, grantee: g.Grantee, grantedBy: g.GrantedBy}
	if _, exists := r.grants[k]; exists {
		return false, nil
	}
	r.grants[k] = g
	return true, nil
}

func (r *GroupRepo) DeleteGrants(ctx context.Context, grantedBy, grantee, groupID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k := range r.grants {
		if k.grantedBy != grantedBy || k.grantee != grantee {
			continue
		}
		if groupID != "" && k.groupID != groupID {
			continue
		}
		delete(r.grants, k)
		n++
	}
	return n, nil
}

func (r *GroupRepo) ListGrants(ctx context.Context, groupID string) ([]groups.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]groups.Grant, 0)
	for k, g := range r.grants {
		if k.groupID == groupID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *GroupRepo) HasGrant(ctx context.Context, grantee, grantedBy string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for k := range r.grants {
		if k.grantee == grantee && k.grantedBy == grantedBy {
			return true, nil
		}
	}
	return false, nil
}
