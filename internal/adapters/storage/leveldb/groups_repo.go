package leveldb

import (
	"context"
	"sort"
	"strings"

	"health-consent/internal/domain/groups"

	"github.com/pkg/errors"
	ldb "github.com/syndtr/goleveldb/leveldb"
)

type GroupsRepo struct {
	d *DB
}

func NewGroupsRepo(d *DB) *GroupsRepo {
	return &GroupsRepo{d: d}
}

func memberKey(groupID, patientID string) string {
	return prefixMember + groupID + "/" + patientID
}

func grantKey(g groups.Grant) string {
	return prefixGrant + g.GroupID + "/" + g.Grantee + "/" + g.GrantedBy
}

func (r *GroupsRepo) Create(ctx context.Context, g groups.Group, leader groups.Member) error {
	if strings.TrimSpace(g.ID) == "" {
		return errors.New("group id required")
	}

	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	b := new(ldb.Batch)
	if err := batchPut(b, prefixGroup+g.ID, g); err != nil {
		return err
	}
	if err := batchPut(b, memberKey(g.ID, leader.PatientID), leader); err != nil {
		return err
	}
	return r.d.write(b)
}

func (r *GroupsRepo) GetByID(ctx context.Context, id string) (groups.Group, error) {
	var g groups.Group
	if err := r.d.get(prefixGroup+id, &g); err != nil {
		return groups.Group{}, err
	}
	return g, nil
}

func (r *GroupsRepo) Delete(ctx context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	ok, err := r.d.has(prefixGroup + id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	b := new(ldb.Batch)
	b.Delete([]byte(prefixGroup + id))
	for _, prefix := range []string{prefixMember + id + "/", prefixGrant + id + "/"} {
		err := r.d.scan(prefix, func(key string, _ []byte) (bool, error) {
			b.Delete([]byte(key))
			return true, nil
		})
		if err != nil {
			return err
		}
	}
	return r.d.write(b)
}

func (r *GroupsRepo) ListByMember(ctx context.Context, patientID string) ([]groups.Group, error) {
	var ids []string
	err := scanJSON(r.d, prefixMember, func(_ string, m groups.Member) bool {
		if m.PatientID == patientID {
			ids = append(ids, m.GroupID)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	out := make([]groups.Group, 0, len(ids))
	for _, id := range ids {
		g, err := r.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *GroupsRepo) AddMember(ctx context.Context, m groups.Member) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	b := new(ldb.Batch)
	if err := stageMember(r.d, b, m); err != nil {
		return err
	}
	return r.d.write(b)
}

// stageMember valida grupo y duplicado y agrega el miembro al batch. El
// llamador tiene d.mu.
func stageMember(d *DB, b *ldb.Batch, m groups.Member) error {
	ok, err := d.has(prefixGroup + m.GroupID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	key := memberKey(m.GroupID, m.PatientID)
	exists, err := d.has(key)
	if err != nil {
		return err
	}
	if exists {
		return groups.ErrDuplicate
	}
	return batchPut(b, key, m)
}

func (r *GroupsRepo) GetMember(ctx context.Context, groupID, patientID string) (groups.Member, error) {
	var m groups.Member
	if err := r.d.get(memberKey(groupID, patientID), &m); err != nil {
		return groups.Member{}, err
	}
	return m, nil
}

func (r *GroupsRepo) RemoveMember(ctx context.Context, groupID, patientID string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	b := new(ldb.Batch)
	b.Delete([]byte(memberKey(groupID, patientID)))

	err := scanJSON(r.d, prefixGrant+groupID+"/", func(key string, g groups.Grant) bool {
		if g.Grantee == patientID || g.GrantedBy == patientID {
			b.Delete([]byte(key))
		}
		return true
	})
	if err != nil {
		return err
	}
	return r.d.write(b)
}

func (r *GroupsRepo) ListMembers(ctx context.Context, groupID string) ([]groups.Member, error) {
	out := make([]groups.Member, 0)
	err := scanJSON(r.d, prefixMember+groupID+"/", func(_ string, m groups.Member) bool {
		out = append(out, m)
		return true
	})
	if err != nil {
		return nil, err
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

func (r *GroupsRepo) PutGrant(ctx context.Context, g groups.Grant) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	key := grantKey(g)
	exists, err := r.d.has(key)
	if err != nil || exists {
		return false, err
	}
	if err := r.d.put(key, g); err != nil {
		return false, err
	}
	return true, nil
}

func (r *GroupsRepo) DeleteGrants(ctx context.Context, grantedBy, grantee, groupID string) (int, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	prefix := prefixGrant
	if strings.TrimSpace(groupID) != "" {
		prefix += groupID + "/"
	}

	b := new(ldb.Batch)
	n := 0
	err := scanJSON(r.d, prefix, func(key string, g groups.Grant) bool {
		if g.GrantedBy == grantedBy && g.Grantee == grantee {
			b.Delete([]byte(key))
			n++
		}
		return true
	})
	if err != nil || n == 0 {
		return 0, err
	}
	if err := r.d.write(b); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *GroupsRepo) ListGrants(ctx context.Context, groupID string) ([]groups.Grant, error) {
	out := make([]groups.Grant, 0)
	err := scanJSON(r.d, prefixGrant+groupID+"/", func(_ string, g groups.Grant) bool {
		out = append(out, g)
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *GroupsRepo) HasGrant(ctx context.Context, grantee, grantedBy string) (bool, error) {
	found := false
	err := scanJSON(r.d, prefixGrant, func(_ string, g groups.Grant) bool {
		if g.Grantee == grantee && g.GrantedBy == grantedBy {
			found = true
			return false
		}
		return true
	})
	return found, err
}
