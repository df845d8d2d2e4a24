package leveldb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"health-consent/internal/domain/consent"
	"health-consent/internal/domain/groups"

	"github.com/pkg/errors"
	ldb "github.com/syndtr/goleveldb/leveldb"
)

type ConsentRepo struct {
	d *DB
}

func NewConsentRepo(d *DB) *ConsentRepo {
	return &ConsentRepo{d: d}
}

// codeKey ordena las filas de un mismo código por issued_at: la última es la vigente.
func codeKey(c consent.ConsentCode) string {
	return fmt.Sprintf("%s%s/%020d/%s", prefixConsentCode, c.Code, c.IssuedAt.UnixNano(), c.ID)
}

func (r *ConsentRepo) Create(ctx context.Context, c consent.ConsentCode, now time.Time) error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("consent id required")
	}

	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	b := new(ldb.Batch)

	rows, err := r.rowsForCode(c.Code)
	if err != nil {
		return err
	}
	for _, existing := range rows {
		if existing.State != consent.StatePending {
			continue
		}
		if !existing.ExpiredAt(now) {
			return consent.ErrCodeCollision
		}
		existing.State = consent.StateExpired
		if err := batchPut(b, prefixConsent+existing.ID, existing); err != nil {
			return err
		}
	}

	if err := batchPut(b, prefixConsent+c.ID, c); err != nil {
		return err
	}
	if err := batchPut(b, codeKey(c), c.ID); err != nil {
		return err
	}
	return r.d.write(b)
}

func (r *ConsentRepo) rowsForCode(code string) ([]consent.ConsentCode, error) {
	var ids []string
	err := scanJSON(r.d, prefixConsentCode+code+"/", func(_ string, id string) bool {
		ids = append(ids, id)
		return true
	})
	if err != nil {
		return nil, err
	}

	out := make([]consent.ConsentCode, 0, len(ids))
	for _, id := range ids {
		var c consent.ConsentCode
		if err := r.d.get(prefixConsent+id, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *ConsentRepo) Lookup(ctx context.Context, code string) (consent.ConsentCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return consent.ConsentCode{}, ErrNotFound
	}

	rows, err := r.rowsForCode(code)
	if err != nil {
		return consent.ConsentCode{}, err
	}
	if len(rows) == 0 {
		return consent.ConsentCode{}, ErrNotFound
	}
	return rows[len(rows)-1], nil
}

func (r *ConsentRepo) GetByID(ctx context.Context, id string) (consent.ConsentCode, error) {
	var c consent.ConsentCode
	if err := r.d.get(prefixConsent+id, &c); err != nil {
		return consent.ConsentCode{}, err
	}
	return c, nil
}

// Claim: el lock de DB hace de compare-and-swap y el batch escribe código y
// sesión (o miembro, para un código de grupo) juntos.
func (r *ConsentRepo) Claim(ctx context.Context, p consent.ClaimParams) (consent.ConsentCode, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var c consent.ConsentCode
	if err := r.d.get(prefixConsent+p.ID, &c); err != nil {
		return consent.ConsentCode{}, err
	}
	if c.State != consent.StatePending || c.ExpiredAt(p.At) {
		return consent.ConsentCode{}, consent.ErrStateConflict
	}

	at := p.At
	c.State = consent.StateClaimed
	c.ClaimedBy = p.Claimant
	c.ClaimedAt = &at

	b := new(ldb.Batch)
	if p.Admission != nil {
		if err := stageAdmission(r.d, b, *p.Admission); err != nil {
			return consent.ConsentCode{}, err
		}
	}
	if p.Session != nil {
		c.SessionID = p.Session.ID
		if err := batchPut(b, prefixSession+p.Session.ID, *p.Session); err != nil {
			return consent.ConsentCode{}, err
		}
	}
	if err := batchPut(b, prefixConsent+c.ID, c); err != nil {
		return consent.ConsentCode{}, err
	}
	if err := r.d.write(b); err != nil {
		return consent.ConsentCode{}, err
	}
	return c, nil
}

func stageAdmission(d *DB, b *ldb.Batch, a consent.Admission) error {
	err := stageMember(d, b, groups.Member{
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

func (r *ConsentRepo) Revoke(ctx context.Context, id string, at time.Time) (consent.ConsentCode, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var c consent.ConsentCode
	if err := r.d.get(prefixConsent+id, &c); err != nil {
		return consent.ConsentCode{}, err
	}
	if c.State != consent.StatePending || c.ExpiredAt(at) {
		return c, nil
	}

	c.State = consent.StateRevoked
	c.RevokedAt = &at
	if err := r.d.put(prefixConsent+c.ID, c); err != nil {
		return consent.ConsentCode{}, err
	}
	return c, nil
}

func (r *ConsentRepo) ListByOwner(ctx context.Context, owner string) ([]consent.ConsentCode, error) {
	out := make([]consent.ConsentCode, 0)
	err := scanJSON(r.d, prefixConsent, func(_ string, c consent.ConsentCode) bool {
		if c.Owner == owner {
			out = append(out, c)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})
	return out, nil
}

func (r *ConsentRepo) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var stale []consent.ConsentCode
	err := scanJSON(r.d, prefixConsent, func(_ string, c consent.ConsentCode) bool {
		if c.State == consent.StatePending && c.ExpiredAt(now) {
			stale = append(stale, c)
		}
		return true
	})
	if err != nil || len(stale) == 0 {
		return 0, err
	}

	b := new(ldb.Batch)
	for _, c := range stale {
		c.State = consent.StateExpired
		if err := batchPut(b, prefixConsent+c.ID, c); err != nil {
			return 0, err
		}
	}
	if err := r.d.write(b); err != nil {
		return 0, err
	}
	return len(stale), nil
}
