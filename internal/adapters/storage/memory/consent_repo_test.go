package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"health-consent/internal/domain/consent"
	"health-consent/internal/domain/groups"
	"health-consent/internal/domain/sessions"
)

var t0 = time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)

func pendingCode(id, code string) consent.ConsentCode {
	return consent.ConsentCode{
		ID:        id,
		Code:      code,
		Owner:     "patient-1",
		State:     consent.StatePending,
		IssuedAt:  t0,
		ExpiresAt: t0.Add(30 * time.Second),
	}
}

func TestConsentRepo_Create_CollisionAndReuse(t *testing.T) {
	repo := NewConsentRepo(NewSessionRepo(), NewGroupRepo())
	ctx := context.Background()

	if err := repo.Create(ctx, pendingCode("a", "482913"), t0); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := repo.Create(ctx, pendingCode("b", "482913"), t0.Add(time.Second)); err != consent.ErrCodeCollision {
		t.Fatalf("expected ErrCodeCollision, got %v", err)
	}

	later := pendingCode("c", "482913")
	later.IssuedAt = t0.Add(time.Minute)
	later.ExpiresAt = later.IssuedAt.Add(30 * time.Second)
	if err := repo.Create(ctx, later, later.IssuedAt); err != nil {
		t.Fatalf("expected reuse after expiry, got %v", err)
	}

	old, _ := repo.GetByID(ctx, "a")
	if old.State != consent.StateExpired {
		t.Fatalf("expected old row marked expired, got %s", old.State)
	}
	got, _ := repo.Lookup(ctx, "482913")
	if got.ID != "c" {
		t.Fatalf("expected lookup to return newest row, got %s", got.ID)
	}
}

func TestConsentRepo_Claim_WritesSessionAtomically(t *testing.T) {
	sess := NewSessionRepo()
	repo := NewConsentRepo(sess, NewGroupRepo())
	ctx := context.Background()

	_ = repo.Create(ctx, pendingCode("a", "482913"), t0)

	s := &sessions.Session{ID: "sess-1", Owner: "patient-1", Holder: "hospital-a", Status: sessions.StatusActive, CreatedAt: t0}
	c, err := repo.Claim(ctx, consent.ClaimParams{ID: "a", Claimant: "hospital-a", At: t0.Add(5 * time.Second), Session: s})
	if err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if c.State != consent.StateClaimed || c.SessionID != "sess-1" {
		t.Fatalf("unexpected row: %#v", c)
	}
	if _, err := sess.GetByID(ctx, "sess-1"); err != nil {
		t.Fatalf("expected session row, got %v", err)
	}

	if _, err := repo.Claim(ctx, consent.ClaimParams{ID: "a", Claimant: "hospital-b", At: t0.Add(6 * time.Second)}); err != consent.ErrStateConflict {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}
}

func TestConsentRepo_Claim_AfterExpiryConflicts(t *testing.T) {
	sess := NewSessionRepo()
	repo := NewConsentRepo(sess, NewGroupRepo())
	ctx := context.Background()

	_ = repo.Create(ctx, pendingCode("a", "482913"), t0)

	s := &sessions.Session{ID: "sess-1"}
	if _, err := repo.Claim(ctx, consent.ClaimParams{ID: "a", Claimant: "x", At: t0.Add(30 * time.Second), Session: s}); err != consent.ErrStateConflict {
		t.Fatalf("expected ErrStateConflict at expires_at, got %v", err)
	}
	if _, err := sess.GetByID(ctx, "sess-1"); err == nil {
		t.Fatalf("no session should be written on a failed claim")
	}
}

func TestConsentRepo_Claim_ConcurrentSingleWinner(t *testing.T) {
	sess := NewSessionRepo()
	repo := NewConsentRepo(sess, NewGroupRepo())
	ctx := context.Background()

	_ = repo.Create(ctx, pendingCode("a", "482913"), t0)

	const n = 50
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := &sessions.Session{ID: "sess-" + string(rune('A'+i)), Status: sessions.StatusActive}
			if _, err := repo.Claim(ctx, consent.ClaimParams{ID: "a", Claimant: "h", At: t0, Session: s}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected one winner, got %d", wins)
	}
	if len(sess.byID) != 1 {
		t.Fatalf("expected one session row, got %d", len(sess.byID))
	}
}

func TestConsentRepo_RevokeAndSweep(t *testing.T) {
	repo := NewConsentRepo(NewSessionRepo(), NewGroupRepo())
	ctx := context.Background()

	_ = repo.Create(ctx, pendingCode("a", "111111"), t0)
	_ = repo.Create(ctx, pendingCode("b", "222222"), t0)

	c, err := repo.Revoke(ctx, "a", t0.Add(time.Second))
	if err != nil || c.State != consent.StateRevoked || c.RevokedAt == nil {
		t.Fatalf("Revoke = %#v, %v", c, err)
	}

	n, err := repo.ExpirePending(ctx, t0.Add(time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("ExpirePending = %d, %v", n, err)
	}
	b, _ := repo.GetByID(ctx, "b")
	if b.State != consent.StateExpired {
		t.Fatalf("expected expired, got %s", b.State)
	}
	a, _ := repo.GetByID(ctx, "a")
	if a.State != consent.StateRevoked {
		t.Fatalf("sweep must not touch revoked rows, got %s", a.State)
	}
}

func TestConsentRepo_Lookup_SameIssuedAtPicksHighestID(t *testing.T) {
	repo := NewConsentRepo(NewSessionRepo(), NewGroupRepo())
	ctx := context.Background()

	// La primera vence en el mismo instante en que se emite la segunda.
	first := pendingCode("row-a", "482913")
	first.ExpiresAt = t0
	if err := repo.Create(ctx, first, t0); err != nil {
		t.Fatalf("Create #1 error: %v", err)
	}
	if err := repo.Create(ctx, pendingCode("row-b", "482913"), t0); err != nil {
		t.Fatalf("Create #2 error: %v", err)
	}

	for i := 0; i < 50; i++ {
		got, err := repo.Lookup(ctx, "482913")
		if err != nil {
			t.Fatalf("Lookup error: %v", err)
		}
		if got.ID != "row-b" {
			t.Fatalf("lookup #%d: expected row-b, got %s", i+1, got.ID)
		}
	}
}

func groupCode(id, code, groupID string) consent.ConsentCode {
	c := pendingCode(id, code)
	c.GroupOrigin = groupID
	return c
}

func TestConsentRepo_Claim_WritesMemberAtomically(t *testing.T) {
	grp := NewGroupRepo()
	repo := NewConsentRepo(NewSessionRepo(), grp)
	ctx := context.Background()

	if err := grp.Create(ctx, groups.Group{ID: "g1", Leader: "patient-1"}, groups.Member{GroupID: "g1", PatientID: "patient-1", Role: groups.RoleLeader}); err != nil {
		t.Fatalf("Create group error: %v", err)
	}
	_ = repo.Create(ctx, groupCode("a", "33333333", "g1"), t0)

	adm := &consent.Admission{GroupID: "g1", PatientID: "bob", Relation: "sibling", JoinedAt: t0}
	c, err := repo.Claim(ctx, consent.ClaimParams{ID: "a", Claimant: "bob", At: t0, Admission: adm})
	if err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if c.State != consent.StateClaimed || c.SessionID != "" {
		t.Fatalf("unexpected row: %#v", c)
	}
	m, err := grp.GetMember(ctx, "g1", "bob")
	if err != nil {
		t.Fatalf("expected member row, got %v", err)
	}
	if m.Role != groups.RoleMember || m.Relation != groups.RelationSibling {
		t.Fatalf("unexpected member: %#v", m)
	}
}

func TestConsentRepo_Claim_FailedAdmissionKeepsCodePending(t *testing.T) {
	grp := NewGroupRepo()
	repo := NewConsentRepo(NewSessionRepo(), grp)
	ctx := context.Background()

	_ = repo.Create(ctx, groupCode("a", "33333333", "g1"), t0)

	adm := &consent.Admission{GroupID: "g1", PatientID: "bob", JoinedAt: t0}
	if _, err := repo.Claim(ctx, consent.ClaimParams{ID: "a", Claimant: "bob", At: t0, Admission: adm}); err != consent.ErrGroupGone {
		t.Fatalf("expected ErrGroupGone, got %v", err)
	}
	c, _ := repo.GetByID(ctx, "a")
	if c.State != consent.StatePending || c.ClaimedBy != "" {
		t.Fatalf("code must stay pending after a failed admission, got %#v", c)
	}

	if err := grp.Create(ctx, groups.Group{ID: "g1", Leader: "bob"}, groups.Member{GroupID: "g1", PatientID: "bob", Role: groups.RoleLeader}); err != nil {
		t.Fatalf("Create group error: %v", err)
	}
	if _, err := repo.Claim(ctx, consent.ClaimParams{ID: "a", Claimant: "bob", At: t0, Admission: adm}); err != consent.ErrAlreadyMember {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
	c, _ = repo.GetByID(ctx, "a")
	if c.State != consent.StatePending {
		t.Fatalf("code must stay pending when the claimant is already a member, got %s", c.State)
	}
}
