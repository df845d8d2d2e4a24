package records

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"health-consent/internal/domain/sessions"
)

// -------------------------
// Fakes
// -------------------------

type testStore struct {
	mu   sync.Mutex
	byID map[string]Record
}

func newTestStore() *testStore {
	return &testStore{byID: map[string]Record{}}
}

func (s *testStore) Create(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[rec.ID] = rec
	return nil
}

func (s *testStore) GetByID(ctx context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (s *testStore) ListByPatient(ctx context.Context, patientID string, filter ListFilter) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Record{}
	for _, rec := range s.byID {
		if rec.PatientID == patientID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *testStore) Void(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return ErrRecordNotFound
	}
	rec.Status = StatusVoided
	s.byID[id] = rec
	return nil
}

// fakeSessions replica las reglas de sessions.Service.Authorize.
type fakeSessions map[string]sessions.Session

func (f fakeSessions) Authorize(ctx context.Context, id, holder string) (sessions.Session, error) {
	s, ok := f[id]
	if !ok {
		return sessions.Session{}, sessions.ErrNotFound
	}
	if s.Holder != holder {
		return sessions.Session{}, sessions.ErrForbidden
	}
	if !s.Active() {
		return sessions.Session{}, sessions.ErrSessionEnded
	}
	return s, nil
}

// fakeGrants: reader -> owners.
type fakeGrants map[string][]string

func (f fakeGrants) HasGrant(ctx context.Context, reader, owner string) (bool, error) {
	for _, o := range f[reader] {
		if o == owner {
			return true, nil
		}
	}
	return false, nil
}

var t0 = time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)

func newTestService() (*Service, *testStore, fakeSessions) {
	store := newTestStore()
	sess := fakeSessions{
		"sess-active": {ID: "sess-active", Owner: "patient-1", Holder: "hospital-a", Status: sessions.StatusActive},
		"sess-ended":  {ID: "sess-ended", Owner: "patient-1", Holder: "hospital-a", Status: sessions.StatusEnded},
	}
	grants := fakeGrants{"spouse-1": {"patient-1"}}

	svc := NewService(store, sess, grants)
	svc.now = func() time.Time { return t0 }
	return svc, store, sess
}

func seed(t *testing.T, svc *Service, owner string, n int) []Record {
	t.Helper()
	out := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		rec, err := svc.AppendOwn(context.Background(), owner, AppendInput{
			Type:       RecordTypeNote,
			OccurredAt: t0.Add(-time.Duration(i+1) * time.Hour),
			Title:      "note",
		})
		if err != nil {
			t.Fatalf("AppendOwn error: %v", err)
		}
		out = append(out, rec)
	}
	return out
}

// -------------------------
// Tests
// -------------------------

func TestService_ViaSession_ActiveReadsOwnerHistory(t *testing.T) {
	svc, _, _ := newTestService()
	seed(t, svc, "patient-1", 3)
	seed(t, svc, "patient-2", 1)

	items, err := svc.ListViaSession(context.Background(), "hospital-a", "sess-active", ListFilter{})
	if err != nil {
		t.Fatalf("ListViaSession error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 records of the session owner, got %d", len(items))
	}
	for _, rec := range items {
		if rec.PatientID != "patient-1" {
			t.Fatalf("leaked record of %s", rec.PatientID)
		}
	}
}

func TestService_ViaSession_EndedOrForeign(t *testing.T) {
	svc, _, _ := newTestService()
	recs := seed(t, svc, "patient-1", 1)

	if _, err := svc.ListViaSession(context.Background(), "hospital-a", "sess-ended", ListFilter{}); err != sessions.ErrSessionEnded {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
	if _, err := svc.GetViaSession(context.Background(), "hospital-b", "sess-active", recs[0].ID); err != sessions.ErrForbidden {
		t.Fatalf("expected ErrForbidden for another holder, got %v", err)
	}
	if _, err := svc.ListViaSession(context.Background(), "hospital-a", "nope", ListFilter{}); err != sessions.ErrNotFound {
		t.Fatalf("expected sessions.ErrNotFound, got %v", err)
	}
}

func TestService_ViaSession_FinishCutsAccess(t *testing.T) {
	svc, _, sess := newTestService()
	recs := seed(t, svc, "patient-1", 1)

	if _, err := svc.GetViaSession(context.Background(), "hospital-a", "sess-active", recs[0].ID); err != nil {
		t.Fatalf("GetViaSession error: %v", err)
	}

	s := sess["sess-active"]
	s.Status = sessions.StatusEnded
	sess["sess-active"] = s

	if _, err := svc.GetViaSession(context.Background(), "hospital-a", "sess-active", recs[0].ID); err != sessions.ErrSessionEnded {
		t.Fatalf("expected ErrSessionEnded right after finish, got %v", err)
	}
}

func TestService_AppendViaSession_WritesToOwnerAsProvider(t *testing.T) {
	svc, store, _ := newTestService()

	rec, err := svc.AppendViaSession(context.Background(), "hospital-a", "sess-active", AppendInput{
		Type:       RecordTypeDiagnosis,
		OccurredAt: t0,
		Title:      "  Influenza A ",
	})
	if err != nil {
		t.Fatalf("AppendViaSession error: %v", err)
	}
	if rec.PatientID != "patient-1" || rec.Author.Type != AuthorTypeProvider || rec.Author.ID != "hospital-a" {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if rec.SessionID != "sess-active" || rec.Title != "Influenza A" || rec.Source != SourceManual {
		t.Fatalf("unexpected record fields: %#v", rec)
	}
	if _, ok := store.byID[rec.ID]; !ok {
		t.Fatalf("expected record persisted")
	}

	if _, err := svc.AppendViaSession(context.Background(), "hospital-a", "sess-active", AppendInput{Type: "X-RAY", OccurredAt: t0}); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for unknown type, got %v", err)
	}
}

func TestService_ForPatient_SelfAndGrant(t *testing.T) {
	svc, _, _ := newTestService()
	recs := seed(t, svc, "patient-1", 2)

	if items, err := svc.ListForPatient(context.Background(), "patient-1", "patient-1", ListFilter{}); err != nil || len(items) != 2 {
		t.Fatalf("self read = %d, %v", len(items), err)
	}
	if _, err := svc.GetForPatient(context.Background(), "spouse-1", "patient-1", recs[0].ID); err != nil {
		t.Fatalf("grant read error: %v", err)
	}
	if _, err := svc.ListForPatient(context.Background(), "stranger", "patient-1", ListFilter{}); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestService_GetForPatient_OtherPatientsRecordIsNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	other := seed(t, svc, "patient-2", 1)

	if _, err := svc.GetForPatient(context.Background(), "spouse-1", "patient-1", other[0].ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Void_OwnOnlyAndIdempotent(t *testing.T) {
	svc, _, _ := newTestService()
	recs := seed(t, svc, "patient-1", 1)

	if _, err := svc.Void(context.Background(), "spouse-1", recs[0].ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound voiding someone else's record, got %v", err)
	}

	for i := 0; i < 2; i++ {
		rec, err := svc.Void(context.Background(), "patient-1", recs[0].ID)
		if err != nil {
			t.Fatalf("Void #%d error: %v", i+1, err)
		}
		if rec.Status != StatusVoided {
			t.Fatalf("expected voided, got %s", rec.Status)
		}
	}
}

func TestNormalizeFilter(t *testing.T) {
	f := normalizeFilter(ListFilter{Limit: 1000, Offset: -3})
	if f.Limit != MaxListLimit || f.Offset != 0 {
		t.Fatalf("unexpected filter: %#v", f)
	}
	if f := normalizeFilter(ListFilter{}); f.Limit != DefaultListLimit {
		t.Fatalf("expected default limit, got %d", f.Limit)
	}
}
