package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"health-consent/internal/adapters/auth/jwtverifier"
	"health-consent/internal/domain/consent"
	"health-consent/internal/ports/auth"
	"health-consent/internal/router"
)

func newServer(t *testing.T, opts router.Options) *httptest.Server {
	t.Helper()

	app, err := router.New(opts)
	if err != nil {
		t.Fatalf("router.New error: %v", err)
	}
	ts := httptest.NewServer(app.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_EndToEnd_ConsentSessionRecords(t *testing.T) {
	ts := newServer(t, router.Options{})

	patientID := "3174000000000001"
	hospitalID := "hospital-a"

	// 1) Perfil del paciente: el nombre es lo que ve el hospital al reclamar
	{
		st, body := doReq(t, ts.URL, "PUT", "/me/profile", patientID, map[string]any{
			"name":       "Siti Aminah",
			"birth_date": "1990-04-12",
			"gender":     "female",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 save profile, got %d body=%s", st, string(body))
		}
	}

	// 2) Paciente registra algo en su propia historia
	appendOwnRecord(t, ts.URL, patientID, "Control anual")

	// 3) Emite código
	code := issueCode(t, ts.URL, patientID)

	// 4) Todavía no fue reclamado
	{
		st, body := doReq(t, ts.URL, "GET", "/consents/"+code+"/claimed", patientID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 is-claimed, got %d body=%s", st, string(body))
		}
		var resp struct {
			Claimed bool `json:"claimed"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Claimed {
			t.Fatalf("expected claimed=false before claim")
		}
	}

	// 5) Hospital reclama y recibe sesión + nombre del paciente
	sessionID, name := claimCode(t, ts.URL, hospitalID, code)
	if name != "Siti Aminah" {
		t.Fatalf("expected owner name, got %q", name)
	}

	// 6) Segundo claim => already_claimed
	{
		st, body := doReq(t, ts.URL, "POST", "/consents/claim", "hospital-b", map[string]any{"code": code})
		assertError(t, st, body, http.StatusConflict, "already_claimed")
	}

	// 7) Paciente ve el claim
	{
		_, body := doReq(t, ts.URL, "GET", "/consents/"+code+"/claimed", patientID, nil)
		var resp struct {
			Claimed bool `json:"claimed"`
			Info    struct {
				ClaimedBy string `json:"claimed_by"`
				SessionID string `json:"session_id"`
			} `json:"info"`
		}
		_ = json.Unmarshal(body, &resp)
		if !resp.Claimed || resp.Info.ClaimedBy != hospitalID || resp.Info.SessionID != sessionID {
			t.Fatalf("unexpected claimed info: %s", string(body))
		}
	}

	// 8) Hospital lee y escribe bajo la sesión
	{
		st, body := doReq(t, ts.URL, "GET", "/sessions/"+sessionID+"/records", hospitalID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 list via session, got %d body=%s", st, string(body))
		}
		var items []map[string]any
		_ = json.Unmarshal(body, &items)
		if len(items) != 1 {
			t.Fatalf("expected 1 record, got %d", len(items))
		}

		st, body = doReq(t, ts.URL, "POST", "/sessions/"+sessionID+"/records", hospitalID, map[string]any{
			"type":        "DIAGNOSIS",
			"occurred_at": "2025-12-22T10:00:00Z",
			"title":       "Influenza A",
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 append via session, got %d body=%s", st, string(body))
		}
	}

	// 9) Otro llamador no puede usar la sesión
	{
		st, body := doReq(t, ts.URL, "GET", "/sessions/"+sessionID+"/records", "hospital-b", nil)
		assertError(t, st, body, http.StatusForbidden, "unauthorized")
	}

	// 10) Paciente termina la sesión; el acceso se corta
	{
		st, body := doReq(t, ts.URL, "POST", "/sessions/"+sessionID+"/finish", patientID, nil)
		if st != http.StatusNoContent {
			t.Fatalf("expected 204 finish, got %d body=%s", st, string(body))
		}
		st, body = doReq(t, ts.URL, "GET", "/sessions/"+sessionID+"/records", hospitalID, nil)
		assertError(t, st, body, http.StatusGone, "session_ended")
	}

	// 11) La historia del paciente tiene ambos registros
	{
		st, body := doReq(t, ts.URL, "GET", "/patients/"+patientID+"/records", patientID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 own history, got %d body=%s", st, string(body))
		}
		var items []map[string]any
		_ = json.Unmarshal(body, &items)
		if len(items) != 2 {
			t.Fatalf("expected 2 records, got %d", len(items))
		}
	}
}

func TestHTTP_Claim_ErrorKinds(t *testing.T) {
	ts := newServer(t, router.Options{})
	patientID := "patient-1"

	// código inexistente
	{
		st, body := doReq(t, ts.URL, "POST", "/consents/claim", "hospital-a", map[string]any{"code": "00000000"})
		assertError(t, st, body, http.StatusNotFound, "not_found")
	}

	// sin identidad
	{
		st, body := doReq(t, ts.URL, "POST", "/consents", "", nil)
		assertError(t, st, body, http.StatusUnauthorized, "unauthorized")
	}

	// revocado
	{
		code := issueCode(t, ts.URL, patientID)
		st, body := doReq(t, ts.URL, "POST", "/consents/revoke", patientID, map[string]any{"codes": []string{code}})
		if st != http.StatusNoContent {
			t.Fatalf("expected 204 revoke, got %d body=%s", st, string(body))
		}
		st, body = doReq(t, ts.URL, "POST", "/consents/claim", "hospital-a", map[string]any{"code": code})
		assertError(t, st, body, http.StatusGone, "revoked")
	}

	// otro paciente no puede consultar ni revocar mi código
	{
		code := issueCode(t, ts.URL, patientID)
		st, body := doReq(t, ts.URL, "GET", "/consents/"+code+"/claimed", "patient-2", nil)
		assertError(t, st, body, http.StatusForbidden, "unauthorized")
	}
}

func TestHTTP_Claim_ExpiredCode(t *testing.T) {
	ts := newServer(t, router.Options{Consent: consent.Settings{TTL: 20 * time.Millisecond}})

	code := issueCode(t, ts.URL, "patient-1")
	time.Sleep(50 * time.Millisecond)

	st, body := doReq(t, ts.URL, "POST", "/consents/claim", "hospital-a", map[string]any{"code": code})
	assertError(t, st, body, http.StatusGone, "expired")
}

func TestHTTP_Claim_ConcurrentSingleWinner(t *testing.T) {
	ts := newServer(t, router.Options{})
	code := issueCode(t, ts.URL, "patient-1")

	const n = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[int]int{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st := postClaim(ts.URL, "hospital-"+string(rune('a'+i)), code)
			mu.Lock()
			statuses[st]++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if statuses[http.StatusOK] != 1 || statuses[http.StatusConflict] != n-1 {
		t.Fatalf("expected one winner, got %v", statuses)
	}
}

func TestHTTP_EndToEnd_FamilyGroup(t *testing.T) {
	ts := newServer(t, router.Options{})

	leader := "leader-1"
	spouse := "spouse-1"

	_, _ = doReq(t, ts.URL, "PUT", "/me/profile", spouse, map[string]any{"name": "Budi", "gender": "male"})
	appendOwnRecord(t, ts.URL, leader, "Alergia a penicilina")

	// 1) Líder crea el grupo
	var groupID string
	{
		st, body := doReq(t, ts.URL, "POST", "/groups", leader, map[string]any{"name": "Familia"})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 create group, got %d body=%s", st, string(body))
		}
		var resp struct {
			GroupID string `json:"group_id"`
		}
		_ = json.Unmarshal(body, &resp)
		groupID = resp.GroupID
		if groupID == "" {
			t.Fatalf("create group: missing group_id body=%s", string(body))
		}
	}

	// 2) Código de grupo para spouse
	var groupCode string
	{
		st, body := doReq(t, ts.URL, "POST", "/groups/"+groupID+"/consents", leader, map[string]any{"nik": spouse})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 group consent, got %d body=%s", st, string(body))
		}
		var resp struct {
			Code string `json:"group_consent_code"`
		}
		_ = json.Unmarshal(body, &resp)
		groupCode = resp.Code
	}

	// 3) El código de grupo no abre sesión
	{
		st, body := doReq(t, ts.URL, "POST", "/consents/claim", "hospital-a", map[string]any{"code": groupCode})
		assertError(t, st, body, http.StatusBadRequest, "invalid_input")
	}

	// 4) Spouse se suma
	{
		st, body := doReq(t, ts.URL, "POST", "/groups/"+groupID+"/members", spouse, map[string]any{
			"consent_code": groupCode,
			"relation":     "spouse",
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 add member, got %d body=%s", st, string(body))
		}
	}

	// 5) Detalle: líder primero, dos miembros
	{
		st, body := doReq(t, ts.URL, "GET", "/groups/"+groupID, spouse, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 details, got %d body=%s", st, string(body))
		}
		var resp struct {
			LeaderNIK   string `json:"leader_nik"`
			MemberCount int    `json:"member_count"`
			Members     []struct {
				NIK      string `json:"nik"`
				Name     string `json:"name"`
				Relation string `json:"relation"`
			} `json:"members"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.LeaderNIK != leader || resp.MemberCount != 2 || len(resp.Members) != 2 {
			t.Fatalf("unexpected details: %s", string(body))
		}
		if resp.Members[0].NIK != leader || resp.Members[1].Name != "Budi" || resp.Members[1].Relation != "spouse" {
			t.Fatalf("unexpected roster: %s", string(body))
		}
	}

	// 6) Sin grant, spouse no lee la historia del líder
	{
		st, body := doReq(t, ts.URL, "GET", "/patients/"+leader+"/records", spouse, nil)
		assertError(t, st, body, http.StatusForbidden, "unauthorized")
	}

	// 7) Grant a alguien fuera del grupo: el grantee no existe ahí
	{
		st, body := doReq(t, ts.URL, "POST", "/groups/"+groupID+"/grants", leader, map[string]any{"grantee_nik": "outsider-1"})
		assertError(t, st, body, http.StatusNotFound, "not_found")
	}

	// 8) Grant y lectura
	{
		st, body := doReq(t, ts.URL, "POST", "/groups/"+groupID+"/grants", leader, map[string]any{"grantee_nik": spouse})
		if st != http.StatusOK {
			t.Fatalf("expected 200 grant, got %d body=%s", st, string(body))
		}
		st, body = doReq(t, ts.URL, "GET", "/patients/"+leader+"/records", spouse, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 read with grant, got %d body=%s", st, string(body))
		}
	}

	// 9) Revoke corta el acceso
	{
		st, body := doReq(t, ts.URL, "DELETE", "/grants/"+spouse+"?group_id="+groupID, leader, nil)
		if st != http.StatusNoContent {
			t.Fatalf("expected 204 revoke, got %d body=%s", st, string(body))
		}
		st, body = doReq(t, ts.URL, "GET", "/patients/"+leader+"/records", spouse, nil)
		assertError(t, st, body, http.StatusForbidden, "unauthorized")
	}

	// 10) El líder sale: el grupo se disuelve
	{
		st, body := doReq(t, ts.URL, "POST", "/groups/"+groupID+"/leave", leader, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 leave, got %d body=%s", st, string(body))
		}
		var resp struct {
			Dissolved bool `json:"dissolved"`
		}
		_ = json.Unmarshal(body, &resp)
		if !resp.Dissolved {
			t.Fatalf("expected group dissolved")
		}
		st, body = doReq(t, ts.URL, "GET", "/groups/"+groupID, spouse, nil)
		assertError(t, st, body, http.StatusNotFound, "not_found")
	}
}

func TestHTTP_JWTAuth(t *testing.T) {
	const secret = "router-test-secret"
	ts := newServer(t, router.Options{
		AuthVerifier: jwtverifier.New(jwtverifier.Config{Secret: secret}),
	})

	tok, err := jwtverifier.Sign(secret, "", auth.Claims{UserID: "patient-1"}, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	// X-Debug-User-ID no vale con verifier configurado
	if st, _ := doReq(t, ts.URL, "POST", "/consents", "patient-1", nil); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 with debug header in jwt mode, got %d", st)
	}

	req, _ := http.NewRequest("POST", ts.URL+"/consents", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 with bearer token, got %d", res.StatusCode)
	}
}

func TestHTTP_Health(t *testing.T) {
	ts := newServer(t, router.Options{})

	st, body := doReq(t, ts.URL, "GET", "/health", "", nil)
	if st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health: %d %s", st, string(body))
	}
}

// postClaim no usa t: corre en goroutines.
func postClaim(baseURL, claimantID, code string) int {
	b, _ := json.Marshal(map[string]string{"code": code})
	req, err := http.NewRequest("POST", baseURL+"/consents/claim", bytes.NewReader(b))
	if err != nil {
		return 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Debug-User-ID", claimantID)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	return res.StatusCode
}

func issueCode(t *testing.T, baseURL, ownerID string) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/consents", ownerID, nil)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 issue code, got %d body=%s", st, string(body))
	}

	var resp struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.Code == "" {
		t.Fatalf("issue code: missing code body=%s", string(body))
	}
	return resp.Code
}

func claimCode(t *testing.T, baseURL, claimantID, code string) (string, string) {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/consents/claim", claimantID, map[string]any{"code": code})
	if st != http.StatusOK {
		t.Fatalf("expected 200 claim, got %d body=%s", st, string(body))
	}

	var resp struct {
		SessionID string `json:"session_id"`
		Name      string `json:"name"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.SessionID == "" {
		t.Fatalf("claim: missing session_id body=%s", string(body))
	}
	return resp.SessionID, resp.Name
}

func appendOwnRecord(t *testing.T, baseURL, patientID, title string) {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/me/records", patientID, map[string]any{
		"type":        "NOTE",
		"occurred_at": "2025-12-01T09:00:00Z",
		"title":       title,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 append own record, got %d body=%s", st, string(body))
	}
}

func assertError(t *testing.T, gotStatus int, body []byte, wantStatus int, wantKind string) {
	t.Helper()

	if gotStatus != wantStatus {
		t.Fatalf("expected %d, got %d body=%s", wantStatus, gotStatus, string(body))
	}
	var resp struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.Error != wantKind {
		t.Fatalf("expected error kind %q, got %q", wantKind, resp.Error)
	}
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
