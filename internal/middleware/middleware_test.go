package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"health-consent/internal/platform/logger"
	"health-consent/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

type stubVerifier struct{}

func (stubVerifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if token != "good" {
		return auth.Claims{}, errors.New("bad token")
	}
	return auth.Claims{UserID: "patient-1", Provider: "hospital-a"}, nil
}

func callerOf(verifier auth.AuthVerifier, header, value string) (auth.Claims, bool) {
	var (
		got auth.Claims
		ok  bool
	)
	h := AuthContext(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = Caller(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got, ok
}

func TestAuthContext_DevMode(t *testing.T) {
	c, ok := callerOf(nil, "X-Debug-User-ID", " patient-1 ")
	if !ok || c.UserID != "patient-1" {
		t.Fatalf("expected debug caller, got %#v %v", c, ok)
	}
	if _, ok := callerOf(nil, "", ""); ok {
		t.Fatalf("expected no caller without header")
	}
}

func TestAuthContext_Verifier(t *testing.T) {
	c, ok := callerOf(stubVerifier{}, "Authorization", "Bearer good")
	if !ok || c.UserID != "patient-1" || c.Provider != "hospital-a" {
		t.Fatalf("expected verified caller, got %#v %v", c, ok)
	}
	if _, ok := callerOf(stubVerifier{}, "Authorization", "Bearer bad"); ok {
		t.Fatalf("expected no caller with invalid token")
	}
	if _, ok := callerOf(stubVerifier{}, "X-Debug-User-ID", "patient-1"); ok {
		t.Fatalf("debug header must be ignored when a verifier is set")
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":  "abc",
		"bearer  abc": "abc",
		"Basic abc":   "",
		"abc":         "",
		"":            "",
	}
	for in, want := range cases {
		if got := bearerToken(in); got != want {
			t.Fatalf("bearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRequestLog_UsesRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: logger.Info, Format: logger.FormatJSON, Output: &buf})

	r := chi.NewRouter()
	r.Use(RequestLog(log))
	r.Get("/consents/{code}/claimed", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/consents/48291377/claimed", nil))

	out := buf.String()
	if !strings.Contains(out, `"route":"/consents/{code}/claimed"`) {
		t.Fatalf("expected route pattern in log, got %s", out)
	}
	if strings.Contains(out, "48291377") {
		t.Fatalf("code leaked into log: %s", out)
	}
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"status":404`) {
		t.Fatalf("expected warn line with status, got %s", out)
	}
}
