package hmacauth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestMiddlewareAllowsValidSignature(t *testing.T) {
	body := `{"amountUsd":100}`
	now := time.Unix(1_700_000_000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)

	v := &Verifier{
		Secret:  "secret",
		MaxSkew: time.Minute,
		Now:     func() time.Time { return now },
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mint-request", strings.NewReader(body))
	req.Header.Set(HeaderSignature, Sign("secret", ts, []byte(body)))
	req.Header.Set(HeaderTimestamp, ts)
	rec := httptest.NewRecorder()

	called := false
	v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	if !called {
		t.Fatal("handler was not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMiddlewareRejectsInvalidSignature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)

	v := &Verifier{
		Secret:  "secret",
		MaxSkew: time.Minute,
		Now:     func() time.Time { return now },
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mint-request", strings.NewReader(`{}`))
	req.Header.Set(HeaderSignature, "deadbeef")
	req.Header.Set(HeaderTimestamp, ts)
	rec := httptest.NewRecorder()

	v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), ErrInvalidSignature.Error()) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestMiddlewareRejectsStaleTimestamp(t *testing.T) {
	body := `{}`
	now := time.Unix(1_700_000_000, 0)
	stale := strconv.FormatInt(now.Add(-5*time.Minute).Unix(), 10)

	v := &Verifier{
		Secret:  "secret",
		MaxSkew: time.Minute,
		Now:     func() time.Time { return now },
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/send", strings.NewReader(body))
	req.Header.Set(HeaderSignature, Sign("secret", stale, []byte(body)))
	req.Header.Set(HeaderTimestamp, stale)
	rec := httptest.NewRecorder()

	v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareDisabledWithoutSecret(t *testing.T) {
	v := &Verifier{Secret: "", MaxSkew: time.Minute}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mint-request", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	called := false
	v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rec, req)

	if !called {
		t.Fatal("unsigned request should pass when no secret is configured")
	}
}

func TestMiddlewareBodyStillReadable(t *testing.T) {
	body := `{"amount":5}`
	now := time.Unix(1_700_000_000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)

	v := &Verifier{
		Secret:  "secret",
		MaxSkew: time.Minute,
		Now:     func() time.Time { return now },
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/send", strings.NewReader(body))
	req.Header.Set(HeaderSignature, Sign("secret", ts, []byte(body)))
	req.Header.Set(HeaderTimestamp, ts)
	rec := httptest.NewRecorder()

	v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := make([]byte, len(body))
		n, _ := r.Body.Read(got)
		if string(got[:n]) != body {
			t.Fatalf("handler read %q, want %q", got[:n], body)
		}
	})).ServeHTTP(rec, req)
}
