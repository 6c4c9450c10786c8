package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	commonerrors "github.com/microblog-go/microblog/internal/common/errors"
	"github.com/microblog-go/microblog/internal/common/logger"
)

func testLogger() *logger.Logger {
	return logger.NewWriter(io.Discard, "test", "error")
}

func TestSafeRedirectTarget(t *testing.T) {
	cases := []struct {
		next string
		want string
	}{
		{"", "/index"},
		{"/edit_profile", "/edit_profile"},
		{"/user/alice?tab=posts", "/user/alice?tab=posts"},
		{"https://evil.example/", "/index"},
		{"//evil.example/path", "/index"},
		{`/\evil.example`, "/index"},
		{"javascript:alert(1)", "/index"},
		{"edit_profile", "/index"},
	}
	for _, tc := range cases {
		if got := SafeRedirectTarget(tc.next, "/index"); got != tc.want {
			t.Errorf("SafeRedirectTarget(%q) = %q, want %q", tc.next, got, tc.want)
		}
	}
}

func TestFlashRoundTrip(t *testing.T) {
	first := httptest.NewRecorder()
	Flash(first, httptest.NewRequest(http.MethodGet, "/", nil), "Congratulations, you are now a registered user!")

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	for _, c := range first.Result().Cookies() {
		req.AddCookie(c)
	}

	second := httptest.NewRecorder()
	messages := PopFlashes(second, req)
	if len(messages) != 1 || messages[0] != "Congratulations, you are now a registered user!" {
		t.Fatalf("unexpected flashes %v", messages)
	}
	cleared := second.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("flash cookie should be cleared, got %+v", cleared)
	}

	if got := PopFlashes(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)); got != nil {
		t.Errorf("expected no flashes, got %v", got)
	}
}

func TestTraceIDMiddleware(t *testing.T) {
	var seen string
	handler := TraceIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(traceIDHeader, "abc123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "abc123" || rec.Header().Get(traceIDHeader) != "abc123" {
		t.Errorf("incoming trace id should be kept, got %q", seen)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || seen == "abc123" {
		t.Errorf("expected a generated trace id, got %q", seen)
	}
}

func TestErrorHandler_DomainError(t *testing.T) {
	var gotStatus int
	var gotMessage string
	eh := NewErrorHandler(testLogger(), func(w http.ResponseWriter, r *http.Request, status int, message string) {
		gotStatus, gotMessage = status, message
		w.WriteHeader(status)
	})

	rec := httptest.NewRecorder()
	eh.HandleError(rec, httptest.NewRequest(http.MethodGet, "/user/ghost", nil), commonerrors.ErrUserNotFound)
	if gotStatus != http.StatusNotFound || gotMessage != "user not found" {
		t.Errorf("unexpected page %d %q", gotStatus, gotMessage)
	}
}

func TestErrorHandler_HidesInternalDetail(t *testing.T) {
	eh := NewErrorHandler(testLogger(), nil)

	for _, err := range []error{
		commonerrors.ErrDatabaseError.WithCause(errors.New("pq: password authentication failed")),
		errors.New("raw failure"),
	} {
		rec := httptest.NewRecorder()
		eh.HandleError(rec, httptest.NewRequest(http.MethodGet, "/index", nil), err)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		var env ErrorEnvelope
		if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Message != internalErrorMessage {
			t.Errorf("internal detail leaked: %q", env.Message)
		}
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	eh := NewErrorHandler(testLogger(), nil)
	handler := RecoveryMiddleware(testLogger(), eh)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	healthy := HealthHandler(testLogger(), map[string]Pinger{
		"database": pingerFunc(func(context.Context) error { return nil }),
	})
	rec := httptest.NewRecorder()
	healthy(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"database":"ok"`) {
		t.Errorf("unexpected healthy response %d %s", rec.Code, rec.Body.String())
	}

	degraded := HealthHandler(testLogger(), map[string]Pinger{
		"database": pingerFunc(func(context.Context) error { return errors.New("down") }),
	})
	rec = httptest.NewRecorder()
	degraded(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestMaxRequestSizeMiddleware(t *testing.T) {
	handler := MaxRequestSizeMiddleware(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("this body is too long")))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}
