package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/volunteer-scheduler/internal/logging"
)

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	now := testNow
	limiter := newRateLimiter(3, time.Minute, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if !limiter.Allow("198.51.100.7") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("198.51.100.7") {
		t.Fatal("fourth request within the interval should be rejected")
	}
	if !limiter.Allow("198.51.100.8") {
		t.Fatal("other clients keep their own budget")
	}

	now = now.Add(time.Minute)
	if !limiter.Allow("198.51.100.7") {
		t.Fatal("budget should refill after the interval")
	}

	var disabled *RateLimiter
	if !disabled.Allow("x") {
		t.Fatal("nil limiter allows everything")
	}
}

func TestCSRF(t *testing.T) {
	t.Parallel()

	key := bytes.Repeat([]byte("k"), 32)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := CSRF(key, nil)(ok)

	cases := []struct {
		name   string
		build  func() *http.Request
		status int
	}{
		{
			name: "form post without token",
			build: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/schedules", strings.NewReader(url.Values{"sector": {"Porta"}}.Encode()))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "admin-token"})
				return req
			},
			status: http.StatusForbidden,
		},
		{
			name: "json post",
			build: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/schedules", strings.NewReader(`{}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			status: http.StatusOK,
		},
		{
			name: "bearer post",
			build: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/schedules", strings.NewReader("a=b"))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				req.Header.Set("Authorization", "Bearer admin-token")
				return req
			},
			status: http.StatusOK,
		},
		{
			name:   "safe method",
			build:  func() *http.Request { return httptest.NewRequest(http.MethodGet, "/schedules", nil) },
			status: http.StatusOK,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, tc.build())
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.status, rec.Body.String())
			}
		})
	}
}

func TestRequestLoggerCarriesRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	var sawLogger bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = logging.FromContext(r.Context()) != nil
		w.WriteHeader(http.StatusTeapot)
	})
	handler := middleware.RequestID(RequestLogger(base)(inner))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if !sawLogger {
		t.Fatal("expected request logger in context")
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log entry %q: %v", buf.String(), err)
	}
	if entry["msg"] != "request completed" || entry["path"] != "/dashboard" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Fatalf("missing request_id: %v", entry)
	}
	if status, _ := entry["status"].(float64); int(status) != http.StatusTeapot {
		t.Fatalf("status = %v", entry["status"])
	}
}

func TestDecodeJSONValidationMessages(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/departments", strings.NewReader(`{"name":"`+strings.Repeat("a", 101)+`"}`))
	var dst departmentRequest
	err := decodeJSON(req, &dst)
	if err == nil {
		t.Fatal("expected validation error")
	}
	rec := httptest.NewRecorder()
	newResponder(discardLogger()).writeDecodeError(req.Context(), rec, err)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	if got := decodeBody[errorResponse](t, rec).Errors["name"]; got != "Valor excede o tamanho máximo de 100" {
		t.Fatalf("name error = %q", got)
	}
}
