package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"telehealth/pkg/auth"
	"telehealth/pkg/logger"
)

func okHandler(calls *int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"status":"pending"}}`))
	})
}

func TestAuthenticate(t *testing.T) {
	parser := auth.NewTokenParser("secret")
	token, err := parser.Issue(auth.Actor{ID: 9, Role: auth.RolePatient}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var seen auth.Actor
	var seenOK bool
	h := Authenticate(parser, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, seenOK = auth.ActorFrom(r.Context())
	}))

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if !seenOK || seen.ID != 9 || seen.Role != auth.RolePatient {
			t.Errorf("expected patient 9 on context, got %+v (ok=%v)", seen, seenOK)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		seenOK = false
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/available-slots", nil))
		if seenOK {
			t.Error("expected no actor for anonymous request")
		}
		if rec.Code != http.StatusOK {
			t.Errorf("anonymous request should pass, got %d", rec.Code)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		req.Header.Set("Authorization", "Bearer junk")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})
}

func TestRequireActor(t *testing.T) {
	handle := RequireActor(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusNoContent)
	}, auth.RoleTherapist)

	tests := []struct {
		name  string
		actor *auth.Actor
		want  int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"wrong role", &auth.Actor{ID: 9, Role: auth.RolePatient}, http.StatusForbidden},
		{"therapist", &auth.Actor{ID: 5, Role: auth.RoleTherapist}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/availability", nil)
			if tt.actor != nil {
				req = req.WithContext(auth.WithActor(req.Context(), *tt.actor))
			}
			rec := httptest.NewRecorder()
			handle(rec, req, nil)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(0.0001, 2, nil, logger.Discard())
	defer rl.Stop()

	var calls int32
	h := RateLimit(rl)(okHandler(&calls))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/sessions/book", nil)
		req.RemoteAddr = "203.0.113.5:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated {
		t.Errorf("expected burst of two to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected third request to be limited, got %d", codes[2])
	}

	other := httptest.NewRequest(http.MethodPost, "/sessions/book", nil)
	other.RemoteAddr = "198.51.100.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusCreated {
		t.Errorf("other client should have its own bucket, got %d", rec.Code)
	}
}

func TestIdempotency_ReplaysSuccessfulResponse(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "", logger.Discard())(okHandler(&calls))

	send := func(actorID int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/sessions/book", strings.NewReader(`{}`))
		req.Header.Set(DefaultIdempotencyHeader, "book-1")
		req = req.WithContext(auth.WithActor(req.Context(), auth.Actor{ID: actorID, Role: auth.RolePatient}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send(9)
	second := send(9)
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("expected replayed response, got %d %s", second.Code, second.Body.String())
	}
	if second.Header().Get("Idempotent-Replay") != "true" {
		t.Error("expected replay marker header")
	}

	send(10)
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("a different caller must not receive another caller's replay")
	}
}

func TestIdempotency_DoesNotCacheFailures(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "", logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSONError(w, http.StatusConflict, "Slot already booked")
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/sessions/book", strings.NewReader(`{}`))
		req.Header.Set(DefaultIdempotencyHeader, "k")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected failures to be retried, handler ran %d times", calls)
	}
}

func TestContentTypeValidation(t *testing.T) {
	var calls int32
	h := ContentTypeValidation(logger.Discard())(okHandler(&calls))

	req := httptest.NewRequest(http.MethodPost, "/sessions/book", strings.NewReader("therapistId=5"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/sessions/auto-complete", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("bodyless POST should pass, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/sessions/book", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("JSON body should pass, got %d", rec.Code)
	}
}

func TestRequestTimeout(t *testing.T) {
	h := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 on timeout, got %d", rec.Code)
	}
}

func TestRequestLogging_PropagatesRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "req-123" || rec.Header().Get(RequestIDHeader) != "req-123" {
		t.Errorf("expected upstream request id to be kept, got %q", seen)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if seen == "" || seen == "req-123" {
		t.Errorf("expected a generated request id, got %q", seen)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestMaxRequestSize(t *testing.T) {
	var calls int32
	h := MaxRequestSize(8)(okHandler(&calls))
	req := httptest.NewRequest(http.MethodPost, "/sessions/book", strings.NewReader(`{"issueDescription":"long"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}
