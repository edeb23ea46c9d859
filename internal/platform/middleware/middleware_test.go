package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "ahorro/pkg/domain"
	"ahorro/pkg/requestcontext"
)

type stubValidator map[string]id.Principal

func (v stubValidator) ValidateToken(token string) (id.Principal, error) {
	if p, ok := v[token]; ok {
		return p, nil
	}
	return "", errors.New("unknown token")
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequireAuth(t *testing.T) {
	var seen id.Principal
	h := RequireAuth(stubValidator{"good": "alice"}, quiet())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Principal(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid token sets principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, id.Principal("alice"), seen)
	})

	t.Run("missing header", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "unauthenticated")
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer forged")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", rr.Header().Get(RequestIDHeader))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "req-1", seen)
}

func TestIdempotency(t *testing.T) {
	var calls atomic.Int32
	status := http.StatusCreated
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"n":` + string(rune('0'+n)) + `}`))
	})
	store := NewMemoryResponseStore()
	h := Idempotency(store, time.Hour, quiet())(inner)

	post := func(caller id.Principal, path, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		req = req.WithContext(requestcontext.WithPrincipal(req.Context(), caller))
		if key != "" {
			req.Header.Set(IdempotencyKeyHeader, key)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	t.Run("replays the first response", func(t *testing.T) {
		first := post("alice", "/groups/g/contributions", "k1")
		second := post("alice", "/groups/g/contributions", "k1")
		require.Equal(t, http.StatusCreated, first.Code)
		assert.Equal(t, http.StatusCreated, second.Code)
		assert.Equal(t, first.Body.String(), second.Body.String())
		assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("keys are scoped to the caller", func(t *testing.T) {
		before := calls.Load()
		post("bob", "/groups/g/contributions", "k1")
		assert.Equal(t, before+1, calls.Load())
	})

	t.Run("requests without a key always run", func(t *testing.T) {
		before := calls.Load()
		post("alice", "/groups/g/contributions", "")
		post("alice", "/groups/g/contributions", "")
		assert.Equal(t, before+2, calls.Load())
	})

	t.Run("server errors are not kept", func(t *testing.T) {
		status = http.StatusInternalServerError
		before := calls.Load()
		post("alice", "/groups/g/payouts", "k2")
		status = http.StatusCreated
		retry := post("alice", "/groups/g/payouts", "k2")
		assert.Equal(t, http.StatusCreated, retry.Code)
		assert.Equal(t, before+2, calls.Load())
	})

	t.Run("in-flight key conflicts", func(t *testing.T) {
		ok, err := store.Reserve(t.Context(), "alice|/groups/g/payouts|k3", time.Hour)
		require.NoError(t, err)
		require.True(t, ok)
		rr := post("alice", "/groups/g/payouts", "k3")
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestMemoryResponseStore_Expiry(t *testing.T) {
	store := NewMemoryResponseStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	require.NoError(t, store.Put(t.Context(), "k", []byte("v"), time.Minute))

	_, ok, _ := store.Get(t.Context(), "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = store.Get(t.Context(), "k")
	assert.False(t, ok)
}
