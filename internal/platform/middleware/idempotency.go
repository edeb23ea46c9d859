package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	dErrors "ahorro/pkg/domain-errors"
	"ahorro/pkg/platform/httputil"
	"ahorro/pkg/requestcontext"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 128
)

// ResponseStore keeps completed responses for replay. Reserve claims a key
// while its first request is in flight.
type ResponseStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Idempotency replays the first completed response to a POST for repeats with
// the same Idempotency-Key from the same caller. Responses with a 5xx status
// are not kept so the client may retry them.
func Idempotency(store ResponseStore, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "idempotency key too long"))
				return
			}

			ctx := r.Context()
			scoped := requestcontext.Principal(ctx).String() + "|" + r.URL.Path + "|" + key

			if raw, ok, err := store.Get(ctx, scoped); err != nil {
				logger.ErrorContext(ctx, "idempotency lookup failed", "error", err, "request_id", requestcontext.RequestID(ctx))
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "idempotency store unavailable"))
				return
			} else if ok {
				replay(w, raw, logger, r)
				return
			}

			reserved, err := store.Reserve(ctx, scoped, ttl)
			if err != nil {
				logger.ErrorContext(ctx, "idempotency reserve failed", "error", err, "request_id", requestcontext.RequestID(ctx))
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "idempotency store unavailable"))
				return
			}
			if !reserved {
				httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "a request with this idempotency key is in progress"))
				return
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Detached so a client hang-up does not lose the stored response.
			storeCtx := context.WithoutCancel(ctx)
			if rec.status >= http.StatusInternalServerError {
				if err := store.Release(storeCtx, scoped); err != nil {
					logger.WarnContext(ctx, "idempotency release failed", "error", err)
				}
				return
			}
			payload, _ := json.Marshal(storedResponse{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err := store.Put(storeCtx, scoped, payload, ttl); err != nil {
				logger.WarnContext(ctx, "idempotency store failed", "error", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, raw []byte, logger *slog.Logger, r *http.Request) {
	var resp storedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		logger.ErrorContext(r.Context(), "corrupt idempotent response", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "corrupt idempotent response"))
		return
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// MemoryResponseStore is a process-local ResponseStore.
type MemoryResponseStore struct {
	mu       sync.Mutex
	now      func() time.Time
	entries  map[string]memoryEntry
	reserved map[string]time.Time
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

func NewMemoryResponseStore() *MemoryResponseStore {
	return &MemoryResponseStore{
		now:      time.Now,
		entries:  make(map[string]memoryEntry),
		reserved: make(map[string]time.Time),
	}
}

func (m *MemoryResponseStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.payload, true, nil
}

func (m *MemoryResponseStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if until, ok := m.reserved[key]; ok && m.now().Before(until) {
		return false, nil
	}
	m.reserved[key] = m.now().Add(ttl)
	return true, nil
}

func (m *MemoryResponseStore) Put(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{payload: append([]byte(nil), payload...), expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryResponseStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reserved, key)
	return nil
}
