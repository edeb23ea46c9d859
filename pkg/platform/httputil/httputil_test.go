package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "ahorro/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("invalid configuration includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInvalidConfiguration, "insurance bps above 1000"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "invalid_configuration" {
			t.Fatalf("expected error code invalid_configuration, got %q", body["error"])
		}
		if body["error_description"] != "insurance bps above 1000" {
			t.Fatalf("expected error_description to be returned")
		}
	})

	t.Run("ledger kinds map to distinct statuses", func(t *testing.T) {
		cases := map[dErrors.Code]int{
			dErrors.CodeUnauthorized:       http.StatusForbidden,
			dErrors.CodeInvalidState:       http.StatusConflict,
			dErrors.CodeAssetMismatch:      http.StatusUnprocessableEntity,
			dErrors.CodeArithmeticOverflow: http.StatusUnprocessableEntity,
			dErrors.CodeNotFound:           http.StatusNotFound,
		}
		for code, want := range cases {
			if got := StatusFor(code); got != want {
				t.Fatalf("%s: expected %d, got %d", code, want, got)
			}
		}
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Amount uint64 `json:"amount"`
	}

	t.Run("decodes known fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":25}`))
		w := httptest.NewRecorder()
		got, ok := DecodeJSON[payload](w, r, nil)
		if !ok || got.Amount != 25 {
			t.Fatalf("expected amount 25, got %+v ok=%v", got, ok)
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":25,"extra":1}`))
		w := httptest.NewRecorder()
		if _, ok := DecodeJSON[payload](w, r, nil); ok {
			t.Fatalf("expected decode failure")
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}
