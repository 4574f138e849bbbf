package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/streamhub/backend/internal/apperr"
)

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()

	Success(context.Background(), rec, http.StatusCreated, "created", map[string]string{"id": "1"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("unexpected content type %q", got)
	}

	var env struct {
		StatusCode int               `json:"statusCode"`
		Success    bool              `json:"success"`
		Message    string            `json:"message"`
		Data       map[string]string `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.StatusCode != http.StatusCreated || !env.Success || env.Message != "created" || env.Data["id"] != "1" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestErrorEnvelope(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		wantErrors  int
	}{
		{"validation", apperr.Validation("title is required", "title"), http.StatusBadRequest, "title is required", 1},
		{"forbidden", apperr.Forbidden("not the owner"), http.StatusForbidden, "not the owner", 0},
		{"unknown", errors.New("pq: connection refused at 10.0.0.3"), http.StatusInternalServerError, "internal server error", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(context.Background(), rec, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d got %d", tc.wantStatus, rec.Code)
			}
			if strings.Contains(rec.Body.String(), "10.0.0.3") {
				t.Fatal("internal details leaked into response")
			}

			var env ErrorEnvelope
			if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Success || env.StatusCode != tc.wantStatus || env.Message != tc.wantMessage {
				t.Fatalf("unexpected envelope: %+v", env)
			}
			if env.Errors == nil || len(env.Errors) != tc.wantErrors {
				t.Fatalf("unexpected errors list: %#v", env.Errors)
			}
		})
	}
}
