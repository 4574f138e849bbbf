package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthHandlerHandle(t *testing.T) {
	tests := []struct {
		name   string
		db     Pinger
		status int
		want   string
	}{
		{name: "no database", status: http.StatusOK, want: "ok"},
		{name: "database up", db: stubPinger{}, status: http.StatusOK, want: "ok"},
		{name: "database down", db: stubPinger{err: errors.New("connection refused")}, status: http.StatusServiceUnavailable, want: "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := HealthHandler{DB: tt.db}

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()

			handler.Handle(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected status %d got %d", tt.status, rec.Code)
			}
			if got := rec.Header().Get("Content-Type"); got != "application/json" {
				t.Fatalf("expected json content type got %s", got)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["status"] != tt.want {
				t.Fatalf("expected status %q got %q", tt.want, body["status"])
			}
		})
	}
}
