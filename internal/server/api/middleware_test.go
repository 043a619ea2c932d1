package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KyooRuss/Parking-Management/pkg/utils"
)

func TestIdentityMiddleware_AttachesIdentity(t *testing.T) {
	token, err := utils.GenerateJWT("uid-7", "Dana", "", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/scan", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	var got *Identity
	handler := IdentityMiddleware(JWTVerifier{Secret: "test-secret"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetIdentity(r)
		w.WriteHeader(http.StatusNoContent)
	}))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 status, got %d", rec.Code)
	}
	if got == nil || got.UserID != "uid-7" || got.UserName != "Dana" {
		t.Fatalf("expected identity uid-7/Dana, got %+v", got)
	}
}

func TestIdentityMiddleware_AnonymousPassesThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/occupancy", nil)
	rec := httptest.NewRecorder()

	nextCalled := false
	handler := IdentityMiddleware(JWTVerifier{Secret: "test-secret"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		if GetIdentity(r) != nil {
			t.Error("expected no identity on anonymous request")
		}
	}))
	handler.ServeHTTP(rec, req)

	if !nextCalled {
		t.Fatal("expected next handler to run")
	}
}

func TestIdentityMiddleware_RejectsBadToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "wrong scheme", header: "Basic abc"},
		{name: "garbage token", header: "Bearer nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/occupancy", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			handler := IdentityMiddleware(JWTVerifier{Secret: "test-secret"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("unexpected call to next handler")
			}))
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401 status, got %d", rec.Code)
			}
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/slots/A1/assign", nil)
	rec := httptest.NewRecorder()

	handler := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 status, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header")
	}
}
