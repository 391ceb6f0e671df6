package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTokenVerifier_Verify(t *testing.T) {
	hash, err := HashToken("s3cret-token")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}

	v := NewTokenVerifier(hash)
	if err := v.Verify("s3cret-token"); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if err := v.Verify("wrong-token"); err == nil {
		t.Fatal("wrong token accepted")
	}
}

func TestTokenVerifier_DisabledWhenUnconfigured(t *testing.T) {
	v := NewTokenVerifier("")
	if err := v.Verify("anything"); err != nil {
		t.Fatalf("unconfigured verifier should accept: %v", err)
	}
}

func TestTokenVerifier_Middleware(t *testing.T) {
	hash, err := HashToken("s3cret-token")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	v := NewTokenVerifier(hash)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := v.Middleware(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid token", header: "Bearer s3cret-token", wantStatus: http.StatusNoContent},
		{name: "wrong token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic s3cret-token", wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}
