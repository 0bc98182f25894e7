package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/budgetwise/budgetwise/internal/credstore"
)

func TestRefreshSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/refresh" {
			t.Errorf("Expected path /auth/refresh, got %s", r.URL.Path)
		}

		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.RefreshToken != "old-refresh" {
			t.Errorf("Expected refresh token 'old-refresh', got '%s'", req.RefreshToken)
		}

		json.NewEncoder(w).Encode(TokenPair{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
			ExpiresIn:    3600,
			User:         &credstore.UserSnapshot{ID: 1, Email: "a@b.com"},
		})
	}))
	defer server.Close()

	pair, err := NewClient(server.URL).Refresh(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if pair.AccessToken != "new-access" || pair.RefreshToken != "new-refresh" {
		t.Errorf("Unexpected token pair: %+v", pair)
	}
	if pair.ExpiresIn != 3600 {
		t.Errorf("Expected expiresIn 3600, got %d", pair.ExpiresIn)
	}
	if pair.User == nil || pair.User.Email != "a@b.com" {
		t.Errorf("Unexpected user: %+v", pair.User)
	}
}

func TestRefreshRejectionPreservesStatusAndMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "refresh token revoked"})
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Refresh(context.Background(), "revoked")
	if err == nil {
		t.Fatal("Expected an error")
	}

	var identityErr *Error
	if !errors.As(err, &identityErr) {
		t.Fatalf("Expected *identity.Error, got %T", err)
	}
	if identityErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", identityErr.StatusCode)
	}
	if identityErr.Message != "refresh token revoked" {
		t.Errorf("Expected upstream message to be preserved, got '%s'", identityErr.Message)
	}
}

func TestMeSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
			t.Errorf("Expected bearer header, got '%s'", got)
		}
		json.NewEncoder(w).Encode(credstore.UserSnapshot{ID: 7, Email: "me@b.com"})
	}))
	defer server.Close()

	user, err := NewClient(server.URL).Me(context.Background(), "token-123")
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if user.ID != 7 {
		t.Errorf("Expected user ID 7, got %d", user.ID)
	}
}

func TestUnreachableBackend(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")

	_, err := client.Login(context.Background(), "a@b.com", "pw")
	if err == nil {
		t.Fatal("Expected an error for unreachable backend")
	}

	var identityErr *Error
	if errors.As(err, &identityErr) {
		t.Error("Expected a transport error, not an upstream rejection")
	}
}
