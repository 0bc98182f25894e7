package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/budgetwise/budgetwise/internal/services"
)

// TestFullSessionLifecycle exercises the server end to end with the embedded
// dev backend: register, persist the session, read it back, refresh with
// rotation, and clear.
func TestFullSessionLifecycle(t *testing.T) {
	svcs, err := services.InitializeServices()
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svcs.Close()

	server := httptest.NewServer(setupRouter(svcs))
	defer server.Close()

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	// Register against the embedded dev backend
	registerBody, _ := json.Marshal(map[string]string{
		"email":    "a@b.com",
		"password": "password123",
		"name":     "Alice",
	})
	resp, err := client.Post(server.URL+"/auth/register", "application/json", bytes.NewReader(registerBody))
	if err != nil {
		t.Fatalf("Register request failed: %v", err)
	}
	var pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    int    `json:"expiresIn"`
		User         struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		t.Fatalf("Failed to decode register response: %v", err)
	}
	resp.Body.Close()
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("Expected a full token pair, got %+v", pair)
	}

	// Persist the session
	userJSON, _ := json.Marshal(map[string]interface{}{"id": pair.User.ID, "email": pair.User.Email})
	form := url.Values{
		"token":        {pair.AccessToken},
		"userData":     {string(userJSON)},
		"expiresIn":    {"3600"},
		"refreshToken": {pair.RefreshToken},
	}
	resp, err = client.Post(server.URL+"/session/set", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("set-session request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected set-session status 200, got %d", resp.StatusCode)
	}

	// Read it back
	resp, err = client.Get(server.URL + "/session")
	if err != nil {
		t.Fatalf("get-session request failed: %v", err)
	}
	var session struct {
		Token    *string `json:"token"`
		UserData *struct {
			Email string `json:"email"`
		} `json:"userData"`
		Expiration *string `json:"expiration"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("Failed to decode session: %v", err)
	}
	resp.Body.Close()
	if session.Token == nil || *session.Token != pair.AccessToken {
		t.Errorf("Expected stored token to round trip")
	}
	if session.UserData == nil || session.UserData.Email != "a@b.com" {
		t.Errorf("Expected stored user to round trip, got %+v", session.UserData)
	}

	// Refresh rotates the credentials
	resp, err = client.Post(server.URL+"/session/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("refresh request failed: %v", err)
	}
	var refreshResult struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&refreshResult); err != nil {
		t.Fatalf("Failed to decode refresh response: %v", err)
	}
	resp.Body.Close()
	if !refreshResult.Success {
		t.Fatal("Expected refresh to succeed")
	}
	if refreshResult.Data.Token == pair.AccessToken {
		t.Error("Expected a new access token after refresh")
	}

	// A second refresh works with the rotated cookie
	resp, err = client.Post(server.URL+"/session/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("second refresh request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected second refresh to succeed with rotated token, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Clear, then the session reads empty
	resp, err = client.Post(server.URL+"/session/clear", "application/json", nil)
	if err != nil {
		t.Fatalf("clear request failed: %v", err)
	}
	resp.Body.Close()

	resp, err = client.Get(server.URL + "/session")
	if err != nil {
		t.Fatalf("get-session request failed: %v", err)
	}
	var cleared map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&cleared); err != nil {
		t.Fatalf("Failed to decode session: %v", err)
	}
	resp.Body.Close()
	if cleared["token"] != nil || cleared["userData"] != nil {
		t.Errorf("Expected cleared session, got %v", cleared)
	}
}
