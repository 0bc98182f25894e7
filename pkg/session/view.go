// Package session is the client-side half of the credential lifecycle: a
// reactive view of the signed-in state, a facade for sign-in/sign-out, and a
// monitor that forces sign-out when the session expires.
package session

import "time"

// User is the client-visible snapshot of the authenticated principal.
type User struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// View is the UI-facing session state. The zero value is signed-out.
type View struct {
	Token string
	User  *User
}

// IsAuthenticated reports whether the view carries a complete credential.
func (v View) IsAuthenticated() bool {
	return v.Token != "" && v.User != nil
}
