package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Facade is the public session surface the rest of the application uses.
// Its collaborators are injected at construction; nothing here reaches for
// ambient globals.
type Facade struct {
	client *Client
	cache  *Cache
}

func NewFacade(client *Client, cache *Cache) *Facade {
	return &Facade{
		client: client,
		cache:  cache,
	}
}

// SignIn updates the cache optimistically, then persists the credential
// record and returns once the server confirmed the write. On failure the
// error carries the server's message.
func (f *Facade) SignIn(ctx context.Context, token string, user *User, expiresIn int, refreshToken string) error {
	f.cache.set(View{Token: token, User: user})

	if err := f.client.SetSession(ctx, token, user, expiresIn, refreshToken); err != nil {
		return err
	}
	return nil
}

// SignOut clears the cache synchronously and clears the server-side record
// as a best-effort background call. From the UI's perspective the user is
// signed out the moment this returns, whatever the server call does.
func (f *Facade) SignOut() {
	f.cache.set(View{})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := f.client.ClearSession(ctx); err != nil {
			log.Warn().Err(err).Msg("Background session clear failed")
		}
	}()
}

// AuthToken returns the current access token, or "" when signed out. Pure
// cache read, no I/O.
func (f *Facade) AuthToken() string {
	return f.cache.View().Token
}

// IsAuthenticated is derived from the cache on every read.
func (f *Facade) IsAuthenticated() bool {
	return f.cache.IsAuthenticated()
}

// Refresh exchanges the stored refresh token for fresh credentials and signs
// back in with them. It returns false on any failure and leaves the existing
// (possibly stale) session in place; whether to sign out is the caller's
// decision.
func (f *Facade) Refresh(ctx context.Context) bool {
	view := f.cache.View()
	if !view.IsAuthenticated() {
		return false
	}

	refreshed, err := f.client.RefreshSession(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Session refresh failed")
		return false
	}

	user := refreshed.User
	if user == nil {
		user = view.User
	}

	if err := f.SignIn(ctx, refreshed.Token, user, refreshed.ExpiresIn, ""); err != nil {
		log.Warn().Err(err).Msg("Failed to persist refreshed session")
		return false
	}
	return true
}
