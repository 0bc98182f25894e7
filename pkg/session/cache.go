package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// State is the hydration lifecycle of the Cache.
type State int

const (
	// StateUninitialized means neither a seed nor a hydration result has arrived.
	StateUninitialized State = iota
	// StateHydrating means the one-and-only hydration fetch is in flight.
	StateHydrating
	// StateReady means the view is live and mutated only through the Facade.
	StateReady
)

// Cache holds the client-side session view. It is seeded either from
// server-rendered state (no network round trip) or by a single hydration
// fetch; afterwards it changes only through Facade operations. Readers during
// hydration observe a signed-out view, and can check Hydrating to avoid
// treating that window as a real logout.
type Cache struct {
	mu          sync.Mutex
	state       State
	view        View
	hydrateOnce sync.Once
	subscribers map[int]func(View)
	nextSub     int
}

// NewCache builds a cache, optionally seeded with server-provided state.
// A non-nil seed skips hydration entirely.
func NewCache(seed *View) *Cache {
	c := &Cache{subscribers: make(map[int]func(View))}
	if seed != nil {
		c.state = StateReady
		c.view = *seed
		c.hydrateOnce.Do(func() {})
	}
	return c
}

// State returns the current lifecycle state.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Hydrating reports whether the initial fetch is still in flight.
func (c *Cache) Hydrating() bool {
	return c.State() == StateHydrating
}

// View returns a copy of the current session view.
func (c *Cache) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// IsAuthenticated is derived from the current view.
func (c *Cache) IsAuthenticated() bool {
	return c.View().IsAuthenticated()
}

// Hydrate performs the single allowed hydration fetch against the session
// API. Calls after the first, and calls on a seeded cache, are no-ops.
func (c *Cache) Hydrate(ctx context.Context, client *Client) {
	c.hydrateOnce.Do(func() {
		c.mu.Lock()
		c.state = StateHydrating
		c.mu.Unlock()

		view := View{}
		if session, err := client.GetSession(ctx); err != nil {
			log.Warn().Err(err).Msg("Session hydration failed, starting signed out")
		} else if session.Token != nil && session.UserData != nil {
			view = View{Token: *session.Token, User: session.UserData}
		}

		c.mu.Lock()
		c.view = view
		c.state = StateReady
		subs := c.snapshotSubscribers()
		c.mu.Unlock()

		for _, fn := range subs {
			fn(view)
		}
	})
}

// Subscribe registers a listener invoked on every view change. It returns an
// unsubscribe function.
func (c *Cache) Subscribe(fn func(View)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// set replaces the view and notifies subscribers. Only the Facade (and
// hydration) may call it.
func (c *Cache) set(view View) {
	c.mu.Lock()
	c.view = view
	if c.state != StateHydrating {
		c.state = StateReady
	}
	subs := c.snapshotSubscribers()
	c.mu.Unlock()

	for _, fn := range subs {
		fn(view)
	}
}

// snapshotSubscribers copies the subscriber list. Caller holds the lock;
// callbacks run outside it.
func (c *Cache) snapshotSubscribers() []func(View) {
	subs := make([]func(View), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	return subs
}
