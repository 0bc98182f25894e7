package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/budgetwise/budgetwise/pkg/session"
	"github.com/stretchr/testify/require"
)

func TestSeededCacheSkipsHydration(t *testing.T) {
	seed := &session.View{Token: "abc", User: &session.User{ID: 1, Email: "a@b.com"}}
	cache := session.NewCache(seed)

	require.Equal(t, session.StateReady, cache.State())
	require.True(t, cache.IsAuthenticated())

	// Hydration against an unreachable server must be a no-op on a seeded cache
	client := session.NewClient("http://127.0.0.1:1")
	cache.Hydrate(context.Background(), client)

	require.Equal(t, "abc", cache.View().Token)
	require.Equal(t, session.StateReady, cache.State())
}

func TestHydrationPopulatesFromServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := "server-token"
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token":    token,
			"userData": map[string]interface{}{"id": 1, "email": "a@b.com"},
		})
	}))
	defer server.Close()

	cache := session.NewCache(nil)
	require.Equal(t, session.StateUninitialized, cache.State())

	cache.Hydrate(context.Background(), session.NewClient(server.URL))

	require.Equal(t, session.StateReady, cache.State())
	require.True(t, cache.IsAuthenticated())
	require.Equal(t, "server-token", cache.View().Token)
	require.Equal(t, "a@b.com", cache.View().User.Email)
}

func TestHydrationHappensAtMostOnce(t *testing.T) {
	var calls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		json.NewEncoder(w).Encode(map[string]interface{}{"token": nil, "userData": nil})
	}))
	defer server.Close()

	cache := session.NewCache(nil)
	client := session.NewClient(server.URL)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Hydrate(context.Background(), client)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls, "hydration must fetch at most once per cache lifetime")
}

func TestReadsDuringHydrationAreUnauthenticatedButObservable(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token":    "abc",
			"userData": map[string]interface{}{"id": 1, "email": "a@b.com"},
		})
	}))
	defer server.Close()

	cache := session.NewCache(nil)
	done := make(chan struct{})
	go func() {
		cache.Hydrate(context.Background(), session.NewClient(server.URL))
		close(done)
	}()

	require.Eventually(t, cache.Hydrating, time.Second, time.Millisecond,
		"cache should report hydrating while the fetch is in flight")
	require.False(t, cache.IsAuthenticated(),
		"reads during hydration observe a signed-out view")

	close(release)
	<-done

	require.Equal(t, session.StateReady, cache.State())
	require.True(t, cache.IsAuthenticated())
}

func TestHydrationFailureDegradesToSignedOut(t *testing.T) {
	cache := session.NewCache(nil)
	cache.Hydrate(context.Background(), session.NewClient("http://127.0.0.1:1"))

	require.Equal(t, session.StateReady, cache.State())
	require.False(t, cache.IsAuthenticated())
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	cache := session.NewCache(nil)
	client := newUnreachableClient()

	var mu sync.Mutex
	var views []session.View
	unsubscribe := cache.Subscribe(func(v session.View) {
		mu.Lock()
		views = append(views, v)
		mu.Unlock()
	})

	cache.Hydrate(context.Background(), client)

	mu.Lock()
	require.Len(t, views, 1)
	mu.Unlock()

	unsubscribe()
	cache.Hydrate(context.Background(), client) // no-op, no further notifications

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, views, 1)
}

func newUnreachableClient() *session.Client {
	return session.NewClient("http://127.0.0.1:1")
}
