package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultPollInterval = 60 * time.Second

// Monitor watches for session expiration from two directions: a periodic
// poll comparing the stored expiry against the wall clock, and the
// token-expired bus fed by 401 responses. Both paths converge on one
// idempotent sign-out; after firing, the monitor stays disarmed until the
// next successful sign-in.
type Monitor struct {
	client   *Client
	facade   *Facade
	bus      *Bus
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	armed   bool
	started bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// MonitorOption modifies a Monitor.
type MonitorOption func(*Monitor)

// WithPollInterval overrides the poll interval, primarily for testing
func WithPollInterval(interval time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.interval = interval
	}
}

// WithMonitorNowTime sets the clock function
func WithMonitorNowTime(now func() time.Time) MonitorOption {
	return func(m *Monitor) {
		m.now = now
	}
}

func NewMonitor(client *Client, facade *Facade, bus *Bus, options ...MonitorOption) *Monitor {
	m := &Monitor{
		client:   client,
		facade:   facade,
		bus:      bus,
		interval: defaultPollInterval,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Start launches the watch loop. The monitor arms itself when the cache is
// (or becomes) authenticated; a signed-out start just waits for sign-in.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.armed = m.facade.IsAuthenticated()
	m.mu.Unlock()

	// Rearm on every sign-in
	unsubscribe := m.facade.cache.Subscribe(func(view View) {
		if view.IsAuthenticated() {
			m.mu.Lock()
			m.armed = true
			m.mu.Unlock()
		}
	})

	events, unsubscribeBus := m.bus.Subscribe()

	go func() {
		defer close(m.done)
		defer unsubscribe()
		defer unsubscribeBus()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.stop:
				return
			case <-events:
				m.expire()
			case <-ticker.C:
				m.poll()
			}
		}
	}()
}

// Stop terminates the watch loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		return
	}

	m.stopOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
}

func (m *Monitor) poll() {
	if !m.isArmed() || !m.facade.IsAuthenticated() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()

	session, err := m.client.GetSession(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Expiration poll failed")
		return
	}

	expiresAt, ok := session.ExpiresAt()
	if !ok {
		return
	}

	if m.now().After(expiresAt) {
		m.expire()
	}
}

// expire signs out at most once per armed period. The poll path and the
// event path both land here, so firing twice is harmless.
func (m *Monitor) expire() {
	m.mu.Lock()
	if !m.armed {
		m.mu.Unlock()
		return
	}
	m.armed = false
	m.mu.Unlock()

	log.Info().Msg("Session expired, signing out")
	m.facade.SignOut()
}

func (m *Monitor) isArmed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}
