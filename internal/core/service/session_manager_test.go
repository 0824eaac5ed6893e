package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubStore struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newStubStore() *stubStore {
	return &stubStore{data: make(map[string]string)}
}

func (s *stubStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

func (s *stubStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *stubStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *stubStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// ctxStore fails writes once their context is done, like the network stores.
type ctxStore struct{ *stubStore }

func (s ctxStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.stubStore.Set(ctx, key, value)
}

func (s ctxStore) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.stubStore.Delete(ctx, keys...)
}

type stubAuth struct {
	loginFn    func(email, password string) (*domain.AuthResult, error)
	registerFn func(name, email, password string) (*domain.AuthResult, error)
}

func (a *stubAuth) Login(_ context.Context, email, password string) (*domain.AuthResult, error) {
	return a.loginFn(email, password)
}

func (a *stubAuth) Register(_ context.Context, name, email, password string) (*domain.AuthResult, error) {
	return a.registerFn(name, email, password)
}

func observerBackend() *stubAuth {
	return &stubAuth{
		loginFn: func(email, password string) (*domain.AuthResult, error) {
			if email != "a@b.com" || password != "x" {
				return nil, domain.NewAuthError("login", domain.ErrInvalidCredentials)
			}
			return &domain.AuthResult{
				User:  domain.Identity{ID: "1", Email: email, Role: domain.RoleObserver},
				Token: "abc",
			}, nil
		},
		registerFn: func(name, email, password string) (*domain.AuthResult, error) {
			return &domain.AuthResult{
				User:  domain.Identity{ID: "2", Name: name, Email: email, Role: domain.RoleObserver},
				Token: "def",
			}, nil
		},
	}
}

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestManager(store *stubStore, clock clockwork.Clock) *SessionManager {
	return NewSessionManager(
		observerBackend(),
		NewLocalDemoIssuer("secret", domain.DefaultDemoTTL, clock),
		store,
		zerolog.Nop(),
		SessionManagerOptions{Clock: clock},
	)
}

func subscribe(t *testing.T, m *SessionManager) <-chan domain.SessionEvent {
	t.Helper()
	ch := make(chan domain.SessionEvent, 16)
	unsubscribe := m.Subscribe(func(ev domain.SessionEvent) { ch <- ev })
	t.Cleanup(unsubscribe)
	return ch
}

func waitEvent(t *testing.T, ch <-chan domain.SessionEvent) domain.SessionEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for session event")
		return domain.SessionEvent{}
	}
}

func expectNoEvent(t *testing.T, ch <-chan domain.SessionEvent) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected session event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// seedDemo persists a demo session that started at start.
func seedDemo(t *testing.T, store *stubStore, start time.Time) *domain.Identity {
	t.Helper()
	m := newTestManager(store, clockwork.NewFakeClockAt(start))
	id, err := m.EnterDemoMode(context.Background())
	require.NoError(t, err)
	return id
}

// ---------------------------------------------------------------------------
// Login / register
// ---------------------------------------------------------------------------

func TestSessionManager_Login_SetsCurrentAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	clock := clockwork.NewFakeClockAt(t0)
	m := newTestManager(store, clock)
	events := subscribe(t, m)

	id, err := m.Login(ctx, "a@b.com", "x")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleObserver, m.Current().Role)
	assert.Equal(t, id, m.Current())
	assert.Equal(t, "abc", m.Token())

	ev := waitEvent(t, events)
	assert.Equal(t, domain.ReasonLogin, ev.Reason)
	assert.Equal(t, id, ev.Identity)

	assert.True(t, store.has(domain.SessionRecordKey))
	assert.False(t, store.has(domain.DemoStartedAtKey))

	reloaded := newTestManager(store, clock)
	reloaded.Init(ctx)
	assert.Equal(t, id, reloaded.Current())
	assert.Equal(t, "abc", reloaded.Token())
	_, isDemo := reloaded.DemoExpiresAt()
	assert.False(t, isDemo)
}

func TestSessionManager_Login_RejectedLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	m := newTestManager(store, clockwork.NewFakeClockAt(t0))

	_, err := m.Login(ctx, "a@b.com", "wrong")
	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domain.AuthRejected, authErr.Kind)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Nil(t, m.Current())
	assert.False(t, store.has(domain.SessionRecordKey))
}

func TestSessionManager_Login_BackendUnreachable(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	auth := observerBackend()
	m := NewSessionManager(auth, NewLocalDemoIssuer("secret", 0, nil), store, zerolog.Nop(),
		SessionManagerOptions{Clock: clockwork.NewFakeClockAt(t0)})

	_, err := m.Login(ctx, "a@b.com", "x")
	require.NoError(t, err)
	before := m.Current()

	auth.loginFn = func(string, string) (*domain.AuthResult, error) {
		return nil, errors.New("dial tcp: connection refused")
	}
	_, err = m.Login(ctx, "c@d.com", "y")
	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domain.AuthUnavailable, authErr.Kind)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.Equal(t, before, m.Current(), "failed login must not replace the identity")
	assert.Equal(t, "abc", m.Token())
}

func TestSessionManager_Login_MalformedResponse(t *testing.T) {
	auth := observerBackend()
	auth.loginFn = func(string, string) (*domain.AuthResult, error) {
		return &domain.AuthResult{User: domain.Identity{ID: "1", Role: "beekeeper"}, Token: "abc"}, nil
	}
	m := NewSessionManager(auth, NewLocalDemoIssuer("secret", 0, nil), newStubStore(), zerolog.Nop(), SessionManagerOptions{})

	_, err := m.Login(context.Background(), "a@b.com", "x")
	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domain.AuthUnavailable, authErr.Kind)
	assert.Nil(t, m.Current())
}

func TestSessionManager_Register(t *testing.T) {
	m := newTestManager(newStubStore(), clockwork.NewFakeClockAt(t0))

	id, err := m.Register(context.Background(), "Ana", "ana@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Ana", id.Name)
	assert.Equal(t, "def", m.Token())
	assert.False(t, id.IsDemo)
}

// ---------------------------------------------------------------------------
// Demo mode
// ---------------------------------------------------------------------------

func TestSessionManager_EnterDemoMode(t *testing.T) {
	store := newStubStore()
	clock := clockwork.NewFakeClockAt(t0)
	m := newTestManager(store, clock)

	before := clock.Now()
	id, err := m.EnterDemoMode(context.Background())
	after := clock.Now()
	require.NoError(t, err)

	assert.True(t, id.IsDemo)
	assert.Equal(t, domain.RoleDemo, id.Role)
	assert.NotEmpty(t, m.Token())

	raw, err := store.Get(context.Background(), domain.DemoStartedAtKey)
	require.NoError(t, err)
	ms, err := strconv.ParseInt(raw, 10, 64)
	require.NoError(t, err)
	started := time.UnixMilli(ms)
	assert.False(t, started.Before(before.Truncate(time.Millisecond)))
	assert.False(t, started.After(after))

	expiresAt, ok := m.DemoExpiresAt()
	require.True(t, ok)
	assert.WithinDuration(t, t0.Add(domain.DefaultDemoTTL), expiresAt, 0)
}

func TestSessionManager_DemoExpiresWhileOpen(t *testing.T) {
	store := newStubStore()
	clock := clockwork.NewFakeClockAt(t0)
	m := newTestManager(store, clock)
	events := subscribe(t, m)

	_, err := m.EnterDemoMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonDemo, waitEvent(t, events).Reason)

	clock.Advance(domain.DefaultDemoTTL - time.Second)
	expectNoEvent(t, events)
	require.NotNil(t, m.Current())

	clock.Advance(time.Second)
	ev := waitEvent(t, events)
	assert.Equal(t, domain.ReasonExpired, ev.Reason)
	assert.Nil(t, ev.Identity)
	assert.Nil(t, m.Current())
	assert.Empty(t, m.Token())
	assert.False(t, store.has(domain.SessionRecordKey))
	assert.False(t, store.has(domain.DemoStartedAtKey))
}

func TestSessionManager_DemoThenLogout_TimerNeverFires(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(t0)
	m := newTestManager(newStubStore(), clock)
	events := subscribe(t, m)

	_, err := m.EnterDemoMode(ctx)
	require.NoError(t, err)
	m.Logout(ctx)
	assert.Equal(t, domain.ReasonDemo, waitEvent(t, events).Reason)
	assert.Equal(t, domain.ReasonLogout, waitEvent(t, events).Reason)

	clock.Advance(domain.DefaultDemoTTL + time.Minute)
	expectNoEvent(t, events)
	assert.Nil(t, m.Current())
}

func TestSessionManager_LoginDuringDemo_CancelsExpiry(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	clock := clockwork.NewFakeClockAt(t0)
	m := newTestManager(store, clock)

	_, err := m.EnterDemoMode(ctx)
	require.NoError(t, err)
	_, err = m.Login(ctx, "a@b.com", "x")
	require.NoError(t, err)
	assert.False(t, store.has(domain.DemoStartedAtKey))

	events := subscribe(t, m)
	clock.Advance(domain.DefaultDemoTTL + time.Minute)
	expectNoEvent(t, events)
	require.NotNil(t, m.Current())
	assert.Equal(t, "1", m.Current().ID)
}

func TestSessionManager_ReenterDemo_RearmsSingleTimer(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(t0)
	m := newTestManager(newStubStore(), clock)

	_, err := m.EnterDemoMode(ctx)
	require.NoError(t, err)
	clock.Advance(20 * time.Minute)
	_, err = m.EnterDemoMode(ctx)
	require.NoError(t, err)

	events := subscribe(t, m)
	clock.Advance(15 * time.Minute)
	expectNoEvent(t, events)
	require.NotNil(t, m.Current())

	clock.Advance(15 * time.Minute)
	assert.Equal(t, domain.ReasonExpired, waitEvent(t, events).Reason)
	expectNoEvent(t, events)
}

// ---------------------------------------------------------------------------
// Logout
// ---------------------------------------------------------------------------

func TestSessionManager_Logout_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newStubStore(), clockwork.NewFakeClockAt(t0))
	events := subscribe(t, m)

	m.Logout(ctx)
	assert.Nil(t, m.Current())
	m.Logout(ctx)
	assert.Nil(t, m.Current())
	expectNoEvent(t, events)
}

func TestSessionManager_Unsubscribe(t *testing.T) {
	m := newTestManager(newStubStore(), clockwork.NewFakeClockAt(t0))
	calls := 0
	unsubscribe := m.Subscribe(func(domain.SessionEvent) { calls++ })
	unsubscribe()
	unsubscribe()

	_, err := m.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	assert.Zero(t, calls)
}

// ---------------------------------------------------------------------------
// Init
// ---------------------------------------------------------------------------

func TestSessionManager_Init_Empty(t *testing.T) {
	m := newTestManager(newStubStore(), clockwork.NewFakeClockAt(t0))
	m.Init(context.Background())
	assert.Nil(t, m.Current())
}

func TestSessionManager_Init_DemoResumesRemainingTime(t *testing.T) {
	store := newStubStore()
	seeded := seedDemo(t, store, t0)

	clock := clockwork.NewFakeClockAt(t0.Add(29 * time.Minute))
	m := newTestManager(store, clock)
	events := subscribe(t, m)
	m.Init(context.Background())

	ev := waitEvent(t, events)
	assert.Equal(t, domain.ReasonRestored, ev.Reason)
	require.NotNil(t, ev.DemoExpiresAt)
	assert.WithinDuration(t, t0.Add(30*time.Minute), *ev.DemoExpiresAt, 0)
	assert.Equal(t, seeded, m.Current())
	expiresAt, ok := m.DemoExpiresAt()
	require.True(t, ok)
	assert.WithinDuration(t, t0.Add(30*time.Minute), expiresAt, 0)

	clock.Advance(59 * time.Second)
	expectNoEvent(t, events)
	require.NotNil(t, m.Current())

	clock.Advance(time.Second)
	assert.Equal(t, domain.ReasonExpired, waitEvent(t, events).Reason)
	assert.Nil(t, m.Current())
}

func TestSessionManager_Init_DemoPastWindowDiscarded(t *testing.T) {
	store := newStubStore()
	seedDemo(t, store, t0)

	m := newTestManager(store, clockwork.NewFakeClockAt(t0.Add(31*time.Minute)))
	events := subscribe(t, m)
	m.Init(context.Background())

	assert.Nil(t, m.Current())
	assert.False(t, store.has(domain.SessionRecordKey))
	assert.False(t, store.has(domain.DemoStartedAtKey))
	expectNoEvent(t, events)
}

func TestSessionManager_Init_DemoExactlyAtWindowDiscarded(t *testing.T) {
	store := newStubStore()
	seedDemo(t, store, t0)

	m := newTestManager(store, clockwork.NewFakeClockAt(t0.Add(domain.DefaultDemoTTL)))
	m.Init(context.Background())
	assert.Nil(t, m.Current())
}

func TestSessionManager_Init_CorruptRecords(t *testing.T) {
	demoStart := strconv.FormatInt(t0.UnixMilli(), 10)
	cases := []struct {
		name   string
		record string
		start  string
	}{
		{name: "invalid json", record: "{not json"},
		{name: "missing id", record: `{"user":{"role":"observer"},"token":"abc"}`},
		{name: "unknown role", record: `{"user":{"id":"1","role":"queen"},"token":"abc"}`},
		{name: "demo flag without demo role", record: `{"user":{"id":"1","role":"observer","is_demo":true},"token":"abc"}`, start: demoStart},
		{name: "account without token", record: `{"user":{"id":"1","role":"admin"}}`},
		{name: "account with demo start", record: `{"user":{"id":"1","role":"admin"},"token":"abc"}`, start: demoStart},
		{name: "demo without start", record: `{"user":{"id":"d","role":"demo","is_demo":true},"token":"t"}`},
		{name: "demo with garbage start", record: `{"user":{"id":"d","role":"demo","is_demo":true},"token":"t"}`, start: "yesterday"},
		{name: "demo start in the future", record: `{"user":{"id":"d","role":"demo","is_demo":true},"token":"t"}`,
			start: strconv.FormatInt(t0.Add(time.Hour).UnixMilli(), 10)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStubStore()
			store.data[domain.SessionRecordKey] = tc.record
			if tc.start != "" {
				store.data[domain.DemoStartedAtKey] = tc.start
			}

			m := newTestManager(store, clockwork.NewFakeClockAt(t0))
			require.NotPanics(t, func() { m.Init(context.Background()) })
			assert.Nil(t, m.Current())
			assert.False(t, store.has(domain.SessionRecordKey))
			assert.False(t, store.has(domain.DemoStartedAtKey))
		})
	}
}

func TestSessionManager_Init_StoreUnreadableKeepsRecord(t *testing.T) {
	store := newStubStore()
	store.data[domain.SessionRecordKey] = `{"user":{"id":"1","role":"admin"},"token":"abc"}`
	store.getErr = errors.New("connection reset")

	m := newTestManager(store, clockwork.NewFakeClockAt(t0))
	m.Init(context.Background())

	assert.Nil(t, m.Current())
	store.getErr = nil
	assert.True(t, store.has(domain.SessionRecordKey))
}

func TestSessionManager_Logout_CancelledContextStillErases(t *testing.T) {
	store := ctxStore{newStubStore()}
	clock := clockwork.NewFakeClockAt(t0)
	m := NewSessionManager(observerBackend(), NewLocalDemoIssuer("secret", 0, clock), store, zerolog.Nop(),
		SessionManagerOptions{Clock: clock})

	_, err := m.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	require.True(t, store.has(domain.SessionRecordKey))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.Logout(ctx)
	assert.Nil(t, m.Current())
	assert.False(t, store.has(domain.SessionRecordKey))

	reloaded := NewSessionManager(observerBackend(), NewLocalDemoIssuer("secret", 0, clock), store, zerolog.Nop(),
		SessionManagerOptions{Clock: clock})
	reloaded.Init(context.Background())
	assert.Nil(t, reloaded.Current(), "logged-out identity must not come back")
}

func TestSessionManager_Login_CancelledContextStillPersists(t *testing.T) {
	store := ctxStore{newStubStore()}
	clock := clockwork.NewFakeClockAt(t0)
	m := NewSessionManager(observerBackend(), NewLocalDemoIssuer("secret", 0, clock), store, zerolog.Nop(),
		SessionManagerOptions{Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Login(ctx, "a@b.com", "x")
	require.NoError(t, err)

	reloaded := NewSessionManager(observerBackend(), NewLocalDemoIssuer("secret", 0, clock), store, zerolog.Nop(),
		SessionManagerOptions{Clock: clock})
	reloaded.Init(context.Background())
	require.NotNil(t, reloaded.Current())
	assert.Equal(t, "1", reloaded.Current().ID)
}

func TestSessionManager_DemoIssuerPlainErrorIsUnavailable(t *testing.T) {
	m := NewSessionManager(observerBackend(), failingIssuer{}, newStubStore(), zerolog.Nop(), SessionManagerOptions{})

	_, err := m.EnterDemoMode(context.Background())
	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domain.AuthUnavailable, authErr.Kind)
	assert.Nil(t, m.Current())
}

type failingIssuer struct{}

func (failingIssuer) DemoLogin(context.Context) (*domain.AuthResult, error) {
	return nil, errors.New("connection reset by peer")
}
