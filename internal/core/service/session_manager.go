package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/beesense/hive-dashboard/internal/core/domain"
	"github.com/beesense/hive-dashboard/internal/core/ports"
)

var errCorruptRecord = errors.New("corrupt session record")

// storeWriteTimeout bounds every persist and erase of the session record.
const storeWriteTimeout = 5 * time.Second

// SessionManagerOptions tunes a SessionManager. Zero values pick defaults.
type SessionManagerOptions struct {
	DemoTTL time.Duration
	Clock   clockwork.Clock
}

// SessionManager holds the current identity, persists it through a
// SessionStore and logs demo identities out when their time is up.
//
// All state transitions happen under mu. Subscribers are called after the
// transition, in the order transitions happened, and must not call back into
// Login, Register, EnterDemoMode or Logout.
type SessionManager struct {
	auth  ports.AuthBackend
	demo  ports.DemoIssuer
	store ports.SessionStore
	clock clockwork.Clock
	ttl   time.Duration
	log   zerolog.Logger

	mu            sync.Mutex
	identity      *domain.Identity
	token         string
	demoStartedAt time.Time
	timer         clockwork.Timer
	timerGen      uint64

	pubMu sync.Mutex

	subMu  sync.Mutex
	subs   map[uint64]func(domain.SessionEvent)
	nextID uint64
}

var _ ports.SessionManager = (*SessionManager)(nil)

// NewSessionManager returns a manager with no identity. Call Init once to
// restore a persisted session.
func NewSessionManager(
	auth ports.AuthBackend,
	demo ports.DemoIssuer,
	store ports.SessionStore,
	log zerolog.Logger,
	opts SessionManagerOptions,
) *SessionManager {
	if opts.DemoTTL <= 0 {
		opts.DemoTTL = domain.DefaultDemoTTL
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &SessionManager{
		auth:  auth,
		demo:  demo,
		store: store,
		clock: opts.Clock,
		ttl:   opts.DemoTTL,
		log:   log,
		subs:  make(map[uint64]func(domain.SessionEvent)),
	}
}

// Init restores the persisted session. A record that cannot be trusted is
// erased, and a demo record past its window is treated as logged out.
func (m *SessionManager) Init(ctx context.Context) {
	raw, err := m.store.Get(ctx, domain.SessionRecordKey)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("session store unreadable, starting without identity")
		return
	}

	rec, startedAt, err := m.loadRecord(ctx, raw)
	if err != nil {
		if errors.Is(err, errCorruptRecord) {
			m.log.Warn().Err(err).Msg("discarding session record")
			m.Logout(ctx)
			return
		}
		m.log.Warn().Err(err).Msg("session store unreadable, starting without identity")
		return
	}

	if rec.User.IsDemo {
		if elapsed := m.clock.Since(startedAt); elapsed >= m.ttl {
			m.log.Info().Str("user_id", rec.User.ID).Dur("elapsed", elapsed).Msg("demo session expired while closed")
			m.Logout(ctx)
			return
		}
	}

	m.mu.Lock()
	m.identity = rec.User.Clone()
	m.token = rec.Token
	if rec.User.IsDemo {
		m.demoStartedAt = startedAt
		m.armLocked(m.ttl - m.clock.Since(startedAt))
	}
	m.log.Info().Str("user_id", rec.User.ID).Str("role", string(rec.User.Role)).Msg("session restored")
	m.unlockAndPublish(m.eventLocked(domain.ReasonRestored))
}

// Login verifies the credentials with the backend and makes the returned
// account the current identity.
func (m *SessionManager) Login(ctx context.Context, email, password string) (*domain.Identity, error) {
	res, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return nil, asAuthError("login", err)
	}
	return m.adoptAccount(ctx, "login", res, domain.ReasonLogin)
}

// Register creates an account and makes it the current identity.
func (m *SessionManager) Register(ctx context.Context, name, email, password string) (*domain.Identity, error) {
	res, err := m.auth.Register(ctx, name, email, password)
	if err != nil {
		return nil, asAuthError("register", err)
	}
	return m.adoptAccount(ctx, "register", res, domain.ReasonRegister)
}

func (m *SessionManager) adoptAccount(ctx context.Context, op string, res *domain.AuthResult, reason domain.SessionEventReason) (*domain.Identity, error) {
	if err := checkIdentity(res.User); err != nil || res.User.IsDemo || res.Token == "" {
		if err == nil {
			err = errors.New("account response without token or flagged as demo")
		}
		return nil, domain.NewAuthError(op, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err))
	}

	m.mu.Lock()
	m.stopTimerLocked()
	m.identity = res.User.Clone()
	m.token = res.Token
	m.demoStartedAt = time.Time{}
	m.persistLocked(ctx)
	out := m.identity.Clone()
	m.log.Info().Str("user_id", out.ID).Str("role", string(out.Role)).Msg(op + " succeeded")
	m.unlockAndPublish(m.eventLocked(reason))
	return out, nil
}

// EnterDemoMode starts a demo identity valid for the configured window.
func (m *SessionManager) EnterDemoMode(ctx context.Context) (*domain.Identity, error) {
	res, err := m.demo.DemoLogin(ctx)
	if err != nil {
		return nil, asAuthError("demo", err)
	}
	user := res.User
	user.IsDemo = true
	user.Role = domain.RoleDemo
	if user.ID == "" {
		return nil, domain.NewAuthError("demo", fmt.Errorf("%w: demo identity without id", domain.ErrBackendUnavailable))
	}

	m.mu.Lock()
	m.identity = &user
	m.token = res.Token
	m.demoStartedAt = m.clock.Now()
	m.persistLocked(ctx)
	m.armLocked(m.ttl)
	out := m.identity.Clone()
	m.log.Info().Str("user_id", out.ID).Dur("ttl", m.ttl).Msg("demo session started")
	m.unlockAndPublish(m.eventLocked(domain.ReasonDemo))
	return out, nil
}

// Logout ends the current session and erases the persisted record. Calling
// it without a session only clears storage.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	active := m.identity != nil
	m.clearLocked(ctx)
	if !active {
		m.mu.Unlock()
		return
	}
	m.log.Info().Msg("logged out")
	m.unlockAndPublish(m.eventLocked(domain.ReasonLogout))
}

// Current returns a copy of the current identity, or nil.
func (m *SessionManager) Current() *domain.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity.Clone()
}

// Token returns the bearer credential of the current session.
func (m *SessionManager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *SessionManager) DemoExpiresAt() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil || !m.identity.IsDemo {
		return time.Time{}, false
	}
	return m.demoStartedAt.Add(m.ttl), true
}

// Subscribe registers fn for every identity change. fn runs on the goroutine
// that made the change and must not call back into the manager.
func (m *SessionManager) Subscribe(fn func(domain.SessionEvent)) func() {
	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

// expire runs on the timer goroutine. gen guards against a callback that was
// already in flight when its timer got replaced or stopped.
func (m *SessionManager) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.timerGen || m.identity == nil {
		m.mu.Unlock()
		return
	}
	userID := m.identity.ID
	m.timer = nil
	m.clearLocked(context.Background())
	m.log.Info().Str("user_id", userID).Msg("demo session expired")
	m.unlockAndPublish(m.eventLocked(domain.ReasonExpired))
}

func (m *SessionManager) armLocked(d time.Duration) {
	m.stopTimerLocked()
	gen := m.timerGen
	m.timer = m.clock.AfterFunc(d, func() { m.expire(gen) })
}

func (m *SessionManager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerGen++
}

// storeContext detaches store writes from the caller's cancellation.
func storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), storeWriteTimeout)
}

func (m *SessionManager) clearLocked(ctx context.Context) {
	m.stopTimerLocked()
	m.identity = nil
	m.token = ""
	m.demoStartedAt = time.Time{}

	ctx, cancel := storeContext(ctx)
	defer cancel()
	if err := m.store.Delete(ctx, domain.DemoStartedAtKey, domain.SessionRecordKey); err != nil {
		m.log.Warn().Err(err).Msg("failed to erase session record")
	}
}

// persistLocked writes the record for the current identity. The demo start
// key is written before, or removed before, the record itself so that a
// half-written pair never passes loadRecord.
func (m *SessionManager) persistLocked(ctx context.Context) {
	blob, err := json.Marshal(domain.SessionRecord{User: *m.identity, Token: m.token})
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to encode session record")
		return
	}

	ctx, cancel := storeContext(ctx)
	defer cancel()

	if m.identity.IsDemo {
		err = m.store.Set(ctx, domain.DemoStartedAtKey, strconv.FormatInt(m.demoStartedAt.UnixMilli(), 10))
	} else {
		err = m.store.Delete(ctx, domain.DemoStartedAtKey)
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to persist demo start")
	}
	if err := m.store.Set(ctx, domain.SessionRecordKey, string(blob)); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist session record")
	}
}

func (m *SessionManager) loadRecord(ctx context.Context, raw string) (*domain.SessionRecord, time.Time, error) {
	var rec domain.SessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", errCorruptRecord, err)
	}
	if err := checkIdentity(rec.User); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", errCorruptRecord, err)
	}

	started, err := m.store.Get(ctx, domain.DemoStartedAtKey)
	if err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		return nil, time.Time{}, fmt.Errorf("read demo start: %w", err)
	}
	found := err == nil

	if !rec.User.IsDemo {
		if rec.Token == "" {
			return nil, time.Time{}, fmt.Errorf("%w: account without token", errCorruptRecord)
		}
		if found {
			return nil, time.Time{}, fmt.Errorf("%w: account with demo start", errCorruptRecord)
		}
		return &rec, time.Time{}, nil
	}

	if !found {
		return nil, time.Time{}, fmt.Errorf("%w: demo without start", errCorruptRecord)
	}
	ms, err := strconv.ParseInt(started, 10, 64)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: demo start: %v", errCorruptRecord, err)
	}
	startedAt := time.UnixMilli(ms)
	if startedAt.After(m.clock.Now()) {
		return nil, time.Time{}, fmt.Errorf("%w: demo start in the future", errCorruptRecord)
	}
	return &rec, startedAt, nil
}

func (m *SessionManager) eventLocked(reason domain.SessionEventReason) domain.SessionEvent {
	ev := domain.SessionEvent{Identity: m.identity.Clone(), Reason: reason, At: m.clock.Now()}
	if m.identity != nil && m.identity.IsDemo {
		exp := m.demoStartedAt.Add(m.ttl)
		ev.DemoExpiresAt = &exp
	}
	return ev
}

// unlockAndPublish releases mu and delivers ev. pubMu is taken before mu is
// released so events reach subscribers in transition order.
func (m *SessionManager) unlockAndPublish(ev domain.SessionEvent) {
	m.pubMu.Lock()
	m.mu.Unlock()
	defer m.pubMu.Unlock()

	m.subMu.Lock()
	subs := make([]func(domain.SessionEvent), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func checkIdentity(id domain.Identity) error {
	switch {
	case id.ID == "":
		return errors.New("identity without id")
	case !id.Role.Valid():
		return fmt.Errorf("unknown role %q", id.Role)
	case id.IsDemo != (id.Role == domain.RoleDemo):
		return errors.New("demo flag does not match role")
	}
	return nil
}

// asAuthError only reports a rejection when the backend said so; anything
// else, including a bare transport error, means the backend is unavailable.
func asAuthError(op string, err error) error {
	var ae *domain.AuthError
	if errors.As(err, &ae) {
		return ae
	}
	if !errors.Is(err, domain.ErrInvalidCredentials) && !errors.Is(err, domain.ErrAccountExists) &&
		!errors.Is(err, domain.ErrBackendUnavailable) {
		err = fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	return domain.NewAuthError(op, err)
}
