package domain

import "time"

// DefaultDemoTTL is how long a demo identity stays valid after it was created.
const DefaultDemoTTL = 30 * time.Minute

// Persisted keys. The demo start key only exists while a demo identity is active.
const (
	SessionRecordKey = "hive_dashboard.session"
	DemoStartedAtKey = "hive_dashboard.demo_started_at"
)

// SessionRecord is the persisted form of the current identity.
type SessionRecord struct {
	User  Identity `json:"user"`
	Token string   `json:"token,omitempty"`
}

// SessionEventReason says why the current identity changed.
type SessionEventReason string

const (
	ReasonLogin    SessionEventReason = "login"
	ReasonRegister SessionEventReason = "register"
	ReasonDemo     SessionEventReason = "demo"
	ReasonRestored SessionEventReason = "restored"
	ReasonLogout   SessionEventReason = "logout"
	ReasonExpired  SessionEventReason = "expired"
)

// SessionEvent is delivered to subscribers after every identity change.
// Identity is nil once the session has ended; DemoExpiresAt is set only for
// demo identities.
type SessionEvent struct {
	Identity      *Identity          `json:"identity"`
	Reason        SessionEventReason `json:"reason"`
	At            time.Time          `json:"at"`
	DemoExpiresAt *time.Time         `json:"demo_expires_at,omitempty"`
}
