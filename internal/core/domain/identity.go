package domain

import "time"

// Role controls which dashboard features an identity can see. Authorization
// itself is enforced by the backend.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleObserver Role = "observer"
	RoleDemo     Role = "demo"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleObserver, RoleDemo:
		return true
	}
	return false
}

// Identity is the principal the dashboard is currently acting for.
type Identity struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role"`
	IsDemo bool   `json:"is_demo"`
}

// Clone returns a copy that callers may keep without aliasing manager state.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// AuthResult is what the backend answers to login, register and demo-login.
type AuthResult struct {
	User  Identity `json:"user"`
	Token string   `json:"token"`
}

// Account is a persistent user held by the backend.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity projects the account onto the client-facing identity.
func (a *Account) Identity() Identity {
	return Identity{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role}
}
