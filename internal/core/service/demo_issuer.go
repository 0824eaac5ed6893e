package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/beesense/hive-dashboard/internal/core/domain"
	"github.com/beesense/hive-dashboard/internal/core/ports"
)

const demoDisplayName = "Demo Beekeeper"

// LocalDemoIssuer synthesises demo identities without contacting the
// backend. The token is signed with the secret shared with the backend so
// read-only calls made on behalf of the demo identity are accepted.
type LocalDemoIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

var _ ports.DemoIssuer = (*LocalDemoIssuer)(nil)

func NewLocalDemoIssuer(jwtSecret string, ttl time.Duration, clock clockwork.Clock) *LocalDemoIssuer {
	if ttl <= 0 {
		ttl = domain.DefaultDemoTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LocalDemoIssuer{secret: []byte(jwtSecret), ttl: ttl, clock: clock}
}

func (i *LocalDemoIssuer) DemoLogin(_ context.Context) (*domain.AuthResult, error) {
	id := newDemoIdentity()
	token, err := signToken(i.secret, id, i.clock.Now(), i.ttl)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{User: id, Token: token}, nil
}

func newDemoIdentity() domain.Identity {
	return domain.Identity{
		ID:     "demo-" + uuid.NewString(),
		Name:   demoDisplayName,
		Role:   domain.RoleDemo,
		IsDemo: true,
	}
}
