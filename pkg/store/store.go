// Package store persists session state. The production arrangement is a
// Redis primary with a durable-file secondary behind the Tiered wrapper; the
// orchestrator only ever sees the Store interface and never learns which
// backend served a request.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/kulturekool/tutor-gateway/pkg/core/types"
)

// ErrNotFound is returned by Load when the session is absent or expired.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long a session survives after its last Save, independent
// of activity. Expiry is owned by the store, not the orchestrator.
const DefaultTTL = 24 * time.Hour

// Store is the session persistence contract.
type Store interface {
	// Save persists the session and refreshes its TTL.
	Save(ctx context.Context, sess *types.Session) error

	// Load retrieves a session, or ErrNotFound.
	Load(ctx context.Context, id string) (*types.Session, error)

	// Ping reports backend health.
	Ping(ctx context.Context) error
}
