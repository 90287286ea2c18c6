package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kulturekool/tutor-gateway/pkg/core"
	"github.com/kulturekool/tutor-gateway/pkg/core/types"
)

// Tiered is a primary store with transparent fallback to a secondary. The
// fallback is silent to callers: a failed Save writes through to the
// secondary, and a Load miss or error on the primary falls through to the
// secondary before reporting ErrNotFound. Secondary outcomes are logged,
// never raised.
type Tiered struct {
	primary   Store
	secondary Store
	logger    *slog.Logger
}

// NewTiered builds the tiered store. secondary may be nil, in which case the
// primary's behavior passes through unchanged.
func NewTiered(primary, secondary Store, logger *slog.Logger) *Tiered {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tiered{primary: primary, secondary: secondary, logger: logger}
}

// Save persists to the primary; on failure it writes through to the
// secondary. Only a failure of both surfaces, as a store error.
func (t *Tiered) Save(ctx context.Context, sess *types.Session) error {
	primaryErr := t.primary.Save(ctx, sess)
	if primaryErr == nil {
		return nil
	}
	t.logger.Warn("primary store save failed", "session_id", sess.ID, "error", primaryErr)

	if t.secondary == nil {
		return core.NewStoreError(primaryErr)
	}
	if err := t.secondary.Save(ctx, sess); err != nil {
		t.logger.Error("secondary store save failed", "session_id", sess.ID, "error", err)
		return core.NewStoreError(errors.Join(primaryErr, err))
	}
	t.logger.Info("session saved via secondary store", "session_id", sess.ID)
	return nil
}

// Load reads from the primary, falling through to the secondary on a miss or
// error. A miss on both is ErrNotFound; Load never surfaces a store error.
func (t *Tiered) Load(ctx context.Context, id string) (*types.Session, error) {
	sess, primaryErr := t.primary.Load(ctx, id)
	if primaryErr == nil {
		return sess, nil
	}
	if !errors.Is(primaryErr, ErrNotFound) {
		t.logger.Warn("primary store load failed", "session_id", id, "error", primaryErr)
	}

	if t.secondary == nil {
		return nil, ErrNotFound
	}
	sess, err := t.secondary.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			t.logger.Error("secondary store load failed", "session_id", id, "error", err)
		}
		return nil, ErrNotFound
	}
	return sess, nil
}

// Ping checks the primary only; a degraded primary is what the health
// endpoint needs to report.
func (t *Tiered) Ping(ctx context.Context) error {
	return t.primary.Ping(ctx)
}
