package state

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"finitefield.org/wheel-of-life/internal/platform/observability"
	"finitefield.org/wheel-of-life/internal/wheel"
)

// Repository reads and writes a session's wizard state through a Store.
type Repository struct {
	store   Store
	catalog *wheel.Catalog
	metrics *observability.Metrics
	locks   keyedMutex
}

// RepositoryOption customises a Repository.
type RepositoryOption func(*Repository)

// WithMetrics counts loads that fell back to defaults.
func WithMetrics(m *observability.Metrics) RepositoryOption {
	return func(r *Repository) { r.metrics = m }
}

// NewRepository combines the codec for catalog with store.
func NewRepository(store Store, catalog *wheel.Catalog, opts ...RepositoryOption) *Repository {
	r := &Repository{store: store, catalog: catalog}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Catalog returns the catalog the repository decodes against.
func (r *Repository) Catalog() *wheel.Catalog { return r.catalog }

// Load returns the stored state for session. It never fails: a missing blob
// gives the defaults, and an unreadable blob or a store error is logged and
// also gives the defaults.
func (r *Repository) Load(ctx context.Context, session string) wheel.State {
	logger := observability.FromContext(ctx)

	data, err := r.store.Get(ctx, Key(session))
	if errors.Is(err, ErrNotFound) {
		return wheel.NewState()
	}
	if err != nil {
		logger.Warn("state: store read failed", zap.Error(err))
		r.metrics.StoreFallback(ctx, "read")
		return wheel.NewState()
	}

	s, err := Decode(data, r.catalog)
	if err != nil {
		logger.Warn("state: discarding unreadable blob", zap.Error(err), zap.Int("bytes", len(data)))
		r.metrics.StoreFallback(ctx, "corrupt")
	}
	return s
}

// Save writes s for session.
func (r *Repository) Save(ctx context.Context, session string, s wheel.State) error {
	data, err := Encode(s, r.catalog)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, Key(session), data); err != nil {
		return fmt.Errorf("state: save: %w", err)
	}
	return nil
}

// Update applies fn to session's state and saves the result. Updates, resets
// and imports for one session run one at a time, so concurrent requests never
// overwrite each other's changes. An error from fn is returned unwrapped and
// nothing is saved.
func (r *Repository) Update(ctx context.Context, session string, fn func(wheel.State) (wheel.State, error)) (wheel.State, error) {
	unlock, err := r.locks.lock(ctx, Key(session))
	if err != nil {
		return wheel.State{}, err
	}
	defer unlock()

	next, err := fn(r.Load(ctx, session))
	if err != nil {
		return wheel.State{}, err
	}
	if err := r.Save(ctx, session, next); err != nil {
		return wheel.State{}, err
	}
	return next, nil
}

// Reset removes the stored blob so the next Load returns the defaults.
func (r *Repository) Reset(ctx context.Context, session string) error {
	unlock, err := r.locks.lock(ctx, Key(session))
	if err != nil {
		return err
	}
	defer unlock()
	if err := r.store.Delete(ctx, Key(session)); err != nil {
		return fmt.Errorf("state: reset: %w", err)
	}
	return nil
}

// Export returns the canonical blob for session's current state.
func (r *Repository) Export(ctx context.Context, session string) ([]byte, error) {
	return Encode(r.Load(ctx, session), r.catalog)
}

// Import replaces session's state with a client-supplied blob. Unlike Load,
// an unreadable blob is rejected rather than silently reset.
func (r *Repository) Import(ctx context.Context, session string, data []byte) (wheel.State, error) {
	s, err := Decode(data, r.catalog)
	if err != nil {
		return wheel.State{}, err
	}
	unlock, err := r.locks.lock(ctx, Key(session))
	if err != nil {
		return wheel.State{}, err
	}
	defer unlock()
	if err := r.Save(ctx, session, s); err != nil {
		return wheel.State{}, err
	}
	return s, nil
}

// Ready reports whether the underlying store is reachable.
func (r *Repository) Ready(ctx context.Context) error {
	return r.store.Ping(ctx)
}
