// Package identity resolves the pseudonymous end-user identifier that ties a
// device's consent actions together for a data fiduciary.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"

	"cmsportal/internal/clientstore"
	dErrors "cmsportal/pkg/domain-errors"
	"cmsportal/pkg/platform/sentinel"
)

// Store is the slice of client storage the resolver needs.
type Store interface {
	Get(ctx context.Context, scope, key string) (string, error)
	SetIfAbsent(ctx context.Context, scope, key, value string) (string, bool, error)
	Clear(ctx context.Context, scope, key string) error
}

// Metrics is optional.
type Metrics interface {
	IncrementIdentitiesCreated()
}

// Resolver hands out one stable identifier per storage scope.
type Resolver struct {
	store   Store
	logger  *slog.Logger
	metrics Metrics
	newID   func() (uuid.UUID, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithGenerator replaces the strong random source. Tests use it to exercise
// the fallback path.
func WithGenerator(gen func() (uuid.UUID, error)) Option {
	return func(r *Resolver) { r.newID = gen }
}

func New(store Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:  store,
		logger: slog.Default(),
		newID:  uuid.NewRandom,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreateUserID returns the identifier persisted for scope, minting and
// persisting a UUID v4 on first use. An unusable scope or storage yields ""
// and an unavailable error; callers treat consent operations as not ready.
func (r *Resolver) GetOrCreateUserID(ctx context.Context, scope string) (string, error) {
	if scope == "" {
		return "", dErrors.New(dErrors.CodeUnavailable, "client storage is not available")
	}

	existing, err := r.store.Get(ctx, scope, clientstore.KeyUserID)
	switch {
	case err == nil && existing != "":
		return existing, nil
	case err != nil && !errors.Is(err, sentinel.ErrNotFound):
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "client storage is not available")
	}

	candidate := r.generate(ctx)
	stored, created, err := r.store.SetIfAbsent(ctx, scope, clientstore.KeyUserID, candidate)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "client storage is not available")
	}
	if stored == "" {
		// a blank value occupies the key, so SetIfAbsent cannot replace it
		return "", dErrors.New(dErrors.CodeUnavailable, "client storage holds an empty identity")
	}
	if created && r.metrics != nil {
		r.metrics.IncrementIdentitiesCreated()
	}
	return stored, nil
}

// Forget clears the identifier for scope, as if client storage was wiped.
func (r *Resolver) Forget(ctx context.Context, scope string) error {
	return r.store.Clear(ctx, scope, clientstore.KeyUserID)
}

func (r *Resolver) generate(ctx context.Context) string {
	id, err := r.newID()
	if err == nil {
		return id.String()
	}
	r.logger.WarnContext(ctx, "strong random source unavailable, using fallback generator",
		"error", err,
	)
	return fallbackV4()
}

// fallbackV4 builds a version-4 shaped UUID from a non-cryptographic source.
func fallbackV4() string {
	var b [16]byte
	for i := 0; i < len(b); i += 8 {
		v := rand.Uint64()
		for j := 0; j < 8; j++ {
			b[i+j] = byte(v >> (8 * j))
		}
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
