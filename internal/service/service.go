// Package service exposes schema resolution to consumers: it turns raw
// manifest text into per-document resolutions, hands successful resolutions
// to the configured sink, and owns the reload path.
package service

import (
	"context"
	"fmt"

	"github.com/kubeschema/kubeschema/internal/identity"
	"github.com/kubeschema/kubeschema/internal/logger"
	"github.com/kubeschema/kubeschema/internal/resolver"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go SchemaService

// IdentityResolver resolves a single resource identity. *resolver.Resolver
// satisfies this.
type IdentityResolver interface {
	Resolve(ctx context.Context, id identity.ResourceIdentity) (*resolver.Result, error)
}

// Invalidator clears memoized catalog state on reload. *catalog.Cache
// satisfies this.
type Invalidator interface {
	Invalidate()
}

// Reloader re-loads configuration. config.Manager satisfies this.
type Reloader interface {
	Reload() error
}

// Resolution is the outcome for one document in a buffer. Result is nil for
// the no-match outcome, which is normal and expected (e.g. an unknown custom
// resource) and distinct from a transport failure.
type Resolution struct {
	Identity identity.ResourceIdentity
	Result   *resolver.Result
}

// Matched reports whether a schema was resolved for the document.
func (r Resolution) Matched() bool { return r.Result != nil }

// SchemaService is the consumer-facing surface of the resolution engine.
type SchemaService interface {
	// ResolveDocument extracts every resource identity from raw manifest
	// text and resolves each independently. Documents without a
	// recognizable identity are skipped with a warning.
	ResolveDocument(ctx context.Context, text string) ([]Resolution, error)

	// ResolveIdentity resolves one already-parsed identity.
	ResolveIdentity(ctx context.Context, id identity.ResourceIdentity) (Resolution, error)

	// Reload invalidates the catalog cache and re-loads configuration.
	Reload(ctx context.Context) error

	// CheckReadiness reports whether the service can resolve requests.
	CheckReadiness(ctx context.Context) error
}

type schemaService struct {
	resolver IdentityResolver
	reloader Reloader
	catalogs Invalidator
	sink     Sink
}

// NewService creates the schema service. A nil sink disables attachment.
func NewService(res IdentityResolver, reloader Reloader, catalogs Invalidator, sink Sink) SchemaService {
	if sink == nil {
		sink = NopSink{}
	}
	return &schemaService{
		resolver: res,
		reloader: reloader,
		catalogs: catalogs,
		sink:     sink,
	}
}

func (s *schemaService) ResolveDocument(ctx context.Context, text string) ([]Resolution, error) {
	ids := identity.ExtractIdentities(text)
	if len(ids) == 0 {
		logger.Warn("No resource identity found in document, skipping")
		return nil, nil
	}

	resolutions := make([]Resolution, 0, len(ids))
	for _, id := range ids {
		res, err := s.ResolveIdentity(ctx, id)
		if err != nil {
			return nil, err
		}
		resolutions = append(resolutions, res)
	}
	return resolutions, nil
}

func (s *schemaService) ResolveIdentity(ctx context.Context, id identity.ResourceIdentity) (Resolution, error) {
	result, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to resolve %s/%s: %w", id.APIVersion(), id.Kind, err)
	}

	res := Resolution{Identity: id, Result: result}
	if result == nil {
		return res, nil
	}

	description := fmt.Sprintf("%s %s schema via %s", id.APIVersion(), id.Kind, result.SourceName)
	if err := s.sink.Attach(ctx, result.URL, description, id); err != nil {
		// Sink failures are the integration layer's problem to surface.
		return Resolution{}, fmt.Errorf("failed to attach schema %s: %w", result.URL, err)
	}
	return res, nil
}

func (s *schemaService) Reload(_ context.Context) error {
	s.catalogs.Invalidate()
	if err := s.reloader.Reload(); err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	logger.Info("Configuration reloaded and catalog cache invalidated")
	return nil
}

func (s *schemaService) CheckReadiness(_ context.Context) error {
	if s.resolver == nil {
		return fmt.Errorf("resolver not configured")
	}
	return nil
}
