// Package resolver turns a resource identity into a validation schema URL by
// trying the configured sources in priority order.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kubeschema/kubeschema/internal/config"
	"github.com/kubeschema/kubeschema/internal/httpclient"
	"github.com/kubeschema/kubeschema/internal/identity"
	"github.com/kubeschema/kubeschema/internal/logger"
	"github.com/kubeschema/kubeschema/internal/template"
)

//go:generate mockgen -destination=mocks/mock_resolver.go -package=mocks -source=resolver.go Prober,CatalogChecker

// Prober checks whether a candidate URL resolves to an existing document.
type Prober interface {
	// Probe returns nil when the target exists, an *httpclient.HTTPError
	// on a clean non-success status, and any other error on transport
	// failure.
	Probe(ctx context.Context, url string) error
}

// CatalogChecker answers membership queries against memoized catalog
// listings.
type CatalogChecker interface {
	Contains(ctx context.Context, ref config.CatalogRef, path string) (bool, error)
}

// SourceProvider supplies the current source registry. config.Manager
// satisfies this.
type SourceProvider interface {
	GetConfig() *config.Config
}

// Result is a successful resolution. A nil *Result with a nil error is the
// no-match outcome: no configured source knows the resource. That is a
// normal, expected result, distinct from transport failures, which are
// absorbed per probe.
type Result struct {
	URL        string `json:"url"`
	SourceName string `json:"source"`
}

// Resolver resolves resource identities against the source registry.
type Resolver struct {
	sources  SourceProvider
	prober   Prober
	catalogs CatalogChecker
}

// New creates a Resolver.
func New(sources SourceProvider, prober Prober, catalogs CatalogChecker) *Resolver {
	return &Resolver{
		sources:  sources,
		prober:   prober,
		catalogs: catalogs,
	}
}

// Resolve tries each applicable source in registry order and returns the
// first candidate that exists. Sources are deliberately probed sequentially:
// registry order is the priority contract, and a vendor catalog must win
// over a generic fallback even when both would match.
func (r *Resolver) Resolve(ctx context.Context, id identity.ResourceIdentity) (*Result, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("resource identity is missing version or kind")
	}

	cfg := r.sources.GetConfig()
	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		if !src.Matches(id.Group, id.Kind) {
			continue
		}

		for _, url := range r.candidates(src, id) {
			ok := r.exists(ctx, src, url)
			if ok {
				logger.Debugf("Resolved %s %s via source %s: %s", id.APIVersion(), id.Kind, src.Name, url)
				resolutionsTotal.WithLabelValues(src.Name).Inc()
				return &Result{URL: url, SourceName: src.Name}, nil
			}
		}
	}

	noMatchTotal.Inc()
	logger.Debugf("No schema source matched %s %s", id.APIVersion(), id.Kind)
	return nil, nil
}

// candidates renders the candidate URLs for a source, in probe order. Most
// sources yield one candidate; a source with a fallback kind suffix yields
// two (the Kubernetes core source probes "<kind>-<version>.json" and then
// "<kind>.json").
func (r *Resolver) candidates(src *config.SchemaSource, id identity.ResourceIdentity) []string {
	styles := []config.KindSuffixStyle{src.KindSuffix}
	if src.FallbackKindSuffix != nil {
		styles = append(styles, *src.FallbackKindSuffix)
	}

	urls := make([]string, 0, len(styles))
	for _, style := range styles {
		vars := template.Vars{
			Group:              id.Group,
			ResourceAPIVersion: id.Version,
			ResourceKind:       id.LowerKind(),
			GroupSegment:       identity.FirstGroupSegment(id.Group),
		}
		vars.KindSuffix = style.Compute(vars)
		urls = append(urls, template.Render(src.URLTemplate, vars))
	}
	return urls
}

// exists checks a candidate URL, consulting the catalog listing when the
// source is catalog-backed and the URL falls under the catalog's raw-content
// prefix. Every failure mode falls through to the next candidate; only the
// reason differs in logs and metrics.
func (r *Resolver) exists(ctx context.Context, src *config.SchemaSource, url string) bool {
	if src.Catalog != nil {
		if path, ok := strings.CutPrefix(url, src.Catalog.RawBaseURL()); ok {
			found, err := r.catalogs.Contains(ctx, *src.Catalog, path)
			if err != nil {
				probesTotal.WithLabelValues(outcomeTransportError).Inc()
				logger.Warnf("Catalog listing for source %s failed: %v", src.Name, err)
				return false
			}
			if !found {
				probesTotal.WithLabelValues(outcomeNotFound).Inc()
				return false
			}
			probesTotal.WithLabelValues(outcomeHit).Inc()
			return true
		}
	}

	err := r.prober.Probe(ctx, url)
	if err == nil {
		probesTotal.WithLabelValues(outcomeHit).Inc()
		return true
	}

	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		// Clean miss: the source simply does not have this schema.
		probesTotal.WithLabelValues(outcomeNotFound).Inc()
		logger.Debugf("Probe %s: %v", url, err)
	} else {
		// Transport failure or timeout. Same control flow, different
		// diagnostics.
		probesTotal.WithLabelValues(outcomeTransportError).Inc()
		logger.Warnf("Probe %s failed: %v", url, err)
	}
	return false
}
