package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/kubeschema/kubeschema/internal/identity"
	"github.com/kubeschema/kubeschema/internal/resolver"
)

// fakeResolver resolves from a fixed table keyed by "group/version/kind".
type fakeResolver struct {
	results map[string]*resolver.Result
	err     error
	calls   []identity.ResourceIdentity
}

func (f *fakeResolver) Resolve(_ context.Context, id identity.ResourceIdentity) (*resolver.Result, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[id.Group+"/"+id.Version+"/"+id.Kind], nil
}

type fakeReloader struct {
	calls int
	err   error
}

func (f *fakeReloader) Reload() error {
	f.calls++
	return f.err
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate() { f.calls++ }

// recordingSink captures attachments.
type recordingSink struct {
	urls         []string
	descriptions []string
	err          error
}

func (r *recordingSink) Attach(_ context.Context, url, description string, _ identity.ResourceIdentity) error {
	if r.err != nil {
		return r.err
	}
	r.urls = append(r.urls, url)
	r.descriptions = append(r.descriptions, description)
	return nil
}

func newTestService(res *fakeResolver, sink Sink) (SchemaService, *fakeReloader, *fakeInvalidator) {
	reloader := &fakeReloader{}
	invalidator := &fakeInvalidator{}
	return NewService(res, reloader, invalidator, sink), reloader, invalidator
}

func TestResolveDocumentAttachesResolvedSchemas(t *testing.T) {
	t.Parallel()

	res := &fakeResolver{results: map[string]*resolver.Result{
		"apps/v1/Deployment": {
			URL:        "https://example.com/deployment-v1.json",
			SourceName: "kubernetes",
		},
	}}
	sink := &recordingSink{}
	svc, _, _ := newTestService(res, sink)

	resolutions, err := svc.ResolveDocument(context.Background(),
		"apiVersion: apps/v1\nkind: Deployment\nmetadata:\n  name: web\n")
	require.NoError(t, err)
	require.Len(t, resolutions, 1)
	assert.True(t, resolutions[0].Matched())
	assert.Equal(t, []string{"https://example.com/deployment-v1.json"}, sink.urls)
	require.Len(t, sink.descriptions, 1)
	assert.Contains(t, sink.descriptions[0], "kubernetes")
}

func TestResolveDocumentMultiDocument(t *testing.T) {
	t.Parallel()

	res := &fakeResolver{results: map[string]*resolver.Result{
		"apps/v1/Deployment": {URL: "https://example.com/deployment-v1.json", SourceName: "kubernetes"},
		"/v1/Service":        {URL: "https://example.com/service-v1.json", SourceName: "kubernetes"},
	}}
	sink := &recordingSink{}
	svc, _, _ := newTestService(res, sink)

	resolutions, err := svc.ResolveDocument(context.Background(),
		"apiVersion: v1\nkind: Service\n---\napiVersion: apps/v1\nkind: Deployment\n")
	require.NoError(t, err)
	require.Len(t, resolutions, 2)
	assert.Len(t, res.calls, 2)
	assert.Len(t, sink.urls, 2)
}

func TestResolveDocumentNoIdentity(t *testing.T) {
	t.Parallel()

	res := &fakeResolver{}
	svc, _, _ := newTestService(res, &recordingSink{})

	resolutions, err := svc.ResolveDocument(context.Background(), "just: text\n")
	require.NoError(t, err)
	assert.Nil(t, resolutions)
	assert.Empty(t, res.calls)
}

func TestResolveIdentityNoMatchIsNotAttached(t *testing.T) {
	t.Parallel()

	res := &fakeResolver{}
	sink := &recordingSink{}
	svc, _, _ := newTestService(res, sink)

	id := identity.ResourceIdentity{
		GroupVersionKind: schema.GroupVersionKind{Group: "example.com", Version: "v1", Kind: "Widget"},
	}
	resolution, err := svc.ResolveIdentity(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, resolution.Matched())
	assert.Empty(t, sink.urls)
}

func TestResolveIdentitySinkFailurePropagates(t *testing.T) {
	t.Parallel()

	res := &fakeResolver{results: map[string]*resolver.Result{
		"apps/v1/Deployment": {URL: "https://example.com/d.json", SourceName: "kubernetes"},
	}}
	svc, _, _ := newTestService(res, &recordingSink{err: errors.New("language server unavailable")})

	id := identity.ResourceIdentity{
		GroupVersionKind: schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"},
	}
	_, err := svc.ResolveIdentity(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to attach")
}

func TestReloadInvalidatesCacheAndReloadsConfig(t *testing.T) {
	t.Parallel()

	svc, reloader, invalidator := newTestService(&fakeResolver{}, nil)

	require.NoError(t, svc.Reload(context.Background()))
	assert.Equal(t, 1, invalidator.calls)
	assert.Equal(t, 1, reloader.calls)
}

func TestReloadPropagatesConfigError(t *testing.T) {
	t.Parallel()

	reloader := &fakeReloader{err: errors.New("bad config")}
	svc := NewService(&fakeResolver{}, reloader, &fakeInvalidator{}, nil)

	err := svc.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad config")
}

func TestCheckReadiness(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(&fakeResolver{}, nil)
	assert.NoError(t, svc.CheckReadiness(context.Background()))
}
