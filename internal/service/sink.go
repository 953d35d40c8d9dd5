package service

import (
	"context"

	"github.com/kubeschema/kubeschema/internal/identity"
	"github.com/kubeschema/kubeschema/internal/logger"
)

// Sink receives resolved schemas. Host-specific sinks (an editor's YAML
// language server, a CI annotator) implement this outside the core; the
// service calls Attach once per successfully resolved document.
type Sink interface {
	Attach(ctx context.Context, schemaURL, description string, id identity.ResourceIdentity) error
}

// LogSink records attachments in the log. It is the default sink for the
// CLI and server, where no host editor is present.
type LogSink struct{}

// Attach logs the resolved schema.
func (LogSink) Attach(_ context.Context, schemaURL, description string, id identity.ResourceIdentity) error {
	logger.Infof("Attached schema for %s %s: %s (%s)", id.APIVersion(), id.Kind, schemaURL, description)
	return nil
}

// NopSink discards attachments.
type NopSink struct{}

// Attach does nothing.
func (NopSink) Attach(context.Context, string, string, identity.ResourceIdentity) error {
	return nil
}
