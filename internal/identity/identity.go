// Package identity extracts resource identities (group, version, kind) from
// raw Kubernetes manifest text. Extraction is best-effort: documents that do
// not carry a recognizable apiVersion and kind are skipped by callers rather
// than treated as errors.
package identity

import (
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/runtime/schema"
)

// ResourceIdentity identifies a single Kubernetes resource document.
// Group is empty for core API resources (apiVersion without a slash).
type ResourceIdentity struct {
	schema.GroupVersionKind
}

// Valid reports whether the identity carries enough information to attempt
// schema resolution.
func (id ResourceIdentity) Valid() bool {
	return id.Version != "" && id.Kind != ""
}

// LowerKind returns the lowercase-normalized kind used in catalog filenames.
func (id ResourceIdentity) LowerKind() string {
	return strings.ToLower(id.Kind)
}

// APIVersion returns the original apiVersion string form.
func (id ResourceIdentity) APIVersion() string {
	return id.GroupVersion().String()
}

// ParseAPIVersion splits an apiVersion string into (group, version).
// "apps/v1" yields ("apps", "v1"); a string without a slash is a core API
// version, yielding ("", version).
func ParseAPIVersion(apiVersion string) (group, version string) {
	if idx := strings.Index(apiVersion, "/"); idx >= 0 {
		return apiVersion[:idx], apiVersion[idx+1:]
	}
	return "", apiVersion
}

// FirstGroupSegment returns the leading label of an API group, e.g.
// "source.toolkit.fluxcd.io" yields "source". Catalog filenames commonly key
// on this segment rather than the full group.
func FirstGroupSegment(group string) string {
	if idx := strings.Index(group, "."); idx >= 0 {
		return group[:idx]
	}
	return group
}

var (
	docSeparator = regexp.MustCompile(`(?m)^---\s*$`)
	apiVersionRe = regexp.MustCompile(`(?m)^apiVersion:\s*["']?([^\s"']+)["']?\s*$`)
	kindRe       = regexp.MustCompile(`(?m)^kind:\s*["']?([^\s"']+)["']?\s*$`)
)

// ExtractIdentities scans raw manifest text and returns one identity per
// contained document. Multi-document buffers are split on "---" boundaries
// and each sub-document is handled independently; sub-documents missing
// apiVersion or kind are omitted from the result.
func ExtractIdentities(text string) []ResourceIdentity {
	var ids []ResourceIdentity
	for _, doc := range docSeparator.Split(text, -1) {
		if id, ok := extractOne(doc); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// extractOne pulls the first top-level apiVersion and kind out of a single
// document's text.
func extractOne(doc string) (ResourceIdentity, bool) {
	avMatch := apiVersionRe.FindStringSubmatch(doc)
	kindMatch := kindRe.FindStringSubmatch(doc)
	if avMatch == nil || kindMatch == nil {
		return ResourceIdentity{}, false
	}

	group, version := ParseAPIVersion(avMatch[1])
	id := ResourceIdentity{
		GroupVersionKind: schema.GroupVersionKind{
			Group:   group,
			Version: version,
			Kind:    kindMatch[1],
		},
	}
	if !id.Valid() {
		return ResourceIdentity{}, false
	}
	return id, true
}
