// Package config provides configuration loading and normalization for the
// schema source registry.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/kubeschema/kubeschema/internal/logger"
	"github.com/kubeschema/kubeschema/internal/template"
)

const (
	// EnvConfigPath is the environment variable naming an alternate
	// configuration file, consulted when no explicit path is given.
	EnvConfigPath = "KUBESCHEMA_CONFIG"

	// defaultConfigRelPath is the config file location relative to the XDG
	// config directory.
	defaultConfigRelPath = "kubeschema/config.yaml"

	// defaultSourceName is assigned to configured sources without a name.
	defaultSourceName = "unnamed"
)

// suffixKind enumerates the built-in kind-suffix conventions.
type suffixKind int

const (
	suffixK8s suffixKind = iota
	suffixNone
	suffixFlux
	suffixCustom
)

// KindSuffixStyle is the tagged representation of a source's kind-suffix
// convention. The zero value is the default convention ("-<version>").
type KindSuffixStyle struct {
	kind   suffixKind
	custom string
}

// ParseKindSuffixStyle maps a configuration string onto a KindSuffixStyle.
// "none", "flux" and "k8s" select the built-in conventions; an empty string
// selects the default ("-<version>"); any other string is treated as a
// custom template rendered with the usual template variables.
func ParseKindSuffixStyle(s string) KindSuffixStyle {
	switch s {
	case "", "k8s":
		return KindSuffixStyle{kind: suffixK8s}
	case "none":
		return KindSuffixStyle{kind: suffixNone}
	case "flux":
		return KindSuffixStyle{kind: suffixFlux}
	default:
		return KindSuffixStyle{kind: suffixCustom, custom: s}
	}
}

// Compute renders the kind suffix for the given template variables.
func (s KindSuffixStyle) Compute(vars template.Vars) string {
	switch s.kind {
	case suffixNone:
		return ""
	case suffixFlux:
		if vars.GroupSegment != "" {
			return "-" + vars.GroupSegment + "-" + vars.ResourceAPIVersion
		}
		return "-" + vars.ResourceAPIVersion
	case suffixCustom:
		return template.Render(s.custom, vars)
	default:
		return "-" + vars.ResourceAPIVersion
	}
}

// String returns the configuration string form of the style.
func (s KindSuffixStyle) String() string {
	switch s.kind {
	case suffixNone:
		return "none"
	case suffixFlux:
		return "flux"
	case suffixCustom:
		return s.custom
	default:
		return "k8s"
	}
}

// CatalogRef identifies a remote catalog repository whose file listing can
// substitute for per-URL probing.
type CatalogRef struct {
	// Repo is the "owner/name" repository slug.
	Repo string `yaml:"repo"`

	// Ref is the branch or tag the catalog is listed at.
	Ref string `yaml:"ref"`
}

// Key returns the cache key identifying this catalog.
func (c CatalogRef) Key() string {
	return c.Repo + "@" + c.Ref
}

// RawBaseURL returns the raw-content URL prefix for files in this catalog.
func (c CatalogRef) RawBaseURL() string {
	return "https://raw.githubusercontent.com/" + c.Repo + "/" + c.Ref + "/"
}

// Applicability restricts a source to a subset of (group, kind) pairs.
// Absent conditions always apply.
type Applicability struct {
	// GroupRegex must match the resource group when set.
	GroupRegex string `yaml:"group_regex,omitempty"`

	// Kinds is a case-insensitive kind allowlist when non-empty.
	Kinds []string `yaml:"kinds,omitempty"`

	groupRe      *regexp.Regexp
	matchNothing bool
	kindSet      map[string]struct{}
}

// SchemaSource is one normalized entry of the source registry. Sources are
// immutable after load; registry order is resolution priority.
type SchemaSource struct {
	// Name identifies the source in logs and results.
	Name string

	// URLTemplate is the candidate URL template. Required.
	URLTemplate string

	// KindSuffix selects the filename suffix convention.
	KindSuffix KindSuffixStyle

	// FallbackKindSuffix, when set, yields a second candidate URL tried
	// after the primary one fails. The Kubernetes core source uses this to
	// probe "<kind>-<version>.json" and then "<kind>.json".
	FallbackKindSuffix *KindSuffixStyle

	// When restricts applicability; nil means the source always applies.
	When *Applicability

	// Catalog, when set, lets the resolver consult the catalog's file
	// listing instead of probing each candidate URL.
	Catalog *CatalogRef
}

// Matches reports whether this source applies to the given group and kind.
// A group regex that failed to compile means the source never applies.
func (s *SchemaSource) Matches(group, kind string) bool {
	if s.When == nil {
		return true
	}
	if s.When.matchNothing {
		return false
	}
	if s.When.groupRe != nil && !s.When.groupRe.MatchString(group) {
		return false
	}
	if len(s.When.kindSet) > 0 {
		if _, ok := s.When.kindSet[strings.ToLower(kind)]; !ok {
			return false
		}
	}
	return true
}

// RawSource is the YAML shape of a configured source.
type RawSource struct {
	Name               string         `yaml:"name"`
	URL                string         `yaml:"url"`
	KindSuffix         string         `yaml:"kind_suffix,omitempty"`
	FallbackKindSuffix *string        `yaml:"fallback_kind_suffix,omitempty"`
	When               *Applicability `yaml:"when,omitempty"`
	Catalog            *CatalogRef    `yaml:"catalog,omitempty"`
}

// rawConfig is the YAML shape of the configuration file.
type rawConfig struct {
	Sources []RawSource `yaml:"sources"`
}

// Config is the normalized, immutable effective configuration of one load
// cycle.
type Config struct {
	Sources []SchemaSource
}

// Load resolves and loads the effective configuration. The path is chosen
// from, in order: the explicit path, the KUBESCHEMA_CONFIG environment
// variable, the XDG default location, and finally built-in defaults. A
// malformed or unreadable file degrades to the built-in defaults with a
// logged warning; a source entry without a URL template is a hard error.
func Load(explicitPath string) (*Config, error) {
	path := resolvePath(explicitPath)
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- operator-chosen config path
	if err != nil {
		logger.Warnf("Failed to read config file %s, using built-in defaults: %v", path, err)
		return Default(), nil
	}

	cfg, err := Parse(data)
	if err != nil {
		if isHardError(err) {
			return nil, err
		}
		logger.Warnf("Failed to parse config file %s, using built-in defaults: %v", path, err)
		return Default(), nil
	}

	logger.Infof("Loaded %d schema sources from %s", len(cfg.Sources), path)
	return cfg, nil
}

// resolvePath picks the configuration file path, returning "" when no file
// is configured anywhere.
func resolvePath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath
	}
	if path, err := xdg.SearchConfigFile(defaultConfigRelPath); err == nil {
		return path
	}
	return ""
}

// hardError marks configuration mistakes that must not degrade to defaults.
type hardError struct{ err error }

func (e *hardError) Error() string { return e.err.Error() }
func (e *hardError) Unwrap() error { return e.err }

func isHardError(err error) bool {
	var he *hardError
	return errors.As(err, &he)
}

// Parse parses and normalizes a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return Normalize(raw.Sources)
}

// Normalize converts raw source entries into the immutable registry form.
// Callers supplying configuration as a structured object enter here. An
// empty sources list yields the built-in defaults.
func Normalize(raw []RawSource) (*Config, error) {
	if len(raw) == 0 {
		return Default(), nil
	}

	sources := make([]SchemaSource, 0, len(raw))
	for i, rs := range raw {
		src, err := normalizeSource(rs, i)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return &Config{Sources: sources}, nil
}

func normalizeSource(rs RawSource, index int) (SchemaSource, error) {
	name := rs.Name
	if name == "" {
		name = defaultSourceName
	}

	// A source without a URL template can never resolve. That is a
	// configuration mistake worth surfacing immediately.
	if rs.URL == "" {
		return SchemaSource{}, &hardError{
			err: fmt.Errorf("source[%d] (%s): url template is required", index, name),
		}
	}

	src := SchemaSource{
		Name:        name,
		URLTemplate: rs.URL,
		KindSuffix:  ParseKindSuffixStyle(rs.KindSuffix),
		Catalog:     rs.Catalog,
	}
	if rs.FallbackKindSuffix != nil {
		style := ParseKindSuffixStyle(*rs.FallbackKindSuffix)
		src.FallbackKindSuffix = &style
	}
	if rs.When != nil {
		src.When = normalizeApplicability(rs.When, name)
	}
	return src, nil
}

func normalizeApplicability(when *Applicability, sourceName string) *Applicability {
	norm := &Applicability{
		GroupRegex: when.GroupRegex,
		Kinds:      when.Kinds,
	}
	if when.GroupRegex != "" {
		re, err := regexp.Compile(when.GroupRegex)
		if err != nil {
			// An unusable predicate means "does not apply", never a panic
			// during resolution.
			logger.Warnf("Source %s: invalid group_regex %q, source will never match: %v",
				sourceName, when.GroupRegex, err)
			norm.matchNothing = true
		} else {
			norm.groupRe = re
		}
	}
	if len(when.Kinds) > 0 {
		norm.kindSet = make(map[string]struct{}, len(when.Kinds))
		for _, k := range when.Kinds {
			norm.kindSet[strings.ToLower(k)] = struct{}{}
		}
	}
	return norm
}

// Default returns the built-in source registry: Flux schemas, the community
// CRD catalog, OpenShift schemas, and core Kubernetes schemas, in that
// priority order.
func Default() *Config {
	cfg, err := Normalize([]RawSource{
		{
			Name:       "flux",
			URL:        "https://raw.githubusercontent.com/fluxcd-community/flux2-schemas/main/master-standalone-strict/{{.ResourceKind}}{{.KindSuffix}}.json",
			KindSuffix: "flux",
			When:       &Applicability{GroupRegex: `fluxcd\.io$`},
		},
		{
			Name:       "crds-catalog",
			URL:        "https://raw.githubusercontent.com/datreeio/CRDs-catalog/main/{{.Group}}/{{.ResourceKind}}{{.KindSuffix}}.json",
			KindSuffix: "_{{.ResourceAPIVersion}}",
			When:       &Applicability{GroupRegex: `.+`},
			Catalog:    &CatalogRef{Repo: "datreeio/CRDs-catalog", Ref: "main"},
		},
		{
			Name:       "openshift",
			URL:        "https://raw.githubusercontent.com/garethr/openshift-json-schema/master/master-standalone/{{.ResourceKind}}{{.KindSuffix}}.json",
			KindSuffix: "none",
			When:       &Applicability{GroupRegex: `openshift\.io`},
		},
		{
			Name:               "kubernetes",
			URL:                "https://raw.githubusercontent.com/yannh/kubernetes-json-schema/master/master-standalone-strict/{{.ResourceKind}}{{.KindSuffix}}.json",
			KindSuffix:         "k8s",
			FallbackKindSuffix: strPtr("none"),
			When:               &Applicability{GroupRegex: `^(|apps|batch|extensions|policy|autoscaling)$|\.k8s\.io$`},
		},
	})
	if err != nil {
		// The built-in registry is static and always normalizes.
		panic(fmt.Sprintf("built-in default sources are invalid: %v", err))
	}
	return cfg
}

func strPtr(s string) *string { return &s }
