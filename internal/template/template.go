// Package template implements the flat placeholder substitution used for
// schema source URL templates. Templates are trusted configuration, so
// rendering never fails: unknown placeholders collapse to the empty string.
// This is intentionally not a general template language; there is no
// conditional logic and no recursive expansion.
package template

import "regexp"

// Vars holds the named values available to a URL template. The set is fixed:
// it is computed per (identity, source) pair and never persisted.
type Vars struct {
	Group              string
	ResourceAPIVersion string
	ResourceKind       string
	GroupSegment       string
	KindSuffix         string
}

var placeholderRe = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

// Render substitutes every {{.Name}} placeholder in tmpl with the matching
// field of vars. Unknown names render as the empty string.
func Render(tmpl string, vars Vars) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		return vars.lookup(name)
	})
}

func (v Vars) lookup(name string) string {
	switch name {
	case "Group":
		return v.Group
	case "ResourceAPIVersion":
		return v.ResourceAPIVersion
	case "ResourceKind":
		return v.ResourceKind
	case "GroupSegment":
		return v.GroupSegment
	case "KindSuffix":
		return v.KindSuffix
	default:
		return ""
	}
}
