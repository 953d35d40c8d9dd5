package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		vars     Vars
		expected string
	}{
		{
			name:     "two placeholders",
			template: "{{.Group}}-{{.ResourceKind}}",
			vars:     Vars{Group: "a", ResourceKind: "b"},
			expected: "a-b",
		},
		{
			name:     "unknown placeholder renders empty",
			template: "{{.Missing}}",
			vars:     Vars{},
			expected: "",
		},
		{
			name:     "no placeholders",
			template: "https://example.com/schema.json",
			vars:     Vars{Group: "ignored"},
			expected: "https://example.com/schema.json",
		},
		{
			name:     "full candidate URL",
			template: "https://raw.example.com/{{.Group}}/{{.ResourceKind}}{{.KindSuffix}}.json",
			vars: Vars{
				Group:        "source.toolkit.fluxcd.io",
				ResourceKind: "gitrepository",
				KindSuffix:   "-source-v1",
			},
			expected: "https://raw.example.com/source.toolkit.fluxcd.io/gitrepository-source-v1.json",
		},
		{
			name:     "all variables",
			template: "{{.Group}}|{{.ResourceAPIVersion}}|{{.ResourceKind}}|{{.GroupSegment}}|{{.KindSuffix}}",
			vars: Vars{
				Group:              "apps",
				ResourceAPIVersion: "v1",
				ResourceKind:       "deployment",
				GroupSegment:       "apps",
				KindSuffix:         "-v1",
			},
			expected: "apps|v1|deployment|apps|-v1",
		},
		{
			name:     "empty template",
			template: "",
			vars:     Vars{Group: "a"},
			expected: "",
		},
		{
			name:     "malformed placeholder is left alone",
			template: "{{ .Group }}",
			vars:     Vars{Group: "a"},
			expected: "{{ .Group }}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, Render(tt.template, tt.vars))
		})
	}
}
