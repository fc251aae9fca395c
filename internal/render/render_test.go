package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		contains []string
		excludes []string
	}{
		{
			name:     "heading and paragraph",
			content:  "# Article on: Go\n\nSome text",
			contains: []string{"<h1", "Article on: Go</h1>", "<p>Some text</p>"},
		},
		{
			name:     "table extension",
			content:  "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:     "linkify",
			content:  "See https://example.com for context",
			contains: []string{`<a href="https://example.com"`},
		},
		{
			name:     "scripts are stripped",
			content:  "hello <script>alert(1)</script>",
			excludes: []string{"<script", "alert(1)</script>"},
		},
		{
			name:     "javascript links are stripped",
			content:  "[click](javascript:alert(1))",
			excludes: []string{"javascript:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Markdown(tt.content)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, bad := range tt.excludes {
				assert.NotContains(t, out, bad)
			}
		})
	}
}
