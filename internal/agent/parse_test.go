package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain", `{"name":"Outbox"}`, `{"name":"Outbox"}`, true},
		{"wrapped in prose", "Here you go:\n```json\n{\"name\":\"Outbox\",\"tags\":[\"a\"]}\n```\nDone.", `{"name":"Outbox","tags":["a"]}`, true},
		{"braces in strings", `{"name":"Hub {Kampala}","note":"quote \" and }"} trailing {`, `{"name":"Hub {Kampala}","note":"quote \" and }"}`, true},
		{"nested", `x {"a":{"b":{"c":1}}} y`, `{"a":{"b":{"c":1}}}`, true},
		{"skips invalid candidate", `{not json} then {"ok":true}`, `{"ok":true}`, true},
		{"skips unclosed prefix", `{ "broken": {"ok":true}`, `{"ok":true}`, true},
		{"none", `no json here`, "", false},
		{"unbalanced", `{"a":1`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractAndSanitizeSVG(t *testing.T) {
	text := "Sure!\n<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 10 10\" onload=\"alert(1)\">" +
		"<script>alert(2)</script>" +
		"<a href=\"javascript:alert(3)\"><rect width=\"10\" height=\"10\" onclick='steal()'/></a>" +
		"<foreignObject><div>html</div></foreignObject>" +
		"<text x=\"1\" y=\"5\">Uganda tech</text></svg>\nEnjoy."

	svg, ok := ExtractSVG(text)
	assert.True(t, ok)
	assert.True(t, len(svg) > 0 && svg[:4] == "<svg")
	assert.Contains(t, svg, "</svg>")
	assert.NotContains(t, svg, "Enjoy")

	clean := SanitizeSVG(svg)
	assert.NotContains(t, clean, "onload")
	assert.NotContains(t, clean, "onclick")
	assert.NotContains(t, clean, "<script")
	assert.NotContains(t, clean, "javascript:")
	assert.NotContains(t, clean, "foreignObject")
	assert.Contains(t, clean, "Uganda tech")
	assert.Contains(t, clean, `<rect width="10" height="10"/>`)

	_, ok = ExtractSVG("<svgfoo></svgfoo>")
	assert.False(t, ok)
}

func TestSanitizeSVG_Allowlist(t *testing.T) {
	const head = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">`
	tests := []struct {
		name   string
		in     string
		banned []string
		keeps  []string
	}{
		{
			name:   "handler after slash",
			in:     head + `<g/onclick="alert(1)"><text>x</text></g></svg>`,
			banned: []string{"onclick", "alert"},
		},
		{
			name:   "unquoted javascript href",
			in:     head + `<a href=javascript:alert(1)><text>x</text></a></svg>`,
			banned: []string{"javascript"},
		},
		{
			name:   "unquoted javascript href without call",
			in:     head + `<a href=javascript:void><text>Jobs</text></a></svg>`,
			banned: []string{"javascript", "href"},
			keeps:  []string{"<a><text>Jobs</text></a>"},
		},
		{
			name: "animation retargeting links",
			in: head + `<a href="#top"><set attributeName="href" to="javascript:alert(1)"/>` +
				`<animate attributeName="xlink:href" values="javascript:alert(2)"/><text>Hubs</text></a></svg>`,
			banned: []string{"javascript", "<set", "<animate"},
			keeps:  []string{`<a href="#top">`, "Hubs"},
		},
		{
			name:   "styles and external references",
			in:     head + `<style>*{fill:url(x)}</style><use href="https://evil.example/x.svg#a"/><rect style="fill:red" width="4" height="4"/></svg>`,
			banned: []string{"<style", "evil.example", "style="},
			keeps:  []string{`<use/>`, `<rect width="4" height="4"/>`},
		},
		{
			name:  "presentation animation survives",
			in:    head + `<circle r="2"><animate attributeName="r" from="2" to="4" dur="1s"/></circle></svg>`,
			keeps: []string{`<animate attributeName="r" from="2" to="4" dur="1s"/>`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean := SanitizeSVG(tt.in)
			assert.True(t, strings.HasPrefix(clean, "<svg"), clean)
			assert.True(t, strings.HasSuffix(clean, "</svg>") || strings.HasSuffix(clean, "/>"), clean)
			for _, b := range tt.banned {
				assert.NotContains(t, clean, b)
			}
			for _, k := range tt.keeps {
				assert.Contains(t, clean, k)
			}
		})
	}
}
