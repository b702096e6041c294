package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

func TestExtractHTML(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   audit.DOMSignals
	}{
		{
			name:   "empty document",
			markup: `<html><head></head><body></body></html>`,
			want:   audit.DOMSignals{},
		},
		{
			name:   "missing and present alt",
			markup: `<html><body><img src="a.png"><img src="b.png" alt="x"></body></html>`,
			want:   audit.DOMSignals{MissingAlts: 1},
		},
		{
			name:   "empty alt counts as missing",
			markup: `<html><body><img src="a.png" alt=""><img src="b.png" alt="logo"></body></html>`,
			want:   audit.DOMSignals{MissingAlts: 1},
		},
		{
			name: "head signals",
			markup: `<html><head>
				<title>  Hello
				World </title>
				<meta name="description" content="Café menu">
				<script type="application/ld+json">{"@type":"Organization"}</script>
				<script type="application/ld+json">{"@type":"WebSite"}</script>
				<script type="text/javascript">var x = 1;</script>
			</head><body><h1>One</h1><h2>Sub</h2><h1>Two</h1></body></html>`,
			want: audit.DOMSignals{
				H1Count:               2,
				SchemaCount:           2,
				TitleLength:           len("Hello World"),
				MetaDescriptionLength: 9,
				JSONLDPresent:         true,
			},
		},
		{
			name:   "title length counts utf16 units",
			markup: `<html><head><title>😀</title></head><body></body></html>`,
			want:   audit.DOMSignals{TitleLength: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractHTML(tt.markup)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewExtractor(t *testing.T) {
	e, err := NewExtractor("")
	require.NoError(t, err)
	assert.IsType(t, ScriptExtractor{}, e)

	e, err = NewExtractor("Snapshot")
	require.NoError(t, err)
	assert.IsType(t, SnapshotExtractor{}, e)

	_, err = NewExtractor("xpath")
	require.Error(t, err)
}
