// backend/scraper/extract_test.go
package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	idA = "1a2b3c4d-5e6f-4a1b-8c2d-3e4f5a6b7c8d"
	idB = "9f8e7d6c-5b4a-4f3e-9d2c-1b0a9f8e7d6c"
	idC = "0123abcd-4567-4def-8901-23456789abcd"
)

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier(idA))
	assert.False(t, ValidIdentifier("00000000-0000-0000-0000-000000000000"))
	assert.False(t, ValidIdentifier("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"))
	assert.False(t, ValidIdentifier("not-an-identifier"))
	assert.False(t, ValidIdentifier(""))
}

func TestExtractIdentifiersFromHTML_ViewURL(t *testing.T) {
	html := `<html><body><a href="/dataset/view/` + idA + `">Population by Province</a></body></html>`
	found := ExtractIdentifiersFromHTML(html)
	require.Len(t, found, 1)
	assert.Equal(t, "Population by Province", found[idA])
}

func TestExtractIdentifiersFromHTML_DataAttribute(t *testing.T) {
	html := `<div class="card" data-dataset-id="` + idB + `"><span>Road Traffic</span></div>`
	found := ExtractIdentifiersFromHTML(html)
	require.Contains(t, found, idB)
}

func TestExtractIdentifiersFromHTML_Href(t *testing.T) {
	html := `<a href="/some/other/path?ref=` + idC + `&x=1">download</a>`
	found := ExtractIdentifiersFromHTML(html)
	require.Contains(t, found, idC)
}

func TestExtractIdentifiersFromHTML_BareToken(t *testing.T) {
	html := `<script>var ids = ["` + idA + `"];</script>`
	found := ExtractIdentifiersFromHTML(html)
	require.Contains(t, found, idA)
}

func TestExtractIdentifiersFromHTML_RejectsPlaceholders(t *testing.T) {
	html := `<a href="/dataset/view/00000000-0000-0000-0000-000000000000">x</a>`
	found := ExtractIdentifiersFromHTML(html)
	assert.Empty(t, found)
}

func TestExtractIdentifiersFromHTML_Dedup(t *testing.T) {
	// Same identifier reachable through three pattern classes collapses
	// to one entry, keeping the first non-empty title.
	html := `<a href="/dataset/view/` + idA + `">Air Quality</a>` +
		`<div data-id="` + idA + `"></div>` +
		`<p>` + idA + `</p>`
	found := ExtractIdentifiersFromHTML(html)
	require.Len(t, found, 1)
	assert.Equal(t, "Air Quality", found[idA])
}

func TestExtractIdentifiersFromJSON_WrapperKeys(t *testing.T) {
	for _, wrapper := range []string{"data", "results", "items", "content"} {
		payload := `{"` + wrapper + `": [{"id": "` + idA + `", "title": "Schools"}]}`
		found := ExtractIdentifiersFromJSON([]byte(payload))
		require.Contains(t, found, idA, "wrapper %q", wrapper)
		assert.Equal(t, "Schools", found[idA])
	}
}

func TestExtractIdentifiersFromJSON_NestedResult(t *testing.T) {
	payload := `{"result": {"results": [{"uuid": "` + idB + `", "name": "Hospitals"}]}}`
	found := ExtractIdentifiersFromJSON([]byte(payload))
	require.Contains(t, found, idB)
	assert.Equal(t, "Hospitals", found[idB])
}

func TestExtractIdentifiersFromJSON_FlatIdentifierArray(t *testing.T) {
	payload := `{"result": ["` + idA + `", "` + idB + `"]}`
	found := ExtractIdentifiersFromJSON([]byte(payload))
	assert.Len(t, found, 2)
}

func TestExtractIdentifiersFromJSON_Malformed(t *testing.T) {
	assert.Empty(t, ExtractIdentifiersFromJSON([]byte("not json at all")))
	assert.Empty(t, ExtractIdentifiersFromJSON([]byte(`{"data": "plain string"}`)))
}
