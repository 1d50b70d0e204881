package contentfetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean_PrefersReadableArticleBody(t *testing.T) {
	html := `<html><head><title>ignored</title></head><body>
		<nav>skip this nav</nav>
		<article><h1>Acme Buys Widgets</h1><p>Acme announced today that it acquired Widgets Inc for an undisclosed sum.
		The deal is expected to close next quarter, according to a company spokesperson who spoke on condition of anonymity.</p></article>
		<footer>skip this footer</footer>
	</body></html>`

	c := NewCleaner()
	title, md, err := c.Clean(html, "https://news.example.com/a/1")
	require.NoError(t, err)
	assert.Contains(t, md, "Acme announced today")
	assert.NotContains(t, md, "skip this nav")
	_ = title
}

func TestClean_FallsBackToFullDocumentWhenReadableDisabled(t *testing.T) {
	html := `<html><body><p>short stub content</p></body></html>`
	c := &Cleaner{PreferReadable: false}
	_, md, err := c.Clean(html, "")
	require.NoError(t, err)
	assert.Contains(t, md, "short stub content")
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, LooksLikeHTML("<html><body><p>hi</p></body></html>"))
	assert.True(t, LooksLikeHTML("  <!DOCTYPE html><html></html>"))
	assert.False(t, LooksLikeHTML("Acme partnered with Widgets in a deal announced today."))
	assert.False(t, LooksLikeHTML(""))
}
