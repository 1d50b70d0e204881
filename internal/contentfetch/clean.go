// Package contentfetch provides the default ContentExtractor collaborator:
// turning raw HTML (as delivered by an external feed fetcher) into clean
// Markdown suitable for chunking, using Readability-style main-content
// extraction with a full-document fallback.
package contentfetch

import (
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	readability "github.com/go-shiori/go-readability"
)

// Cleaner converts raw article HTML into Markdown, preferring the main
// article body when Readability can isolate one.
type Cleaner struct {
	// PreferReadable extracts the main article body via Readability before
	// converting to Markdown. When false, or when extraction fails, the
	// full document is converted instead.
	PreferReadable bool
}

// NewCleaner returns a Cleaner with Readability extraction enabled.
func NewCleaner() *Cleaner {
	return &Cleaner{PreferReadable: true}
}

// Clean converts rawHTML into title + Markdown body. baseURL resolves
// relative links and images during conversion; it may be empty.
func (c *Cleaner) Clean(rawHTML, baseURL string) (title, markdown string, err error) {
	articleHTML := rawHTML
	if c.PreferReadable {
		base, _ := url.Parse(baseURL)
		art, rerr := readability.FromReader(strings.NewReader(rawHTML), base)
		if rerr == nil && strings.TrimSpace(art.Content) != "" {
			articleHTML = art.Content
			title = strings.TrimSpace(art.Title)
		}
	}

	md, err := htmltomarkdown.ConvertString(articleHTML, converter.WithDomain(baseOrigin(baseURL)))
	if err != nil {
		return "", "", err
	}

	md = strings.TrimSpace(md)
	if title != "" && !strings.HasPrefix(md, "# ") {
		md = "# " + title + "\n\n" + md
	}
	return title, md, nil
}

// LooksLikeHTML is a cheap heuristic used to decide whether a feed item's
// full_content needs cleaning before chunking, or is already plain text /
// Markdown from an upstream extractor.
func LooksLikeHTML(s string) bool {
	t := strings.TrimSpace(strings.ToLower(s))
	return strings.HasPrefix(t, "<!doctype html") ||
		strings.HasPrefix(t, "<html") ||
		strings.Contains(t, "<body") ||
		strings.Contains(t, "<p>") ||
		strings.Contains(t, "<div")
}

func baseOrigin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
