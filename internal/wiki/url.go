// Package wiki maps article references to the two canonical URL forms used
// by the game: the relative form "/wiki/<Title>", which keys graph nodes, and
// the full form "<base>/wiki/<Title>", which is what gets fetched.
package wiki

import "strings"

const articlePrefix = "/wiki/"

// ToFull returns the full article URL for ref under baseURL.
// Accepted shapes are an already-full URL, "/wiki/Title", "/Title" and "Title".
func ToFull(ref, baseURL string) string {
	switch {
	case strings.HasPrefix(ref, baseURL):
		return ref
	case strings.HasPrefix(ref, articlePrefix):
		return baseURL + ref
	case strings.HasPrefix(ref, "/"):
		return baseURL + "/wiki" + ref
	default:
		return baseURL + articlePrefix + ref
	}
}

// ToRelative returns the "/wiki/Title" form of ref under baseURL.
func ToRelative(ref, baseURL string) string {
	switch {
	case strings.HasPrefix(ref, baseURL+"/wiki"):
		return ref[len(baseURL):]
	case !strings.HasPrefix(ref, "/"):
		return articlePrefix + ref
	case !strings.HasPrefix(ref, articlePrefix):
		return "/wiki" + ref
	default:
		return ref
	}
}

// IsArticleLink reports whether href points at a main-namespace article.
// Namespaced pages (Category:, File:, Help:, interwiki prefixes) all carry a colon.
func IsArticleLink(href string) bool {
	return strings.HasPrefix(href, articlePrefix) && !strings.Contains(href, ":")
}
