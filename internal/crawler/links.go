package crawler

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvmarrod/wiki-weaver/internal/wiki"
)

// linkSelector matches anchors pointing into the article space
const linkSelector = `a[href^="/wiki/"]`

// ParsePage extracts the article links of an HTML document
func ParsePage(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	var hrefs []string
	doc.Find(linkSelector).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})

	return FilterLinks(hrefs), nil
}

// FilterLinks keeps main-namespace article links, drops fragments and
// removes duplicates while preserving first-seen order
func FilterLinks(hrefs []string) []string {
	seen := make(map[string]bool)
	filtered := make([]string, 0, len(hrefs))

	for _, href := range hrefs {
		href = strings.TrimSpace(href)

		// /wiki/Page#Section is the same node as /wiki/Page
		if i := strings.IndexByte(href, '#'); i >= 0 {
			href = href[:i]
		}

		if !wiki.IsArticleLink(href) || href == "/wiki/" {
			continue
		}

		if seen[href] {
			continue
		}

		seen[href] = true
		filtered = append(filtered, href)
	}

	return filtered
}
