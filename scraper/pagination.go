package scraper

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

const indexFilename = "index.html"

// PageURL returns the URL of page n of a category. Page 1 is the start URL
// itself; later pages replace the trailing index.html with page-n.html.
func PageURL(startURL string, n int) (string, error) {
	u, err := url.Parse(startURL)
	if err != nil {
		return "", fmt.Errorf("parse category url %q: %w", startURL, err)
	}
	if path.Base(u.Path) != indexFilename || !strings.HasSuffix(u.Path, "/"+indexFilename) {
		return "", fmt.Errorf("%w: %s", ErrUnpaginatableURL, startURL)
	}
	if n <= 1 {
		return startURL, nil
	}

	next := *u
	next.Path = strings.TrimSuffix(u.Path, indexFilename) + fmt.Sprintf("page-%d.html", n)
	next.RawPath = ""
	return next.String(), nil
}
