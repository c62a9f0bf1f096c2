// Package wiki models references to Fandom/MediaWiki wikis and talks to their APIs.
package wiki

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrWikiNotFound is returned when a wiki reference cannot be turned into a URL.
var ErrWikiNotFound = errors.New("wiki not found")

// Wiki is a reference to a single wiki by its base URL (no trailing slash).
type Wiki struct {
	URL string
}

// New creates a Wiki from its base URL.
func New(baseURL string) *Wiki {
	return &Wiki{URL: strings.TrimSuffix(baseURL, "/")}
}

// FromDotNotation builds a Fandom wiki reference from "name" or "lang.name".
//
//	"dev"       → https://dev.fandom.com
//	"ru.dev"    → https://dev.fandom.com/ru
func FromDotNotation(name string) (*Wiki, error) {
	parts := strings.Split(name, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q", ErrWikiNotFound, name)
		}
	}

	switch len(parts) {
	case 1:
		return New(fmt.Sprintf("https://%s.fandom.com", parts[0])), nil
	case 2:
		return New(fmt.Sprintf("https://%s.fandom.com/%s", parts[1], parts[0])), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrWikiNotFound, name)
	}
}

// ParseURL builds a wiki reference from an absolute http(s) URL. An article
// path ("/wiki/...") and any query are dropped, so a pasted page link works.
func ParseURL(raw string) (*Wiki, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not a wiki URL", ErrWikiNotFound, raw)
	}
	path := u.Path
	if i := strings.Index(path, "/wiki/"); i >= 0 {
		path = path[:i]
	}
	return New(u.Scheme + "://" + u.Host + path), nil
}

// URLTo returns the article URL for page. Spaces become underscores.
func (w *Wiki) URLTo(page string, params url.Values) string {
	u := w.URL + "/wiki/" + strings.ReplaceAll(page, " ", "_")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// APIURL returns the MediaWiki api.php endpoint of the wiki.
func (w *Wiki) APIURL() string {
	return w.URL + "/api.php"
}

func (w *Wiki) String() string { return w.URL }
