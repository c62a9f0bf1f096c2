package wikilinks

import (
	"sort"
	"strings"

	"github.com/whitebot/whitebot/internal/wiki"
)

// PrefixKind selects how a prefix turns the rest of a target into a URL.
type PrefixKind string

const (
	// KindTemplate substitutes the page into a fixed URL template.
	KindTemplate PrefixKind = "template"
	// KindInternal treats the rest as "wiki:page" where wiki is in dot notation.
	KindInternal PrefixKind = "internal"
)

// pagePlaceholder is replaced by the page name in Template.
const pagePlaceholder = "{page}"

// Prefix is one entry of the namespace dispatch table.
type Prefix struct {
	Name      string     `json:"name"`
	Kind      PrefixKind `json:"kind,omitempty"`      // "template" (default) or "internal"
	Template  string     `json:"template,omitempty"`  // e.g. "https://dev.fandom.com/wiki/{page}"
	Delimiter string     `json:"delimiter,omitempty"` // replaces spaces in the page (default "_")
}

func tmpl(name, template string) Prefix {
	return Prefix{Name: name, Kind: KindTemplate, Template: template}
}

// DefaultPrefixes is the built-in prefix table.
var DefaultPrefixes = []Prefix{
	// Fandom
	{Name: "w:c", Kind: KindInternal},
	tmpl("ww", "https://wikies.fandom.com/wiki/{page}"),
	tmpl("w:ru", "https://community.fandom.com/ru/wiki/{page}"),
	tmpl("w", "https://community.fandom.com/wiki/{page}"),
	tmpl("dev", "https://dev.fandom.com/wiki/{page}"),
	tmpl("soap", "https://soap.fandom.com/wiki/{page}"),

	// Wikipedia
	tmpl("wp:ru", "https://ru.wikipedia.org/wiki/{page}"),
	tmpl("wikipedia:ru", "https://ru.wikipedia.org/wiki/{page}"),
	tmpl("wp", "https://en.wikipedia.org/wiki/{page}"),
	tmpl("wikipedia", "https://en.wikipedia.org/wiki/{page}"),

	// Wiktionary
	tmpl("wiktionary:ru", "https://ru.wiktionary.org/wiki/{page}"),
	tmpl("wikt:ru", "https://ru.wiktionary.org/wiki/{page}"),
	tmpl("wiktionary", "https://en.wiktionary.org/wiki/{page}"),
	tmpl("wikt", "https://en.wiktionary.org/wiki/{page}"),

	// Meta and MediaWiki
	tmpl("m", "https://meta.wikimedia.org/wiki/{page}"),
	tmpl("meta", "https://meta.wikimedia.org/wiki/{page}"),
	tmpl("mw", "https://mediawiki.org/wiki/{page}"),

	// Other
	{Name: "g", Kind: KindTemplate, Template: "https://google.com/search?q={page}", Delimiter: "+"},
	{Name: "google", Kind: KindTemplate, Template: "https://google.com/search?q={page}", Delimiter: "+"},
}

// Resolver maps link targets to URLs through a prefix table.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	prefixes []Prefix // longest name first
}

// NewResolver creates a Resolver. A nil or empty table uses DefaultPrefixes.
func NewResolver(prefixes []Prefix) *Resolver {
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}
	sorted := make([]Prefix, len(prefixes))
	copy(sorted, prefixes)
	// Longest prefix wins: "w:ru" must beat "w" whatever the declared order.
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Name) > len(sorted[j].Name)
	})
	return &Resolver{prefixes: sorted}
}

// Match returns the prefix that applies to target, if any.
func (r *Resolver) Match(target string) (Prefix, bool) {
	for _, p := range r.prefixes {
		if strings.HasPrefix(target, p.Name+":") {
			return p, true
		}
	}
	return Prefix{}, false
}

// Resolve returns the URL for target, or false when no prefix applies.
func (r *Resolver) Resolve(target string) (string, bool) {
	p, ok := r.Match(target)
	if !ok {
		return "", false
	}
	return p.resolve(target[len(p.Name)+1:])
}

func (p Prefix) resolve(rest string) (string, bool) {
	switch p.Kind {
	case KindInternal:
		name, page, _ := strings.Cut(rest, ":")
		w, err := wiki.FromDotNotation(name)
		if err != nil {
			return "", false
		}
		return w.URLTo(page, nil), true
	default:
		delim := p.Delimiter
		if delim == "" {
			delim = "_"
		}
		page := strings.ReplaceAll(rest, " ", delim)
		return strings.ReplaceAll(p.Template, pagePlaceholder, page), true
	}
}
