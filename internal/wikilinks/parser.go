package wikilinks

import (
	"context"
	"regexp"

	"github.com/whitebot/whitebot/internal/wiki"
)

var (
	markerPattern         = regexp.MustCompile(`\[\[(.+?)(?:\|(.*?))?\]\]`)
	trailingMarkerPattern = regexp.MustCompile("\\[\\[(.+?)(?:\\|(.*?))?\\]\\]([^ `\\n]+)?")

	// One, two or three backticks, anything, then the same run. RE2 has no
	// backreferences, so the longer runs are listed first.
	codeSpanPattern = regexp.MustCompile("(?s)```.*?```|``.*?``|`.*?`")
)

// Options select parser behaviours that differ between deployments.
type Options struct {
	// TrailingText glues non-space text right after "]]" onto the anchor,
	// so "[[cat]]s" renders as "[cats](...)".
	TrailingText bool
	// Dedupe folds later markers with an already seen target into the first
	// Link (as Repeats) instead of emitting one Link per occurrence.
	Dedupe bool
	// Interwiki sends targets the prefix table cannot resolve to the
	// default wiki's interwiki table in one batched lookup.
	Interwiki bool
}

// InterwikiLookup resolves titles through a wiki's interwiki table.
type InterwikiLookup interface {
	InterwikiURLs(ctx context.Context, w *wiki.Wiki, titles []string) (map[string]string, error)
}

// Match is a marker found in text, not yet resolved.
type Match struct {
	Start, End int
	Target     string
	Title      string
	HasTitle   bool
	Trailing   string
	Original   string
}

// Parser extracts and resolves link markers.
type Parser struct {
	resolver  *Resolver
	opts      Options
	interwiki InterwikiLookup
}

// NewParser creates a Parser. lookup may be nil, which disables the
// interwiki fallback regardless of opts.
func NewParser(resolver *Resolver, opts Options, lookup InterwikiLookup) *Parser {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	return &Parser{resolver: resolver, opts: opts, interwiki: lookup}
}

// Options returns the parser's options.
func (p *Parser) Options() Options { return p.opts }

// Scan finds link markers outside code spans, in text order. It performs no I/O.
func (p *Parser) Scan(text string) []Match {
	pattern := markerPattern
	if p.opts.TrailingText {
		pattern = trailingMarkerPattern
	}

	found := pattern.FindAllStringSubmatchIndex(text, -1)
	if len(found) == 0 {
		return nil
	}
	spans := codeSpanPattern.FindAllStringIndex(text, -1)

	matches := make([]Match, 0, len(found))
	for _, loc := range found {
		start, end := loc[0], loc[1]
		if insideAny(start, end, spans) {
			continue
		}

		m := Match{
			Start:    start,
			End:      end,
			Target:   text[loc[2]:loc[3]],
			Original: text[start:end],
		}
		if loc[4] >= 0 {
			m.HasTitle = true
			m.Title = text[loc[4]:loc[5]]
		}
		if len(loc) > 6 && loc[6] >= 0 {
			m.Trailing = text[loc[6]:loc[7]]
		}
		matches = append(matches, m)
	}
	return matches
}

func insideAny(start, end int, spans [][]int) bool {
	for _, s := range spans {
		if start > s[0] && end < s[1] {
			return true
		}
	}
	return false
}

// Resolve turns matches into Links against the given default wiki.
func (p *Parser) Resolve(ctx context.Context, matches []Match, defaultWiki *wiki.Wiki) []Link {
	links := make([]Link, 0, len(matches))
	byTarget := make(map[string]int) // target → index in links (Dedupe only)
	var unresolved []string
	seenUnresolved := make(map[string]bool)

	for _, m := range matches {
		link := Link{
			Target:   m.Target,
			Title:    deriveTitle(m.Target, m.Title, m.HasTitle),
			Trailing: m.Trailing,
			Original: m.Original,
			Start:    m.Start,
			End:      m.End,
		}

		if p.opts.Dedupe {
			if i, ok := byTarget[m.Target]; ok {
				link.URL = links[i].URL
				links[i].Repeats = append(links[i].Repeats, link)
				continue
			}
		}

		if u, ok := p.resolver.Resolve(m.Target); ok {
			link.URL = u
		} else {
			link.URL = defaultWiki.URLTo(m.Target, nil)
			if !seenUnresolved[m.Target] {
				seenUnresolved[m.Target] = true
				unresolved = append(unresolved, m.Target)
			}
		}

		byTarget[m.Target] = len(links)
		links = append(links, link)
	}

	if p.opts.Interwiki && p.interwiki != nil && len(unresolved) > 0 {
		p.applyInterwiki(ctx, links, unresolved, defaultWiki)
	}
	return links
}

// Parse is Scan followed by Resolve.
func (p *Parser) Parse(ctx context.Context, text string, defaultWiki *wiki.Wiki) []Link {
	matches := p.Scan(text)
	if len(matches) == 0 {
		return nil
	}
	return p.Resolve(ctx, matches, defaultWiki)
}
