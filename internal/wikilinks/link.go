// Package wikilinks finds [[wiki link]] markup in chat messages and resolves it to URLs.
package wikilinks

import (
	"fmt"
	"sort"
	"strings"
)

// Link is one resolved [[target|title]] marker.
type Link struct {
	Target   string // raw text inside the brackets, before "|"
	Title    string // display text, never empty
	Trailing string // text glued to the closing brackets (TrailingText mode only)
	URL      string
	Original string // exact matched substring
	Start    int    // byte offsets of Original in the scanned text
	End      int

	// Repeats holds later markers with the same target when deduplicating.
	// They share URL with the first occurrence.
	Repeats []Link
}

// Hyperlink renders the link as a masked link with previews suppressed.
func (l Link) Hyperlink() string {
	return fmt.Sprintf("[%s](<%s>)", l.Title+l.Trailing, l.URL)
}

// Bare renders the URL alone, wrapped in angle brackets to suppress previews.
func (l Link) Bare() string {
	return "<" + l.URL + ">"
}

func (l Link) String() string {
	return fmt.Sprintf("<Link target=%s title=%s url=%s>", l.Target, l.Title, l.URL)
}

// deriveTitle applies the display title rules: an explicit non-empty title
// wins; otherwise the last ":" segment of the target; the whole target when
// that segment is empty.
func deriveTitle(target, title string, hasTitle bool) string {
	if hasTitle && title != "" {
		return title
	}
	if i := strings.LastIndex(target, ":"); i >= 0 && i < len(target)-1 {
		return target[i+1:]
	}
	return target
}

// Rewrite replaces every marker with its hyperlink at the offsets Scan
// recorded, so identical text inside code spans is left alone. Links whose
// offsets no longer match text are skipped.
func Rewrite(text string, links []Link) string {
	all := make([]Link, 0, len(links))
	for _, l := range links {
		all = append(all, l)
		all = append(all, l.Repeats...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start > all[j].Start })

	limit := len(text)
	for _, l := range all {
		if l.Start < 0 || l.End > limit || l.Start >= l.End || text[l.Start:l.End] != l.Original {
			continue
		}
		text = text[:l.Start] + l.Hyperlink() + text[l.End:]
		limit = l.Start
	}
	return text
}

// BareList renders one bare URL per line, for the degraded relay path.
func BareList(links []Link) string {
	lines := make([]string, 0, len(links))
	for _, l := range links {
		lines = append(lines, l.Bare())
	}
	return strings.Join(lines, "\n")
}
