package wikilinks

import (
	"context"
	"log/slog"

	"github.com/whitebot/whitebot/internal/wiki"
)

// applyInterwiki patches URLs of links whose targets the interwiki table knows.
// On lookup failure every link keeps its local URL.
func (p *Parser) applyInterwiki(ctx context.Context, links []Link, titles []string, w *wiki.Wiki) {
	urls, err := p.interwiki.InterwikiURLs(ctx, w, titles)
	if err != nil {
		slog.Warn("interwiki lookup failed, keeping local links",
			"wiki", w.URL, "titles", len(titles), "error", err)
		return
	}

	for i := range links {
		u, ok := urls[links[i].Target]
		if !ok {
			continue
		}
		links[i].URL = u
		for j := range links[i].Repeats {
			links[i].Repeats[j].URL = u
		}
	}
}
