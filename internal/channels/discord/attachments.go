package discord

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/whitebot/whitebot/internal/relay"
)

const (
	spoilerPrefix       = "SPOILER_"
	maxParallelDownload = 4
)

// downloadAttachments fetches all attachments concurrently. The result keeps
// the input order; any failed download fails the whole batch.
func (p *Platform) downloadAttachments(ctx context.Context, atts []relay.Attachment) ([]*discordgo.File, error) {
	if len(atts) == 0 {
		return nil, nil
	}

	files := make([]*discordgo.File, len(atts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDownload)

	for i, att := range atts {
		g.Go(func() error {
			data, err := p.fetch(ctx, att.URL)
			if err != nil {
				return fmt.Errorf("%s: %w", att.Filename, err)
			}
			name := att.Filename
			if att.Spoiler && !strings.HasPrefix(name, spoilerPrefix) {
				name = spoilerPrefix + name
			}
			files[i] = &discordgo.File{
				Name:        name,
				ContentType: att.ContentType,
				Reader:      bytes.NewReader(data),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (p *Platform) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if p.maxFileSize > 0 {
		body = io.LimitReader(resp.Body, p.maxFileSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if p.maxFileSize > 0 && int64(len(data)) > p.maxFileSize {
		return nil, fmt.Errorf("larger than %d bytes", p.maxFileSize)
	}
	return data, nil
}
