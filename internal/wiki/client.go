package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultUserAgent = "whitebot (+https://github.com/whitebot/whitebot)"
	defaultTimeout   = 15 * time.Second

	// maxTitlesPerQuery is the titles= limit for clients without apihighlimits.
	maxTitlesPerQuery = 50
)

// Params are MediaWiki query parameters. Booleans are sent as 1/0.
type Params map[string]any

// ClientOptions configures a Client.
type ClientOptions struct {
	HTTPClient        *http.Client
	UserAgent         string
	RequestsPerSecond float64 // 0 = unlimited
	Burst             int
}

// Client issues read-only requests against wiki APIs.
// Safe for concurrent use.
type Client struct {
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
}

// NewClient creates a Client.
func NewClient(opts ClientOptions) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{http: hc, userAgent: ua, limiter: limiter}
}

// Query calls api.php with action=query and decodes the JSON body into out.
func (c *Client) Query(ctx context.Context, w *Wiki, params Params, out any) error {
	values := encodeParams(params)
	values.Set("action", "query")
	values.Set("format", "json")
	return c.getJSON(ctx, w.APIURL(), values, out)
}

type interwikiResponse struct {
	Query struct {
		Normalized []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"normalized"`
		Interwiki []struct {
			Title string `json:"title"`
			IW    string `json:"iw"`
			URL   string `json:"url"`
		} `json:"interwiki"`
	} `json:"query"`
}

// InterwikiURLs resolves titles through the wiki's interwiki table, in
// requests of at most 50 titles. Only titles that carry an interwiki prefix
// appear in the result, keyed by the title as it was passed in.
func (c *Client) InterwikiURLs(ctx context.Context, w *Wiki, titles []string) (map[string]string, error) {
	result := make(map[string]string)
	for len(titles) > 0 {
		n := min(len(titles), maxTitlesPerQuery)
		if err := c.interwikiBatch(ctx, w, titles[:n], result); err != nil {
			return nil, err
		}
		titles = titles[n:]
	}
	return result, nil
}

func (c *Client) interwikiBatch(ctx context.Context, w *Wiki, titles []string, result map[string]string) error {
	var resp interwikiResponse
	err := c.Query(ctx, w, Params{
		"titles": strings.Join(titles, "|"),
		"iwurl":  true,
	}, &resp)
	if err != nil {
		return fmt.Errorf("interwiki lookup: %w", err)
	}

	byTitle := make(map[string]string, len(resp.Query.Interwiki))
	for _, iw := range resp.Query.Interwiki {
		if iw.URL != "" {
			byTitle[iw.Title] = iw.URL
		}
	}

	// The API may echo a normalized form of the title; map it back.
	normalized := make(map[string]string, len(resp.Query.Normalized))
	for _, n := range resp.Query.Normalized {
		normalized[n.From] = n.To
	}

	for _, t := range titles {
		if u, ok := byTitle[t]; ok {
			result[t] = u
			continue
		}
		if to, ok := normalized[t]; ok {
			if u, ok := byTitle[to]; ok {
				result[t] = u
			}
		}
	}
	return nil
}

// SiteInfo is the subset of meta=siteinfo general data we use.
type SiteInfo struct {
	SiteName string `json:"sitename"`
	Lang     string `json:"lang"`
	Server   string `json:"server"`
}

// SiteInfo fetches general site information; used to validate wiki bindings.
func (c *Client) SiteInfo(ctx context.Context, w *Wiki) (*SiteInfo, error) {
	var resp struct {
		Query struct {
			General SiteInfo `json:"general"`
		} `json:"query"`
	}
	if err := c.Query(ctx, w, Params{"meta": "siteinfo", "siprop": "general"}, &resp); err != nil {
		return nil, err
	}
	if resp.Query.General.SiteName == "" {
		return nil, fmt.Errorf("%w: %s", ErrWikiNotFound, w.URL)
	}
	return &resp.Query.General, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, values url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrWikiNotFound, endpoint)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

func encodeParams(params Params) url.Values {
	values := url.Values{}
	for k, v := range params {
		switch val := v.(type) {
		case bool:
			if val {
				values.Set(k, "1")
			} else {
				values.Set(k, "0")
			}
		case string:
			values.Set(k, val)
		case int:
			values.Set(k, strconv.Itoa(val))
		case int64:
			values.Set(k, strconv.FormatInt(val, 10))
		default:
			values.Set(k, fmt.Sprint(val))
		}
	}
	return values
}
