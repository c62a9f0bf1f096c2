package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestInterwikiURLs_SingleBatchedRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/api.php" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("action") != "query" || q.Get("format") != "json" || q.Get("iwurl") != "1" {
			t.Errorf("unexpected query %v", q)
		}
		if got := q.Get("titles"); got != "mw:Help:Links|Local page|wikt:cat" {
			t.Errorf("titles = %q", got)
		}
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":{
			"normalized":[{"from":"wikt:cat","to":"wikt:Cat"}],
			"interwiki":[
				{"title":"mw:Help:Links","iw":"mw","url":"https://www.mediawiki.org/wiki/Help:Links"},
				{"title":"wikt:Cat","iw":"wikt","url":"https://en.wiktionary.org/wiki/Cat"}
			],
			"pages":{"-1":{"title":"Local page","missing":""}}
		}}`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{UserAgent: "test-agent"})
	got, err := c.InterwikiURLs(context.Background(), New(srv.URL), []string{"mw:Help:Links", "Local page", "wikt:cat"})
	if err != nil {
		t.Fatalf("InterwikiURLs: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 request, got %d", calls.Load())
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 resolved titles, got %v", got)
	}
	if got["mw:Help:Links"] != "https://www.mediawiki.org/wiki/Help:Links" {
		t.Errorf("mw:Help:Links = %q", got["mw:Help:Links"])
	}
	if got["wikt:cat"] != "https://en.wiktionary.org/wiki/Cat" {
		t.Errorf("normalized title not mapped back: %q", got["wikt:cat"])
	}
}

func TestInterwikiURLs_SplitsLongTitleLists(t *testing.T) {
	var (
		mu    sync.Mutex
		sizes []int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		titles := strings.Split(r.URL.Query().Get("titles"), "|")
		mu.Lock()
		sizes = append(sizes, len(titles))
		mu.Unlock()

		type entry struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		}
		var resp struct {
			Query struct {
				Interwiki []entry `json:"interwiki"`
			} `json:"query"`
		}
		for _, title := range titles {
			resp.Query.Interwiki = append(resp.Query.Interwiki, entry{Title: title, URL: "https://other.test/" + title})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	titles := make([]string, 120)
	for i := range titles {
		titles[i] = fmt.Sprintf("iw:T%d", i)
	}

	got, err := NewClient(ClientOptions{}).InterwikiURLs(context.Background(), New(srv.URL), titles)
	if err != nil {
		t.Fatalf("InterwikiURLs: %v", err)
	}
	if diff := cmp.Diff([]int{50, 50, 20}, sizes); diff != "" {
		t.Errorf("request sizes (-want +got):\n%s", diff)
	}
	if len(got) != 120 || got["iw:T119"] != "https://other.test/iw:T119" {
		t.Errorf("resolved %d titles, last = %q", len(got), got["iw:T119"])
	}
}

func TestInterwikiURLs_NoTitlesNoRequest(t *testing.T) {
	c := NewClient(ClientOptions{HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})}})
	got, err := c.InterwikiURLs(context.Background(), New("https://x.fandom.com"), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestQuery_HTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/missing") {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{})

	var out map[string]any
	err := c.Query(context.Background(), New(srv.URL+"/missing"), Params{}, &out)
	if !errors.Is(err, ErrWikiNotFound) {
		t.Errorf("404 error = %v, want ErrWikiNotFound", err)
	}

	err = c.Query(context.Background(), New(srv.URL), Params{}, &out)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("502 error = %v", err)
	}
}

func TestSiteInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("meta") != "siteinfo" {
			t.Errorf("meta = %q", r.URL.Query().Get("meta"))
		}
		_, _ = w.Write([]byte(`{"query":{"general":{"sitename":"Dev Wiki","lang":"en","server":"https://dev.fandom.com"}}}`))
	}))
	defer srv.Close()

	info, err := NewClient(ClientOptions{}).SiteInfo(context.Background(), New(srv.URL))
	if err != nil {
		t.Fatalf("SiteInfo: %v", err)
	}
	if info.SiteName != "Dev Wiki" || info.Lang != "en" {
		t.Errorf("unexpected site info %+v", info)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
