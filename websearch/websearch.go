package websearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultEndpoint   = "https://html.duckduckgo.com/html/"
	DefaultMaxResults = 8
	DefaultMaxChars   = 6000
	userAgent         = "Mozilla/5.0 (compatible; ohacker/1.0)"
)

var (
	ErrEmptyQuery = errors.New("query must be non-empty")
	ErrInvalidURL = errors.New("invalid url")
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Page is the readable text of a fetched document.
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Config configures a Client.
type Config struct {
	Endpoint   string
	MaxResults int
	MaxChars   int
	Timeout    time.Duration
}

// Client searches the web through DuckDuckGo's HTML endpoint and fetches pages.
type Client struct {
	http       *http.Client
	endpoint   string
	maxResults int
	maxChars   int
}

// New creates a Client, filling unset config with defaults.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		maxResults: cfg.MaxResults,
		maxChars:   cfg.MaxChars,
	}
}

// Search returns up to the configured number of results for query.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	doc, err := c.get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	results := []Result{}
	doc.Find(".result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if len(results) >= c.maxResults {
			return false
		}
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := resolveRedirect(u, href)
		if target == "" {
			return true
		}
		results = append(results, Result{
			Title:   collapse(link.Text()),
			URL:     target,
			Snippet: collapse(s.Find(".result__snippet").First().Text()),
		})
		return true
	})
	return results, nil
}

// Fetch downloads rawURL and returns its whitespace-normalized body text,
// truncated to the configured limit.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	doc, err := c.get(ctx, parsed.String())
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, noscript").Remove()

	text := collapse(doc.Find("body").Text())
	if r := []rune(text); len(r) > c.maxChars {
		text = string(r[:c.maxChars]) + "…"
	}

	return &Page{
		URL:   parsed.String(),
		Title: collapse(doc.Find("title").First().Text()),
		Text:  text,
	}, nil
}

func (c *Client) get(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("received status code %d from %s", resp.StatusCode, target)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= links and resolves
// relative hrefs against base.
func resolveRedirect(base *url.URL, href string) string {
	link, err := base.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if target := link.Query().Get("uddg"); target != "" {
		return target
	}
	return link.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
