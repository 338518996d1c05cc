package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const (
	duckDuckGoLiteURL = "https://lite.duckduckgo.com/lite/"
	browserUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxPageSize       = 2 * 1024 * 1024
)

// DuckDuckGo scrapes the DuckDuckGo lite HTML page. It needs no API key.
type DuckDuckGo struct {
	client     *http.Client
	endpoint   string
	limiter    *rate.Limiter
	maxResults int
	maxBackoff time.Duration
}

// DuckDuckGoOption configures a DuckDuckGo provider.
type DuckDuckGoOption func(*DuckDuckGo)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) DuckDuckGoOption {
	return func(d *DuckDuckGo) { d.client = c }
}

// WithEndpoint overrides the lite page URL.
func WithEndpoint(u string) DuckDuckGoOption {
	return func(d *DuckDuckGo) { d.endpoint = u }
}

// WithMinInterval spaces requests at least interval apart. Zero disables limiting.
func WithMinInterval(interval time.Duration) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		if interval <= 0 {
			d.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		d.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// WithMaxResults caps the parsed results.
func WithMaxResults(n int) DuckDuckGoOption {
	return func(d *DuckDuckGo) { d.maxResults = n }
}

// NewDuckDuckGo creates a DuckDuckGo provider limited to one query per second.
func NewDuckDuckGo(opts ...DuckDuckGoOption) *DuckDuckGo {
	d := &DuckDuckGo{
		client:     &http.Client{Timeout: 15 * time.Second},
		endpoint:   duckDuckGoLiteURL,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		maxResults: 5,
		maxBackoff: 8 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Search posts the query to the lite page and parses the result table.
// A 429 is retried with doubling backoff until maxBackoff or ctx expires.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("duckduckgo: query is empty")
	}

	form := url.Values{"q": {query}}.Encode()
	delay := 500 * time.Millisecond
	for {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("duckduckgo: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := d.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("duckduckgo: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && delay <= d.maxBackoff {
			resp.Body.Close()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, &httpStatusError{backend: "duckduckgo", status: resp.StatusCode}
		}
		if err != nil {
			return nil, fmt.Errorf("duckduckgo: read response: %w", err)
		}
		return parseLitePage(string(body), d.maxResults)
	}
}

// parseLitePage walks the lite result table. Each hit is an anchor with class
// result-link followed by a cell with class result-snippet.
func parseLitePage(page string, limit int) ([]Result, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: parse page: %w", err)
	}

	var results []Result
	var walk func(*html.Node)
	// done is set at the first link past the limit; until then the last hit
	// may still pick up its snippet.
	done := false
	walk = func(n *html.Node) {
		if done {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result-link"):
				if limit > 0 && len(results) >= limit {
					done = true
					return
				}
				href := resultURL(attr(n, "href"))
				if href != "" {
					results = append(results, Result{Title: textContent(n), URL: href})
				}
				return
			case hasClass(n, "result-snippet"):
				if len(results) > 0 && results[len(results)-1].Snippet == "" {
					results[len(results)-1].Snippet = textContent(n)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

// resultURL unwraps DuckDuckGo redirect links (//duckduckgo.com/l/?uddg=...).
func resultURL(href string) string {
	href = strings.TrimSpace(href)
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
