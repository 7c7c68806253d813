package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ipotekakrym/blogpub/app/store"
)

// notifyCacheWindow is how long a URL stays deduplicated after a
// successful search-engine notification.
const notifyCacheWindow = 24 * time.Hour

// IndexNowResult is the search-engine notification collaborator's response.
type IndexNowResult struct {
	Success       bool           `json:"success"`
	Results       []EngineResult `json:"results"`
	URLsSubmitted int            `json:"urls_submitted"`
}

type EngineResult struct {
	Engine string `json:"engine"`
	Status string `json:"status"`
}

// IndexNotifier submits URLs to search engines.
type IndexNotifier interface {
	Notify(ctx context.Context, urls []string, force bool) (*IndexNowResult, error)
}

type indexNowRequest struct {
	URLs []string `json:"urls"`
	Host string   `json:"host"`
	Key  string   `json:"key"`
}

// IndexNowClient posts URL batches to the externally hosted IndexNow
// function. Successful submissions are cached per URL for 24 hours to avoid
// repeat pings; force bypasses the cache.
type IndexNowClient struct {
	endpoint  string
	key       string
	baseURL   string
	host      string
	userAgent string
	client    *http.Client
	state     *store.State
}

var _ IndexNotifier = (*IndexNowClient)(nil)

func NewIndexNowClient(endpoint, key, baseURL, userAgent string, client *http.Client, state *store.State) *IndexNowClient {
	host := ""
	if parsed, err := url.Parse(baseURL); err == nil {
		host = parsed.Hostname()
	}

	return &IndexNowClient{
		endpoint:  endpoint,
		key:       key,
		baseURL:   strings.TrimRight(baseURL, "/"),
		host:      host,
		userAgent: userAgent,
		client:    client,
		state:     state,
	}
}

func (c *IndexNowClient) Notify(ctx context.Context, urls []string, force bool) (*IndexNowResult, error) {
	fullURLs := make([]string, 0, len(urls))
	for _, u := range urls {
		fullURLs = append(fullURLs, c.resolve(u))
	}

	toNotify := fullURLs
	if !force {
		toNotify = c.filterRecent(fullURLs)
	}

	if len(toNotify) == 0 {
		slog.Debug("All URLs recently notified, skipping IndexNow submission")
		return &IndexNowResult{Success: true}, nil
	}

	payload, err := json.Marshal(indexNowRequest{
		URLs: toNotify,
		Host: c.host,
		Key:  c.key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal IndexNow request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send IndexNow request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("IndexNow API error: %d %s", resp.StatusCode, resp.Status)
	}

	var result IndexNowResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode IndexNow response: %w", err)
	}

	if result.Success {
		c.markNotified(toNotify)
		slog.Info("IndexNow notification sent", "urls", len(toNotify))
	}

	return &result, nil
}

// PageURL returns the absolute URL for a site path or fragment.
func (c *IndexNowClient) PageURL(path string) string {
	return c.resolve(path)
}

func (c *IndexNowClient) resolve(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if strings.HasPrefix(u, "/") || strings.HasPrefix(u, "#") {
		return c.baseURL + "/" + strings.TrimPrefix(u, "/")
	}
	return c.baseURL + "/" + u
}

func (c *IndexNowClient) filterRecent(urls []string) []string {
	cache := c.cleanExpired(c.state.IndexNowCache())
	now := time.Now().UnixMilli()

	fresh := make([]string, 0, len(urls))
	for _, u := range urls {
		last, ok := cache[u]
		if !ok || now-last > notifyCacheWindow.Milliseconds() {
			fresh = append(fresh, u)
		}
	}
	return fresh
}

func (c *IndexNowClient) markNotified(urls []string) {
	cache := c.cleanExpired(c.state.IndexNowCache())
	now := time.Now().UnixMilli()

	for _, u := range urls {
		cache[u] = now
	}

	if err := c.state.SaveIndexNowCache(cache); err != nil {
		slog.Warn("Failed to save IndexNow cache", "error", err)
	}
}

func (c *IndexNowClient) cleanExpired(cache map[string]int64) map[string]int64 {
	now := time.Now().UnixMilli()
	cleaned := make(map[string]int64, len(cache))
	for u, ts := range cache {
		if now-ts < notifyCacheWindow.Milliseconds() {
			cleaned[u] = ts
		}
	}
	return cleaned
}
