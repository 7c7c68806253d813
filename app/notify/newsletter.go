package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ipotekakrym/blogpub/app/article"
)

// NewsletterResult is the newsletter collaborator's response.
type NewsletterResult struct {
	Success   bool   `json:"success"`
	SentCount int    `json:"sent_count,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewsletterSender dispatches a newly published article to subscribers.
type NewsletterSender interface {
	Send(ctx context.Context, a article.Article) (*NewsletterResult, error)
}

type newsletterRequest struct {
	ArticleID      int    `json:"article_id"`
	ArticleTitle   string `json:"article_title"`
	ArticleExcerpt string `json:"article_excerpt"`
}

// NewsletterClient posts articles to the externally hosted newsletter
// dispatch function.
type NewsletterClient struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

var _ NewsletterSender = (*NewsletterClient)(nil)

func NewNewsletterClient(endpoint, userAgent string, client *http.Client) *NewsletterClient {
	return &NewsletterClient{
		endpoint:  endpoint,
		userAgent: userAgent,
		client:    client,
	}
}

func (c *NewsletterClient) Send(ctx context.Context, a article.Article) (*NewsletterResult, error) {
	payload, err := json.Marshal(newsletterRequest{
		ArticleID:      a.ID,
		ArticleTitle:   a.Title,
		ArticleExcerpt: a.Excerpt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal newsletter request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send newsletter request: %w", err)
	}
	defer resp.Body.Close()

	var result NewsletterResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if resp.StatusCode == http.StatusOK {
			return nil, fmt.Errorf("failed to decode newsletter response: %w", err)
		}
		return &NewsletterResult{Success: false, Error: resp.Status}, nil
	}

	if resp.StatusCode != http.StatusOK {
		result.Success = false
		if result.Error == "" {
			result.Error = resp.Status
		}
	}

	// A 2xx body carrying success=false is still a failed dispatch.
	return &result, nil
}
