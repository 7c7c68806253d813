package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"

	"github.com/ipotekakrym/blogpub/app/article"
)

const (
	fetchTimeout = 30 * time.Second

	// Feed entries shorter than this get a full-content extraction attempt
	// from the linked page.
	minContentLength = 500

	excerptMaxLength = 200
	wordsPerMinute   = 200
)

// Importer converts RSS/Atom feed entries into unscheduled draft articles.
// Drafts stay invisible until an admin schedules or publishes them.
type Importer struct {
	source     *article.Source
	httpClient *http.Client
	parser     *gofeed.Parser
	extractor  *Extractor
	userAgent  string
}

func NewImporter(source *article.Source, httpClient *http.Client, userAgent string) *Importer {
	return &Importer{
		source:     source,
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		extractor:  NewExtractor(),
		userAgent:  userAgent,
	}
}

// Run fetches feedURL and saves a draft for every entry not imported
// before. Returns the number of drafts created.
func (im *Importer) Run(ctx context.Context, feedURL string) (int, error) {
	data, err := im.fetch(ctx, feedURL)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch feed: %w", err)
	}

	feed, err := im.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to parse feed: %w", err)
	}

	imported := 0
	for _, item := range feed.Items {
		if item.Link == "" {
			slog.Debug("Skipping feed entry without link", "title", item.Title)
			continue
		}
		if im.source.HasSourceURL(item.Link) {
			continue
		}

		draft := im.buildDraft(ctx, item)
		if err := im.source.SaveDraft(draft); err != nil {
			slog.Error("Failed to save imported draft", "link", item.Link, "error", err)
			continue
		}

		slog.Info("Draft imported", "id", draft.ID, "title", draft.Title, "source", item.Link)
		imported++
	}

	slog.Info("Feed import completed", "url", feedURL, "entries", len(feed.Items), "imported", imported)
	return imported, nil
}

func (im *Importer) buildDraft(ctx context.Context, item *gofeed.Item) article.Article {
	content := item.Content
	if content == "" {
		content = item.Description
	}

	if utf8.RuneCountInString(content) < minContentLength {
		if extracted := im.extractFromPage(ctx, item.Link); extracted != "" {
			content = extracted
		}
	}

	category := ""
	if len(item.Categories) > 0 {
		category = item.Categories[0]
	}

	return article.Article{
		ID:        im.source.NextID(),
		Title:     item.Title,
		Excerpt:   excerpt(item.Description),
		Content:   content,
		Category:  category,
		ReadTime:  estimateReadTime(content),
		SourceURL: item.Link,
	}
}

func (im *Importer) extractFromPage(ctx context.Context, pageURL string) string {
	data, err := im.fetch(ctx, pageURL)
	if err != nil {
		slog.Warn("Failed to fetch page for content extraction", "url", pageURL, "error", err)
		return ""
	}

	content, err := im.extractor.Run(data)
	if err != nil {
		slog.Warn("Content extraction failed", "url", pageURL, "error", err)
		return ""
	}

	return content
}

func (im *Importer) fetch(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", im.userAgent)

	resp, err := im.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func excerpt(description string) string {
	trimmed := strings.TrimSpace(description)
	runes := []rune(trimmed)
	if len(runes) <= excerptMaxLength {
		return trimmed
	}
	return strings.TrimSpace(string(runes[:excerptMaxLength])) + "…"
}

func estimateReadTime(content string) string {
	words := len(strings.Fields(content))
	minutes := words / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d мин", minutes)
}
