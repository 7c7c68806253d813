package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ipotekakrym/blogpub/app/article"
	"github.com/ipotekakrym/blogpub/app/cache"
	"github.com/ipotekakrym/blogpub/app/sitemap"
	"github.com/ipotekakrym/blogpub/app/store"
)

// SitemapCacheKey is where the rendered sitemap document is cached.
const SitemapCacheKey = "sitemap:xml"

type GenerateSitemapTask struct {
	Task
	Force      bool
	source     *article.Source
	state      *store.State
	builder    *sitemap.Builder
	pages      []sitemap.StaticPage
	baseURL    string
	outputPath string
	cache      *cache.Cache
}

func NewGenerateSitemapTask(force bool, source *article.Source, state *store.State,
	builder *sitemap.Builder, pages []sitemap.StaticPage, baseURL, outputPath string,
	docCache *cache.Cache) *GenerateSitemapTask {
	return &GenerateSitemapTask{
		Task:       NewTask(TaskTypeGenerateSitemap, "sitemap"),
		Force:      force,
		source:     source,
		state:      state,
		builder:    builder,
		pages:      pages,
		baseURL:    baseURL,
		outputPath: outputPath,
		cache:      docCache,
	}
}

func (t *GenerateSitemapTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	now := time.Now()

	if !t.Force && !sitemap.ShouldRegenerate(t.state, now) {
		slog.Debug("Sitemap is fresh, skipping regeneration")
		return nil
	}

	visible := article.Resolve(t.source.Articles(), t.state.Overrides(), now)
	xml := t.builder.Run(visible, t.pages, t.baseURL, now)

	if err := t.writeFile(xml); err != nil {
		return err
	}

	if err := t.state.SetSitemapGeneratedAt(now); err != nil {
		slog.Warn("Failed to record sitemap generation time", "error", err)
	}

	if t.cache != nil {
		if err := t.cache.Set(ctx, SitemapCacheKey, xml, sitemap.RegenerateAfter); err != nil {
			slog.Warn("Failed to cache sitemap document", "error", err)
		}
	}

	slog.Info("Task completed",
		"type", "GenerateSitemap",
		"duration", t.GetDuration(),
		"urls", len(t.pages)+len(visible),
		"static_pages", len(t.pages),
		"articles", len(visible),
		"forced", t.Force)

	return nil
}

func (t *GenerateSitemapTask) writeFile(xml string) error {
	if dir := filepath.Dir(t.outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create sitemap directory: %w", err)
		}
	}

	if err := os.WriteFile(t.outputPath, []byte(xml), 0o644); err != nil {
		return fmt.Errorf("failed to write sitemap file: %w", err)
	}

	return nil
}
