package tasks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ipotekakrym/blogpub/app/article"
	"github.com/ipotekakrym/blogpub/app/sitemap"
	"github.com/ipotekakrym/blogpub/app/store"
)

func TestTaskRetryAccounting(t *testing.T) {
	task := NewTask(TaskTypeImportFeed, "https://example.com/feed")

	if task.GetRetryCount() != 0 {
		t.Errorf("New task should start with 0 retries, got %d", task.GetRetryCount())
	}
	if !task.CanRetry() {
		t.Error("New task should be retryable")
	}

	for i := 0; i < DefaultMaxRetries; i++ {
		task.IncrementRetryCount()
	}
	if task.CanRetry() {
		t.Error("Task at max retries should not be retryable")
	}
}

func TestPublishArticlesTaskNeverRetries(t *testing.T) {
	task := NewPublishArticlesTask(nil)
	if task.CanRetry() {
		t.Error("Publication task must never be retried: it runs at most once per process")
	}
}

func TestTaskDuration(t *testing.T) {
	task := NewTask(TaskTypeGenerateSitemap, "sitemap")
	if task.GetDuration() != 0 {
		t.Error("Unstarted task should report zero duration")
	}

	task.Start()
	time.Sleep(time.Millisecond)
	if task.GetDuration() <= 0 {
		t.Error("Started task should report a positive duration")
	}
}

func newSitemapTaskFixture(t *testing.T, force bool, state *store.State) (*GenerateSitemapTask, string) {
	t.Helper()

	dir := t.TempDir()
	source := article.NewSource(filepath.Join(dir, "articles"))
	outputPath := filepath.Join(dir, "public", "sitemap.xml")

	date := article.NewDate(2025, 8, 1)
	source.SaveDraft(article.Article{ID: 1, Title: "Статья", Excerpt: "-", PublishDate: &date})

	task := NewGenerateSitemapTask(force, source, state, sitemap.NewBuilder(),
		sitemap.DefaultStaticPages(), "https://example.com", outputPath, nil)
	return task, outputPath
}

func TestGenerateSitemapTaskWritesFile(t *testing.T) {
	state := store.NewState(store.NewMemory())
	task, outputPath := newSitemapTaskFixture(t, false, state)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Sitemap file should exist: %v", err)
	}
	if !strings.Contains(string(data), "#blog-1-статья") {
		t.Error("Sitemap file should contain the visible article entry")
	}

	if _, ok := state.SitemapGeneratedAt(); !ok {
		t.Error("Task should record the generation timestamp")
	}
}

func TestGenerateSitemapTaskHonorsFreshness(t *testing.T) {
	state := store.NewState(store.NewMemory())
	state.SetSitemapGeneratedAt(time.Now().Add(-1 * time.Hour))

	task, outputPath := newSitemapTaskFixture(t, false, state)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, err := os.Stat(outputPath); !os.IsNotExist(err) {
		t.Error("Fresh sitemap should not be regenerated")
	}

	// A forced rebuild bypasses the freshness check.
	forced, forcedPath := newSitemapTaskFixture(t, true, state)
	if err := forced.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, err := os.Stat(forcedPath); err != nil {
		t.Error("Forced rebuild should write the sitemap regardless of freshness")
	}
}
