package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ipotekakrym/blogpub/app/importer"
)

type ImportFeedTask struct {
	Task
	FeedURL  string
	importer *importer.Importer
}

func NewImportFeedTask(feedURL string, imp *importer.Importer) *ImportFeedTask {
	return &ImportFeedTask{
		Task:     NewTask(TaskTypeImportFeed, feedURL),
		FeedURL:  feedURL,
		importer: imp,
	}
}

func (t *ImportFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	imported, err := t.importer.Run(ctx, t.FeedURL)
	if err != nil {
		return fmt.Errorf("failed to import feed: %w", err)
	}

	slog.Info("Task completed",
		"type", "ImportFeed",
		"url", t.FeedURL,
		"duration", t.GetDuration(),
		"imported", imported)

	return nil
}
