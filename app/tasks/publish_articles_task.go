package tasks

import (
	"context"
	"log/slog"

	"github.com/ipotekakrym/blogpub/app/notify"
)

// PublishArticlesTask runs one publication pass. The scheduler enqueues it
// exactly once per process; per-item failures are handled inside the
// publisher and never bubble up, so the task is never retried.
type PublishArticlesTask struct {
	Task
	publisher *notify.Publisher
}

func NewPublishArticlesTask(publisher *notify.Publisher) *PublishArticlesTask {
	t := &PublishArticlesTask{
		Task:      NewTask(TaskTypePublishArticles, "articles"),
		publisher: publisher,
	}
	t.MaxRetries = 0
	return t
}

func (t *PublishArticlesTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.publisher.Run(ctx)

	slog.Info("Task completed",
		"type", "PublishArticles",
		"duration", t.GetDuration())

	return nil
}
