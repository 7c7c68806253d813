package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/ipotekakrym/blogpub/app/article"
	"github.com/ipotekakrym/blogpub/app/store"
)

// ArticleLister supplies the current article set.
type ArticleLister interface {
	Articles() []article.Article
}

// Publisher detects newly visible articles and dispatches them: newsletter
// first, then best-effort search-engine notifications. The one-shot
// once-per-process guard is owned by the scheduler, not by this type.
type Publisher struct {
	source     ArticleLister
	state      *store.State
	newsletter NewsletterSender
	indexNow   IndexNotifier
}

func NewPublisher(source ArticleLister, state *store.State, newsletter NewsletterSender, indexNow IndexNotifier) *Publisher {
	return &Publisher{
		source:     source,
		state:      state,
		newsletter: newsletter,
		indexNow:   indexNow,
	}
}

// Run performs one publication pass. Delta items are processed strictly
// sequentially: each newsletter dispatch is awaited, and the notified-set is
// persisted immediately after a success so an interrupted run never
// re-notifies delivered articles. Per-item failures are logged and the loop
// continues; nothing is surfaced to the caller.
func (p *Publisher) Run(ctx context.Context) {
	visible := article.Resolve(p.source.Articles(), p.state.Overrides(), time.Now())

	notified := p.state.NotifiedIDs()
	notifiedSet := make(map[int]bool, len(notified))
	for _, id := range notified {
		notifiedSet[id] = true
	}

	delta := make([]article.Article, 0)
	for _, a := range visible {
		if !notifiedSet[a.ID] {
			delta = append(delta, a)
		}
	}

	if len(delta) == 0 {
		slog.Debug("No new articles for dispatch")
		return
	}

	slog.Info("New articles found for dispatch", "count", len(delta))

	for i, a := range delta {
		select {
		case <-ctx.Done():
			slog.Warn("Publication run interrupted", "remaining", len(delta)-i)
			return
		default:
		}

		result, err := p.newsletter.Send(ctx, a)
		if err != nil {
			slog.Error("Newsletter dispatch failed", "article", a.ID, "title", a.Title, "error", err)
			continue
		}
		if !result.Success {
			slog.Error("Newsletter dispatch rejected", "article", a.ID, "title", a.Title, "error", result.Error)
			continue
		}

		slog.Info("Newsletter dispatched", "article", a.ID, "title", a.Title, "sent_count", result.SentCount)

		notified = append(notified, a.ID)
		if err := p.state.SaveNotifiedIDs(notified); err != nil {
			slog.Error("Failed to persist notified set", "article", a.ID, "error", err)
		}

		p.notifySearchEngines(ctx, a)
	}
}

func (p *Publisher) notifySearchEngines(ctx context.Context, a article.Article) {
	if _, err := p.indexNow.Notify(ctx, []string{article.Fragment(a.ID, a.Title)}, false); err != nil {
		slog.Error("IndexNow page notification failed", "article", a.ID, "error", err)
		return
	}

	if _, err := p.indexNow.Notify(ctx, []string{"/sitemap.xml"}, false); err != nil {
		slog.Error("IndexNow sitemap notification failed", "article", a.ID, "error", err)
	}
}
