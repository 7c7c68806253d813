package notify

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/ipotekakrym/blogpub/app/article"
	"github.com/ipotekakrym/blogpub/app/store"
)

type fakeSource struct {
	articles []article.Article
}

func (f *fakeSource) Articles() []article.Article { return f.articles }

type fakeSender struct {
	rejectIDs map[int]bool
	errorIDs  map[int]bool
	sent      []int
}

func (f *fakeSender) Send(ctx context.Context, a article.Article) (*NewsletterResult, error) {
	if f.errorIDs[a.ID] {
		return nil, errors.New("network error")
	}
	if f.rejectIDs[a.ID] {
		return &NewsletterResult{Success: false, Error: "smtp error"}, nil
	}
	f.sent = append(f.sent, a.ID)
	return &NewsletterResult{Success: true, SentCount: 42}, nil
}

type fakeNotifier struct {
	calls [][]string
	err   error
}

func (f *fakeNotifier) Notify(ctx context.Context, urls []string, force bool) (*IndexNowResult, error) {
	f.calls = append(f.calls, urls)
	if f.err != nil {
		return nil, f.err
	}
	return &IndexNowResult{Success: true, URLsSubmitted: len(urls)}, nil
}

func publishedArticles(ids ...int) []article.Article {
	articles := make([]article.Article, 0, len(ids))
	for i, id := range ids {
		d := article.NewDate(2025, 1, 1+i)
		articles = append(articles, article.Article{
			ID:          id,
			Title:       "Статья",
			Excerpt:     "Описание",
			PublishDate: &d,
		})
	}
	return articles
}

func sortedInts(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	return out
}

func TestPublisherDeltaCorrectness(t *testing.T) {
	state := store.NewState(store.NewMemory())
	state.SaveNotifiedIDs([]int{1, 2})

	sender := &fakeSender{}
	notifier := &fakeNotifier{}
	publisher := NewPublisher(&fakeSource{articles: publishedArticles(1, 2, 3, 4)}, state, sender, notifier)

	publisher.Run(context.Background())

	sent := sortedInts(sender.sent)
	if len(sent) != 2 || sent[0] != 3 || sent[1] != 4 {
		t.Errorf("Expected delta {3,4} to be dispatched, got %v", sender.sent)
	}

	notified := sortedInts(state.NotifiedIDs())
	if len(notified) != 4 {
		t.Fatalf("Expected notified set {1,2,3,4}, got %v", notified)
	}
}

func TestPublisherPartialFailureRetriesNextRun(t *testing.T) {
	state := store.NewState(store.NewMemory())
	state.SaveNotifiedIDs([]int{1, 2})

	sender := &fakeSender{rejectIDs: map[int]bool{4: true}}
	notifier := &fakeNotifier{}
	source := &fakeSource{articles: publishedArticles(1, 2, 3, 4)}

	NewPublisher(source, state, sender, notifier).Run(context.Background())

	notified := sortedInts(state.NotifiedIDs())
	if len(notified) != 3 || notified[2] != 3 {
		t.Fatalf("Expected notified set {1,2,3} after rejected dispatch of 4, got %v", notified)
	}

	// Second run retries only the failed article.
	retrySender := &fakeSender{}
	NewPublisher(source, state, retrySender, notifier).Run(context.Background())

	if len(retrySender.sent) != 1 || retrySender.sent[0] != 4 {
		t.Errorf("Expected second run delta {4}, got %v", retrySender.sent)
	}
	if len(state.NotifiedIDs()) != 4 {
		t.Errorf("Expected notified set {1,2,3,4} after retry, got %v", state.NotifiedIDs())
	}
}

func TestPublisherDispatchErrorDoesNotAbortLoop(t *testing.T) {
	state := store.NewState(store.NewMemory())

	sender := &fakeSender{errorIDs: map[int]bool{3: true}}
	notifier := &fakeNotifier{}

	NewPublisher(&fakeSource{articles: publishedArticles(3, 4)}, state, sender, notifier).Run(context.Background())

	if len(sender.sent) != 1 || sender.sent[0] != 4 {
		t.Errorf("Dispatch error for one article should not block the next, got %v", sender.sent)
	}
	notified := state.NotifiedIDs()
	if len(notified) != 1 || notified[0] != 4 {
		t.Errorf("Only successfully dispatched articles belong in the notified set, got %v", notified)
	}
}

func TestPublisherSearchEngineFailureKeepsNotifiedSet(t *testing.T) {
	state := store.NewState(store.NewMemory())

	sender := &fakeSender{}
	notifier := &fakeNotifier{err: errors.New("indexnow down")}

	NewPublisher(&fakeSource{articles: publishedArticles(1)}, state, sender, notifier).Run(context.Background())

	notified := state.NotifiedIDs()
	if len(notified) != 1 || notified[0] != 1 {
		t.Errorf("IndexNow failure must not roll back the notified set, got %v", notified)
	}
}

func TestPublisherNotifiesPageAndSitemap(t *testing.T) {
	state := store.NewState(store.NewMemory())

	sender := &fakeSender{}
	notifier := &fakeNotifier{}

	NewPublisher(&fakeSource{articles: publishedArticles(12)}, state, sender, notifier).Run(context.Background())

	if len(notifier.calls) != 2 {
		t.Fatalf("Expected page and sitemap notifications, got %d calls", len(notifier.calls))
	}
	if notifier.calls[0][0] != "#blog-12-статья" {
		t.Errorf("First notification should target the article fragment, got %v", notifier.calls[0])
	}
	if notifier.calls[1][0] != "/sitemap.xml" {
		t.Errorf("Second notification should target the sitemap, got %v", notifier.calls[1])
	}
}

func TestPublisherNoDelta(t *testing.T) {
	state := store.NewState(store.NewMemory())
	state.SaveNotifiedIDs([]int{1})

	sender := &fakeSender{}
	notifier := &fakeNotifier{}

	NewPublisher(&fakeSource{articles: publishedArticles(1)}, state, sender, notifier).Run(context.Background())

	if len(sender.sent) != 0 {
		t.Errorf("No delta should mean no dispatches, got %v", sender.sent)
	}
	if len(notifier.calls) != 0 {
		t.Errorf("No delta should mean no search-engine notifications, got %d", len(notifier.calls))
	}
}

type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler       { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler            { return h }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) find(msg string) (slog.Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.Message == msg {
			return r, true
		}
	}
	return slog.Record{}, false
}

type cancelingSender struct {
	fakeSender
	cancel context.CancelFunc
}

func (f *cancelingSender) Send(ctx context.Context, a article.Article) (*NewsletterResult, error) {
	result, err := f.fakeSender.Send(ctx, a)
	f.cancel()
	return result, err
}

func TestPublisherInterruptionReportsUnprocessedCount(t *testing.T) {
	handler := &recordingHandler{}
	prev := slog.Default()
	slog.SetDefault(slog.New(handler))
	t.Cleanup(func() { slog.SetDefault(prev) })

	state := store.NewState(store.NewMemory())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &cancelingSender{cancel: cancel}
	NewPublisher(&fakeSource{articles: publishedArticles(1, 2, 3)}, state, sender, &fakeNotifier{}).Run(ctx)

	if len(sender.sent) != 1 {
		t.Fatalf("Cancellation after the first dispatch should stop the loop, got %v", sender.sent)
	}

	record, ok := handler.find("Publication run interrupted")
	if !ok {
		t.Fatal("Interrupted run should log a warning")
	}
	remaining := int64(-1)
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == "remaining" {
			remaining = attr.Value.Int64()
		}
		return true
	})
	if remaining != 2 {
		t.Errorf("Expected 2 unprocessed articles reported, got %d", remaining)
	}
}

func TestPublisherHiddenArticlesNotDispatched(t *testing.T) {
	state := store.NewState(store.NewMemory())

	future := article.NewDate(2100, 1, 1)
	articles := []article.Article{
		{ID: 1, Title: "Будущая", Excerpt: "-", PublishDate: &future},
		{ID: 2, Title: "Без даты", Excerpt: "-"},
	}

	sender := &fakeSender{}
	NewPublisher(&fakeSource{articles: articles}, state, sender, &fakeNotifier{}).Run(context.Background())

	if len(sender.sent) != 0 {
		t.Errorf("Invisible articles must never be dispatched, got %v", sender.sent)
	}
}
