package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ipotekakrym/blogpub/app/article"
	"github.com/ipotekakrym/blogpub/app/cache"
	"github.com/ipotekakrym/blogpub/app/cfg"
	"github.com/ipotekakrym/blogpub/app/notify"
	"github.com/ipotekakrym/blogpub/app/sitemap"
	"github.com/ipotekakrym/blogpub/app/store"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	source       *article.Source
	state        *store.State
	publisher    *notify.Publisher
	builder      *sitemap.Builder
	pages        []sitemap.StaticPage
	docCache     *cache.Cache
	baseURL      string
	sitemapPath  string
	interval     time.Duration
	publishDelay time.Duration
	workerCount  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	publishOnce  sync.Once
	taskQueue    chan TaskInterface
}

func NewScheduler(source *article.Source, state *store.State, publisher *notify.Publisher,
	builder *sitemap.Builder, pages []sitemap.StaticPage, docCache *cache.Cache) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		source:       source,
		state:        state,
		publisher:    publisher,
		builder:      builder,
		pages:        pages,
		docCache:     docCache,
		baseURL:      cfg.BaseUrl,
		sitemapPath:  cfg.SitemapPath,
		interval:     time.Duration(cfg.SchedulerInterval) * time.Second,
		publishDelay: time.Duration(cfg.PublishDelay) * time.Second,
		workerCount:  cfg.WorkerCount,
		ctx:          ctx,
		cancel:       cancel,
		taskQueue:    make(chan TaskInterface, 100),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueSitemapTask(false)
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	s.enqueueSitemapTask(false)

	// The publication pass runs once per process, after a short debounce so
	// it never races the HTTP server warm-up.
	s.publishOnce.Do(func() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()

			select {
			case <-s.ctx.Done():
				return
			case <-time.After(s.publishDelay):
			}

			task := NewPublishArticlesTask(s.publisher)
			if err := s.EnqueueTask(task); err != nil {
				slog.Warn("Failed to enqueue PublishArticlesTask", "error", err)
			}
		}()
	})
}

func (s *Scheduler) enqueueSitemapTask(force bool) {
	task := NewGenerateSitemapTask(force, s.source, s.state, s.builder, s.pages,
		s.baseURL, s.sitemapPath, s.docCache)
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue GenerateSitemapTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
