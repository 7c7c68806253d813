package api

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ipotekakrym/blogpub/app/article"
	"github.com/ipotekakrym/blogpub/app/cache"
	"github.com/ipotekakrym/blogpub/app/cfg"
	"github.com/ipotekakrym/blogpub/app/importer"
	"github.com/ipotekakrym/blogpub/app/sitemap"
	"github.com/ipotekakrym/blogpub/app/store"
	"github.com/ipotekakrym/blogpub/app/tasks"
)

func NewHandler(source *article.Source, state *store.State, builder *sitemap.Builder,
	pages []sitemap.StaticPage, scheduler tasks.TaskSchedulerInterface,
	imp *importer.Importer, docCache *cache.Cache) *Handler {
	cfg := cfg.Get()

	return &Handler{
		source:      source,
		state:       state,
		builder:     builder,
		pages:       pages,
		scheduler:   scheduler,
		importer:    imp,
		docCache:    docCache,
		baseURL:     cfg.BaseUrl,
		sitemapPath: cfg.SitemapPath,
	}
}

// GetSitemap serves the sitemap document: document cache first, then the
// generated file, then a synchronous render as the fallback.
func (h *Handler) GetSitemap(c *gin.Context) {
	if h.docCache != nil {
		if doc, err := h.docCache.Get(c.Request.Context(), tasks.SitemapCacheKey); err != nil {
			slog.Warn("Sitemap cache lookup failed", "error", err)
		} else if doc != "" {
			c.Header("Content-Type", "application/xml; charset=utf-8")
			c.Header("X-Sitemap-Source", "cache")
			c.String(http.StatusOK, doc)
			return
		}
	}

	if data, err := os.ReadFile(h.sitemapPath); err == nil {
		c.Header("Content-Type", "application/xml; charset=utf-8")
		c.Header("X-Sitemap-Source", "file")
		c.String(http.StatusOK, string(data))
		return
	}

	now := time.Now()
	visible := article.Resolve(h.source.Articles(), h.state.Overrides(), now)
	doc := h.builder.Run(visible, h.pages, h.baseURL, now)

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Sitemap-Source", "generated")
	c.String(http.StatusOK, doc)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"articles":  h.source.Count(),
	}

	visible := article.Resolve(h.source.Articles(), h.state.Overrides(), time.Now())
	health["visible_articles"] = len(visible)

	if generated, ok := h.state.SitemapGeneratedAt(); ok {
		health["sitemap_generated_at"] = generated.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, health)
}

// APIListArticles returns every known article in its effective form, with
// the computed visibility flag alongside.
func (h *Handler) APIListArticles(c *gin.Context) {
	now := time.Now()
	overrides := h.state.Overrides()

	articles := make([]map[string]interface{}, 0, h.source.Count())
	visibleCount := 0

	for _, a := range h.source.Articles() {
		effective := article.Merge(a, overrides)
		visible := article.Visible(effective, now)
		if visible {
			visibleCount++
		}

		info := map[string]interface{}{
			"id":        effective.ID,
			"title":     effective.Title,
			"excerpt":   effective.Excerpt,
			"category":  effective.Category,
			"read_time": effective.ReadTime,
			"visible":   visible,
			"slug":      article.Slug(effective.Title),
		}
		if effective.PublishDate != nil {
			info["publish_date"] = effective.PublishDate.String()
		}
		if effective.Published != nil {
			info["published"] = *effective.Published
		}

		articles = append(articles, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"articles": articles,
		"total":    len(articles),
		"visible":  visibleCount,
	})
}

func (h *Handler) APISetPublishOverride(c *gin.Context) {
	id, ok := h.articleID(c)
	if !ok {
		return
	}

	var ov article.PublishOverride
	if err := c.ShouldBindJSON(&ov); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid override payload", "details": err.Error()})
		return
	}

	if ov.PublishDate == nil && ov.Published == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Override must set publishDate or published"})
		return
	}

	if err := h.state.SetPublishOverride(id, ov); err != nil {
		slog.Error("Failed to save publish override", "article_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save override"})
		return
	}

	h.refreshSitemap(c)

	c.JSON(http.StatusOK, gin.H{"success": true, "article_id": id})
}

func (h *Handler) APISetContentOverride(c *gin.Context) {
	id, ok := h.articleID(c)
	if !ok {
		return
	}

	var ov article.ContentOverride
	if err := c.ShouldBindJSON(&ov); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid override payload", "details": err.Error()})
		return
	}

	if err := h.state.SetContentOverride(id, ov); err != nil {
		slog.Error("Failed to save content override", "article_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save override"})
		return
	}

	h.refreshSitemap(c)

	c.JSON(http.StatusOK, gin.H{"success": true, "article_id": id})
}

func (h *Handler) APIClearOverrides(c *gin.Context) {
	id, ok := h.articleID(c)
	if !ok {
		return
	}

	if err := h.state.ClearOverrides(id); err != nil {
		slog.Error("Failed to clear overrides", "article_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear overrides"})
		return
	}

	h.refreshSitemap(c)

	c.JSON(http.StatusOK, gin.H{"success": true, "article_id": id})
}

func (h *Handler) APIRegenerateSitemap(c *gin.Context) {
	h.invalidateSitemap(c)

	task := tasks.NewGenerateSitemapTask(true, h.source, h.state, h.builder,
		h.pages, h.baseURL, h.sitemapPath, h.docCache)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing sitemap task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue sitemap task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Sitemap regeneration enqueued",
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func (h *Handler) APIGetSitemapStats(c *gin.Context) {
	visible := article.Resolve(h.source.Articles(), h.state.Overrides(), time.Now())

	stats := sitemap.Stats{
		TotalURLs:    len(h.pages) + len(visible),
		StaticPages:  len(h.pages),
		BlogArticles: len(visible),
	}
	if generated, ok := h.state.SitemapGeneratedAt(); ok {
		stats.LastGenerated = generated.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIImportFeed(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed url", "details": err.Error()})
		return
	}

	task := tasks.NewImportFeedTask(req.URL, h.importer)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing import task", "url", req.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue import task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Feed import enqueued",
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func (h *Handler) articleID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid article id"})
		return 0, false
	}

	if _, ok := h.source.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return 0, false
	}

	return id, true
}

// refreshSitemap drops the cached sitemap document and enqueues a forced
// rebuild, so the served sitemap agrees with the new override state instead
// of waiting out the freshness window.
func (h *Handler) refreshSitemap(c *gin.Context) {
	h.invalidateSitemap(c)

	task := tasks.NewGenerateSitemapTask(true, h.source, h.state, h.builder,
		h.pages, h.baseURL, h.sitemapPath, h.docCache)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing sitemap task", "error", err)
	}
}

// invalidateSitemap drops the cached sitemap document so the next request
// reflects the new override state.
func (h *Handler) invalidateSitemap(c *gin.Context) {
	if h.docCache == nil {
		return
	}
	if err := h.docCache.Delete(c.Request.Context(), tasks.SitemapCacheKey); err != nil {
		slog.Warn("Failed to invalidate sitemap cache", "error", err)
	}
}
