package api

import (
	"time"

	"github.com/ipotekakrym/blogpub/app/article"
	"github.com/ipotekakrym/blogpub/app/cache"
	"github.com/ipotekakrym/blogpub/app/importer"
	"github.com/ipotekakrym/blogpub/app/sitemap"
	"github.com/ipotekakrym/blogpub/app/store"
	"github.com/ipotekakrym/blogpub/app/tasks"
)

type BuilderInterface interface {
	Run(visible []article.Article, pages []sitemap.StaticPage, baseURL string, today time.Time) string
}

var _ BuilderInterface = (*sitemap.Builder)(nil)

type Handler struct {
	source      *article.Source
	state       *store.State
	builder     *sitemap.Builder
	pages       []sitemap.StaticPage
	scheduler   tasks.TaskSchedulerInterface
	importer    *importer.Importer
	docCache    *cache.Cache
	baseURL     string
	sitemapPath string
}
