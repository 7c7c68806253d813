package sitemap

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/ipotekakrym/blogpub/app/article"
	"github.com/ipotekakrym/blogpub/app/store"
)

const dateLayout = "2006-01-02"

// RegenerateAfter is the advisory freshness window: a rebuild is skipped
// when the last recorded generation is younger than this. Forced rebuilds
// bypass the check.
const RegenerateAfter = 24 * time.Hour

// StaticPage is a fixed site page carried into every sitemap.
type StaticPage struct {
	Path       string  `yaml:"path"`
	ChangeFreq string  `yaml:"changefreq"`
	Priority   float64 `yaml:"priority"`
}

func DefaultStaticPages() []StaticPage {
	return []StaticPage{
		{Path: "/", ChangeFreq: "daily", Priority: 1.0},
		{Path: "/register", ChangeFreq: "monthly", Priority: 0.8},
		{Path: "/privacy-policy", ChangeFreq: "yearly", Priority: 0.3},
	}
}

type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// Run renders the sitemap document for the given visible articles. Entries
// are ordered static pages first, in input order, then articles in resolver
// order. Every visible article produces exactly one url entry; colliding
// slugs are emitted as-is.
func (b *Builder) Run(visible []article.Article, pages []StaticPage, baseURL string, today time.Time) string {
	base := strings.TrimRight(baseURL, "/")
	todayStr := today.Format(dateLayout)

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	buf.WriteString("\n")

	for _, page := range pages {
		b.writeURL(&buf, base+page.Path, todayStr, page.ChangeFreq, page.Priority)
	}

	for _, a := range visible {
		lastmod := todayStr
		if a.PublishDate != nil {
			lastmod = a.PublishDate.String()
		}
		loc := base + "/" + article.Fragment(a.ID, a.Title)
		b.writeURL(&buf, loc, lastmod, "weekly", 0.7)
	}

	buf.WriteString("</urlset>")

	return buf.String()
}

func (b *Builder) writeURL(buf *bytes.Buffer, loc, lastmod, changefreq string, priority float64) {
	buf.WriteString("  <url>\n")
	b.writeElement(buf, "loc", loc, 4)
	b.writeElement(buf, "lastmod", lastmod, 4)
	b.writeElement(buf, "changefreq", changefreq, 4)
	b.writeElement(buf, "priority", strconv.FormatFloat(priority, 'f', -1, 64), 4)
	buf.WriteString("  </url>\n")
}

func (b *Builder) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

// ShouldRegenerate reports whether the sitemap is due for a rebuild per the
// freshness policy.
func ShouldRegenerate(state *store.State, now time.Time) bool {
	last, ok := state.SitemapGeneratedAt()
	if !ok {
		return true
	}
	return now.Sub(last) >= RegenerateAfter
}

// Stats summarizes the current sitemap contents.
type Stats struct {
	TotalURLs     int    `json:"total_urls"`
	StaticPages   int    `json:"static_pages"`
	BlogArticles  int    `json:"blog_articles"`
	LastGenerated string `json:"last_generated,omitempty"`
}
