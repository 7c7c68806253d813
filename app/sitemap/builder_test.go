package sitemap

import (
	"strings"
	"testing"
	"time"

	"github.com/ipotekakrym/blogpub/app/article"
	"github.com/ipotekakrym/blogpub/app/store"
)

const testBaseURL = "https://ипотекакрым.рф"

func testArticles() []article.Article {
	date1 := article.NewDate(2025, 8, 20)
	date2 := article.NewDate(2025, 5, 5)
	published := true
	return []article.Article{
		{ID: 2, Title: "Ставки по ипотеке", PublishDate: &date1},
		{ID: 5, Title: "Налоговый вычет", PublishDate: &date2},
		{ID: 4, Title: "Без даты", Published: &published},
	}
}

func TestBuilderStructure(t *testing.T) {
	builder := NewBuilder()
	today := time.Date(2025, 9, 1, 15, 0, 0, 0, time.UTC)

	xml := builder.Run(testArticles(), DefaultStaticPages(), testBaseURL, today)

	if !strings.HasPrefix(xml, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Error("Sitemap should start with the XML declaration")
	}
	if !strings.Contains(xml, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`) {
		t.Error("Sitemap should declare the sitemap protocol namespace")
	}
	if !strings.HasSuffix(xml, "</urlset>") {
		t.Error("Sitemap should end with the closing urlset tag")
	}
}

func TestBuilderEntryCount(t *testing.T) {
	builder := NewBuilder()
	pages := DefaultStaticPages()
	articles := testArticles()

	xml := builder.Run(articles, pages, testBaseURL, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))

	count := strings.Count(xml, "<url>")
	expected := len(pages) + len(articles)
	if count != expected {
		t.Errorf("Expected %d url entries (%d static + %d articles), got %d",
			expected, len(pages), len(articles), count)
	}
	if strings.Count(xml, "</url>") != expected {
		t.Error("Every url entry should be closed")
	}
}

func TestBuilderEntryOrder(t *testing.T) {
	builder := NewBuilder()
	xml := builder.Run(testArticles(), DefaultStaticPages(), testBaseURL, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))

	home := strings.Index(xml, "<loc>https://ипотекакрым.рф/</loc>")
	register := strings.Index(xml, "<loc>https://ипотекакрым.рф/register</loc>")
	privacy := strings.Index(xml, "<loc>https://ипотекакрым.рф/privacy-policy</loc>")
	first := strings.Index(xml, "#blog-2-")
	second := strings.Index(xml, "#blog-5-")
	third := strings.Index(xml, "#blog-4-")

	for name, idx := range map[string]int{
		"home": home, "register": register, "privacy": privacy,
		"article 2": first, "article 5": second, "article 4": third,
	} {
		if idx < 0 {
			t.Fatalf("Sitemap is missing the %s entry", name)
		}
	}

	if !(home < register && register < privacy && privacy < first && first < second && second < third) {
		t.Error("Entries should be ordered static pages first, then articles in input order")
	}
}

func TestBuilderStaticPageAttributes(t *testing.T) {
	builder := NewBuilder()
	today := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	xml := builder.Run(nil, DefaultStaticPages(), testBaseURL, today)

	expectations := []string{
		"<changefreq>daily</changefreq>",
		"<priority>1</priority>",
		"<changefreq>monthly</changefreq>",
		"<priority>0.8</priority>",
		"<changefreq>yearly</changefreq>",
		"<priority>0.3</priority>",
		"<lastmod>2025-09-01</lastmod>",
	}
	for _, want := range expectations {
		if !strings.Contains(xml, want) {
			t.Errorf("Sitemap should contain %s", want)
		}
	}
}

func TestBuilderArticleAttributes(t *testing.T) {
	builder := NewBuilder()
	today := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	xml := builder.Run(testArticles(), nil, testBaseURL, today)

	if !strings.Contains(xml, "<changefreq>weekly</changefreq>") {
		t.Error("Article entries should use weekly change frequency")
	}
	if !strings.Contains(xml, "<priority>0.7</priority>") {
		t.Error("Article entries should use priority 0.7")
	}
	if !strings.Contains(xml, "<lastmod>2025-08-20</lastmod>") {
		t.Error("Article lastmod should use the publish date")
	}
	// Article 4 has no publish date: lastmod falls back to today.
	if !strings.Contains(xml, "<lastmod>2025-09-01</lastmod>") {
		t.Error("Dateless article lastmod should fall back to today")
	}
	if !strings.Contains(xml, "<loc>https://ипотекакрым.рф/#blog-2-ставки-по-ипотеке</loc>") {
		t.Error("Article loc should combine base URL, id and slug")
	}
}

func TestShouldRegenerate(t *testing.T) {
	state := store.NewState(store.NewMemory())
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	if !ShouldRegenerate(state, now) {
		t.Error("Missing generation timestamp should trigger a rebuild")
	}

	state.SetSitemapGeneratedAt(now.Add(-1 * time.Hour))
	if ShouldRegenerate(state, now) {
		t.Error("Fresh sitemap should not trigger a rebuild")
	}

	// The sitemap is considered stale at exactly 24h, not just past it.
	state.SetSitemapGeneratedAt(now.Add(-RegenerateAfter))
	if !ShouldRegenerate(state, now) {
		t.Error("Sitemap aged exactly 24h should trigger a rebuild")
	}

	state.SetSitemapGeneratedAt(now.Add(-25 * time.Hour))
	if !ShouldRegenerate(state, now) {
		t.Error("Stale sitemap should trigger a rebuild")
	}
}
