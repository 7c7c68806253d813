package article

import (
	"sort"
	"time"
)

// Merge returns a copy of the base article with override fields applied.
// An override field wins whenever it is present, regardless of value.
func Merge(base Article, ov Overrides) Article {
	merged := base

	if pub, ok := ov.Publish[base.ID]; ok {
		if pub.PublishDate != nil {
			merged.PublishDate = pub.PublishDate
		}
		if pub.Published != nil {
			merged.Published = pub.Published
		}
	}

	if content, ok := ov.Content[base.ID]; ok {
		if content.Title != nil {
			merged.Title = *content.Title
		}
		if content.Excerpt != nil {
			merged.Excerpt = *content.Excerpt
		}
		if content.Content != nil {
			merged.Content = *content.Content
		}
		if content.Category != nil {
			merged.Category = *content.Category
		}
		if content.ReadTime != nil {
			merged.ReadTime = *content.ReadTime
		}
	}

	return merged
}

// Visible reports whether an effective article is publicly visible as of
// now. The predicate is monotonic in now: once an article becomes visible
// it stays visible for every later date.
func Visible(a Article, now time.Time) bool {
	if a.Published != nil && *a.Published {
		return true
	}

	if a.PublishDate != nil {
		return !midnight(a.PublishDate.Time).After(midnight(now))
	}

	return false
}

// Resolve merges overrides into each article, filters by the visibility
// predicate with now truncated to midnight, and sorts the surviving set by
// effective publish date descending. Articles without a publish date sort
// as the oldest possible date, to the end. Inputs are never mutated.
func Resolve(articles []Article, ov Overrides, now time.Time) []Article {
	visible := make([]Article, 0, len(articles))

	for _, a := range articles {
		merged := Merge(a, ov)
		if Visible(merged, now) {
			visible = append(visible, merged)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return sortDate(visible[i]).After(sortDate(visible[j]))
	})

	return visible
}

func sortDate(a Article) time.Time {
	if a.PublishDate == nil {
		return time.Unix(0, 0).UTC()
	}
	return midnight(a.PublishDate.Time)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
