package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/ipotekakrym/blogpub/app/article"
)

// Persisted state keys.
const (
	KeyPublishOverrides = "article_publish_overrides"
	KeyContentOverrides = "article_content_overrides"
	KeyNotifiedIDs      = "published_articles_ids"
	KeySitemapGenerated = "sitemap_last_generated"
	KeyIndexNowCache    = "indexnow_notifications"
)

// State provides typed access to the publication state persisted in a Store.
// Malformed persisted JSON always degrades to an empty structure with a
// warning log line; it is never surfaced as an error.
type State struct {
	store Store
}

func NewState(store Store) *State {
	return &State{store: store}
}

func (st *State) loadJSON(key string, v interface{}) {
	raw, ok, err := st.store.Get(key)
	if err != nil {
		slog.Warn("Failed to read persisted state, using empty value", "key", key, "error", err)
		return
	}
	if !ok || raw == "" {
		return
	}
	// Decode into a fresh value first: an unmarshal error mid-document must
	// not leave partially applied entries in the caller's value.
	fresh := reflect.New(reflect.TypeOf(v).Elem())
	if err := json.Unmarshal([]byte(raw), fresh.Interface()); err != nil {
		slog.Warn("Malformed persisted state, using empty value", "key", key, "error", err)
		return
	}
	if fresh.Elem().Kind() == reflect.Map && fresh.Elem().IsNil() {
		// A persisted JSON null keeps the caller's empty map.
		return
	}
	reflect.ValueOf(v).Elem().Set(fresh.Elem())
}

func (st *State) saveJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal state for key %s: %w", key, err)
	}
	if err := st.store.Set(key, string(data)); err != nil {
		return fmt.Errorf("failed to persist state for key %s: %w", key, err)
	}
	return nil
}

// Overrides loads both override maps. Missing or corrupt maps come back empty.
func (st *State) Overrides() article.Overrides {
	publish := make(map[int]article.PublishOverride)
	content := make(map[int]article.ContentOverride)
	st.loadJSON(KeyPublishOverrides, &publish)
	st.loadJSON(KeyContentOverrides, &content)
	return article.Overrides{Publish: publish, Content: content}
}

// SetPublishOverride merges non-nil fields of ov into the stored override
// record for id, matching the field-level patch semantics of the admin panel.
func (st *State) SetPublishOverride(id int, ov article.PublishOverride) error {
	overrides := make(map[int]article.PublishOverride)
	st.loadJSON(KeyPublishOverrides, &overrides)

	existing := overrides[id]
	if ov.PublishDate != nil {
		existing.PublishDate = ov.PublishDate
	}
	if ov.Published != nil {
		existing.Published = ov.Published
	}
	overrides[id] = existing

	return st.saveJSON(KeyPublishOverrides, overrides)
}

// SetContentOverride merges non-nil fields of ov into the stored content
// override record for id.
func (st *State) SetContentOverride(id int, ov article.ContentOverride) error {
	overrides := make(map[int]article.ContentOverride)
	st.loadJSON(KeyContentOverrides, &overrides)

	existing := overrides[id]
	if ov.Title != nil {
		existing.Title = ov.Title
	}
	if ov.Excerpt != nil {
		existing.Excerpt = ov.Excerpt
	}
	if ov.Content != nil {
		existing.Content = ov.Content
	}
	if ov.Category != nil {
		existing.Category = ov.Category
	}
	if ov.ReadTime != nil {
		existing.ReadTime = ov.ReadTime
	}
	overrides[id] = existing

	return st.saveJSON(KeyContentOverrides, overrides)
}

// ClearOverrides removes both override records for id.
func (st *State) ClearOverrides(id int) error {
	publish := make(map[int]article.PublishOverride)
	st.loadJSON(KeyPublishOverrides, &publish)
	delete(publish, id)
	if err := st.saveJSON(KeyPublishOverrides, publish); err != nil {
		return err
	}

	content := make(map[int]article.ContentOverride)
	st.loadJSON(KeyContentOverrides, &content)
	delete(content, id)
	return st.saveJSON(KeyContentOverrides, content)
}

// NotifiedIDs returns the append-only set of article ids already dispatched
// via newsletter and search-engine notification.
func (st *State) NotifiedIDs() []int {
	ids := make([]int, 0)
	st.loadJSON(KeyNotifiedIDs, &ids)
	return ids
}

func (st *State) SaveNotifiedIDs(ids []int) error {
	return st.saveJSON(KeyNotifiedIDs, ids)
}

// SitemapGeneratedAt returns the last recorded sitemap generation time.
func (st *State) SitemapGeneratedAt() (time.Time, bool) {
	raw, ok, err := st.store.Get(KeySitemapGenerated)
	if err != nil {
		slog.Warn("Failed to read sitemap generation timestamp", "error", err)
		return time.Time{}, false
	}
	if !ok || raw == "" {
		return time.Time{}, false
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		slog.Warn("Malformed sitemap generation timestamp", "value", raw, "error", err)
		return time.Time{}, false
	}
	return t, true
}

func (st *State) SetSitemapGeneratedAt(t time.Time) error {
	if err := st.store.Set(KeySitemapGenerated, t.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to persist sitemap generation timestamp: %w", err)
	}
	return nil
}

// IndexNowCache returns the per-URL notification timestamps (unix
// milliseconds) used to deduplicate search-engine pings.
func (st *State) IndexNowCache() map[string]int64 {
	cache := make(map[string]int64)
	st.loadJSON(KeyIndexNowCache, &cache)
	return cache
}

func (st *State) SaveIndexNowCache(cache map[string]int64) error {
	return st.saveJSON(KeyIndexNowCache, cache)
}
