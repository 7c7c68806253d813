package article

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source loads articles from a directory of YAML files and keeps them in an
// in-memory cache, one file per article.
type Source struct {
	dir   string
	mu    sync.RWMutex
	cache map[int]Article
}

func NewSource(dir string) *Source {
	return &Source{
		dir:   dir,
		cache: make(map[int]Article),
	}
}

func (s *Source) Run() error {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(s.dir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		a, err := s.loadFile(file)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		s.mu.Lock()
		s.cache[a.ID] = a
		s.mu.Unlock()

		slog.Debug("Article loaded", "id", a.ID, "title", a.Title)
	}

	return nil
}

// Articles returns all cached articles ordered by id ascending.
func (s *Source) Articles() []Article {
	s.mu.RLock()
	defer s.mu.RUnlock()

	articles := make([]Article, 0, len(s.cache))
	for _, a := range s.cache {
		articles = append(articles, a)
	}
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].ID < articles[j].ID
	})
	return articles
}

func (s *Source) Get(id int) (Article, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.cache[id]
	return a, ok
}

func (s *Source) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// NextID returns the next free article id.
func (s *Source) NextID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	maxID := 0
	for id := range s.cache {
		if id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}

// HasSourceURL reports whether an article was already imported from url.
func (s *Source) HasSourceURL(url string) bool {
	if url == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.cache {
		if a.SourceURL == url {
			return true
		}
	}
	return false
}

// SaveDraft writes a new article YAML file and adds it to the cache.
func (s *Source) SaveDraft(a Article) error {
	if err := s.validate(a); err != nil {
		return err
	}

	data, err := yaml.Marshal(&a)
	if err != nil {
		return fmt.Errorf("failed to marshal article %d: %w", a.ID, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create articles directory: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("article-%d.yml", a.ID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write article file: %w", err)
	}

	s.mu.Lock()
	s.cache[a.ID] = a
	s.mu.Unlock()

	return nil
}

func (s *Source) loadFile(path string) (Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Article{}, fmt.Errorf("failed to read file: %w", err)
	}

	var a Article
	if err := yaml.Unmarshal(data, &a); err != nil {
		return Article{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := s.validate(a); err != nil {
		return Article{}, fmt.Errorf("invalid article %s: %w", path, err)
	}

	return a, nil
}

func (s *Source) validate(a Article) error {
	if a.ID <= 0 {
		return fmt.Errorf("article id must be positive")
	}
	if a.Title == "" {
		return fmt.Errorf("article title is required")
	}
	return nil
}
