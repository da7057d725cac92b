package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"trivia-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

const (
	// legacyKey is the historical storage key whose record predates slugs.
	legacyKey = "questions"
	// legacySlug is the fixed slug the legacy record is remapped to.
	legacySlug = "world-geo"

	legacyTitle = "World Geography"
)

// CategoryProvider enumerates raw category definition records from a
// backing store (filesystem, Postgres, a cache in front of either).
// Records are keyed by their storage key: filename without extension,
// slug column, etc.
type CategoryProvider interface {
	LoadCategories(ctx context.Context) (map[string][]byte, error)
}

// Registry is the in-memory category cache. It is rebuilt wholesale from
// the provider; a lookup miss triggers exactly one reload-and-retry so
// definitions added after startup are picked up without a restart.
type Registry struct {
	provider CategoryProvider
	sf       singleflight.Group

	mu     sync.RWMutex
	loaded bool
	cache  map[string]domain.Category
}

func NewRegistry(provider CategoryProvider) *Registry {
	return &Registry{
		provider: provider,
		cache:    make(map[string]domain.Category),
	}
}

// normalizeCategory parses a raw definition record into a Category. The
// slug comes from the record itself, falling back to the storage key;
// the reserved legacy key is remapped to the world-geo slug with a
// default title.
func normalizeCategory(key string, raw []byte) (domain.Category, error) {
	var cat domain.Category
	if err := json.Unmarshal(raw, &cat); err != nil {
		return domain.Category{}, fmt.Errorf("parse category record %q: %w", key, err)
	}
	if strings.EqualFold(key, legacyKey) {
		cat.Slug = legacySlug
		if cat.Title == "" {
			cat.Title = legacyTitle
		}
		return cat, nil
	}
	if cat.Slug == "" {
		cat.Slug = key
	}
	return cat, nil
}

// Load rebuilds the cache from the provider. Malformed records are
// skipped; a record that fails to parse must never take the whole
// registry down with it. If a modern record already claims the world-geo
// slug, the legacy-keyed record is discarded so no two categories share
// a slug.
func (r *Registry) Load(ctx context.Context) error {
	records, err := r.provider.LoadCategories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	cache := make(map[string]domain.Category, len(records))
	for key, raw := range records {
		if strings.EqualFold(key, legacyKey) {
			continue // second pass, modern records win the slug
		}
		cat, err := normalizeCategory(key, raw)
		if err != nil {
			continue
		}
		cache[cat.Slug] = cat
	}
	for key, raw := range records {
		if !strings.EqualFold(key, legacyKey) {
			continue
		}
		if _, taken := cache[legacySlug]; taken {
			continue
		}
		cat, err := normalizeCategory(key, raw)
		if err != nil {
			continue
		}
		cache[cat.Slug] = cat
	}

	r.mu.Lock()
	r.cache = cache
	r.loaded = true
	r.mu.Unlock()
	return nil
}

// Get returns the category for slug. On a cache miss it reloads from the
// provider once and retries before reporting ErrCategoryNotFound.
func (r *Registry) Get(ctx context.Context, slug string) (domain.Category, error) {
	r.mu.RLock()
	cat, ok := r.cache[slug]
	loaded := r.loaded
	r.mu.RUnlock()
	if ok && loaded {
		return cat, nil
	}

	// Concurrent misses collapse into one provider enumeration.
	_, err, _ := r.sf.Do("reload", func() (interface{}, error) {
		return nil, r.Load(ctx)
	})
	if err != nil {
		return domain.Category{}, err
	}

	r.mu.RLock()
	cat, ok = r.cache[slug]
	r.mu.RUnlock()
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return cat, nil
}

// List returns a summary for every known category, sorted by slug.
func (r *Registry) List(ctx context.Context) ([]domain.CategorySummary, error) {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if !loaded {
		if err := r.Load(ctx); err != nil {
			return nil, err
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	summaries := make([]domain.CategorySummary, 0, len(r.cache))
	for _, cat := range r.cache {
		title := cat.Title
		if title == "" {
			title = cat.Slug
		}
		summaries = append(summaries, domain.CategorySummary{
			Slug:        cat.Slug,
			Title:       title,
			Description: cat.Description,
			Count:       len(cat.Questions),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Slug < summaries[j].Slug
	})
	return summaries, nil
}
