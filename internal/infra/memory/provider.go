package memory

import (
	"context"
	"encoding/json"

	"trivia-service/internal/domain"
)

// Provider serves category records from an in-memory map (useful for
// tests and the zero-config demo).
type Provider struct {
	records map[string][]byte
}

// NewProvider builds a provider over raw records keyed by storage key.
func NewProvider(records map[string][]byte) *Provider {
	return &Provider{records: records}
}

// NewProviderFromCategories marshals prebuilt categories, keyed by slug.
func NewProviderFromCategories(categories ...domain.Category) *Provider {
	records := make(map[string][]byte, len(categories))
	for _, cat := range categories {
		raw, err := json.Marshal(cat)
		if err != nil {
			continue
		}
		records[cat.Slug] = raw
	}
	return &Provider{records: records}
}

func (p *Provider) LoadCategories(_ context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte, len(p.records))
	for key, raw := range p.records {
		out[key] = raw
	}
	return out, nil
}
