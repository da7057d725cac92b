package redis

import (
	"context"
	"math/rand"
	"time"

	"trivia-service/internal/app"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const recordsKey = "categories:records"

// Provider caches category records in Redis (one hash, field per storage
// key) and falls back to the wrapped provider when the hash is empty or
// expired. It lets several server instances share one enumeration of a
// slow backing store.
type Provider struct {
	client *redis.Client
	inner  app.CategoryProvider
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewProvider(client *redis.Client, inner app.CategoryProvider, ttl time.Duration) *Provider {
	return &Provider{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *Provider) LoadCategories(ctx context.Context) (map[string][]byte, error) {
	if cached, err := p.client.HGetAll(ctx, recordsKey).Result(); err == nil && len(cached) > 0 {
		return rawRecords(cached), nil
	}

	result, err, _ := p.sf.Do(recordsKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if cached, err := p.client.HGetAll(ctx, recordsKey).Result(); err == nil && len(cached) > 0 {
			return rawRecords(cached), nil
		}

		records, err := p.inner.LoadCategories(ctx)
		if err != nil {
			return nil, err
		}

		if len(records) > 0 {
			pipe := p.client.Pipeline()
			for key, raw := range records {
				pipe.HSet(ctx, recordsKey, key, raw)
			}
			if p.ttl > 0 {
				pipe.Expire(ctx, recordsKey, p.ttlWithJitter())
			}
			// Best effort: a failed cache fill still serves the load.
			_, _ = pipe.Exec(ctx)
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string][]byte), nil
}

// Invalidate drops the cached records so the next load re-enumerates.
func (p *Provider) Invalidate(ctx context.Context) error {
	return p.client.Del(ctx, recordsKey).Err()
}

func rawRecords(cached map[string]string) map[string][]byte {
	records := make(map[string][]byte, len(cached))
	for key, raw := range cached {
		records[key] = []byte(raw)
	}
	return records
}

func (p *Provider) ttlWithJitter() time.Duration {
	if p.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(p.ttl) / 10
	return p.ttl + time.Duration(p.rnd.Int63n(jitterMax+1))
}
