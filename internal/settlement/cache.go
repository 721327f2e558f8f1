package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hvacdesk/hvacdesk/internal/platform/cache"
)

const summaryTTL = 10 * time.Minute

// SummaryCache stores computed monthly summaries. Derived order status is
// never cached, only the billing aggregate, which changes solely through
// settlement transitions.
type SummaryCache struct {
	client *redis.Client
}

// NewSummaryCache constructs SummaryCache. A nil client disables caching.
func NewSummaryCache(client *redis.Client) *SummaryCache {
	return &SummaryCache{client: client}
}

func summaryKey(month string) string {
	return fmt.Sprintf("settlement:summary:%s", month)
}

func (c *SummaryCache) Get(ctx context.Context, month string) (*MonthlySummary, error) {
	if c.client == nil {
		return nil, cache.ErrMiss
	}
	var summary MonthlySummary
	if err := cache.GetJSON(ctx, c.client, summaryKey(month), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *SummaryCache) Set(ctx context.Context, summary *MonthlySummary) error {
	if c.client == nil {
		return nil
	}
	return cache.SetJSON(ctx, c.client, summaryKey(summary.Month), summary, summaryTTL)
}

// Invalidate drops the cached summaries for the given months. Called after
// every settlement transition that touches them.
func (c *SummaryCache) Invalidate(ctx context.Context, months ...string) error {
	if c.client == nil || len(months) == 0 {
		return nil
	}
	keys := make([]string, 0, len(months))
	for _, m := range months {
		if m == "" {
			continue
		}
		keys = append(keys, summaryKey(m))
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
