package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/common/models"
)

// ViewCache shares computed dashboard views between service replicas. Entries
// are keyed by dataset ID, so a new load never serves stale views.
type ViewCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewViewCache(client redis.Cmdable, ttl time.Duration) *ViewCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ViewCache{client: client, ttl: ttl}
}

func ViewKey(datasetID string, filters models.FilterSet) string {
	return fmt.Sprintf("view:%s:%s", datasetID, filters.Key())
}

// Get reports ok=false on a miss. Transport errors are returned so callers can
// log them and fall through to the engine.
func (c *ViewCache) Get(ctx context.Context, datasetID string, filters models.FilterSet) (models.DashboardView, bool, error) {
	if c == nil || c.client == nil || datasetID == "" {
		return models.DashboardView{}, false, nil
	}
	key := ViewKey(datasetID, filters)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.DashboardView{}, false, nil
	}
	if err != nil {
		return models.DashboardView{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	var view models.DashboardView
	if err := json.Unmarshal(data, &view); err != nil {
		return models.DashboardView{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return view, true, nil
}

func (c *ViewCache) Set(ctx context.Context, view models.DashboardView) error {
	if c == nil || c.client == nil || view.DatasetID == "" {
		return nil
	}
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	key := ViewKey(view.DatasetID, view.Filters)
	logger.Log.WithFields(map[string]interface{}{
		"key":  key,
		"size": len(data),
	}).Debug("Caching dashboard view")
	return c.client.Set(ctx, key, data, c.ttl).Err()
}
