package cache

import (
	"context"
	"time"

	"github.com/datalexum/aquawiz-monitor/internal/models"
)

// SnapshotCache stores the latest device snapshot in Redis so the HTTP
// API can serve the last known reading even before the first successful
// poll after a restart.
type SnapshotCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewSnapshotCache creates a SnapshotCache with the given TTL.
func NewSnapshotCache(cache *Cache, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{cache: cache, ttl: ttl}
}

// SetLatest stores the snapshot for a device.
func (s *SnapshotCache) SetLatest(ctx context.Context, snapshot models.UpdateSnapshot) error {
	return s.cache.Set(ctx, SnapshotKey(snapshot.DeviceID), snapshot, s.ttl)
}

// GetLatest retrieves the stored snapshot for a device.
// Returns ErrCacheMiss when no snapshot has been cached.
func (s *SnapshotCache) GetLatest(ctx context.Context, deviceID string) (models.UpdateSnapshot, error) {
	var snapshot models.UpdateSnapshot
	if err := s.cache.Get(ctx, SnapshotKey(deviceID), &snapshot); err != nil {
		return models.UpdateSnapshot{}, err
	}
	return snapshot, nil
}
