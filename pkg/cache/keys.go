package cache

import "fmt"

// SnapshotKey returns the cache key for a device's latest snapshot.
func SnapshotKey(deviceID string) string {
	return fmt.Sprintf("snapshot:%s", deviceID)
}
