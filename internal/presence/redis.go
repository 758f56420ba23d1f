package presence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"openstream/internal/models"
)

// RedisRegistry implements Registry on a Redis hash per slideshow:
// field = principal id, value = JSON presence entry. HSET/HDEL give the
// atomic set-add/set-remove semantics concurrent sessions need.
type RedisRegistry struct {
	client *redis.Client
}

// NewRedisRegistry creates a registry on an existing Redis client.
func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func presenceKey(slideshowID uint) string {
	return fmt.Sprintf("presence:slideshow:%d", slideshowID)
}

func (r *RedisRegistry) Add(ctx context.Context, slideshowID uint, entry models.PresenceEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode presence entry: %w", err)
	}

	if err := r.client.HSet(ctx, presenceKey(slideshowID), entry.ID, payload).Err(); err != nil {
		return fmt.Errorf("failed to register presence: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Remove(ctx context.Context, slideshowID uint, principalID string) error {
	if err := r.client.HDel(ctx, presenceKey(slideshowID), principalID).Err(); err != nil {
		return fmt.Errorf("failed to remove presence: %w", err)
	}
	return nil
}

func (r *RedisRegistry) List(ctx context.Context, slideshowID uint) ([]models.PresenceEntry, error) {
	raw, err := r.client.HGetAll(ctx, presenceKey(slideshowID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list presence: %w", err)
	}

	entries := make([]models.PresenceEntry, 0, len(raw))
	for principalID, payload := range raw {
		var entry models.PresenceEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			// A corrupt value should not hide the rest of the set.
			entry = models.PresenceEntry{ID: principalID, DisplayName: principalID, Initials: "?"}
		}
		entries = append(entries, entry)
	}

	sortEntries(entries)
	return entries, nil
}
