package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/autopool/service-rides/internal/common/domain"
)

const locationTTL = 5 * time.Minute

// UserLocation is a user's last reported position.
type UserLocation struct {
	UserID    uuid.UUID `json:"user_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// RedisLocationStore keeps last-known user positions in Redis with a TTL,
// so stale positions age out without a sweeper.
type RedisLocationStore struct {
	client *redis.Client
}

// NewRedisLocationStore creates a new RedisLocationStore.
func NewRedisLocationStore(client *redis.Client) *RedisLocationStore {
	return &RedisLocationStore{client: client}
}

func locationKey(userID uuid.UUID) string {
	return fmt.Sprintf("rides:location:%s", userID)
}

// Set stores the user's position, replacing any previous one.
func (s *RedisLocationStore) Set(ctx context.Context, loc UserLocation) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("failed to marshal location: %w", err)
	}
	if err := s.client.Set(ctx, locationKey(loc.UserID), data, locationTTL).Err(); err != nil {
		return fmt.Errorf("failed to store location: %w", err)
	}
	return nil
}

// Get retrieves the user's last reported position.
func (s *RedisLocationStore) Get(ctx context.Context, userID uuid.UUID) (UserLocation, error) {
	data, err := s.client.Get(ctx, locationKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return UserLocation{}, domain.NewNotFoundError("Location", userID.String())
		}
		return UserLocation{}, fmt.Errorf("failed to load location: %w", err)
	}

	var loc UserLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return UserLocation{}, fmt.Errorf("failed to unmarshal location: %w", err)
	}
	return loc, nil
}
