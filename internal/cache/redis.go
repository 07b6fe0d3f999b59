package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"rentshare-backend/internal/config"
	"rentshare-backend/internal/logger"
)

var ErrTokenNotFound = errors.New("token not found or expired")

const (
	linkTokenPrefix = "tg:link:"
	webhookPrefix   = "stripe:event:"
)

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	logger.Info("Redis initialized", "addr", cfg.Addr, "db", cfg.DB)
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// LinkTokenStore keeps one-time tokens that bind a chat to a profile.
type LinkTokenStore struct {
	rdb *redis.Client
}

func NewLinkTokenStore(rdb *redis.Client) *LinkTokenStore {
	return &LinkTokenStore{rdb: rdb}
}

func (s *LinkTokenStore) Put(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, linkTokenPrefix+token, userID, ttl).Err(); err != nil {
		return fmt.Errorf("store link token: %w", err)
	}
	return nil
}

// Consume returns the token's user id and deletes it in the same command,
// so a token can be redeemed once.
func (s *LinkTokenStore) Consume(ctx context.Context, token string) (string, error) {
	userID, err := s.rdb.GetDel(ctx, linkTokenPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume link token: %w", err)
	}
	return userID, nil
}

// EventDeduper remembers processed webhook event ids.
type EventDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewEventDeduper(rdb *redis.Client, ttl time.Duration) *EventDeduper {
	return &EventDeduper{rdb: rdb, ttl: ttl}
}

// FirstSeen records eventID and reports whether it was new.
func (d *EventDeduper) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, webhookPrefix+eventID, time.Now().UTC().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	return ok, nil
}

// Forget drops eventID so a redelivery is processed again.
func (d *EventDeduper) Forget(ctx context.Context, eventID string) error {
	return d.rdb.Del(ctx, webhookPrefix+eventID).Err()
}
