package reportcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "bookreports"
	versionPrefix = "bookreports:version"
	// BumpChannel carries "<companyID>:<version>" after ledger data changes.
	BumpChannel = "bookreports.bump"
)

// Cache stores report payloads under per-company versioned keys.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New instantiates the cache helper. A nil client disables caching.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func versionKey(companyID int64) string {
	return versionPrefix + ":" + strconv.FormatInt(companyID, 10)
}

// Version returns the current cache version of a company, initialising when missing.
func (c *Cache) Version(ctx context.Context, companyID int64) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := versionKey(companyID)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		if err := c.client.Set(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		ver = 1
	}
	return ver, nil
}

// ReportKey composes a versioned key for a report of one company.
func (c *Cache) ReportKey(ctx context.Context, kind string, companyID int64, parts ...string) (string, error) {
	base := strings.Join(append([]string{keyPrefix, kind, strconv.FormatInt(companyID, 10)}, parts...), ":")
	if c == nil || c.client == nil {
		return base, nil
	}
	ver, err := c.Version(ctx, companyID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", base, ver), nil
}

// Lookup decodes a cached value into dest and reports whether it was present.
func (c *Cache) Lookup(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("reportcache: decode %s: %w", key, err)
	}
	return true, nil
}

// Store writes a value under key with the cache TTL.
func (c *Cache) Store(ctx context.Context, key string, value interface{}) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Bump invalidates a company's reports and notifies other instances.
func (c *Cache) Bump(ctx context.Context, companyID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, versionKey(companyID)).Result()
	if err != nil {
		return err
	}
	payload := fmt.Sprintf("%d:%d", companyID, ver)
	return c.client.Publish(ctx, BumpChannel, payload).Err()
}

// ListenForInvalidation applies bump notifications published by other writers until ctx
// is done. Messages carry "<companyID>:<version>"; a bare company id increments.
func (c *Cache) ListenForInvalidation(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, BumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				c.apply(ctx, msg.Payload)
			}
		}
	}()
	return nil
}

func (c *Cache) apply(ctx context.Context, payload string) {
	companyRaw, verRaw, hasVersion := strings.Cut(payload, ":")
	companyID, err := strconv.ParseInt(companyRaw, 10, 64)
	if err != nil {
		return
	}
	key := versionKey(companyID)
	if hasVersion {
		if ver, err := strconv.ParseInt(verRaw, 10, 64); err == nil {
			current, _ := c.client.Get(ctx, key).Int64()
			if ver > current {
				_ = c.client.Set(ctx, key, ver, 0).Err()
			}
			return
		}
	}
	_ = c.client.Incr(ctx, key).Err()
}
