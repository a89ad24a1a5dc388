package reportcache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const uploadPrefix = "bookreports:upload:"

// ErrUploadNotFound is returned when a stored upload expired or was already taken.
var ErrUploadNotFound = errors.New("reportcache: upload not found")

// PutUpload stores raw file bytes for a background job and returns the handle.
func (c *Cache) PutUpload(ctx context.Context, data []byte, ttl time.Duration) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("reportcache: redis required for uploads")
	}
	handle := uuid.NewString()
	if err := c.client.Set(ctx, uploadPrefix+handle, data, ttl).Err(); err != nil {
		return "", err
	}
	return handle, nil
}

// TakeUpload reads and deletes a stored upload.
func (c *Cache) TakeUpload(ctx context.Context, handle string) ([]byte, error) {
	if c == nil || c.client == nil {
		return nil, ErrUploadNotFound
	}
	data, err := c.client.GetDel(ctx, uploadPrefix+handle).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUploadNotFound
	}
	return data, err
}

// Client exposes the underlying redis client, nil when caching is disabled.
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}
