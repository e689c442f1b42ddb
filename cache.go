package netident

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	recordSuffix = ".txt"
	expirySuffix = ".meta"
)

// Cache is a key to string cache with optional expiry on top of a Store.
//
// Each key maps to a value record and an optional sibling expiry record
// holding an absolute Unix timestamp in seconds. Expired entries are deleted
// lazily by Load.
//
// Cache holds no mutable state of its own. Concurrent writers to the same key
// race without coordination; the last full overwrite wins.
type Cache struct {
	store Store
	now   func() time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock replaces the time source used for expiry decisions.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache creates a Cache over store. A nil store selects a FileStore in
// DefaultCacheDir.
func NewCache(store Store, opts ...CacheOption) *Cache {
	if store == nil {
		store = NewFileStore("")
	}

	c := &Cache{store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the value stored under key.
//
// The boolean is false when the key is absent, stored empty, or expired. An
// expired entry is removed from the store as a side effect. Storage failures
// are returned as *CacheError.
func (c *Cache) Load(ctx context.Context, key string) (string, bool, error) {
	name := storageName(key)
	expiryName := name + expirySuffix

	raw, err := c.store.Read(ctx, expiryName)
	switch {
	case err == nil:
		if c.expired(raw) {
			if err := c.remove(ctx, key, name, expiryName); err != nil {
				return "", false, err
			}
			return "", false, nil
		}
	case errors.Is(err, ErrEntryNotFound):
	default:
		return "", false, &CacheError{Op: "load", Key: key, Err: err}
	}

	data, err := c.store.Read(ctx, name)
	if errors.Is(err, ErrEntryNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &CacheError{Op: "load", Key: key, Err: err}
	}
	if len(data) == 0 {
		return "", false, nil
	}

	return string(data), true, nil
}

// Save stores value under key.
//
// A nil value deletes the key together with its expiry record. A non-nil ttl
// records an absolute expiry of now+ttl, replacing any earlier one; a nil ttl
// makes the value permanent and clears any earlier expiry.
func (c *Cache) Save(ctx context.Context, key string, value *string, ttl *time.Duration) error {
	name := storageName(key)
	expiryName := name + expirySuffix

	if value == nil {
		return c.remove(ctx, key, name, expiryName)
	}

	if ttl == nil {
		if err := c.store.Write(ctx, name, []byte(*value)); err != nil {
			return &CacheError{Op: "save", Key: key, Err: err}
		}
		if err := c.store.Delete(ctx, expiryName); err != nil {
			return &CacheError{Op: "save", Key: key, Err: err}
		}
		return nil
	}

	// The expiry record goes first so that a value is never left behind
	// without one.
	expiresAt := c.now().Add(*ttl).Unix()
	if err := c.store.Write(ctx, expiryName, []byte(strconv.FormatInt(expiresAt, 10))); err != nil {
		_ = c.store.Delete(ctx, name)
		return &CacheError{Op: "save", Key: key, Err: err}
	}
	if err := c.store.Write(ctx, name, []byte(*value)); err != nil {
		return &CacheError{Op: "save", Key: key, Err: err}
	}

	return nil
}

// Set stores value under key for ttl.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.Save(ctx, key, &value, &ttl)
}

// SetPermanent stores value under key without expiry.
func (c *Cache) SetPermanent(ctx context.Context, key, value string) error {
	return c.Save(ctx, key, &value, nil)
}

// Delete removes key and its expiry record.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.Save(ctx, key, nil, nil)
}

// expired treats unreadable expiry records as expired. An entry stays live
// through the second its expiry record names.
func (c *Cache) expired(raw []byte) bool {
	expiresAt, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return true
	}
	return expiresAt < c.now().Unix()
}

func (c *Cache) remove(ctx context.Context, key, name, expiryName string) error {
	if err := c.store.Delete(ctx, name); err != nil {
		return &CacheError{Op: "delete", Key: key, Err: err}
	}
	if err := c.store.Delete(ctx, expiryName); err != nil {
		return &CacheError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// storageName derives a filesystem-safe record name from a logical key.
func storageName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:]) + recordSuffix
}
