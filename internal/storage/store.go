// Package storage is the durable key/value layer user state is restored
// from. Values are opaque JSON documents; keys never expire.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	appLog "uaoagenda/internal/log"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// LoadJSON decodes the value under key into dst, which must be a non-nil
// pointer. It reports false, leaving dst untouched, when the key is missing,
// unreadable or corrupt; callers then keep their empty default.
func LoadJSON(ctx context.Context, s Store, key string, dst any) bool {
	if s == nil {
		return false
	}
	b, found, err := s.Get(ctx, key)
	if err != nil {
		appLog.Error("storage read failed; using default", err, "key", key)
		return false
	}
	if !found || len(b) == 0 {
		return false
	}
	// Decode into a fresh value so a partial decode never reaches dst.
	target := reflect.ValueOf(dst)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		appLog.Warn("storage load needs a non-nil pointer", "key", key)
		return false
	}
	fresh := reflect.New(target.Elem().Type())
	if err := json.Unmarshal(b, fresh.Interface()); err != nil {
		appLog.Error("storage value corrupt; using default", err, "key", key)
		return false
	}
	target.Elem().Set(fresh.Elem())
	return true
}

// SaveJSON encodes v under key. Failures are logged and swallowed: the
// in-memory state stays authoritative for the session.
func SaveJSON(ctx context.Context, s Store, key string, v any) {
	if s == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		appLog.Error("storage encode failed", err, "key", key)
		return
	}
	if err := s.Set(ctx, key, b); err != nil {
		appLog.Error("storage write failed; state kept in memory only", err, "key", key)
	}
}

// Clear deletes every key in keys, returning the first failure.
func Clear(ctx context.Context, s Store, keys ...string) error {
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return nil
}
