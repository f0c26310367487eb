package storage

import (
	"github.com/redis/go-redis/v9"

	"uaoagenda/internal/config"
	appLog "uaoagenda/internal/log"
)

// Open builds the backend named by cfg.Backend. Misconfiguration falls back
// to memory so the service still starts; only durability is lost.
func Open(cfg config.StorageConfig) (Store, func() error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), noop
	case "file":
		fs, err := NewFileStore(cfg.Dir)
		if err != nil {
			appLog.Error("file storage unavailable; falling back to memory", err, "dir", cfg.Dir)
			return NewMemoryStore(), noop
		}
		return fs, noop
	case "redis":
		if cfg.RedisAddr == "" {
			appLog.Warn("storage backend redis but redis_addr is empty; falling back to memory")
			return NewMemoryStore(), noop
		}
		rs := NewRedisStore(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.KeyPrefix)
		return rs, rs.Close
	default:
		appLog.Warn("unknown storage backend; falling back to memory", "backend", cfg.Backend)
		return NewMemoryStore(), noop
	}
}
