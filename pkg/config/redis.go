package config

import (
	"fmt"
	"time"
)

// RedisConfig enables the Redis-backed per-email lock. When Enabled is false
// locks are held in process memory.
type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED" env-default:"false"`
	Host     string        `env:"REDIS_HOST" env-default:"localhost"`
	Port     int           `env:"REDIS_PORT" env-default:"6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	Prefix   string        `env:"REDIS_PREFIX" env-default:"verify"`
	LockTTL  time.Duration `env:"REDIS_LOCK_TTL" env-default:"10s"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
