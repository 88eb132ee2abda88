package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the complete configuration of the verify service. APP_HOST and
// APP_PORT are read by chi-demo's app.DefaultApp, not here.
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Code      CodeConfig
	Emailer   EmailerConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
}

// Load reads Config from the environment, applying defaults.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return cfg, nil
}
