// Package config holds the environment-backed configuration of the verify
// service.
//
// Every struct is read with cleanenv, so each field declares its variable
// name and default in tags:
//
//	cfg, err := config.Load()
//	if err != nil {
//		return err
//	}
//	pool, err := dbutils.NewDbPool(ctx, cfg.Database.ToDbConfig())
//
// Sections:
//   - DatabaseConfig: VERIFY_PG_* connection settings plus persistence selection
//   - RedisConfig: optional Redis used for per-email locks
//   - CodeConfig: hasher choice and request defaults
//   - EmailerConfig: notifier selection and provider settings
//   - JWTConfig: HS256 secret for the auth middleware
//   - RateLimitConfig: issue endpoint limits
package config
