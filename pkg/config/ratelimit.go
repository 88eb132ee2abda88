package config

import (
	"time"

	"github.com/tendant/simple-verify/pkg/ratelimit"
)

// RateLimitConfig limits the code issue endpoints.
type RateLimitConfig struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	IssuePerMinute int           `env:"RATE_LIMIT_ISSUE_PER_MINUTE" env-default:"30"`
	OwnerPerMinute int           `env:"RATE_LIMIT_OWNER_PER_MINUTE" env-default:"10"`
	BucketTTL      time.Duration `env:"RATE_LIMIT_BUCKET_TTL" env-default:"1h"`
}

func (r RateLimitConfig) ToRateLimitConfig() ratelimit.Config {
	return ratelimit.Config{
		PerIPPerMinute:    r.IssuePerMinute,
		PerOwnerPerMinute: r.OwnerPerMinute,
		BucketTTL:         r.BucketTTL,
	}
}
