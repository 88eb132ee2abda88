package config

// CodeConfig selects the code hasher and the values applied when a request
// omits them.
type CodeConfig struct {
	Hasher                    string `env:"CODE_HASHER" env-default:"bcrypt"`
	DefaultLength             int    `env:"CODE_DEFAULT_LENGTH" env-default:"6"`
	DefaultMaxAttempts        int    `env:"CODE_DEFAULT_MAX_ATTEMPTS" env-default:"5"`
	DefaultMaxDurationMinutes int    `env:"CODE_DEFAULT_MAX_DURATION_MINUTES" env-default:"5"`
	Subject                   string `env:"CODE_SUBJECT" env-default:"Verification Code"`
}
