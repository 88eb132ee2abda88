package config

// JWTConfig holds the key used to verify caller tokens.
type JWTConfig struct {
	Secret string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
}
