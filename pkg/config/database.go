package config

import (
	"fmt"

	dbutils "github.com/tendant/db-utils/db"
)

// DatabaseConfig holds persistence selection and PostgreSQL settings.
type DatabaseConfig struct {
	PersistenceType string `env:"PERSISTENCE_TYPE" env-default:"memory"`
	DataDir         string `env:"DATA_DIR" env-default:"./data"`
	MigrateOnStart  bool   `env:"MIGRATE_ON_START" env-default:"false"`

	Host     string `env:"VERIFY_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"VERIFY_PG_PORT" env-default:"5432"`
	Database string `env:"VERIFY_PG_DATABASE" env-default:"verify_db"`
	User     string `env:"VERIFY_PG_USER" env-default:"verify"`
	Password string `env:"VERIFY_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"VERIFY_PG_SCHEMA" env-default:"public"`
}

// UsesPostgres reports whether PersistenceType selects PostgreSQL.
func (d DatabaseConfig) UsesPostgres() bool {
	return d.PersistenceType == "postgres" || d.PersistenceType == "postgresql"
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// ToDbConfig converts the config to a db-utils DbConfig
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}
