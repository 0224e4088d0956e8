package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Driver string
		Path   string
		DSN    string
	}
	Auth struct {
		JWTSecret       string
		Issuer          string
		TokenTTLMinutes int
		BcryptCost      int
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Bootstrap struct {
		Username string
		Password string
		Email    string
		FullName string
	}
	Backup struct {
		Bucket          string
		KeyPrefix       string
		IntervalMinutes int
		Retain          int
	}
	Storage struct {
		Region   string
		Endpoint string
	}
	AWS struct {
		Profile string
	}
	Log struct {
		Level  string
		Format string
	}
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Load reads configuration from environment variables and optional config files.
// A non-empty file overrides the default config.{yaml,json,toml} lookup in ".".
func Load(file string) (Config, error) {
	// .env is optional and never overrides the real environment
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("POSTBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/postboard.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.issuer", "postboard")
	v.SetDefault("auth.tokenttlminutes", 30)
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("bootstrap.username", "")
	v.SetDefault("bootstrap.password", "")
	v.SetDefault("bootstrap.email", "")
	v.SetDefault("bootstrap.fullname", "")
	v.SetDefault("backup.bucket", "")
	v.SetDefault("backup.keyprefix", "postboard-backups")
	v.SetDefault("backup.intervalminutes", 60)
	v.SetDefault("backup.retain", 24)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		_ = v.ReadInConfig() // optional file
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwtsecret must be set"))
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path must be set for the sqlite driver"))
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn must be set for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	if c.Backup.Bucket != "" && c.Backup.IntervalMinutes <= 0 {
		errs = append(errs, errors.New("backup.intervalminutes must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

func (c Config) BackupInterval() time.Duration {
	return time.Duration(c.Backup.IntervalMinutes) * time.Minute
}

// BackupsEnabled is true when a bucket is configured and the database can be snapshotted.
func (c Config) BackupsEnabled() bool {
	return c.Backup.Bucket != "" && c.Database.Driver == DriverSQLite
}
