// Package config loads fieldflow settings from a YAML file, a .env file and
// FIELDFLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Store struct {
		Driver string
	} `mapstructure:"store"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Redis struct {
		Addr string
	} `mapstructure:"redis"`

	Locking struct {
		Driver string
		TTL    time.Duration
	} `mapstructure:"locking"`

	Workflow struct {
		OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	} `mapstructure:"workflow"`

	Forecast struct {
		HorizonDays int `mapstructure:"horizon_days"`
	} `mapstructure:"forecast"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Events struct {
		PerStream int `mapstructure:"per_stream"`
		Total     int
	} `mapstructure:"events"`

	Planning struct {
		Seed uint64
	} `mapstructure:"planning"`
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverLocal    = "local"
	DriverRedis    = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("locking.driver", DriverLocal)
	v.SetDefault("locking.ttl", 30*time.Second)
	v.SetDefault("workflow.operation_timeout", 30*time.Second)
	v.SetDefault("forecast.horizon_days", 30)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("planning.seed", 0)
	v.SetDefault("events.per_stream", 256)
	v.SetDefault("events.total", 10000)
}

// Default returns the configuration used when no file is given
func Default() Config {
	c, _ := decode(newViper())
	return c
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("FIELDFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// Load reads path (optional) after preloading envFile (optional) into the
// process environment. Environment variables override file values.
func Load(path, envFile string) (Config, error) {
	if envFile != "" {
		if err := gotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	c, err := decode(v)
	if err != nil {
		return c, err
	}
	return c, c.Validate()
}

// Validate rejects unknown drivers and missing connection settings
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			return errors.New("config: postgres.dsn is required when store.driver is postgres")
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}

	switch c.Locking.Driver {
	case DriverLocal:
	case DriverRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("config: redis.addr is required when locking.driver is redis")
		}
	default:
		return fmt.Errorf("config: unknown locking.driver %q", c.Locking.Driver)
	}

	if c.Workflow.OperationTimeout <= 0 {
		return errors.New("config: workflow.operation_timeout must be positive")
	}
	if c.Forecast.HorizonDays <= 0 {
		return errors.New("config: forecast.horizon_days must be positive")
	}
	if c.Events.PerStream <= 0 || c.Events.Total <= 0 {
		return errors.New("config: events.per_stream and events.total must be positive")
	}
	return nil
}
