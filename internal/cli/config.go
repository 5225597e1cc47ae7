package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
	DriverCassandra = "cassandra"
)

// Config describes where patches live and which store they are applied to.
type Config struct {
	Dir              string          `yaml:"dir"`
	Driver           string          `yaml:"driver"`
	DSN              string          `yaml:"dsn"`
	Concurrency      int             `yaml:"concurrency"`
	TolerantPrefixes []string        `yaml:"tolerant_prefixes"`
	Cassandra        CassandraConfig `yaml:"cassandra"`
}

type CassandraConfig struct {
	Hosts       []string      `yaml:"hosts"`
	Keyspace    string        `yaml:"keyspace"`
	Consistency string        `yaml:"consistency"`
	Timeout     time.Duration `yaml:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		Dir:    "models",
		Driver: DriverPostgres,
		Cassandra: CassandraConfig{
			Hosts:       []string{"127.0.0.1"},
			Consistency: "quorum",
			Timeout:     10 * time.Second,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Dir == "" {
		return errors.New("patches directory is required")
	}

	switch c.Driver {
	case DriverPostgres, DriverSQLite:
		if c.DSN == "" {
			return fmt.Errorf("driver %s requires a dsn", c.Driver)
		}
	case DriverCassandra:
		if len(c.Cassandra.Hosts) == 0 {
			return errors.New("driver cassandra requires at least one host")
		}
		if c.Cassandra.Keyspace == "" {
			return errors.New("driver cassandra requires a keyspace")
		}
	default:
		return fmt.Errorf("unknown driver %q: must be one of %s, %s, %s", c.Driver, DriverPostgres, DriverSQLite, DriverCassandra)
	}

	return nil
}
