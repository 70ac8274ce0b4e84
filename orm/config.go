package orm

import (
	stdsql "database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/dialect/sql"
	"github.com/syssam/relgraph/schema"
)

// Config is the file configuration of a client.
//
//	dialect: sqlite
//	dsn: file:app.db?_pragma=foreign_keys(1)
//	max_open_conns: 4
//	slow_query: 200ms
//	log_level: debug
type Config struct {
	// Dialect names the SQL dialect: sqlserver, postgres, mysql or sqlite.
	Dialect string `yaml:"dialect"`
	// Driver is the database/sql driver name. It defaults to the dialect
	// name.
	Driver string `yaml:"driver,omitempty"`
	// DSN is the data source name passed to the driver.
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns,omitempty"`
	MaxIdleConns int           `yaml:"max_idle_conns,omitempty"`
	SlowQuery    time.Duration `yaml:"slow_query,omitempty"`
	Stats        bool          `yaml:"stats,omitempty"`
	LogLevel     string        `yaml:"log_level,omitempty"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration without connecting.
func (c *Config) Validate() error {
	d, err := dialect.Get(c.Dialect)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.DSN == "" {
		return fmt.Errorf("config: dsn is required")
	}
	if d.Name() == dialect.MySQL {
		if _, err := mysql.ParseDSN(c.DSN); err != nil {
			return fmt.Errorf("config: invalid mysql dsn: %w", err)
		}
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return fmt.Errorf("config: connection limits must not be negative")
	}
	if c.SlowQuery < 0 {
		return fmt.Errorf("config: slow_query must not be negative")
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return l, fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	return l, nil
}

// DriverName returns the database/sql driver name.
func (c *Config) DriverName() string {
	if c.Driver != "" {
		return c.Driver
	}
	return c.Dialect
}

// Open connects according to cfg. Options override the configured
// logger and statistics settings.
func Open(cfg *Config, reg *schema.Registry, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := dialect.Get(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	db, err := stdsql.Open(cfg.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("orm: open %s: %w", cfg.DriverName(), err)
	}
	drv := sql.OpenDB(d, db)
	if cfg.MaxOpenConns > 0 {
		drv.DB().SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		drv.DB().SetMaxIdleConns(cfg.MaxIdleConns)
	}
	level, _ := cfg.level()
	base := []Option{WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))}
	if cfg.Stats {
		base = append(base, WithStats())
	}
	if cfg.SlowQuery > 0 {
		base = append(base, WithSlowThreshold(cfg.SlowQuery))
	}
	c, err := NewClient(drv, reg, append(base, opts...)...)
	if err != nil {
		return nil, errors.Join(err, drv.Close())
	}
	return c, nil
}
