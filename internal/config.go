package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Index variants.
const (
	IndexVariantLinear = "linear"
	IndexVariantSQLite = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	App   ApplicationConfig `yaml:"app"`
	Store StoreConfig       `yaml:"store"`
	Index IndexConfig       `yaml:"index"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	return c.Index.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	Title    string     `yaml:"title"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig holds the resource store configuration.
//
// MediaDir may be empty, placing media under DataDir/media.
// EtagHashLimit is the size in bytes above which ETags switch from a
// content hash to the cheaper mtime+size composite; 0 keeps the default.
type StoreConfig struct {
	DataDir       string `yaml:"data_dir"`
	MediaDir      string `yaml:"media_dir"`
	EtagHashLimit int64  `yaml:"etag_hash_limit"`
	PageSize      int    `yaml:"page_size"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.EtagHashLimit, validation.Min(0)),
		validation.Field(&c.PageSize, validation.Required, validation.Min(1)),
	)
}

// IndexConfig selects and configures the index variant.
type IndexConfig struct {
	Variant    string `yaml:"variant"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	if c.Variant == "" {
		c.Variant = IndexVariantSQLite
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Variant, validation.Required, validation.In(IndexVariantLinear, IndexVariantSQLite)),
	); err != nil {
		return err
	}
	if c.Variant == IndexVariantSQLite && c.SQLitePath == "" {
		return fmt.Errorf("index: variant is %q but sqlite_path is empty", IndexVariantSQLite)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			Title:    "Main Site",
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			DataDir:  "./data",
			PageSize: 10,
		},
		Index: IndexConfig{
			Variant:    IndexVariantSQLite,
			SQLitePath: "./atompress.db",
		},
	}
}
