package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/julianstephens/go-utils/helpers"
	"github.com/julianstephens/go-utils/jsonutil"
	"github.com/julianstephens/go-utils/validator"

	"github.com/julianstephens/kvslite/internal/kvslite"
	"github.com/julianstephens/kvslite/internal/logger"
)

// Config is the command-line tool's per-database settings file.
type Config struct {
	Version       int    `json:"version"`
	SyncOnWrite   bool   `json:"sync_on_write"`
	LogLevel      string `json:"log_level"`
	LogDir        string `json:"log_dir,omitempty"`
	LogMaxSizeMB  int    `json:"log_max_size_mb"`
	LogMaxBackups int    `json:"log_max_backups"`
}

// Default returns the settings used when a database has no config file.
func Default() *Config {
	return &Config{
		Version:       kvslite.ConfigVersion,
		SyncOnWrite:   kvslite.DefaultOptions().SyncOnWrite,
		LogLevel:      kvslite.DefaultLogLevel,
		LogMaxSizeMB:  kvslite.DefaultLogMaxSize,
		LogMaxBackups: kvslite.DefaultLogMaxBackups,
	}
}

// Path returns the config file location for the database in dir.
func Path(dir string) string {
	return filepath.Join(dir, kvslite.ConfigFileName)
}

// Create writes a default config into dir, creating dir if needed. It fails
// if a config already exists.
func Create(dir string) (*Config, error) {
	path := Path(dir)
	if helpers.Exists(path) {
		return nil, &ConfigError{Kind: ConfigErrorKindAlreadyExists, Path: path}
	}
	if err := helpers.Ensure(dir, true); err != nil {
		return nil, &ConfigError{Kind: ConfigErrorKindWrite, Path: dir, Err: err}
	}

	c := Default()
	if err := c.Save(dir); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and validates the config in dir.
func Load(dir string) (*Config, error) {
	path := Path(dir)
	if !helpers.Exists(path) {
		return nil, &ConfigError{Kind: ConfigErrorKindNotFound, Path: path, Err: fs.ErrNotExist}
	}

	c := &Config{}
	if err := jsonutil.ReadFileStrict(path, c); err != nil {
		return nil, &ConfigError{Kind: ConfigErrorKindDecode, Path: path, Err: err}
	}

	if c.Version > kvslite.ConfigVersion {
		return nil, &ConfigError{
			Kind: ConfigErrorKindUnsupportedVersion,
			Path: path,
			Err:  fmt.Errorf("config version %d is not supported", c.Version),
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadOrDefault is Load, falling back to Default when dir has no config.
func LoadOrDefault(dir string) (*Config, error) {
	if !helpers.Exists(Path(dir)) {
		return Default(), nil
	}
	return Load(dir)
}

// Save validates c and atomically replaces the config file in dir.
func (c *Config) Save(dir string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	data, err := jsonutil.Marshal(c)
	if err != nil {
		return &ConfigError{Kind: ConfigErrorKindEncode, Err: err}
	}
	return writeFile(Path(dir), data)
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	v := validator.Numbers[int]()

	if err := v.ValidateNonZero(c.Version); err != nil {
		return &ConfigError{Kind: ConfigErrorKindInvalid, Err: fmt.Errorf("version: %w", err)}
	}
	if err := v.ValidateNonZero(c.LogMaxSizeMB); err != nil {
		return &ConfigError{Kind: ConfigErrorKindInvalid, Err: fmt.Errorf("log_max_size_mb: %w", err)}
	}
	if c.LogMaxSizeMB < 0 {
		return &ConfigError{Kind: ConfigErrorKindInvalid, Err: fmt.Errorf("log_max_size_mb must be positive")}
	}
	if c.LogMaxBackups < 0 {
		return &ConfigError{Kind: ConfigErrorKindInvalid, Err: fmt.Errorf("log_max_backups must not be negative")}
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return &ConfigError{Kind: ConfigErrorKindInvalid, Err: err}
	}
	return nil
}

// Options returns the engine options this config selects.
func (c *Config) Options() kvslite.Options {
	return kvslite.Options{SyncOnWrite: c.SyncOnWrite}
}

func writeFile(filePath string, data []byte) error {
	if err := helpers.AtomicFileWrite(filePath, data); err != nil {
		return &ConfigError{Kind: ConfigErrorKindWrite, Path: filePath, Err: err}
	}
	f, err := os.Open(filepath.Dir(filePath)) //nolint:gosec
	if err != nil {
		return &ConfigError{Kind: ConfigErrorKindWrite, Path: filePath, Err: err}
	}
	defer func() { _ = f.Close() }()

	if err := f.Sync(); err != nil {
		return &ConfigError{Kind: ConfigErrorKindWrite, Path: filePath, Err: err}
	}
	return nil
}
