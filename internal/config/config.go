// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON or TOML config
// file and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Options holds the configuration values for the server.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string `json:"server_address" toml:"server_address"`

	// StoreDriver selects the storage backend: bolt, leveldb, postgres or memory.
	StoreDriver string `json:"store_driver" toml:"store_driver"`

	// StorePath is the database file or directory for bolt and leveldb.
	StorePath string `json:"store_path" toml:"store_path"`

	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string `json:"database_dsn" toml:"database_dsn"`

	// Config is the path to the config file. Files ending in .toml are
	// parsed as TOML, anything else as JSON.
	Config string `json:"-" toml:"-"`

	// LogLevel is the minimum level logged.
	LogLevel string `json:"log_level" toml:"log_level"`

	// CertDir holds ca.crt, ca.key, server.crt and server.key.
	CertDir string `json:"cert_dir" toml:"cert_dir"`

	// MaintenanceURL receives a notification when the store grows past
	// StorageThreshold. Empty disables notifications.
	MaintenanceURL string `json:"maintenance_url" toml:"maintenance_url"`

	// StorageThreshold is the store size in bytes that triggers maintenance.
	StorageThreshold int64 `json:"storage_threshold" toml:"storage_threshold"`

	// MaxOwners caps the number of registered owners; 0 disables the cap.
	MaxOwners int `json:"max_owners" toml:"max_owners"`

	// KeySecret is the master secret for key derivation. Empty means a
	// random secret per process.
	KeySecret string `json:"key_secret" toml:"key_secret"`
}

const (
	defaultThreshold = 1 << 30
	// 400 GiB of stable memory shared by owners of three 1 GiB vaults each.
	defaultMaxOwners = 133
)

func newFlagSet(options *Options) *flag.FlagSet {
	fs := flag.NewFlagSet("vaultkeeper", flag.ContinueOnError)
	fs.StringVar(&options.Addr, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.StoreDriver, "s", "bolt", "store driver: bolt, leveldb, postgres or memory")
	fs.StringVar(&options.StorePath, "p", "vault.db", "store file or directory")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	fs.StringVar(&options.LogLevel, "l", "info", "log level")
	fs.StringVar(&options.CertDir, "certs", "certs", "certificate directory")
	fs.StringVar(&options.MaintenanceURL, "maintenance-url", "", "maintenance notification url")
	fs.Int64Var(&options.StorageThreshold, "storage-threshold", defaultThreshold, "store size in bytes that triggers maintenance")
	fs.IntVar(&options.MaxOwners, "max-owners", defaultMaxOwners, "maximum number of registered owners")
	fs.StringVar(&options.KeySecret, "key-secret", "", "master secret for key derivation")
	return fs
}

// Parse parses os.Args and the environment. It exits on error.
func Parse() *Options {
	options, err := ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return options
}

// ParseArgs builds Options from defaults, the config file, args and the
// environment, each overriding the previous.
func ParseArgs(args []string) (*Options, error) {
	options := &Options{}
	fs := newFlagSet(options)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			if err := load(options.Config, options); err != nil {
				return nil, err
			}
			// flags given explicitly beat the file
			if err := fs.Parse(args); err != nil {
				return nil, err
			}
		}
	}

	if err := applyEnv(options); err != nil {
		return nil, err
	}
	return options, nil
}

func load(path string, options *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if filepath.Ext(path) == ".toml" {
		if _, err := toml.Decode(string(data), options); err != nil {
			return fmt.Errorf("error while parsing config file: %w", err)
		}
		return nil
	}
	if err := json.Unmarshal(data, options); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func applyEnv(options *Options) error {
	strs := map[string]*string{
		"SERVER_ADDRESS":  &options.Addr,
		"STORE_DRIVER":    &options.StoreDriver,
		"STORE_PATH":      &options.StorePath,
		"DATABASE_DSN":    &options.DatabaseDSN,
		"LOG_LEVEL":       &options.LogLevel,
		"CERT_DIR":        &options.CertDir,
		"MAINTENANCE_URL": &options.MaintenanceURL,
		"KEY_SECRET":      &options.KeySecret,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("STORAGE_THRESHOLD"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("STORAGE_THRESHOLD: %w", err)
		}
		options.StorageThreshold = n
	}
	if v := os.Getenv("MAX_OWNERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_OWNERS: %w", err)
		}
		options.MaxOwners = n
	}
	return nil
}

// StoreLocation returns the location argument for store.Open: the DSN
// for postgres, the path otherwise.
func (o *Options) StoreLocation() string {
	if o.StoreDriver == "postgres" {
		return o.DatabaseDSN
	}
	return o.StorePath
}
