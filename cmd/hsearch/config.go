package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "HSEARCH_"

// Config describes one index and where it lives.
type Config struct {
	Index     string          `mapstructure:"index"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Fields    []FieldConfig   `mapstructure:"fields"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Workers   int             `mapstructure:"workers"`
}

// DirectoryConfig selects the directory implementation. Type is one of
// "fs", "badger", "s3", "minio" or "memory".
type DirectoryConfig struct {
	Type     string `mapstructure:"type"`
	Path     string `mapstructure:"path"`
	Strategy string `mapstructure:"strategy"`

	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"accesskey"`
	SecretKey string `mapstructure:"secretkey"`
	Secure    bool   `mapstructure:"secure"`

	// CommitTable names the DynamoDB table holding s3 commit pointers.
	CommitTable string `mapstructure:"committable"`
	// CacheBlocks enables a block cache in front of remote directories.
	CacheBlocks int `mapstructure:"cacheblocks"`
}

// FieldConfig declares one field of the index model.
type FieldConfig struct {
	Path        string `mapstructure:"path"`
	Type        string `mapstructure:"type"`
	Stored      bool   `mapstructure:"stored"`
	DocValues   bool   `mapstructure:"docvalues"`
	NoIndex     bool   `mapstructure:"noindex"`
	IndexNullAs string `mapstructure:"indexnullas"`
	Normalizer  string `mapstructure:"normalizer"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// loadConfig reads the config file, if any, and applies HSEARCH_
// environment variables on top: HSEARCH_DIRECTORY_PATH sets directory.path.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("index", "default")
	v.SetDefault("directory.type", "fs")
	v.SetDefault("directory.path", "hsearch-data")
	v.SetDefault("directory.strategy", "auto")
	v.SetDefault("directory.secure", true)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, envPrefix) {
			continue
		}
		prop := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, envPrefix), "_", "."))
		v.Set(strings.TrimPrefix(prop, "."), value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Index == "" {
		return nil, errors.New("config: index name is required")
	}
	return &cfg, nil
}
