package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type ProviderConfig struct {
	Name string      `json:"name"`
	Data interface{} `json:"data"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Config struct {
	Provider          ProviderConfig    `json:"provider"`
	Model             string            `json:"model"`
	BatchSize         int               `json:"batch_size"`
	RequestsPerMinute int               `json:"requests_per_minute"`
	FileStore         FileStoreConfig   `json:"file_store"`
	CacheSize         int               `json:"cache_size"`
	CacheTTLSeconds   int               `json:"cache_ttl_seconds"`
	ReportPath        string            `json:"report_path"`
	SnapshotPath      string            `json:"snapshot_path"`
	Schedule          map[string]string `json:"schedule"`
	LogConfig         logger.LogConfig  `json:"log_config"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Provider.Name == "" {
		return nil, fmt.Errorf("provider.name is required")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	if cfg.CacheTTLSeconds <= 0 {
		cfg.CacheTTLSeconds = 3600
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
		cfg.FileStore.Data = map[string]interface{}{"dir": "data/embeddings"}
	}
	switch cfg.FileStore.Type {
	case "local", "s3":
	default:
		return nil, fmt.Errorf("file_store.type must be local or s3")
	}
	return &cfg, nil
}
