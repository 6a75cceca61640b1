package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	DownloadDir            string
	MaxConcurrentDownloads int

	RecordStore         string
	RedisAddr           string
	RedisPassword       string
	RecordTTL           time.Duration
	RecordSweepInterval time.Duration

	EngineAutoInstall      bool
	EngineProgressInterval time.Duration
}

// fileConfig mirrors the environment keys so a CONFIG_FILE can carry defaults.
type fileConfig struct {
	AppEnv                 string `yaml:"app_env"`
	Port                   string `yaml:"port"`
	HTTPAddr               string `yaml:"http_addr"`
	DownloadDir            string `yaml:"download_dir"`
	MaxConcurrentDownloads int    `yaml:"max_concurrent_downloads"`
	RecordStore            string `yaml:"record_store"`
	RedisAddr              string `yaml:"redis_addr"`
	RedisPassword          string `yaml:"redis_password"`
	RecordTTL              string `yaml:"record_ttl"`
	RecordSweepInterval    string `yaml:"record_sweep_interval"`
	EngineAutoInstall      bool   `yaml:"engine_auto_install"`
	EngineProgressInterval string `yaml:"engine_progress_interval"`
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

// Load builds the process configuration. Values from CONFIG_FILE act as defaults
// and the environment always wins.
func Load() Config {
	cfg, err := LoadFrom(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}
	return cfg
}

func LoadFrom(path string) (Config, error) {
	fc, err := readFile(path)
	if err != nil {
		return Config{}, err
	}

	port := getenv("PORT", or(fc.Port, "10000"))
	addr := getenv("HTTP_ADDR", or(fc.HTTPAddr, ":"+port))

	maxConcurrent := fc.MaxConcurrentDownloads
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}

	cfg := Config{
		AppEnv:   getenv("APP_ENV", or(fc.AppEnv, "development")),
		HTTPAddr: addr,

		DownloadDir:            getenv("DOWNLOAD_DIR", or(fc.DownloadDir, os.TempDir())),
		MaxConcurrentDownloads: getenvInt("MAX_CONCURRENT_DOWNLOADS", maxConcurrent),

		RecordStore:         getenv("RECORD_STORE", or(fc.RecordStore, "memory")),
		RedisAddr:           getenv("REDIS_ADDR", or(fc.RedisAddr, "127.0.0.1:6379")),
		RedisPassword:       getenv("REDIS_PASSWORD", fc.RedisPassword),
		RecordTTL:           getenvDuration("RECORD_TTL", parseDuration(fc.RecordTTL, time.Hour)),
		RecordSweepInterval: getenvDuration("RECORD_SWEEP_INTERVAL", parseDuration(fc.RecordSweepInterval, 5*time.Minute)),

		EngineAutoInstall:      getenvBool("ENGINE_AUTO_INSTALL", fc.EngineAutoInstall),
		EngineProgressInterval: getenvDuration("ENGINE_PROGRESS_INTERVAL", parseDuration(fc.EngineProgressInterval, 500*time.Millisecond)),
	}

	if cfg.MaxConcurrentDownloads <= 0 {
		return Config{}, fmt.Errorf("MAX_CONCURRENT_DOWNLOADS must be positive, got %d", cfg.MaxConcurrentDownloads)
	}
	switch cfg.RecordStore {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("RECORD_STORE must be memory or redis, got %q", cfg.RecordStore)
	}
	if cfg.RecordStore == "redis" && cfg.RedisAddr == "" {
		return Config{}, fmt.Errorf("REDIS_ADDR is required when RECORD_STORE=redis")
	}
	return cfg, nil
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
