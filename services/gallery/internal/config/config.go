package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no path is given.
const DefaultPath = "config.yaml"

// FileConfig represents configuration loaded from YAML. Environment
// variables with the GALLERY_ prefix override the file values.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DatabaseURL string `yaml:"databaseURL"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	JWTSecret     string `yaml:"jwtSecret"`
	SessionTTL    string `yaml:"sessionTTL"`

	SupabaseURL            string `yaml:"supabaseURL"`
	SupabaseServiceRoleKey string `yaml:"supabaseServiceRoleKey"`

	MaxUploadBytes    int64    `yaml:"maxUploadBytes"`
	AllowedExtensions []string `yaml:"allowedExtensions"`
	SearchMinQueryLen int      `yaml:"searchMinQueryLen"`
}

// Load reads config from path (defaults to config.yaml). A missing file
// is not an error; defaults plus env overrides apply.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{
		Port:              "8080",
		LogLevel:          "info",
		MinioBucket:       "photos",
		SessionTTL:        "24h",
		MaxUploadBytes:    20 << 20,
		AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
		SearchMinQueryLen: 2,
	}
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&cfg.Port, "GALLERY_PORT")
	set(&cfg.LogLevel, "GALLERY_LOG_LEVEL")
	set(&cfg.DatabaseURL, "GALLERY_DATABASE_URL")
	set(&cfg.MinioEndpoint, "GALLERY_MINIO_ENDPOINT")
	set(&cfg.MinioAccessKey, "GALLERY_MINIO_ACCESS_KEY")
	set(&cfg.MinioSecretKey, "GALLERY_MINIO_SECRET_KEY")
	set(&cfg.MinioBucket, "GALLERY_MINIO_BUCKET")
	set(&cfg.RedisAddr, "GALLERY_REDIS_ADDR")
	set(&cfg.RedisPassword, "GALLERY_REDIS_PASSWORD")
	set(&cfg.JWTSecret, "GALLERY_JWT_SECRET")
	set(&cfg.SessionTTL, "GALLERY_SESSION_TTL")
	set(&cfg.SupabaseURL, "GALLERY_SUPABASE_URL")
	set(&cfg.SupabaseServiceRoleKey, "GALLERY_SUPABASE_SERVICE_ROLE_KEY")
	if v := os.Getenv("GALLERY_MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("GALLERY_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("GALLERY_SEARCH_MIN_QUERY_LEN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SearchMinQueryLen = n
		}
	}
}

// ParseSessionTTL parses the configured TTL, e.g. "24h" or "30m".
func ParseSessionTTL(raw string) (time.Duration, error) {
	if raw == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse session TTL %q: %w", raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("session TTL must be positive, got %q", raw)
	}
	return d, nil
}
