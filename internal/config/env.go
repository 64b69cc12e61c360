package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ServerConfig holds listen ports for both roles.
type ServerConfig struct {
	BackendPort        string
	RelayPort          string
	MaxUploadBytes     int64
	ExposeErrorDetails bool
	Environment        string
}

// VisionConfig configures the vision provider adapter.
type VisionConfig struct {
	CredentialsFile string
	Timeout         time.Duration
	MaxInflight     int
	SearchLimit     int
	SearchPartial   bool
}

// RelayConfig configures the browser-facing relay.
type RelayConfig struct {
	BackendURL string
	Timeout    time.Duration
}

// AuthConfig configures bearer token verification at the relay.
type AuthConfig struct {
	Mode        string // "firebase"|"jwt"
	ProjectID   string
	ClientEmail string
	PrivateKey  string
	JWTSecret   string
	JWTIssuer   string
}

// RedisConfig configures the optional envelope cache and quota cooldown.
type RedisConfig struct {
	URL          string
	CacheTTL     time.Duration
	CooldownBase time.Duration
	CooldownMax  time.Duration
}

// ArchiveConfig configures optional artifact archiving.
type ArchiveConfig struct {
	Backend     string // ""|"local"|"s3"|"gcs"
	Dir         string
	Bucket      string
	Prefix      string
	Retention   time.Duration
	Region      string
	S3AccessKey string
	S3SecretKey string
}

// PDFConfig controls rasterization of PDF uploads.
type PDFConfig struct {
	DPI      int
	Quality  int
	MaxPages int
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Server  ServerConfig
	Vision  VisionConfig
	Relay   RelayConfig
	Auth    AuthConfig
	Redis   RedisConfig
	Archive ArchiveConfig
	PDF     PDFConfig
}

// LoadDotEnv reads .env files into the process environment. Existing
// variables win; a missing file is not an error.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/imageai.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_imageai",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Server = ServerConfig{
		BackendPort:        getEnv("BACKEND_PORT", "3000"),
		RelayPort:          getEnv("RELAY_PORT", "8080"),
		MaxUploadBytes:     int64(parseInt(getEnv("MAX_UPLOAD_BYTES", ""), 10<<20)),
		ExposeErrorDetails: parseBool(getEnv("EXPOSE_ERROR_DETAILS", "false")),
		Environment:        getEnv("ENVIRONMENT", getEnv("NODE_ENV", "production")),
	}

	cfg.Vision = VisionConfig{
		CredentialsFile: getEnv("VISION_CREDENTIALS_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		Timeout:         parseDuration(getEnv("VISION_TIMEOUT", "20s"), 20*time.Second),
		MaxInflight:     parseInt(getEnv("VISION_MAX_INFLIGHT", "8"), 8),
		SearchLimit:     parseInt(getEnv("SEARCH_LIMIT", "10"), 10),
		SearchPartial:   parseBool(getEnv("SEARCH_PARTIAL", "true")),
	}

	// EXPRESS_SERVER_URL is the name the dashboard deployment already uses.
	cfg.Relay = RelayConfig{
		BackendURL: strings.TrimRight(getEnv("BACKEND_URL", getEnv("EXPRESS_SERVER_URL", "http://localhost:3000")), "/"),
		Timeout:    parseDuration(getEnv("RELAY_TIMEOUT", "30s"), 30*time.Second),
	}

	cfg.Auth = AuthConfig{
		Mode:        strings.ToLower(getEnv("AUTH_MODE", "firebase")),
		ProjectID:   getEnv("FIREBASE_PROJECT_ID", os.Getenv("NEXT_PUBLIC_FIREBASE_PROJECT_ID")),
		ClientEmail: getEnv("FIREBASE_CLIENT_EMAIL", ""),
		PrivateKey:  strings.ReplaceAll(getEnv("FIREBASE_PRIVATE_KEY", ""), `\n`, "\n"),
		JWTSecret:   getEnv("AUTH_JWT_SECRET", ""),
		JWTIssuer:   getEnv("AUTH_JWT_ISSUER", ""),
	}

	cfg.Redis = RedisConfig{
		URL:          getEnv("REDIS_URL", ""),
		CacheTTL:     parseDuration(getEnv("CACHE_TTL", "1h"), time.Hour),
		CooldownBase: parseDuration(getEnv("QUOTA_COOLDOWN_BASE", "30s"), 30*time.Second),
		CooldownMax:  parseDuration(getEnv("QUOTA_COOLDOWN_MAX", "5m"), 5*time.Minute),
	}

	cfg.Archive = ArchiveConfig{
		Backend:     strings.ToLower(getEnv("ARCHIVE_BACKEND", "")),
		Dir:         getEnv("ARCHIVE_DIR", "archive"),
		Bucket:      getEnv("ARCHIVE_BUCKET", ""),
		Prefix:      strings.Trim(getEnv("ARCHIVE_PREFIX", "conversions"), "/"),
		Retention:   parseDuration(getEnv("ARCHIVE_RETENTION", "168h"), 7*24*time.Hour),
		Region:      getEnv("AWS_REGION", ""),
		S3AccessKey: getEnv("ARCHIVE_S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("ARCHIVE_S3_SECRET_KEY", ""),
	}

	cfg.PDF = PDFConfig{
		DPI:      parseInt(getEnv("PDF_DPI", "150"), 150),
		Quality:  parseInt(getEnv("PDF_JPEG_QUALITY", "85"), 85),
		MaxPages: parseInt(getEnv("PDF_MAX_PAGES", "50"), 50),
	}
	if cfg.PDF.Quality <= 0 || cfg.PDF.Quality > 100 {
		cfg.PDF.Quality = 85
	}

	// PORT (as set by most PaaS runtimes) overrides whichever role is started.
	if p := os.Getenv("PORT"); p != "" {
		cfg.Server.BackendPort = p
		cfg.Server.RelayPort = p
	}

	return cfg
}

// IsDev reports whether the environment looks like a developer machine.
func (c Config) IsDev() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "dev" || env == "development" || env == "local"
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
