package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPAddr       = ":8000"
	defaultDatabaseURL    = "file:accounthub.db?_pragma=busy_timeout(5000)"
	defaultMongoDatabase  = "accounthub"
	defaultAccessTTL      = "24h"
	defaultRefreshTTL     = "240h"
	defaultBcryptCost     = "10"
	defaultCookieSecure   = "true"
	defaultCookieSameSite = "Lax"
	defaultUploadTempDir  = "./public/temp"
	defaultMaxUpload      = "10485760"
	defaultMediaDriver    = MediaDriverLocal
	defaultMediaLocalDir  = "./uploads"
	defaultMediaBaseURL   = "/static/media"
	defaultS3Region       = "auto"
	defaultS3Folder       = "accounthub"
	defaultRabbitExchange = "accounthub.events"
	defaultAccessSecret   = "change-me-access-secret"
	defaultRefreshSecret  = "change-me-refresh-secret"
)

const (
	MediaDriverLocal = "local"
	MediaDriverS3    = "s3"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	DatabaseURL   string
	MongoDatabase string

	AccessTokenSecret  string
	AccessTokenTTL     time.Duration
	RefreshTokenSecret string
	RefreshTokenTTL    time.Duration
	BcryptCost         int

	CookieSecure   bool
	CookieSameSite string
	CookieDomain   string
	CORSOrigins    []string

	UploadTempDir      string
	MaxUploadBytes     int64
	MediaDriver        string
	MediaLocalDir      string
	MediaPublicBaseURL string
	S3                 S3Config

	RedisAddr        string
	RedisPassword    string
	RabbitMQURL      string
	RabbitMQExchange string
}

type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Folder          string
}

func Load() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.MongoDatabase = strings.TrimSpace(getEnv("MONGO_DATABASE", defaultMongoDatabase))

	cfg.AccessTokenSecret = strings.TrimSpace(getEnv("ACCESS_TOKEN_SECRET", defaultAccessSecret))
	cfg.RefreshTokenSecret = strings.TrimSpace(getEnv("REFRESH_TOKEN_SECRET", defaultRefreshSecret))

	var err error
	cfg.AccessTokenTTL, err = parseDurationEnv("ACCESS_TOKEN_TTL", defaultAccessTTL)
	if err != nil {
		return nil, err
	}
	cfg.RefreshTokenTTL, err = parseDurationEnv("REFRESH_TOKEN_TTL", defaultRefreshTTL)
	if err != nil {
		return nil, err
	}
	cfg.BcryptCost, err = parseIntEnv("BCRYPT_COST", defaultBcryptCost)
	if err != nil {
		return nil, err
	}

	cfg.CookieSecure = parseBoolEnv("COOKIE_SECURE", defaultCookieSecure)
	cfg.CookieSameSite = strings.TrimSpace(getEnv("COOKIE_SAMESITE", defaultCookieSameSite))
	cfg.CookieDomain = strings.TrimSpace(os.Getenv("COOKIE_DOMAIN"))
	cfg.CORSOrigins = parseListEnv("CORS_ALLOWED_ORIGINS")

	cfg.UploadTempDir = strings.TrimSpace(getEnv("UPLOAD_TEMP_DIR", defaultUploadTempDir))
	maxUpload, err := parseIntEnv("MAX_UPLOAD_BYTES", defaultMaxUpload)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)
	cfg.MediaDriver = strings.ToLower(strings.TrimSpace(getEnv("MEDIA_DRIVER", defaultMediaDriver)))
	cfg.MediaLocalDir = strings.TrimSpace(getEnv("MEDIA_LOCAL_DIR", defaultMediaLocalDir))
	cfg.MediaPublicBaseURL = strings.TrimRight(strings.TrimSpace(getEnv("MEDIA_PUBLIC_BASE_URL", defaultMediaBaseURL)), "/")
	cfg.S3 = S3Config{
		Endpoint:        strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		Region:          strings.TrimSpace(getEnv("S3_REGION", defaultS3Region)),
		Bucket:          strings.TrimSpace(os.Getenv("S3_BUCKET")),
		AccessKeyID:     strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
		SecretAccessKey: strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
		Folder:          strings.Trim(strings.TrimSpace(getEnv("S3_FOLDER", defaultS3Folder)), "/"),
	}

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RabbitMQURL = strings.TrimSpace(os.Getenv("RABBITMQ_URL"))
	cfg.RabbitMQExchange = strings.TrimSpace(getEnv("RABBITMQ_EXCHANGE", defaultRabbitExchange))

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SameSite maps COOKIE_SAMESITE onto net/http. Validation has already
// rejected unknown values.
func (c *Config) SameSite() http.SameSite {
	switch strings.ToLower(c.CookieSameSite) {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}

func (c *Config) IsProduction() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be > 0")
	}
	if cfg.RefreshTokenTTL <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL must be > 0")
	}
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must not be empty")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if cfg.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be > 0")
	}
	if cfg.UploadTempDir == "" {
		return fmt.Errorf("UPLOAD_TEMP_DIR must not be empty")
	}
	if cfg.CookieSameSite == "" {
		return fmt.Errorf("COOKIE_SAMESITE must not be empty")
	}
	sameSite := strings.ToLower(strings.TrimSpace(cfg.CookieSameSite))
	if sameSite != "lax" && sameSite != "none" && sameSite != "strict" {
		return fmt.Errorf("COOKIE_SAMESITE must be one of: Lax, None, Strict")
	}
	if sameSite == "none" && !cfg.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be true when COOKIE_SAMESITE=None")
	}

	switch cfg.MediaDriver {
	case MediaDriverLocal:
		if cfg.MediaLocalDir == "" {
			return fmt.Errorf("MEDIA_LOCAL_DIR must not be empty")
		}
	case MediaDriverS3:
		if cfg.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when MEDIA_DRIVER=s3")
		}
		if cfg.MediaPublicBaseURL == "" || cfg.MediaPublicBaseURL == defaultMediaBaseURL {
			return fmt.Errorf("MEDIA_PUBLIC_BASE_URL must point at the bucket when MEDIA_DRIVER=s3")
		}
	default:
		return fmt.Errorf("MEDIA_DRIVER must be one of: local, s3")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.AccessTokenSecret, defaultAccessSecret) {
			return fmt.Errorf("in prod/release ACCESS_TOKEN_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.RefreshTokenSecret, defaultRefreshSecret) {
			return fmt.Errorf("in prod/release REFRESH_TOKEN_SECRET must be set and not default")
		}
		if !cfg.CookieSecure {
			return fmt.Errorf("in prod/release COOKIE_SECURE must be true")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func parseListEnv(name string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(name), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
