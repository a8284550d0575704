package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host string
	Port string

	WishesFontPath string
	NameFontPath   string

	RemoverURL      string
	RemoverKey      string
	RemoverKeyParam string
	RemoverTimeout  time.Duration
	RemoverRetries  int

	MaxUploadBytes int64

	Bucket       string
	Distribution string
	ArchiveDir   string
	// CardBaseURL roots feed links to archived cards, typically the CDN in
	// front of the bucket. Empty means the cards route of this service.
	CardBaseURL string

	LogLevel string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	timeout, err := time.ParseDuration(get("REMOVER_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("REMOVER_TIMEOUT: %w", err)
	}
	retries, err := strconv.Atoi(get("REMOVER_RETRIES", "1"))
	if err != nil {
		return nil, fmt.Errorf("REMOVER_RETRIES: %w", err)
	}
	uploadMB, err := strconv.ParseInt(get("MAX_UPLOAD_MB", "20"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("MAX_UPLOAD_MB: %w", err)
	}

	c := &Config{
		Host:            get("HOST", "0.0.0.0"),
		Port:            get("PORT", "5000"),
		WishesFontPath:  get("FONT_WISHES_PATH", "Anton-Regular.ttf"),
		NameFontPath:    get("FONT_NAME_PATH", "Anton-Regular.ttf"),
		RemoverURL:      get("REMOVER_URL", "http://localhost:7000/api/remove"),
		RemoverKey:      getenv("REMOVER_KEY"),
		RemoverKeyParam: getenv("REMOVER_KEY_PARAM"),
		RemoverTimeout:  timeout,
		RemoverRetries:  retries,
		MaxUploadBytes:  uploadMB << 20,
		Bucket:          getenv("BUCKET"),
		Distribution:    getenv("DISTRIBUTION"),
		ArchiveDir:      getenv("ARCHIVE_DIR"),
		CardBaseURL:     getenv("CARD_BASE_URL"),
		LogLevel:        get("LOG_LEVEL", "info"),
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.WishesFontPath == "" || c.NameFontPath == "" {
		return errors.New("font paths are required")
	}
	if c.RemoverURL == "" {
		return errors.New("REMOVER_URL is required")
	}
	if c.RemoverTimeout <= 0 {
		return errors.New("REMOVER_TIMEOUT must be positive")
	}
	if c.RemoverRetries < 0 {
		return errors.New("REMOVER_RETRIES must not be negative")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}
	if c.CardBaseURL != "" {
		u, err := url.Parse(c.CardBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("CARD_BASE_URL must be an absolute http(s) URL, got %q", c.CardBaseURL)
		}
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}
