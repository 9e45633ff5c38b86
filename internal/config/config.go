package config

import (
	"errors"
	"fmt"
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is built once at start-up and passed to constructors; nothing
// reads the environment after Load returns.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL string `env:"DATABASE_URL,required"`

	SessionSecret string `env:"SESSION_SECRET,required,unset"`
	CookieSecure  bool   `env:"COOKIE_SECURE" envDefault:"true"`
	CSRFEnabled   bool   `env:"CSRF_ENABLED" envDefault:"true"`

	Images Images
	Kafka  Kafka
	Search Search
}

// Images holds the upload destination. CloudName and UploadPreset are
// handed to page data unchanged; the S3 fields configure server-side uploads.
type Images struct {
	CloudName    string `env:"IMAGE_CLOUD_NAME"`
	UploadPreset string `env:"IMAGE_UPLOAD_PRESET"`

	Endpoint  string `env:"S3_ENDPOINT"`
	Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"S3_BUCKET"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY,unset"`
	PublicURL string `env:"S3_PUBLIC_URL"`
}

func (i Images) Enabled() bool { return i.Bucket != "" }

type Kafka struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
}

func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

type Search struct {
	URL      string `env:"ES_URL"`
	User     string `env:"ES_USER"`
	Password string `env:"ES_PASSWORD,unset"`
	Index    string `env:"ES_INDEX" envDefault:"vehicles"`
}

func (s Search) Enabled() bool { return s.URL != "" }

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		log.Printf("notice: .env file not loaded: %v, using system environment variables", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.SessionSecret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 bytes")
	}
	if c.Images.Enabled() && c.Images.PublicURL == "" {
		return errors.New("S3_PUBLIC_URL is required when S3_BUCKET is set")
	}
	return nil
}
