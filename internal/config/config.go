package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	OpenAI      OpenAIConfig
	Image       ImageConfig
	RedisConfig RedisConfig
	CacheEnable bool   `env:"CACHE_ENABLE"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" envDefault:"redis:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	TTL      time.Duration `env:"REDIS_TTL" envDefault:"10m"`
}

type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8080"`
	Timeout         time.Duration `env:"SERVER_TIMEOUT" envDefault:"2m"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ThrottleLimit   int           `env:"SERVER_THROTTLE_LIMIT" envDefault:"50"`
	MaxBodyBytes    int64         `env:"SERVER_MAX_BODY_BYTES" envDefault:"104857600"`
	StaticDir       string        `env:"SERVER_STATIC_DIR" envDefault:"./build"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,https://*.vercel.app"`
}

type OpenAIConfig struct {
	APIKey    string `env:"OPENAI_API_KEY,required,notEmpty"`
	BaseURL   string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model     string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	MaxTokens int64  `env:"OPENAI_MAX_TOKENS" envDefault:"500"`
}

// ImageConfig bounds the upload normalization pipeline.
type ImageConfig struct {
	MaxUploadBytes int64 `env:"IMAGE_MAX_UPLOAD_BYTES" envDefault:"20971520"`
	MaxSide        int   `env:"IMAGE_MAX_SIDE" envDefault:"2000"`
	MinSide        int   `env:"IMAGE_MIN_SIDE" envDefault:"768"`
	MaxPixels      int64 `env:"IMAGE_MAX_PIXELS" envDefault:"50000000"`
	JPEGQuality    int   `env:"IMAGE_JPEG_QUALITY" envDefault:"90"`
	Workers        int   `env:"IMAGE_WORKERS" envDefault:"4"`
}

// Load reads an optional .env file and then parses the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Image.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c ImageConfig) validate() error {
	if c.MinSide <= 0 || c.MaxSide <= 0 {
		return fmt.Errorf("image sides must be positive, got min=%d max=%d", c.MinSide, c.MaxSide)
	}
	if c.MinSide > c.MaxSide {
		return fmt.Errorf("IMAGE_MIN_SIDE (%d) is greater than IMAGE_MAX_SIDE (%d)", c.MinSide, c.MaxSide)
	}
	if c.MaxPixels <= 0 {
		return fmt.Errorf("IMAGE_MAX_PIXELS must be positive, got %d", c.MaxPixels)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("IMAGE_JPEG_QUALITY must be in [1, 100], got %d", c.JPEGQuality)
	}
	return nil
}
