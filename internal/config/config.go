package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	AppID       string `env:"APP_ID" envDefault:"default-app-id"`

	LLMAPIKey         string  `env:"LLM_API_KEY,notEmpty"`
	LLMBaseURL        string  `env:"LLM_BASE_URL" envDefault:"https://api.deepseek.com"`
	LLMModel          string  `env:"LLM_MODEL" envDefault:"deepseek-chat"`
	LLMTemperature    float64 `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	LLMTimeoutSeconds int     `env:"LLM_TIMEOUT_SECONDS" envDefault:"60"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`

	SendGuardTTLSeconds  int `env:"SEND_GUARD_TTL_SECONDS" envDefault:"120"`
	PerformanceCacheSize int `env:"PERFORMANCE_CACHE_SIZE" envDefault:"1024"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c *Config) SendGuardTTL() time.Duration {
	return time.Duration(c.SendGuardTTLSeconds) * time.Second
}

// UsesMemoryStore indica que no hay DATABASE_URL y los documentos viven en memoria.
func (c *Config) UsesMemoryStore() bool {
	return c.DatabaseURL == ""
}
