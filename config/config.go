package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type MQConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	// Empty secret leaves the rule endpoints open.
	JWTSecret string `yaml:"jwt_secret"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type RulesConfig struct {
	// Optional YAML file replacing the built-in rule table at startup.
	SeedFile string `yaml:"seed_file"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type OTelConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

type Config struct {
	DB        DBConfig        `yaml:"db"`
	MQ        MQConfig        `yaml:"mq"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Server    ServerConfig    `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Rules     RulesConfig     `yaml:"rules"`
	Log       LogConfig       `yaml:"log"`
	OTel      OTelConfig      `yaml:"otel"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		DB: DBConfig{
			Host: "localhost",
			Port: 5432,
			User: "inbox",
			Name: "inbox",
		},
		Redis:     RedisConfig{Addr: "localhost:6379"},
		Server:    ServerConfig{Port: ":8080"},
		RateLimit: RateLimitConfig{RPS: 20, Burst: 40},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A .env file in the working directory is loaded first when present.
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	default:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	if err := overrideFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overrideFromEnv(cfg *Config) error {
	// DB配置
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT: %w", err)
		}
		cfg.DB.Port = p
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DB.Name = name
	}

	// MQ配置
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.MQ.URL = url
	}

	// Redis配置
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}

	if rps := os.Getenv("RATE_LIMIT_RPS"); rps != "" {
		v, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimit.RPS = v
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		v, err := strconv.Atoi(burst)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimit.Burst = v
	}

	if seed := os.Getenv("RULES_SEED_FILE"); seed != "" {
		cfg.Rules.SeedFile = seed
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if endpoint := os.Getenv("OTEL_ENDPOINT"); endpoint != "" {
		cfg.OTel.Endpoint = endpoint
		cfg.OTel.Enabled = true
	}
	return nil
}
