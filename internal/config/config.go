package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Razorpay RazorpayConfig
	Gemini   GeminiConfig
	SMTP     SMTPConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

// RazorpayConfig holds the payment gateway credentials. KeyID is returned to
// browser-side checkout; KeySecret never leaves the server and is the HMAC
// key for callback verification.
type RazorpayConfig struct {
	KeyID     string `mapstructure:"key_id"`
	KeySecret string `mapstructure:"key_secret"`
	BaseURL   string `mapstructure:"base_url"`
	Currency  string `mapstructure:"currency"`
}

type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	ModelID string `mapstructure:"model_id"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type WorkerConfig struct {
	BatchSize           int           `mapstructure:"batch_size"`
	PollIntervalSeconds int           `mapstructure:"poll_interval_seconds"`
	RetryAttempts       int           `mapstructure:"retry_attempts"`
	RetryDelaySeconds   int           `mapstructure:"retry_delay_seconds"`
	PollInterval        time.Duration `mapstructure:"-"`
	RetryDelay          time.Duration `mapstructure:"-"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Worker.BatchSize <= 0 {
		config.Worker.BatchSize = 50
	}
	if config.Worker.PollIntervalSeconds <= 0 {
		config.Worker.PollIntervalSeconds = 5
	}
	if config.Worker.RetryAttempts <= 0 {
		config.Worker.RetryAttempts = 3
	}
	if config.Worker.RetryDelaySeconds <= 0 {
		config.Worker.RetryDelaySeconds = 2
	}
	config.Worker.PollInterval = time.Duration(config.Worker.PollIntervalSeconds) * time.Second
	config.Worker.RetryDelay = time.Duration(config.Worker.RetryDelaySeconds) * time.Second

	return &config, nil
}
