package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	// Redis
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// Toxicity classifier
	GroqAPIKey          string `mapstructure:"GROQ_API_KEY"`
	GroqAPIURL          string `mapstructure:"GROQ_API_URL"`
	ToxicityTimeoutMs   int    `mapstructure:"TOXICITY_TIMEOUT_MS"`
	BlockAlertThreshold int    `mapstructure:"BLOCK_ALERT_THRESHOLD"`
}

var AppConfig *Config

func LoadConfig() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("GROQ_API_URL", "https://api.groq.com/openai/v1/chat/completions")
	viper.SetDefault("TOXICITY_TIMEOUT_MS", 8000)
	viper.SetDefault("BLOCK_ALERT_THRESHOLD", 3)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}
}
