// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string
	Env                   string
	DatabaseURL           string
	MigrationsDir         string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	AuthSecret            string
	AccessTokenTTLMinutes int
	TaxRatePercent        float64
	StoreName             string
}

func Load() Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("MIGRATIONS_DIR", "migrations")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 480)
	viper.SetDefault("TAX_RATE_PERCENT", 8.0)
	viper.SetDefault("STORE_NAME", "CLICK-N-SELL")

	// Missing .env is fine; the environment alone is a complete config.
	_ = viper.ReadInConfig()

	tokenTTL := viper.GetInt("ACCESS_TOKEN_TTL_MINUTES")
	if tokenTTL < 1 {
		tokenTTL = 480
	}
	taxRate := viper.GetFloat64("TAX_RATE_PERCENT")
	if taxRate < 0 {
		taxRate = 0
	}

	return Config{
		Port:                  viper.GetString("PORT"),
		Env:                   viper.GetString("SERVER_ENV"),
		DatabaseURL:           viper.GetString("DATABASE_URL"),
		MigrationsDir:         viper.GetString("MIGRATIONS_DIR"),
		RedisAddr:             viper.GetString("REDIS_ADDR"),
		RedisPassword:         viper.GetString("REDIS_PASSWORD"),
		RedisDB:               viper.GetInt("REDIS_DB"),
		AuthSecret:            strings.TrimSpace(viper.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		TaxRatePercent:        taxRate,
		StoreName:             viper.GetString("STORE_NAME"),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}
