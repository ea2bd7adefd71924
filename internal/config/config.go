package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Coaching CoachingConfig `mapstructure:"coaching"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// JWTConfig defines JWT specific configuration.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// CoachingConfig exposes the business parameters of the progress engine as
// named, overridable settings rather than hard-coded values.
type CoachingConfig struct {
	// HabitWeeks is the streak threshold (in weeks) for the habit tier.
	HabitWeeks int `mapstructure:"habit_weeks"`
	// LifestyleWeeks is the streak threshold for the lifestyle tier.
	// Must be strictly greater than HabitWeeks.
	LifestyleWeeks int `mapstructure:"lifestyle_weeks"`
	// TargetDecrement is how much a FAILED week lowers the weekly target.
	TargetDecrement int `mapstructure:"target_decrement"`
	// FollowUpMinDelay/FollowUpMaxDelay bound the randomized delay before the
	// post-logging coaching follow-up fires.
	FollowUpMinDelay time.Duration `mapstructure:"follow_up_min_delay"`
	FollowUpMaxDelay time.Duration `mapstructure:"follow_up_max_delay"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variable handling: server.address -> SERVER_ADDRESS etc.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "habit_app")
	viper.SetDefault("jwt.expiration", "24h")
	viper.SetDefault("coaching.habit_weeks", 4)
	viper.SetDefault("coaching.lifestyle_weeks", 12)
	viper.SetDefault("coaching.target_decrement", 1)
	viper.SetDefault("coaching.follow_up_min_delay", "30s")
	viper.SetDefault("coaching.follow_up_max_delay", "90s")

	err = viper.ReadInConfig()
	// If the config file is missing we continue on defaults/env vars.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
