package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Places  PlacesConfig
	Session SessionConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PlacesConfig struct {
	APIKey   string
	BaseURL  string
	Debounce time.Duration
	MinInput int
}

type SessionConfig struct {
	// File is where the session record lives when Redis is not configured.
	File string
	// RedisURL, when set, selects the shared Redis-backed session store.
	RedisURL string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("BACKEND_BASE_URL", "http://localhost:8000")
	viper.SetDefault("API_TIMEOUT", "10s")
	viper.SetDefault("PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place")
	viper.SetDefault("PLACES_API_KEY", "")
	viper.SetDefault("AUTOCOMPLETE_DEBOUNCE", "800ms")
	viper.SetDefault("AUTOCOMPLETE_MIN_INPUT", 2)
	viper.SetDefault("SESSION_FILE", "session.json")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("LOG_LEVEL", "info")

	timeout, err := time.ParseDuration(viper.GetString("API_TIMEOUT"))
	if err != nil {
		return nil, err
	}

	debounce, err := time.ParseDuration(viper.GetString("AUTOCOMPLETE_DEBOUNCE"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("SERVER_PORT"),
		},
		Backend: BackendConfig{
			BaseURL: viper.GetString("BACKEND_BASE_URL"),
			Timeout: timeout,
		},
		Places: PlacesConfig{
			APIKey:   viper.GetString("PLACES_API_KEY"),
			BaseURL:  viper.GetString("PLACES_BASE_URL"),
			Debounce: debounce,
			MinInput: viper.GetInt("AUTOCOMPLETE_MIN_INPUT"),
		},
		Session: SessionConfig{
			File:     viper.GetString("SESSION_FILE"),
			RedisURL: viper.GetString("REDIS_URL"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	return cfg, nil
}
