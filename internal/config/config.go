package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port        string
	Env         string
	FrontendURL string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiBaseURL        string
	GeminiTimeout        time.Duration
	GeminiConcurrentReqs int

	// Chat relay; a zero limit leaves /api/chat unlimited
	ChatRateLimit  int
	ChatRateWindow time.Duration

	// Storage (both optional)
	DatabaseURL string
	RedisURL    string

	// Market feed
	MarketSymbols        []string
	BinanceRESTURL       string
	BinanceStreamURL     string
	StreamReconnectDelay time.Duration
	TickHistorySize      int

	// Logging
	LogLevel  string
	LogFormat string
}

// HasGeminiKey reports whether the relay can call upstream at all.
func (c *Config) HasGeminiKey() bool {
	return strings.TrimSpace(c.GeminiAPIKey) != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("env", "development")
	v.SetDefault("frontend_url", "http://localhost:3000")

	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-1.5-flash")
	v.SetDefault("gemini_base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini_timeout", "60s")
	v.SetDefault("gemini_concurrent_requests", 5)

	v.SetDefault("chat_rate_limit", 0)
	v.SetDefault("chat_rate_window", "1m")

	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")

	v.SetDefault("market_symbols", "BNBUSDT")
	v.SetDefault("binance_rest_url", "https://api.binance.com")
	v.SetDefault("binance_stream_url", "wss://stream.binance.com:9443/ws")
	v.SetDefault("stream_reconnect_delay", "5s")
	v.SetDefault("tick_history_size", 500)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load builds the process configuration once. Values come from, in rising
// priority: defaults, the config file, .env, and the real environment.
//
// With an empty path a config.json in the working directory is used when
// present; an explicit path must exist.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config.json: %w", err)
			}
		}
	}

	cfg := &Config{
		Port:        v.GetString("port"),
		Env:         v.GetString("env"),
		FrontendURL: v.GetString("frontend_url"),

		GeminiAPIKey:         strings.TrimSpace(v.GetString("gemini_api_key")),
		GeminiModel:          v.GetString("gemini_model"),
		GeminiBaseURL:        strings.TrimRight(v.GetString("gemini_base_url"), "/"),
		GeminiTimeout:        durationOrDefault(v, "gemini_timeout", 60*time.Second),
		GeminiConcurrentReqs: intOrDefault(v, "gemini_concurrent_requests", 5),

		ChatRateLimit:  v.GetInt("chat_rate_limit"),
		ChatRateWindow: durationOrDefault(v, "chat_rate_window", time.Minute),

		DatabaseURL: v.GetString("database_url"),
		RedisURL:    v.GetString("redis_url"),

		MarketSymbols:        symbolList(v.Get("market_symbols")),
		BinanceRESTURL:       strings.TrimRight(v.GetString("binance_rest_url"), "/"),
		BinanceStreamURL:     strings.TrimRight(v.GetString("binance_stream_url"), "/"),
		StreamReconnectDelay: durationOrDefault(v, "stream_reconnect_delay", 5*time.Second),
		TickHistorySize:      intOrDefault(v, "tick_history_size", 500),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}
	if len(cfg.MarketSymbols) == 0 {
		cfg.MarketSymbols = []string{"BNBUSDT"}
	}

	return cfg, nil
}

// durationOrDefault accepts Go durations ("90s", "250ms") and bare integers,
// which are read as seconds.
func durationOrDefault(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return defaultVal
	}

	var d time.Duration
	if n, err := strconv.Atoi(raw); err == nil {
		d = time.Duration(n) * time.Second
	} else {
		d, err = time.ParseDuration(raw)
		if err != nil {
			return defaultVal
		}
	}
	if d <= 0 {
		return defaultVal
	}
	return d
}

func intOrDefault(v *viper.Viper, key string, defaultVal int) int {
	n := v.GetInt(key)
	if n <= 0 {
		return defaultVal
	}
	return n
}

// symbolList accepts either a list from the config file or a comma
// separated string from the environment.
func symbolList(raw interface{}) []string {
	var items []string
	switch val := raw.(type) {
	case string:
		items = strings.Split(val, ",")
	case []interface{}:
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
	case []string:
		items = val
	}

	var out []string
	seen := make(map[string]bool)
	for _, item := range items {
		s := strings.ToUpper(strings.TrimSpace(item))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
