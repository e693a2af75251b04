package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the agent service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	DatabaseURL string
	RedisURL    string
	NATSURL     string

	JWTSecret string

	CollaboratorBaseURL  string
	CollaboratorAPIToken string
	CollaboratorTimeout  time.Duration

	OpenAIAPIKey       string
	OpenAIModel        string
	PlannerTimeout     time.Duration
	PlannerCooldown    time.Duration
	PlannerMaxTokens   int
	PlannerTemperature float64

	SuggestionCacheTTL      time.Duration
	SuggestionSyncWait      time.Duration
	SuggestionRefreshBudget time.Duration
	SuggestionMaxRefreshers int

	HarvestInterval       time.Duration
	DailyMissThreshold    time.Duration
	CalendarCheckInterval time.Duration

	ActivityRetention time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and an optional
// .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TOGETHER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Together Agent API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("collaborator.timeout", "5s")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("planner.timeout", "6s")
	v.SetDefault("planner.cooldown", "1m")
	v.SetDefault("planner.max_tokens", 640)
	v.SetDefault("planner.temperature", 0.4)
	v.SetDefault("suggestions.cache_ttl", "6h")
	v.SetDefault("suggestions.sync_wait", "2s")
	v.SetDefault("suggestions.refresh_budget", "20s")
	v.SetDefault("suggestions.max_refreshers", 4)
	v.SetDefault("harvest.interval", "60s")
	v.SetDefault("harvest.daily_miss_threshold", "24h")
	v.SetDefault("harvest.calendar_check_interval", "6h")
	v.SetDefault("activity.retention", "720h")

	durations := map[string]*time.Duration{}
	cfg := Config{
		AppName:                 v.GetString("app.name"),
		AppEnv:                  v.GetString("app.env"),
		AppPort:                 v.GetString("app.port"),
		DatabaseURL:             v.GetString("database.url"),
		RedisURL:                v.GetString("redis.url"),
		NATSURL:                 v.GetString("nats.url"),
		JWTSecret:               v.GetString("jwt.secret"),
		CollaboratorBaseURL:     v.GetString("collaborator.base_url"),
		CollaboratorAPIToken:    v.GetString("collaborator.api_token"),
		OpenAIAPIKey:            v.GetString("openai.api_key"),
		OpenAIModel:             v.GetString("openai.model"),
		PlannerMaxTokens:        v.GetInt("planner.max_tokens"),
		PlannerTemperature:      v.GetFloat64("planner.temperature"),
		SuggestionMaxRefreshers: v.GetInt("suggestions.max_refreshers"),
	}

	durations["collaborator.timeout"] = &cfg.CollaboratorTimeout
	durations["planner.timeout"] = &cfg.PlannerTimeout
	durations["planner.cooldown"] = &cfg.PlannerCooldown
	durations["suggestions.cache_ttl"] = &cfg.SuggestionCacheTTL
	durations["suggestions.sync_wait"] = &cfg.SuggestionSyncWait
	durations["suggestions.refresh_budget"] = &cfg.SuggestionRefreshBudget
	durations["harvest.interval"] = &cfg.HarvestInterval
	durations["harvest.daily_miss_threshold"] = &cfg.DailyMissThreshold
	durations["harvest.calendar_check_interval"] = &cfg.CalendarCheckInterval
	durations["activity.retention"] = &cfg.ActivityRetention

	for key, target := range durations {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		*target = parsed
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	return cfg, nil
}
