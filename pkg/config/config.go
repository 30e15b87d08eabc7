package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"adsdash/internal/domain"

	"github.com/BurntSushi/toml"
)

// DefaultFields is the insights field list requested when the caller does
// not send one.
const DefaultFields = "spend,impressions,reach,outbound_clicks,ctr," +
	"actions{action_type,value},cost_per_action_type{action_type,value}"

// Application settings
type Config struct {
	Server  ServerConfig
	Logging LoggingConfig
	Fetch   FetchConfig
	Meta    MetaConfig
	Roster  RosterConfig
}

// Server settings
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type FetchConfig struct {
	WorkerPoolSize     int
	RequestTimeout     time.Duration
	RateLimitPerSecond int
}

// Graph API settings. AccessToken is only a fallback for HTTP callers that
// do not send their own token.
type MetaConfig struct {
	APIVersion    string
	BaseURL       string
	AccessToken   string
	Fields        string
	TimeIncrement string
	CampaignLimit int
}

type RosterConfig struct {
	Path     string
	Accounts []Account
}

// Entities returns the roster as fetch entities.
func (r RosterConfig) Entities() []domain.Entity {
	entities := make([]domain.Entity, 0, len(r.Accounts))
	for _, acc := range r.Accounts {
		entities = append(entities, domain.Entity{ID: acc.ID, Name: acc.Name})
	}
	return entities
}

// Account is one ad account of the roster.
type Account struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// Logging settings
type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "3001"),
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", "10s"),
		},
		Fetch: FetchConfig{
			WorkerPoolSize:     getIntEnv("FETCH_WORKER_POOL_SIZE", 10),
			RequestTimeout:     getDurationEnv("FETCH_REQUEST_TIMEOUT", "30s"),
			RateLimitPerSecond: getIntEnv("FETCH_RATE_LIMIT_PER_SECOND", 0),
		},
		Meta: MetaConfig{
			APIVersion:    getEnv("META_API_VERSION", "v24.0"),
			BaseURL:       strings.TrimRight(getEnv("META_BASE_URL", "https://graph.facebook.com"), "/"),
			AccessToken:   getEnv("META_ACCESS_TOKEN", ""),
			Fields:        getEnv("META_FIELDS", DefaultFields),
			TimeIncrement: getEnv("META_TIME_INCREMENT", ""),
			CampaignLimit: getIntEnv("META_CAMPAIGN_LIMIT", 100),
		},
		Roster: RosterConfig{
			Path: getEnv("ROSTER_PATH", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if config.Roster.Path != "" {
		accounts, err := LoadRoster(config.Roster.Path)
		if err != nil {
			return nil, err
		}
		config.Roster.Accounts = accounts
	}

	return config, nil
}

type rosterFile struct {
	Accounts []Account `toml:"accounts"`
}

// LoadRoster reads the list of ad accounts from a TOML file:
//
//	[[accounts]]
//	id = "act_123"
//	name = "Example"
func LoadRoster(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}

	var file rosterFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing roster: %w", err)
	}

	for i, acc := range file.Accounts {
		if strings.TrimSpace(acc.ID) == "" {
			return nil, fmt.Errorf("parsing roster: account %d has no id", i+1)
		}
		if acc.Name == "" {
			file.Accounts[i].Name = acc.ID
		}
	}

	return file.Accounts, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
