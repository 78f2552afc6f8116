package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"slotlink/internal/model"
)

type Config struct {
	Server struct {
		Port    int    `yaml:"port"`
		BaseURL string `yaml:"base_url"` // external base URL used in confirmation links
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Feeds struct {
		TimeoutSeconds  int `yaml:"timeout_seconds"`
		CacheTTLSeconds int `yaml:"cache_ttl_seconds"` // 0 disables the Redis feed cache
	} `yaml:"feeds"`

	Booking struct {
		PendingTTLMinutes    int `yaml:"pending_ttl_minutes"`
		PurgeIntervalMinutes int `yaml:"purge_interval_minutes"`
		RetentionDays        int `yaml:"retention_days"` // 0 keeps bookings forever
	} `yaml:"booking"`

	Submit struct {
		RatePerMinute int `yaml:"rate_per_minute"`
		Burst         int `yaml:"burst"`
	} `yaml:"submit"`

	Telegram struct {
		BotToken    string `yaml:"bot_token"`
		OwnerChatID int64  `yaml:"owner_chat_id"`
	} `yaml:"telegram"`

	Admin struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"admin"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Pages []model.Page `yaml:"pages"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/slotlink.db"
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	for i := range cfg.Pages {
		if cfg.Pages[i].Ref == "" {
			return nil, fmt.Errorf("page %d: ref is required", i)
		}
		if cfg.Pages[i].Settings == (model.AvailabilitySettings{}) {
			cfg.Pages[i].Settings = model.DefaultAvailabilitySettings()
		}
		if err = cfg.Pages[i].Settings.Validate(); err != nil {
			return nil, fmt.Errorf("page %q: %w", cfg.Pages[i].Ref, err)
		}
	}

	return &cfg, nil
}

// PageByRef returns the page with the given ref, or nil.
func (c *Config) PageByRef(ref string) *model.Page {
	for i := range c.Pages {
		if c.Pages[i].Ref == ref {
			return &c.Pages[i]
		}
	}
	return nil
}

func (c *Config) FeedTimeout() time.Duration {
	if c.Feeds.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Feeds.TimeoutSeconds) * time.Second
}

func (c *Config) FeedCacheTTL() time.Duration {
	if c.Feeds.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Feeds.CacheTTLSeconds) * time.Second
}

func (c *Config) PendingTTL() time.Duration {
	if c.Booking.PendingTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.Booking.PendingTTLMinutes) * time.Minute
}

func (c *Config) PurgeInterval() time.Duration {
	if c.Booking.PurgeIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Booking.PurgeIntervalMinutes) * time.Minute
}

func (c *Config) BookingRetention() time.Duration {
	if c.Booking.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.Booking.RetentionDays) * 24 * time.Hour
}
