package config

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config of the console session agent.
type Config struct {
	Service Service `mapstructure:"service"`
	Log     Log     `mapstructure:"log"`
	API     API     `mapstructure:"api"`
	Pubsub  Pubsub  `mapstructure:"pubsub"`
	Storage Storage `mapstructure:"storage"`
	Session Session `mapstructure:"session"`
}

type Service struct {
	// Instance (surface) identifier ; generated if empty
	Id string `mapstructure:"id"`
}

type Log struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	JSON    bool   `mapstructure:"json"`
	File    string `mapstructure:"file"`
}

type API struct {
	// Console backend base URL
	BaseURL string `mapstructure:"base_url"`
	// Per-request timeout
	Timeout time.Duration `mapstructure:"timeout"`
}

type Pubsub struct {
	// "channel" (in-process) | "amqp"
	Driver string `mapstructure:"driver"`
	// Broker URL ; amqp driver only
	URL string `mapstructure:"url"`
	// Broadcast topic override ; OPTIONAL
	Topic string `mapstructure:"topic"`
}

type Storage struct {
	// "file" | "memory" | "redis"
	Driver string `mapstructure:"driver"`
	// Document path ; file driver
	Path string `mapstructure:"path"`
	// Connection URL ; redis driver
	URL string `mapstructure:"url"`
}

type Session struct {
	// Token expiry safety skew ; default 30s
	RefreshSkew time.Duration `mapstructure:"refresh_skew"`
	// Cross-surface event staleness TTL ; default 5s
	BroadcastTTL time.Duration `mapstructure:"broadcast_ttl"`
	// Entitlement memory-tier TTL ; default 1h
	EntitlementTTL time.Duration `mapstructure:"entitlement_ttl"`
}

// LoadConfig reads [path] (optional) plus HUZILERZ_* env.
func LoadConfig(path string) (*Config, error) {

	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("api.base_url", "https://api.huzilerz.dev")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("pubsub.driver", "channel")
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", ".huzilerz/session.json")
	v.SetDefault("session.refresh_skew", 30*time.Second)
	v.SetDefault("session.broadcast_ttl", 5*time.Second)
	v.SetDefault("session.entitlement_ttl", time.Hour)

	v.SetEnvPrefix("HUZILERZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	// surface identity doubles as the pubsub consumer group ;
	// two surfaces sharing one id would compete for broadcasts
	// instead of each receiving its own copy
	if cfg.Service.Id == "" {
		cfg.Service.Id = uuid.NewString()
	}
	return cfg, nil
}
