package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/varoOP/cardvault/internal/domain"
)

const (
	DefaultDBPath     = "./cardvault.db"
	DefaultAPIBaseURL = "https://api.scryfall.com"
	DefaultListenAddr = "127.0.0.1:5000"
)

// SetDefaults registers the default of every setting on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db_path", DefaultDBPath)
	v.SetDefault("api_base_url", DefaultAPIBaseURL)
	v.SetDefault("bulk_data_type", domain.DefaultDataType)
	v.SetDefault("cache_ttl", domain.DefaultCacheTTL)
	v.SetDefault("refresh_policy", string(domain.RefreshPolicyBlocking))
	v.SetDefault("request_delay", 100*time.Millisecond)
	v.SetDefault("duplicate_policy", string(domain.DuplicatePolicySum))
	v.SetDefault("job_idle_ttl", 10*time.Minute)
	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("log_level", "info")
}

// Load loads configuration from the global viper instance:
// 1. Config file (config.yaml or $HOME/.cardvault.yaml, optional)
// 2. Environment variables (CARDVAULT_*)
// 3. Command line flags bound by the CLI
func Load() (*domain.Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom builds and validates a config from v
func LoadFrom(v *viper.Viper) (*domain.Config, error) {
	SetDefaults(v)

	cfg := &domain.Config{
		DBPath:            v.GetString("db_path"),
		APIBaseURL:        v.GetString("api_base_url"),
		BulkDataType:      v.GetString("bulk_data_type"),
		CacheTTL:          v.GetDuration("cache_ttl"),
		RefreshPolicy:     domain.RefreshPolicy(v.GetString("refresh_policy")),
		RequestDelay:      v.GetDuration("request_delay"),
		DuplicatePolicy:   domain.DuplicatePolicy(v.GetString("duplicate_policy")),
		JobIdleTTL:        v.GetDuration("job_idle_ttl"),
		ListenAddr:        v.GetString("listen_addr"),
		SetAliasesPath:    v.GetString("set_aliases_path"),
		DiscordWebhookURL: v.GetString("discord_webhook_url"),
		LogLevel:          v.GetString("log_level"),
	}

	switch cfg.RefreshPolicy {
	case domain.RefreshPolicyBlocking, domain.RefreshPolicyBackground, domain.RefreshPolicyNever:
	default:
		return nil, fmt.Errorf("invalid refresh_policy: %s (must be 'blocking', 'background', or 'never')", cfg.RefreshPolicy)
	}

	switch cfg.DuplicatePolicy {
	case domain.DuplicatePolicySum, domain.DuplicatePolicyOverwrite:
	default:
		return nil, fmt.Errorf("invalid duplicate_policy: %s (must be 'sum' or 'overwrite')", cfg.DuplicatePolicy)
	}

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db_path is required (set via config.yaml or CARDVAULT_DB_PATH environment variable)")
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("invalid cache_ttl: %s (must be positive)", cfg.CacheTTL)
	}
	if cfg.RequestDelay < 0 {
		return nil, fmt.Errorf("invalid request_delay: %s (must not be negative)", cfg.RequestDelay)
	}
	if cfg.JobIdleTTL <= 0 {
		return nil, fmt.Errorf("invalid job_idle_ttl: %s (must be positive)", cfg.JobIdleTTL)
	}

	return cfg, nil
}
