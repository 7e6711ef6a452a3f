package domain

import "time"

// RefreshPolicy decides what an import does when the local cache is stale
type RefreshPolicy string

const (
	// RefreshPolicyBlocking - refresh the bulk cache before the import starts
	RefreshPolicyBlocking RefreshPolicy = "blocking"
	// RefreshPolicyBackground - start a refresh and import against whatever is cached
	RefreshPolicyBackground RefreshPolicy = "background"
	// RefreshPolicyNever - never refresh from an import
	RefreshPolicyNever RefreshPolicy = "never"
)

// DuplicatePolicy decides how repeated (card, foil) entries in one import combine
type DuplicatePolicy string

const (
	// DuplicatePolicySum - quantities of repeated entries are added
	DuplicatePolicySum DuplicatePolicy = "sum"
	// DuplicatePolicyOverwrite - the last entry wins
	DuplicatePolicyOverwrite DuplicatePolicy = "overwrite"
)

type Config struct {
	DBPath            string          `mapstructure:"db_path"`
	APIBaseURL        string          `mapstructure:"api_base_url"`
	BulkDataType      string          `mapstructure:"bulk_data_type"`
	CacheTTL          time.Duration   `mapstructure:"cache_ttl"`
	RefreshPolicy     RefreshPolicy   `mapstructure:"refresh_policy"`
	RequestDelay      time.Duration   `mapstructure:"request_delay"`
	DuplicatePolicy   DuplicatePolicy `mapstructure:"duplicate_policy"`
	JobIdleTTL        time.Duration   `mapstructure:"job_idle_ttl"`
	ListenAddr        string          `mapstructure:"listen_addr"`
	SetAliasesPath    string          `mapstructure:"set_aliases_path"`
	DiscordWebhookURL string          `mapstructure:"discord_webhook_url"`
	LogLevel          string          `mapstructure:"log_level"`
}
