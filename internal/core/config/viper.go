package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller after loading.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	d := Default()

	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("rules.path", d.Rules.Path)
	v.SetDefault("engine.page_size", d.Engine.PageSize)
	v.SetDefault("engine.dry_run", d.Engine.DryRun)
	v.SetDefault("store.insert_batch_size", d.Store.InsertBatchSize)
	v.SetDefault("gmail.credentials_file", d.Gmail.CredentialsFile)
	v.SetDefault("gmail.token_file", d.Gmail.TokenFile)
	v.SetDefault("gmail.requests_per_second", d.Gmail.RequestsPerSecond)
	v.SetDefault("gmail.burst", d.Gmail.Burst)
	v.SetDefault("ingest.max_pages", d.Ingest.MaxPages)
	v.SetDefault("ingest.page_size", d.Ingest.PageSize)
	v.SetDefault("ingest.fetch_concurrency", d.Ingest.FetchConcurrency)
	v.SetDefault("ingest.label", d.Ingest.Label)
	v.SetDefault("serve.interval", d.Serve.Interval.String())
	v.SetDefault("serve.health_addr", d.Serve.HealthAddr)
	v.SetDefault("serve.metrics_addr", d.Serve.MetricsAddr)

	// IK_ENGINE_PAGE_SIZE etc.
	v.SetEnvPrefix("IK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional unprefixed database variables are honoured as well.
	_ = v.BindEnv("database.url", "IK_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("database.host", "IK_DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "IK_DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.name", "IK_DATABASE_NAME", "DB_NAME")
	_ = v.BindEnv("database.user", "IK_DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "IK_DATABASE_PASSWORD", "DB_PASSWORD")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:      v.GetString("database.url"),
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			Name:     v.GetString("database.name"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
		},
		Rules:  RulesConfig{Path: v.GetString("rules.path")},
		Engine: EngineConfig{PageSize: v.GetInt("engine.page_size"), DryRun: v.GetBool("engine.dry_run")},
		Store:  StoreConfig{InsertBatchSize: v.GetInt("store.insert_batch_size")},
		Gmail: GmailConfig{
			CredentialsFile:   v.GetString("gmail.credentials_file"),
			TokenFile:         v.GetString("gmail.token_file"),
			RequestsPerSecond: v.GetFloat64("gmail.requests_per_second"),
			Burst:             v.GetInt("gmail.burst"),
		},
		Ingest: IngestConfig{
			MaxPages:         v.GetInt("ingest.max_pages"),
			PageSize:         v.GetInt("ingest.page_size"),
			FetchConcurrency: v.GetInt("ingest.fetch_concurrency"),
			Label:            v.GetString("ingest.label"),
		},
		Serve: ServeConfig{
			Interval:    v.GetDuration("serve.interval"),
			HealthAddr:  v.GetString("serve.health_addr"),
			MetricsAddr: v.GetString("serve.metrics_addr"),
		},
	}
	if cfg.Database.URL == "" && cfg.Database.Host == "" {
		cfg.Database.URL = d.Database.URL
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges; also used after CLI flag overrides.
func Validate(cfg *Config) error {
	if cfg.Engine.PageSize < 1 || cfg.Engine.PageSize > 1000 {
		return fmt.Errorf("engine.page_size must be between 1 and 1000, got %d", cfg.Engine.PageSize)
	}
	if cfg.Store.InsertBatchSize <= 0 {
		return fmt.Errorf("store.insert_batch_size must be positive, got %d", cfg.Store.InsertBatchSize)
	}
	if cfg.Database.Host != "" && (cfg.Database.Port <= 0 || cfg.Database.Port > 65535) {
		return fmt.Errorf("database.port must be between 1 and 65535, got %d", cfg.Database.Port)
	}
	if cfg.Gmail.RequestsPerSecond <= 0 {
		return fmt.Errorf("gmail.requests_per_second must be positive, got %v", cfg.Gmail.RequestsPerSecond)
	}
	if cfg.Gmail.Burst <= 0 {
		return fmt.Errorf("gmail.burst must be positive, got %d", cfg.Gmail.Burst)
	}
	if cfg.Ingest.MaxPages <= 0 {
		return fmt.Errorf("ingest.max_pages must be positive, got %d", cfg.Ingest.MaxPages)
	}
	if cfg.Ingest.PageSize < 1 || cfg.Ingest.PageSize > 500 {
		return fmt.Errorf("ingest.page_size must be between 1 and 500, got %d", cfg.Ingest.PageSize)
	}
	if cfg.Ingest.FetchConcurrency <= 0 {
		return fmt.Errorf("ingest.fetch_concurrency must be positive, got %d", cfg.Ingest.FetchConcurrency)
	}
	if cfg.Serve.Interval <= 0 {
		return fmt.Errorf("serve.interval must be positive, got %v", cfg.Serve.Interval)
	}
	return nil
}

// validateNoSecretsInConfig keeps OAuth secrets in their own files.
// The database password is the one secret allowed through env.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.IsSet("client_secret") || v.IsSet("gmail.client_secret") {
		return fmt.Errorf("OAuth client secrets not allowed in config files (use gmail.credentials_file)")
	}
	if v.InConfig("database.password") {
		return fmt.Errorf("database password not allowed in config files (use IK_DATABASE_PASSWORD or DB_PASSWORD)")
	}
	return nil
}
