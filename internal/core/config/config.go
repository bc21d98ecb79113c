// Package config provides configuration management for InboxKeeper.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the complete runtime configuration.
type Config struct {
	Database DatabaseConfig
	Rules    RulesConfig
	Engine   EngineConfig
	Store    StoreConfig
	Gmail    GmailConfig
	Ingest   IngestConfig
	Serve    ServeConfig
}

// DatabaseConfig selects the record store. URL wins when set; otherwise a
// PostgreSQL URL is assembled from the discrete fields when Host is set.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
}

// RulesConfig locates the ruleset.
type RulesConfig struct {
	Path string
}

// EngineConfig tunes the batch processor.
type EngineConfig struct {
	PageSize int
	DryRun   bool
}

// StoreConfig tunes the record store adapter.
type StoreConfig struct {
	InsertBatchSize int
}

// GmailConfig locates OAuth files and paces API calls.
type GmailConfig struct {
	CredentialsFile   string
	TokenFile         string
	RequestsPerSecond float64
	Burst             int
}

// IngestConfig bounds one ingestion run.
type IngestConfig struct {
	MaxPages         int
	PageSize         int
	FetchConcurrency int
	Label            string
}

// ServeConfig configures the daemon.
type ServeConfig struct {
	Interval    time.Duration
	HealthAddr  string
	MetricsAddr string
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{URL: "sqlite://inboxkeeper.db", Port: 5432},
		Rules:    RulesConfig{Path: "rules.json"},
		Engine:   EngineConfig{PageSize: 100},
		Store:    StoreConfig{InsertBatchSize: 1000},
		Gmail: GmailConfig{
			CredentialsFile:   "credentials.json",
			TokenFile:         "token.json",
			RequestsPerSecond: 4,
			Burst:             4,
		},
		Ingest: IngestConfig{MaxPages: 10, PageSize: 50, FetchConcurrency: 8, Label: "INBOX"},
		Serve: ServeConfig{
			Interval:    5 * time.Minute,
			HealthAddr:  "0.0.0.0:50061",
			MetricsAddr: "0.0.0.0:9108",
		},
	}
}

// ResolvedURL returns the store URL, assembling one from parts if needed.
func (d DatabaseConfig) ResolvedURL() string {
	if d.URL != "" || d.Host == "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	return u.String()
}
