// Package config loads service configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	Server struct {
		Addr        string `mapstructure:"addr"`
		MetricsAddr string `mapstructure:"metrics_addr"`
	} `mapstructure:"server"`

	Postgres struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"postgres"`

	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
		GroupID string   `mapstructure:"group_id"`
	} `mapstructure:"kafka"`

	Solana struct {
		RPCURL    string `mapstructure:"rpc_url"`
		Network   string `mapstructure:"network"`
		Recipient string `mapstructure:"recipient"`
		Strict    bool   `mapstructure:"strict"`
	} `mapstructure:"solana"`

	Dune struct {
		APIKey       string        `mapstructure:"api_key"`
		PollInterval time.Duration `mapstructure:"poll_interval"`
		MaxWait      time.Duration `mapstructure:"max_wait"`
	} `mapstructure:"dune"`

	Payment struct {
		AmountCents   int64         `mapstructure:"amount_cents"`
		SweepInterval time.Duration `mapstructure:"sweep_interval"`
		GracePeriod   time.Duration `mapstructure:"grace_period"`
	} `mapstructure:"payment"`

	Reports struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"reports"`
}

// Load reads configuration from an optional YAML file and WA_-prefixed
// environment variables (WA_SOLANA_RPC_URL overrides solana.rpc_url).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9091")
	// Empty defaults keep env-only keys visible to Unmarshal.
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "analysis-tasks")
	v.SetDefault("kafka.group_id", "analysis-worker")
	v.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.network", "mainnet")
	v.SetDefault("solana.recipient", "")
	v.SetDefault("solana.strict", false)
	v.SetDefault("dune.api_key", "")
	v.SetDefault("dune.poll_interval", 10*time.Second)
	v.SetDefault("dune.max_wait", 30*time.Minute)
	v.SetDefault("payment.amount_cents", 5000)
	v.SetDefault("payment.sweep_interval", 30*time.Second)
	v.SetDefault("payment.grace_period", 2*time.Minute)
	v.SetDefault("reports.dir", "reports")

	v.SetEnvPrefix("WA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
