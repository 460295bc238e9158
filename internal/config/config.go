package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Mode        string `mapstructure:"mode"`
	TLSCertFile string `mapstructure:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file"`
}

type AuthConfig struct {
	MasterSecret     string `mapstructure:"master_secret"`
	TokenExpiryHours int    `mapstructure:"token_expiry_hours"`
	RequireSignature bool   `mapstructure:"require_signature"`
}

type PairingConfig struct {
	TTLSeconds   int `mapstructure:"ttl_seconds"`
	SweepSeconds int `mapstructure:"sweep_seconds"`
	RateLimit    int `mapstructure:"rate_limit"`
}

type RelayConfig struct {
	MaxFileBytes   int64 `mapstructure:"max_file_bytes"`
	FileTTLSeconds int   `mapstructure:"file_ttl_seconds"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Pairing PairingConfig `mapstructure:"pairing"`
	Relay   RelayConfig   `mapstructure:"relay"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.tls_cert_file", "")
	v.SetDefault("server.tls_key_file", "")
	v.SetDefault("auth.master_secret", "")
	v.SetDefault("auth.token_expiry_hours", 168)
	v.SetDefault("auth.require_signature", false)
	v.SetDefault("pairing.ttl_seconds", 120)
	v.SetDefault("pairing.sweep_seconds", 60)
	v.SetDefault("pairing.rate_limit", 10)
	v.SetDefault("relay.max_file_bytes", 5<<20)
	v.SetDefault("relay.file_ttl_seconds", 60)
}

// Load reads configuration from an optional YAML file plus CLIPRELAY_*
// environment overrides. An empty path means env/defaults only.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CLIPRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	if cfg.Auth.MasterSecret == "" {
		return fmt.Errorf("auth.master_secret is required")
	}
	if cfg.Auth.TokenExpiryHours <= 0 {
		return fmt.Errorf("invalid auth.token_expiry_hours %d", cfg.Auth.TokenExpiryHours)
	}
	if cfg.Pairing.TTLSeconds <= 0 {
		return fmt.Errorf("invalid pairing.ttl_seconds %d", cfg.Pairing.TTLSeconds)
	}
	if cfg.Relay.MaxFileBytes <= 0 {
		return fmt.Errorf("invalid relay.max_file_bytes %d", cfg.Relay.MaxFileBytes)
	}
	return nil
}
