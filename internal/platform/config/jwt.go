package config

import (
	"fmt"
	"os"
	"time"
)

// JWTConfig configures HS256 bearer token verification and dev token minting.
type JWTConfig struct {
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
	Secret   string `yaml:"secret"`

	ClockSkew time.Duration `yaml:"clock_skew"`
	// TTL is the lifetime of tokens minted by cmd/devjwt.
	TTL time.Duration `yaml:"ttl"`
}

func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		ClockSkew: 30 * time.Second,
		TTL:       time.Hour,
	}
}

func (c JWTConfig) Validate() error {
	if c.Issuer == "" || c.Audience == "" || c.Secret == "" {
		return fmt.Errorf("missing required jwt settings: JWT_ISSUER, JWT_AUDIENCE, JWT_SECRET")
	}
	if len(c.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if c.ClockSkew < 0 {
		return fmt.Errorf("JWT_CLOCK_SKEW must not be negative")
	}
	return nil
}

func LoadJWTConfigFromEnv() (JWTConfig, error) {
	cfg := DefaultJWTConfig()
	if err := applyJWTEnv(&cfg); err != nil {
		return JWTConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return JWTConfig{}, err
	}
	return cfg, nil
}

func applyJWTEnv(cfg *JWTConfig) error {
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.Issuer = v
	}
	if v := os.Getenv("JWT_AUDIENCE"); v != "" {
		cfg.Audience = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Secret = v
	}
	if v := os.Getenv("JWT_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JWT_CLOCK_SKEW must be a duration (e.g. 30s): %w", err)
		}
		cfg.ClockSkew = d
	}
	if v := os.Getenv("JWT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JWT_TTL must be a duration (e.g. 1h): %w", err)
		}
		cfg.TTL = d
	}
	return nil
}
