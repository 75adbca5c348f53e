// Package config loads the vault's construction-time configuration: the
// supported collateral assets with their price feeds, and the solvency
// parameters the engine enforces.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// AssetConfig pairs a collateral asset with the price feed backing it.
type AssetConfig struct {
	Symbol      string `toml:"Symbol"`
	PriceFeedID string `toml:"PriceFeedID"`
}

// OracleConfig names an upstream HTTP price source. Sources are consulted in
// the order they appear in the file.
type OracleConfig struct {
	Name      string `toml:"Name"`
	URL       string `toml:"URL"`
	AuthToken string `toml:"AuthToken"`
}

// Config is the TOML-backed vault configuration.
type Config struct {
	ListenAddress           string         `toml:"ListenAddress"`
	DataDir                 string         `toml:"DataDir"`
	Environment             string         `toml:"Environment"`
	Assets                  []AssetConfig  `toml:"assets"`
	Oracles                 []OracleConfig `toml:"oracles"`
	LiquidationThresholdPct uint64         `toml:"LiquidationThresholdPct"`
	LiquidationBonusPct     uint64         `toml:"LiquidationBonusPct"`
	MinHealthFactorWei      string         `toml:"MinHealthFactorWei"`
	OracleMaxAge            duration       `toml:"OracleMaxAge"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the canonical configuration the loader fills gaps from.
func Default() *Config {
	return &Config{
		ListenAddress:           "127.0.0.1:8645",
		DataDir:                 "./vault-data",
		LiquidationThresholdPct: 50,
		LiquidationBonusPct:     10,
		MinHealthFactorWei:      "1000000000000000000",
		OracleMaxAge:            duration{5 * time.Minute},
	}
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if len(c.Assets) == 0 {
		return fmt.Errorf("config: at least one collateral asset required")
	}
	for i, asset := range c.Assets {
		if strings.TrimSpace(asset.Symbol) == "" {
			return fmt.Errorf("config: asset %d missing symbol", i)
		}
		if strings.TrimSpace(asset.PriceFeedID) == "" {
			return fmt.Errorf("config: asset %q missing price feed", asset.Symbol)
		}
	}
	for i, source := range c.Oracles {
		if strings.TrimSpace(source.Name) == "" {
			return fmt.Errorf("config: oracle %d missing name", i)
		}
		if strings.TrimSpace(source.URL) == "" {
			return fmt.Errorf("config: oracle %q missing URL", source.Name)
		}
	}
	if c.LiquidationThresholdPct == 0 || c.LiquidationThresholdPct > 100 {
		return fmt.Errorf("config: liquidation threshold must be within (0, 100], got %d", c.LiquidationThresholdPct)
	}
	if c.LiquidationBonusPct > 100 {
		return fmt.Errorf("config: liquidation bonus must not exceed 100, got %d", c.LiquidationBonusPct)
	}
	if _, err := c.MinHealthFactor(); err != nil {
		return err
	}
	return nil
}

// MinHealthFactor parses the solvency floor.
func (c *Config) MinHealthFactor() (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(c.MinHealthFactorWei), 10)
	if !ok || value.Sign() <= 0 {
		return nil, fmt.Errorf("config: invalid MinHealthFactorWei %q", c.MinHealthFactorWei)
	}
	return value, nil
}

// AssetLists returns the ordered asset and feed identifier lists the registry
// is constructed from.
func (c *Config) AssetLists() (assetIDs, feedIDs []string) {
	assetIDs = make([]string, 0, len(c.Assets))
	feedIDs = make([]string, 0, len(c.Assets))
	for _, asset := range c.Assets {
		assetIDs = append(assetIDs, asset.Symbol)
		feedIDs = append(feedIDs, asset.PriceFeedID)
	}
	return assetIDs, feedIDs
}
