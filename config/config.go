package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"curvelaunch/native/curve"
)

// Config is the daemon configuration loaded from TOML.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Env           string `toml:"Env"`
	LogLevel      string `toml:"LogLevel"`

	Gateway GatewayConfig `toml:"gateway"`
	Oracle  OracleConfig  `toml:"oracle"`
	Curve   CurveConfig   `toml:"curve"`
}

// GatewayConfig controls the HTTP API surface.
type GatewayConfig struct {
	// AdminSecret is the HMAC secret validating admin JWTs. Empty disables
	// the administrative routes entirely.
	AdminSecret       string  `toml:"AdminSecret"`
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

// OracleConfig selects and parameterises the settlement price feed.
type OracleConfig struct {
	// Source is "manual" or "http".
	Source                string `toml:"Source"`
	Endpoint              string `toml:"Endpoint"`
	AssetID               string `toml:"AssetID"`
	VsCurrency            string `toml:"VsCurrency"`
	ManualPriceUSD        string `toml:"ManualPriceUSD"`
	UpdateIntervalSeconds int64  `toml:"UpdateIntervalSeconds"`
}

// CurveConfig carries the engine parameter set. Amount fields are decimal
// strings at the 1e18 wei scale; multiplier fields scale the oracle quote
// (price = multiplier * oracle / 1e18).
type CurveConfig struct {
	TotalSupply            string `toml:"TotalSupply"`
	SaleThresholdUnits     string `toml:"SaleThresholdUnits"`
	RaiseTargetUSD         string `toml:"RaiseTargetUSD"`
	InitialPriceMultiplier string `toml:"InitialPriceMultiplier"`
	FinalPriceMultiplier   string `toml:"FinalPriceMultiplier"`
	FeePercent             uint64 `toml:"FeePercent"`
	DeployUnits            string `toml:"DeployUnits"`
	DeploySettlement       string `toml:"DeploySettlement"`
	DeployFeeSettlement    string `toml:"DeployFeeSettlement"`
	FeeCollector           string `toml:"FeeCollector"`
	LiquidityCollector     string `toml:"LiquidityCollector"`
}

// Load reads the configuration at path, creating a default file when none
// exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8651"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "curved-data"
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	if c.Gateway.RequestsPerMinute <= 0 {
		c.Gateway.RequestsPerMinute = 600
	}
	if c.Gateway.Burst <= 0 {
		c.Gateway.Burst = 30
	}
	if strings.TrimSpace(c.Oracle.Source) == "" {
		c.Oracle.Source = "manual"
	}
	if strings.TrimSpace(c.Oracle.VsCurrency) == "" {
		c.Oracle.VsCurrency = "usd"
	}
	if c.Oracle.UpdateIntervalSeconds <= 0 {
		c.Oracle.UpdateIntervalSeconds = 60
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		Oracle: OracleConfig{
			AssetID:        "berachain-bera",
			ManualPriceUSD: "3000",
		},
		Curve: CurveConfig{
			TotalSupply:            "1000000000000000000000000000", // 1e9 units
			SaleThresholdUnits:     "800000000000000000000000000",  // 8e8 units
			RaiseTargetUSD:         "18000000000000000000000",      // 18,000 USD
			InitialPriceMultiplier: "2333333333",                   // ~$0.000007 at $3000
			FinalPriceMultiplier:   "4666666666",
			FeePercent:             1,
			DeployUnits:            "200000000000000000000000000", // 2e8 units
			DeploySettlement:       "5000000000000000000",         // 5 BERA
			DeployFeeSettlement:    "1000000000000000000",         // 1 BERA
		},
	}
	cfg.applyDefaults()
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OracleInterval returns the configured refresh window as a duration.
func (c *Config) OracleInterval() time.Duration {
	return time.Duration(c.Oracle.UpdateIntervalSeconds) * time.Second
}

// ManualPrice parses the configured manual oracle price (decimal USD) into
// the fixed 1e18 scale.
func (c *Config) ManualPrice() (*big.Int, error) {
	return parseUSD(c.Oracle.ManualPriceUSD)
}

// CurveParams converts the curve section into the engine parameter set.
func (c *Config) CurveParams() (curve.Params, error) {
	params := curve.Params{
		FeePercent:           c.Curve.FeePercent,
		OracleUpdateInterval: c.OracleInterval(),
	}
	for _, field := range []struct {
		name  string
		raw   string
		value **big.Int
	}{
		{"TotalSupply", c.Curve.TotalSupply, &params.TotalSupply},
		{"SaleThresholdUnits", c.Curve.SaleThresholdUnits, &params.SaleThreshold},
		{"RaiseTargetUSD", c.Curve.RaiseTargetUSD, &params.RaiseTargetUSD},
		{"InitialPriceMultiplier", c.Curve.InitialPriceMultiplier, &params.InitialPriceMultiplier},
		{"FinalPriceMultiplier", c.Curve.FinalPriceMultiplier, &params.FinalPriceMultiplier},
		{"DeployUnits", c.Curve.DeployUnits, &params.DeployUnits},
		{"DeploySettlement", c.Curve.DeploySettlement, &params.DeploySettlement},
		{"DeployFeeSettlement", c.Curve.DeployFeeSettlement, &params.DeployFeeSettlement},
	} {
		parsed, err := parseAmount(field.raw)
		if err != nil {
			return curve.Params{}, fmt.Errorf("config: %s: %w", field.name, err)
		}
		*field.value = parsed
	}
	if err := params.Validate(); err != nil {
		return curve.Params{}, err
	}
	return params, nil
}

// FeeCollector resolves the fee sink address, deriving a stable default when
// unset.
func (c *Config) FeeCollector() ([20]byte, error) {
	return resolveAddress(c.Curve.FeeCollector, "curve/fee-collector")
}

// LiquidityCollector resolves the venue share recipient, deriving a stable
// default when unset.
func (c *Config) LiquidityCollector() ([20]byte, error) {
	return resolveAddress(c.Curve.LiquidityCollector, "curve/liquidity-collector")
}

func resolveAddress(raw, fallbackLabel string) ([20]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return curve.DeriveAddress(fallbackLabel), nil
	}
	return curve.ParseAddress(raw)
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("value required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", raw)
	}
	return value, nil
}

func parseUSD(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("config: manual price required")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok || rat.Sign() <= 0 {
		return nil, fmt.Errorf("config: invalid manual price %q", raw)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	scaled := new(big.Rat).Mul(rat, new(big.Rat).SetInt(scale))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom()), nil
}
