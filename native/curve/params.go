package curve

import (
	"errors"
	"math/big"
	"time"
)

// Params captures the curve configuration fixed at engine construction.
// Administrative updates replace individual fields through the engine's
// access-checked setters; the struct itself is never mutated in place.
type Params struct {
	// TotalSupply is the full inventory handed to the curve at genesis.
	TotalSupply *big.Int
	// SaleThreshold is the sold-unit count at which the final price is
	// reached and, together with RaiseTargetUSD, liquidity deploys.
	SaleThreshold *big.Int
	// RaiseTargetUSD is the cumulative gross raise (reference currency,
	// 1e18 scale) required before liquidity deploys.
	RaiseTargetUSD *big.Int
	// InitialPriceMultiplier and FinalPriceMultiplier scale the oracle
	// quote into the curve's starting and threshold unit prices
	// (price = multiplier * oracle / 1e18).
	InitialPriceMultiplier *big.Int
	FinalPriceMultiplier   *big.Int
	// FeePercent is the integer percentage deducted from every buy and sell.
	FeePercent uint64
	// DeployUnits, DeploySettlement and DeployFeeSettlement are the fixed
	// amounts moved during the one-shot liquidity deployment.
	DeployUnits         *big.Int
	DeploySettlement    *big.Int
	DeployFeeSettlement *big.Int
	// OracleUpdateInterval bounds mutating oracle refreshes to once per
	// window.
	OracleUpdateInterval time.Duration
}

// Validate checks the parameter set for internal consistency.
func (p Params) Validate() error {
	for _, field := range []struct {
		name  string
		value *big.Int
	}{
		{"total supply", p.TotalSupply},
		{"sale threshold", p.SaleThreshold},
		{"raise target", p.RaiseTargetUSD},
		{"initial price multiplier", p.InitialPriceMultiplier},
		{"final price multiplier", p.FinalPriceMultiplier},
		{"deploy units", p.DeployUnits},
		{"deploy settlement", p.DeploySettlement},
	} {
		if field.value == nil || field.value.Sign() <= 0 {
			return errors.New("curve params: " + field.name + " must be positive")
		}
	}
	if p.DeployFeeSettlement == nil || p.DeployFeeSettlement.Sign() < 0 {
		return errors.New("curve params: deploy fee settlement must not be negative")
	}
	if p.SaleThreshold.Cmp(p.TotalSupply) > 0 {
		return errors.New("curve params: sale threshold exceeds total supply")
	}
	if p.DeployUnits.Cmp(p.TotalSupply) > 0 {
		return errors.New("curve params: deploy units exceed total supply")
	}
	if p.FinalPriceMultiplier.Cmp(p.InitialPriceMultiplier) < 0 {
		return errors.New("curve params: final price multiplier below initial")
	}
	if p.FeePercent >= 100 {
		return errors.New("curve params: fee percent must be below 100")
	}
	if p.OracleUpdateInterval < 0 {
		return errors.New("curve params: oracle update interval must not be negative")
	}
	return nil
}

// Clone returns a deep copy of the parameter set.
func (p Params) Clone() Params {
	clone := Params{FeePercent: p.FeePercent, OracleUpdateInterval: p.OracleUpdateInterval}
	clone.TotalSupply = copyBigInt(p.TotalSupply)
	clone.SaleThreshold = copyBigInt(p.SaleThreshold)
	clone.RaiseTargetUSD = copyBigInt(p.RaiseTargetUSD)
	clone.InitialPriceMultiplier = copyBigInt(p.InitialPriceMultiplier)
	clone.FinalPriceMultiplier = copyBigInt(p.FinalPriceMultiplier)
	clone.DeployUnits = copyBigInt(p.DeployUnits)
	clone.DeploySettlement = copyBigInt(p.DeploySettlement)
	clone.DeployFeeSettlement = copyBigInt(p.DeployFeeSettlement)
	return clone
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
