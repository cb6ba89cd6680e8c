package curve

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// ModuleAddress is the account holding the curve's inventory and settlement
// reserve.
var ModuleAddress = DeriveAddress("curve/module")

// DeriveAddress maps a stable label onto a 20-byte account address. Module
// accounts are derived rather than configured so genesis wiring cannot drift
// between the daemon and the tests.
func DeriveAddress(label string) [20]byte {
	sum := sha256.Sum256([]byte(label))
	var addr [20]byte
	copy(addr[:], sum[:20])
	return addr
}

// ParseAddress decodes a 0x-prefixed hex account address.
func ParseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	if len(trimmed) != 40 {
		return addr, fmt.Errorf("curve: address must be 20 bytes (got %d hex chars)", len(trimmed))
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("curve: decode address: %w", err)
	}
	copy(addr[:], decoded)
	return addr, nil
}

// CurveState is the singleton accounting record owned by the engine.
type CurveState struct {
	// UnsoldInventory tracks asset units still held by the curve. Starts at
	// TotalSupply, decreases on buys and increases on sells.
	UnsoldInventory *big.Int
	// RaisedUSD accumulates the gross reference-currency value of every
	// accepted buy.
	RaisedUSD *big.Int
	// LiquidityDeployed latches to true exactly once.
	LiquidityDeployed bool
}

// NewCurveState returns the genesis curve state for the supplied supply.
func NewCurveState(totalSupply *big.Int) *CurveState {
	return &CurveState{
		UnsoldInventory: new(big.Int).Set(totalSupply),
		RaisedUSD:       big.NewInt(0),
	}
}

// Clone returns a deep copy of the curve state.
func (s *CurveState) Clone() *CurveState {
	if s == nil {
		return nil
	}
	clone := &CurveState{LiquidityDeployed: s.LiquidityDeployed}
	if s.UnsoldInventory != nil {
		clone.UnsoldInventory = new(big.Int).Set(s.UnsoldInventory)
	}
	if s.RaisedUSD != nil {
		clone.RaisedUSD = new(big.Int).Set(s.RaisedUSD)
	}
	return clone
}

// Sold returns the number of units sold so far under the supplied supply.
func (s *CurveState) Sold(totalSupply *big.Int) *big.Int {
	if s == nil || s.UnsoldInventory == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(totalSupply, s.UnsoldInventory)
}

// PurchaseReceipt summarises an executed buy.
type PurchaseReceipt struct {
	Buyer        [20]byte
	UnitsOut     *big.Int
	SettlementIn *big.Int
	Fee          *big.Int
	PriceUSD     *big.Int
	Deployed     bool
	// Deployment carries the hand-off amounts on the purchase that triggered
	// the one-shot liquidity deployment; nil otherwise.
	Deployment *DeploymentReceipt
}

// SaleReceipt summarises an executed sell.
type SaleReceipt struct {
	Seller        [20]byte
	UnitsIn       *big.Int
	SettlementOut *big.Int
	Fee           *big.Int
	PriceUSD      *big.Int
}

// DeploymentReceipt summarises the one-shot liquidity deployment.
type DeploymentReceipt struct {
	SettlementAmount *big.Int
	UnitsAmount      *big.Int
}
