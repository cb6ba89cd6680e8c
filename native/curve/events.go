package curve

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"curvelaunch/core/types"
)

const (
	// EventTypePurchaseExecuted is emitted after every successful buy.
	EventTypePurchaseExecuted = "curve.purchase.executed"
	// EventTypeSaleExecuted is emitted after every successful sell.
	EventTypeSaleExecuted = "curve.sale.executed"
	// EventTypePriceRefreshed is emitted when the oracle cache is rewritten.
	EventTypePriceRefreshed = "curve.price.refreshed"
	// EventTypeLiquidityDeployed is emitted by the one-shot deployment.
	EventTypeLiquidityDeployed = "curve.liquidity.deployed"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// PurchaseExecutedEvent captures a completed buy.
func PurchaseExecutedEvent(buyer [20]byte, units, settlementIn *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypePurchaseExecuted,
		Attributes: map[string]string{
			"buyer":        hexAddr(buyer),
			"units":        formatAmount(units),
			"settlementIn": formatAmount(settlementIn),
		},
	}
}

// SaleExecutedEvent captures a completed sell.
func SaleExecutedEvent(seller [20]byte, units, settlementOut *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeSaleExecuted,
		Attributes: map[string]string{
			"seller":        hexAddr(seller),
			"units":         formatAmount(units),
			"settlementOut": formatAmount(settlementOut),
		},
	}
}

// PriceRefreshedEvent captures an oracle cache rewrite.
func PriceRefreshedEvent(newPrice *big.Int, at int64) *types.Event {
	return &types.Event{
		Type: EventTypePriceRefreshed,
		Attributes: map[string]string{
			"newPrice": formatAmount(newPrice),
			"at":       strconv.FormatInt(at, 10),
		},
	}
}

// LiquidityDeployedEvent captures the one-shot deployment hand-off.
func LiquidityDeployedEvent(settlementAmount, unitsAmount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeLiquidityDeployed,
		Attributes: map[string]string{
			"settlementAmount": formatAmount(settlementAmount),
			"unitsAmount":      formatAmount(unitsAmount),
		},
	}
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
