package observability

import (
	"curvelaunch/core/events"
	"curvelaunch/native/curve"
)

// EventCounter bumps prometheus counters for every emitted engine event. It
// is registered alongside the audit store in the emitter fan-out.
type EventCounter struct {
	metrics *CurveMetrics
}

// NewEventCounter constructs a counter bound to the shared metrics registry.
func NewEventCounter() *EventCounter {
	return &EventCounter{metrics: Metrics()}
}

// Emit implements the events.Emitter interface.
func (c *EventCounter) Emit(evt events.Event) {
	if c == nil || c.metrics == nil || evt == nil {
		return
	}
	switch evt.EventType() {
	case curve.EventTypePurchaseExecuted:
		c.metrics.Purchases.Inc()
	case curve.EventTypeSaleExecuted:
		c.metrics.Sales.Inc()
	case curve.EventTypeLiquidityDeployed:
		c.metrics.Deployments.Inc()
	case curve.EventTypePriceRefreshed:
		c.metrics.OracleRefreshes.Inc()
	}
}
