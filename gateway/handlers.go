package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"curvelaunch/native/curve"
)

const requestBodyLimit = 1 << 20 // 1 MiB

type stateResponse struct {
	UnsoldInventory   string `json:"unsoldInventory"`
	RaisedUSD         string `json:"raisedUsd"`
	LiquidityDeployed bool   `json:"liquidityDeployed"`
}

type priceResponse struct {
	PriceUSD string `json:"priceUsd"`
}

type quoteRequest struct {
	Amount string `json:"amount"`
}

type quoteResponse struct {
	Amount string `json:"amount"`
}

type tradeRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type buyResponse struct {
	Units        string              `json:"units"`
	SettlementIn string              `json:"settlementIn"`
	Fee          string              `json:"fee"`
	PriceUSD     string              `json:"priceUsd"`
	Deployed     bool                `json:"deployed"`
	Deployment   *deploymentResponse `json:"deployment,omitempty"`
}

type deploymentResponse struct {
	SettlementAmount string `json:"settlementAmount"`
	UnitsAmount      string `json:"unitsAmount"`
}

type sellResponse struct {
	Units         string `json:"units"`
	SettlementOut string `json:"settlementOut"`
	Fee           string `json:"fee"`
	PriceUSD      string `json:"priceUsd"`
}

type eventResponse struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

type paramsRequest struct {
	FeePercent             *uint64 `json:"feePercent,omitempty"`
	RaiseTargetUSD         *string `json:"raiseTargetUsd,omitempty"`
	SaleThresholdUnits     *string `json:"saleThresholdUnits,omitempty"`
	InitialPriceMultiplier *string `json:"initialPriceMultiplier,omitempty"`
	FinalPriceMultiplier   *string `json:"finalPriceMultiplier,omitempty"`
	OracleIntervalSeconds  *int64  `json:"oracleIntervalSeconds,omitempty"`
	FeeCollector           *string `json:"feeCollector,omitempty"`
	LiquidityCollector     *string `json:"liquidityCollector,omitempty"`
}

func (s *Server) getState(w http.ResponseWriter, _ *http.Request) {
	cs, err := s.engine.State()
	if err != nil {
		s.writeError(w, "state", err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{
		UnsoldInventory:   cs.UnsoldInventory.String(),
		RaisedUSD:         cs.RaisedUSD.String(),
		LiquidityDeployed: cs.LiquidityDeployed,
	})
}

func (s *Server) getPrice(w http.ResponseWriter, _ *http.Request) {
	price, err := s.engine.CurrentPrice()
	if err != nil {
		s.writeError(w, "price", err)
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{PriceUSD: price.String()})
}

func (s *Server) quoteBuy(w http.ResponseWriter, req *http.Request) {
	var body quoteRequest
	if err := decodeBody(req, &body); err != nil {
		badRequest(w, err)
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		badRequest(w, err)
		return
	}
	units, err := s.engine.QuoteBuy(amount)
	if err != nil {
		s.writeError(w, "quote_buy", err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{Amount: units.String()})
}

func (s *Server) quoteSell(w http.ResponseWriter, req *http.Request) {
	var body quoteRequest
	if err := decodeBody(req, &body); err != nil {
		badRequest(w, err)
		return
	}
	units, err := parseAmount(body.Amount)
	if err != nil {
		badRequest(w, err)
		return
	}
	settlement, err := s.engine.QuoteSell(units)
	if err != nil {
		s.writeError(w, "quote_sell", err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{Amount: settlement.String()})
}

func (s *Server) executeBuy(w http.ResponseWriter, req *http.Request) {
	var body tradeRequest
	if err := decodeBody(req, &body); err != nil {
		badRequest(w, err)
		return
	}
	buyer, err := curve.ParseAddress(body.Account)
	if err != nil {
		badRequest(w, err)
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		badRequest(w, err)
		return
	}
	started := time.Now()
	s.mu.Lock()
	receipt, err := s.engine.ExecuteBuy(buyer, amount)
	s.mu.Unlock()
	s.metrics.OpLatency.WithLabelValues("buy").Observe(time.Since(started).Seconds())
	if err != nil {
		s.metrics.OpErrors.WithLabelValues("buy", errorReason(err)).Inc()
		s.writeError(w, "buy", err)
		return
	}
	s.log.Info("purchase executed",
		"buyer", body.Account,
		"units", receipt.UnitsOut.String(),
		"settlementIn", receipt.SettlementIn.String(),
		"deployed", receipt.Deployed,
	)
	resp := buyResponse{
		Units:        receipt.UnitsOut.String(),
		SettlementIn: receipt.SettlementIn.String(),
		Fee:          receipt.Fee.String(),
		PriceUSD:     receipt.PriceUSD.String(),
		Deployed:     receipt.Deployed,
	}
	if receipt.Deployment != nil {
		resp.Deployment = &deploymentResponse{
			SettlementAmount: receipt.Deployment.SettlementAmount.String(),
			UnitsAmount:      receipt.Deployment.UnitsAmount.String(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) executeSell(w http.ResponseWriter, req *http.Request) {
	var body tradeRequest
	if err := decodeBody(req, &body); err != nil {
		badRequest(w, err)
		return
	}
	seller, err := curve.ParseAddress(body.Account)
	if err != nil {
		badRequest(w, err)
		return
	}
	units, err := parseAmount(body.Amount)
	if err != nil {
		badRequest(w, err)
		return
	}
	started := time.Now()
	s.mu.Lock()
	// The gateway custodies ledger access for its callers, so it grants the
	// module allowance on the seller's behalf before handing off.
	err = s.ledger.Approve(seller, curve.ModuleAddress, units)
	var receipt *curve.SaleReceipt
	if err == nil {
		receipt, err = s.engine.ExecuteSell(seller, units)
		if err != nil {
			// The grant predates the engine's snapshot, so a failed sell
			// leaves it standing unless cleared here.
			if clearErr := s.ledger.Approve(seller, curve.ModuleAddress, big.NewInt(0)); clearErr != nil {
				s.log.Error("allowance clear failed", "seller", body.Account, "error", clearErr)
			}
		}
	}
	s.mu.Unlock()
	s.metrics.OpLatency.WithLabelValues("sell").Observe(time.Since(started).Seconds())
	if err != nil {
		s.metrics.OpErrors.WithLabelValues("sell", errorReason(err)).Inc()
		s.writeError(w, "sell", err)
		return
	}
	s.log.Info("sale executed",
		"seller", body.Account,
		"units", receipt.UnitsIn.String(),
		"settlementOut", receipt.SettlementOut.String(),
	)
	writeJSON(w, http.StatusOK, sellResponse{
		Units:         receipt.UnitsIn.String(),
		SettlementOut: receipt.SettlementOut.String(),
		Fee:           receipt.Fee.String(),
		PriceUSD:      receipt.PriceUSD.String(),
	})
}

func (s *Server) listEvents(w http.ResponseWriter, req *http.Request) {
	cursor := uint64(0)
	if raw := strings.TrimSpace(req.URL.Query().Get("after")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			badRequest(w, fmt.Errorf("invalid cursor %q", raw))
			return
		}
		cursor = parsed
	}
	limit := 100
	if raw := strings.TrimSpace(req.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			badRequest(w, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	entries := s.recorder.After(cursor, limit)
	out := make([]eventResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, eventResponse{
			Sequence:   entry.Sequence,
			Type:       entry.Payload.Type,
			Attributes: entry.Payload.Attributes,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) updateParams(w http.ResponseWriter, req *http.Request) {
	var body paramsRequest
	if err := decodeBody(req, &body); err != nil {
		badRequest(w, err)
		return
	}
	apply := func(err error) bool {
		if err != nil {
			badRequest(w, err)
			return false
		}
		return true
	}
	if body.FeePercent != nil && !apply(s.engine.UpdateFeePercent(*body.FeePercent)) {
		return
	}
	if body.RaiseTargetUSD != nil {
		target, err := parseRawInt(*body.RaiseTargetUSD)
		if err != nil || !apply(s.engine.UpdateRaiseTarget(target)) {
			if err != nil {
				badRequest(w, err)
			}
			return
		}
	}
	if body.SaleThresholdUnits != nil {
		threshold, err := parseRawInt(*body.SaleThresholdUnits)
		if err != nil || !apply(s.engine.UpdateSaleThreshold(threshold)) {
			if err != nil {
				badRequest(w, err)
			}
			return
		}
	}
	if body.InitialPriceMultiplier != nil || body.FinalPriceMultiplier != nil {
		if body.InitialPriceMultiplier == nil || body.FinalPriceMultiplier == nil {
			badRequest(w, fmt.Errorf("both price multipliers must be supplied together"))
			return
		}
		initial, err := parseRawInt(*body.InitialPriceMultiplier)
		if err != nil {
			badRequest(w, err)
			return
		}
		final, err := parseRawInt(*body.FinalPriceMultiplier)
		if err != nil {
			badRequest(w, err)
			return
		}
		if !apply(s.engine.UpdatePriceMultipliers(initial, final)) {
			return
		}
	}
	if body.OracleIntervalSeconds != nil {
		interval := time.Duration(*body.OracleIntervalSeconds) * time.Second
		if !apply(s.engine.UpdateOracleInterval(interval)) {
			return
		}
	}
	if body.FeeCollector != nil {
		collector, err := curve.ParseAddress(*body.FeeCollector)
		if err != nil {
			badRequest(w, err)
			return
		}
		s.engine.SetFeeCollector(collector)
	}
	if body.LiquidityCollector != nil {
		collector, err := curve.ParseAddress(*body.LiquidityCollector)
		if err != nil {
			badRequest(w, err)
			return
		}
		s.engine.SetLiquidityCollector(collector)
	}
	s.log.Info("curve parameters updated")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(req *http.Request, out interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, req.Body, requestBodyLimit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// parseAmount converts a human decimal amount (settlement tokens or asset
// units) into the 1e18 wei scale.
func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	wei := value.Shift(18)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("amount %q exceeds 18 decimal places", raw)
	}
	return wei.BigInt(), nil
}

func parseRawInt(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", raw)
	}
	return value, nil
}

func (s *Server) writeError(w http.ResponseWriter, operation string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, curve.ErrZeroInput),
		errors.Is(err, curve.ErrNothingSold):
		status = http.StatusBadRequest
	case errors.Is(err, curve.ErrInsufficientInventory),
		errors.Is(err, curve.ErrInsufficientReserve),
		errors.Is(err, curve.ErrInsufficientFunds),
		errors.Is(err, curve.ErrSupplyExhausted),
		errors.Is(err, curve.ErrDeployReserveShortfall):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, curve.ErrReentrancy):
		status = http.StatusConflict
	case errors.Is(err, curve.ErrInvalidPrice):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.log.Error("operation failed", "operation", operation, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, curve.ErrZeroInput):
		return "zero_input"
	case errors.Is(err, curve.ErrInsufficientInventory):
		return "insufficient_inventory"
	case errors.Is(err, curve.ErrInsufficientReserve):
		return "insufficient_reserve"
	case errors.Is(err, curve.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, curve.ErrSupplyExhausted):
		return "supply_exhausted"
	case errors.Is(err, curve.ErrNothingSold):
		return "nothing_sold"
	case errors.Is(err, curve.ErrDeployReserveShortfall):
		return "deploy_reserve_shortfall"
	case errors.Is(err, curve.ErrSinkDeploy):
		return "sink_deploy"
	case errors.Is(err, curve.ErrLedgerTransfer):
		return "ledger_transfer"
	case errors.Is(err, curve.ErrReentrancy):
		return "reentrancy"
	case errors.Is(err, curve.ErrInvalidPrice):
		return "invalid_price"
	}
	return "internal"
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
