package curve

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"curvelaunch/core/events"
	"curvelaunch/core/types"
)

// engineState is the persistence surface the engine requires from the
// execution substrate. Snapshot/RevertToSnapshot give every entry point
// all-or-nothing semantics.
type engineState interface {
	CurveStateGet() (*CurveState, bool, error)
	CurveStatePut(*CurveState) error
	Account(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, acc *types.Account) error
	Snapshot() int
	RevertToSnapshot(id int) error
	DiscardSnapshot(id int) error
}

// AssetLedger is the consumed capability holding balances of the issued
// asset.
type AssetLedger interface {
	Transfer(from, to [20]byte, amount *big.Int) error
	TransferFrom(spender, from, to [20]byte, amount *big.Int) error
	Approve(owner, spender [20]byte, amount *big.Int) error
	BalanceOf(addr [20]byte) (*big.Int, error)
}

// LiquiditySink is the venue adapter receiving the one-time inventory and
// value deposit. Deploy pulls the approved units itself; the settlement
// amount has already been credited to Address when it runs.
type LiquiditySink interface {
	Address() [20]byte
	Deploy(units, settlement *big.Int, collector [20]byte) error
}

// Engine owns sale and purchase pricing, fee extraction, cumulative
// accounting and the one-shot liquidity deployment transition.
type Engine struct {
	state   engineState
	ledger  AssetLedger
	oracle  *Oracle
	sink    LiquiditySink
	emitter events.Emitter
	nowFn   func() int64

	paramsMu sync.RWMutex
	params   Params

	guardMu sync.Mutex
	busy    bool

	feeCollector       [20]byte
	liquidityCollector [20]byte
}

// NewEngine constructs an engine with the supplied parameter set and default
// dependencies.
func NewEngine(params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		params:  params.Clone(),
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}, nil
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the asset ledger capability.
func (e *Engine) SetLedger(ledger AssetLedger) { e.ledger = ledger }

// SetOracle configures the cached price oracle.
func (e *Engine) SetOracle(oracle *Oracle) {
	e.oracle = oracle
	if oracle != nil {
		oracle.SetInterval(e.Params().OracleUpdateInterval)
	}
}

// SetSink configures the liquidity sink capability.
func (e *Engine) SetSink(sink LiquiditySink) { e.sink = sink }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetFeeCollector configures the account receiving extracted fees.
func (e *Engine) SetFeeCollector(addr [20]byte) { e.feeCollector = addr }

// SetLiquidityCollector configures the account passed to the sink as the
// recipient of venue shares.
func (e *Engine) SetLiquidityCollector(addr [20]byte) { e.liquidityCollector = addr }

// Params returns a copy of the active parameter set.
func (e *Engine) Params() Params {
	e.paramsMu.RLock()
	defer e.paramsMu.RUnlock()
	return e.params.Clone()
}

func (e *Engine) updateParams(mutate func(*Params)) error {
	e.paramsMu.Lock()
	defer e.paramsMu.Unlock()
	next := e.params.Clone()
	mutate(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	e.params = next
	return nil
}

// UpdateFeePercent replaces the fee percentage. Access control lives with the
// caller holding the administrative capability.
func (e *Engine) UpdateFeePercent(percent uint64) error {
	return e.updateParams(func(p *Params) { p.FeePercent = percent })
}

// UpdateRaiseTarget replaces the reference-currency raise target.
func (e *Engine) UpdateRaiseTarget(target *big.Int) error {
	return e.updateParams(func(p *Params) { p.RaiseTargetUSD = copyBigInt(target) })
}

// UpdateSaleThreshold replaces the sold-unit deployment threshold.
func (e *Engine) UpdateSaleThreshold(threshold *big.Int) error {
	return e.updateParams(func(p *Params) { p.SaleThreshold = copyBigInt(threshold) })
}

// UpdatePriceMultipliers replaces the initial and final price multipliers.
func (e *Engine) UpdatePriceMultipliers(initial, final *big.Int) error {
	return e.updateParams(func(p *Params) {
		p.InitialPriceMultiplier = copyBigInt(initial)
		p.FinalPriceMultiplier = copyBigInt(final)
	})
}

// UpdateOracleInterval replaces the oracle refresh window.
func (e *Engine) UpdateOracleInterval(interval time.Duration) error {
	if err := e.updateParams(func(p *Params) { p.OracleUpdateInterval = interval }); err != nil {
		return err
	}
	if e.oracle != nil {
		e.oracle.SetInterval(interval)
	}
	return nil
}

func (e *Engine) begin() error {
	e.guardMu.Lock()
	defer e.guardMu.Unlock()
	if e.busy {
		return ErrReentrancy
	}
	e.busy = true
	return nil
}

func (e *Engine) end() {
	e.guardMu.Lock()
	e.busy = false
	e.guardMu.Unlock()
}

func (e *Engine) requireDeps() error {
	switch {
	case e == nil || e.state == nil:
		return errNilState
	case e.ledger == nil:
		return errNilLedger
	case e.oracle == nil:
		return errNilOracle
	case e.sink == nil:
		return errNilSink
	}
	return nil
}

func (e *Engine) loadState() (*CurveState, error) {
	cs, ok, err := e.state.CurveStateGet()
	if err != nil {
		return nil, err
	}
	if !ok || cs == nil {
		cs = NewCurveState(e.Params().TotalSupply)
	}
	return cs, nil
}

// State returns a copy of the current curve accounting record.
func (e *Engine) State() (*CurveState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cs, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return cs.Clone(), nil
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(eventEnvelope{evt: evt})
}

func priceAt(params Params, oraclePrice, sold *big.Int) *big.Int {
	initial := initialPriceFor(oraclePrice, params.InitialPriceMultiplier)
	if sold == nil || sold.Sign() == 0 {
		return initial
	}
	final := initialPriceFor(oraclePrice, params.FinalPriceMultiplier)
	return interpolatePrice(initial, final, sold, params.SaleThreshold)
}

// CurrentPrice returns the unit price in reference currency for the current
// sold fraction, using the read-only oracle path.
func (e *Engine) CurrentPrice() (*big.Int, error) {
	if e == nil || e.state == nil || e.oracle == nil {
		return nil, errNilOracle
	}
	oraclePrice, err := e.oracle.Current()
	if err != nil {
		return nil, err
	}
	cs, err := e.loadState()
	if err != nil {
		return nil, err
	}
	params := e.Params()
	return priceAt(params, oraclePrice, cs.Sold(params.TotalSupply)), nil
}

// QuoteBuy previews the units received for the supplied settlement amount.
func (e *Engine) QuoteBuy(settlementIn *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil || e.oracle == nil {
		return nil, errNilOracle
	}
	if settlementIn == nil || settlementIn.Sign() <= 0 {
		return nil, ErrZeroInput
	}
	oraclePrice, err := e.oracle.Current()
	if err != nil {
		return nil, err
	}
	cs, err := e.loadState()
	if err != nil {
		return nil, err
	}
	units, _, _, err := quoteBuyAt(e.Params(), cs, oraclePrice, settlementIn)
	return units, err
}

// QuoteSell previews the settlement returned for the supplied unit amount.
func (e *Engine) QuoteSell(unitsIn *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil || e.oracle == nil {
		return nil, errNilOracle
	}
	if unitsIn == nil || unitsIn.Sign() <= 0 {
		return nil, ErrZeroInput
	}
	oraclePrice, err := e.oracle.Current()
	if err != nil {
		return nil, err
	}
	cs, err := e.loadState()
	if err != nil {
		return nil, err
	}
	settlementOut, _, err := quoteSellAt(e.Params(), cs, oraclePrice, unitsIn)
	return settlementOut, err
}

func quoteBuyAt(params Params, cs *CurveState, oraclePrice, settlementIn *big.Int) (units, usdGross, unitPrice *big.Int, err error) {
	usdGross = settlementToUSD(settlementIn, oraclePrice)
	unitPrice = priceAt(params, oraclePrice, cs.Sold(params.TotalSupply))
	units = usdToUnits(usdGross, unitPrice)
	if units.Sign() <= 0 {
		return nil, nil, nil, ErrZeroInput
	}
	if units.Cmp(cs.UnsoldInventory) > 0 {
		return nil, nil, nil, ErrInsufficientInventory
	}
	return units, usdGross, unitPrice, nil
}

func quoteSellAt(params Params, cs *CurveState, oraclePrice, unitsIn *big.Int) (settlementOut, unitPrice *big.Int, err error) {
	sold := cs.Sold(params.TotalSupply)
	if sold.Sign() == 0 {
		return nil, nil, ErrNothingSold
	}
	unitPrice = priceAt(params, oraclePrice, sold)
	usd := unitsToUSD(unitsIn, unitPrice)
	settlementOut = usdToSettlement(usd, oraclePrice)
	if settlementOut.Sign() <= 0 {
		return nil, nil, ErrZeroInput
	}
	return settlementOut, unitPrice, nil
}

// ExecuteBuy purchases units along the curve for the beneficiary. The whole
// operation, including a triggered liquidity deployment, commits atomically:
// any failure reverts every mutation performed since entry.
func (e *Engine) ExecuteBuy(beneficiary [20]byte, settlementIn *big.Int) (*PurchaseReceipt, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()
	if err := e.requireDeps(); err != nil {
		return nil, err
	}
	if settlementIn == nil || settlementIn.Sign() <= 0 {
		return nil, ErrZeroInput
	}
	cs, err := e.loadState()
	if err != nil {
		return nil, err
	}
	if cs.UnsoldInventory.Sign() == 0 {
		return nil, ErrSupplyExhausted
	}

	params := e.Params()
	snap := e.state.Snapshot()
	pending := make([]*types.Event, 0, 3)
	fail := func(err error) (*PurchaseReceipt, error) {
		if revertErr := e.state.RevertToSnapshot(snap); revertErr != nil {
			return nil, errors.Join(err, revertErr)
		}
		return nil, err
	}

	oraclePrice, refreshed, err := e.oracle.Refresh()
	if err != nil {
		return fail(err)
	}
	if refreshed {
		pending = append(pending, PriceRefreshedEvent(oraclePrice, e.nowFn()))
	}

	units, usdGross, unitPrice, err := quoteBuyAt(params, cs, oraclePrice, settlementIn)
	if err != nil {
		return fail(err)
	}

	if err := e.moveSettlement(beneficiary, ModuleAddress, settlementIn, ErrInsufficientFunds); err != nil {
		return fail(err)
	}
	fee, _ := feeSplit(settlementIn, params.FeePercent)
	if err := e.moveSettlement(ModuleAddress, e.feeCollector, fee, ErrInsufficientReserve); err != nil {
		return fail(err)
	}
	if err := e.ledger.Transfer(ModuleAddress, beneficiary, units); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrLedgerTransfer, err))
	}

	cs.UnsoldInventory = new(big.Int).Sub(cs.UnsoldInventory, units)
	// Threshold accounting values the full inbound settlement, prior to fee.
	cs.RaisedUSD = new(big.Int).Add(cs.RaisedUSD, usdGross)
	if err := e.state.CurveStatePut(cs); err != nil {
		return fail(err)
	}

	var deployment *DeploymentReceipt
	if e.deploymentDue(params, cs) {
		deployment, err = e.deployLiquidity(params, cs, &pending)
		if err != nil {
			return fail(err)
		}
	}

	if err := e.state.DiscardSnapshot(snap); err != nil {
		return fail(err)
	}

	pending = append(pending, PurchaseExecutedEvent(beneficiary, units, settlementIn))
	for _, evt := range pending {
		e.emit(evt)
	}
	return &PurchaseReceipt{
		Buyer:        beneficiary,
		UnitsOut:     units,
		SettlementIn: new(big.Int).Set(settlementIn),
		Fee:          fee,
		PriceUSD:     unitPrice,
		Deployed:     deployment != nil,
		Deployment:   deployment,
	}, nil
}

// ExecuteSell returns units to the curve in exchange for settlement, less the
// percentage fee. The seller must have granted the curve module an allowance
// covering unitsIn.
func (e *Engine) ExecuteSell(seller [20]byte, unitsIn *big.Int) (*SaleReceipt, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()
	if err := e.requireDeps(); err != nil {
		return nil, err
	}
	if unitsIn == nil || unitsIn.Sign() <= 0 {
		return nil, ErrZeroInput
	}
	cs, err := e.loadState()
	if err != nil {
		return nil, err
	}

	params := e.Params()
	snap := e.state.Snapshot()
	pending := make([]*types.Event, 0, 2)
	fail := func(err error) (*SaleReceipt, error) {
		if revertErr := e.state.RevertToSnapshot(snap); revertErr != nil {
			return nil, errors.Join(err, revertErr)
		}
		return nil, err
	}

	oraclePrice, refreshed, err := e.oracle.Refresh()
	if err != nil {
		return fail(err)
	}
	if refreshed {
		pending = append(pending, PriceRefreshedEvent(oraclePrice, e.nowFn()))
	}

	settlementOut, unitPrice, err := quoteSellAt(params, cs, oraclePrice, unitsIn)
	if err != nil {
		return fail(err)
	}
	reserve, err := e.settlementBalance(ModuleAddress)
	if err != nil {
		return fail(err)
	}
	if reserve.Cmp(settlementOut) < 0 {
		return fail(ErrInsufficientReserve)
	}

	if err := e.ledger.TransferFrom(ModuleAddress, seller, ModuleAddress, unitsIn); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrLedgerTransfer, err))
	}
	cs.UnsoldInventory = new(big.Int).Add(cs.UnsoldInventory, unitsIn)
	if err := e.state.CurveStatePut(cs); err != nil {
		return fail(err)
	}

	fee, net := feeSplit(settlementOut, params.FeePercent)
	if err := e.moveSettlement(ModuleAddress, e.feeCollector, fee, ErrInsufficientReserve); err != nil {
		return fail(err)
	}
	if err := e.moveSettlement(ModuleAddress, seller, net, ErrInsufficientReserve); err != nil {
		return fail(err)
	}

	if err := e.state.DiscardSnapshot(snap); err != nil {
		return fail(err)
	}

	pending = append(pending, SaleExecutedEvent(seller, unitsIn, settlementOut))
	for _, evt := range pending {
		e.emit(evt)
	}
	return &SaleReceipt{
		Seller:        seller,
		UnitsIn:       new(big.Int).Set(unitsIn),
		SettlementOut: settlementOut,
		Fee:           fee,
		PriceUSD:      unitPrice,
	}, nil
}

func (e *Engine) deploymentDue(params Params, cs *CurveState) bool {
	if cs.LiquidityDeployed {
		return false
	}
	if cs.RaisedUSD.Cmp(params.RaiseTargetUSD) < 0 {
		return false
	}
	return cs.Sold(params.TotalSupply).Cmp(params.SaleThreshold) >= 0
}

// deployLiquidity performs the Active -> Deployed transition. The latch write
// is the last successful step so a failed sink call never leaves it set; the
// caller reverts the whole enclosing buy on any error returned here.
func (e *Engine) deployLiquidity(params Params, cs *CurveState, pending *[]*types.Event) (*DeploymentReceipt, error) {
	required := new(big.Int).Add(params.DeploySettlement, params.DeployFeeSettlement)
	reserve, err := e.settlementBalance(ModuleAddress)
	if err != nil {
		return nil, err
	}
	if reserve.Cmp(required) < 0 {
		return nil, ErrDeployReserveShortfall
	}
	if err := e.ledger.Approve(ModuleAddress, e.sink.Address(), params.DeployUnits); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerTransfer, err)
	}
	if err := e.moveSettlement(ModuleAddress, e.sink.Address(), params.DeploySettlement, ErrDeployReserveShortfall); err != nil {
		return nil, err
	}
	if err := e.sink.Deploy(params.DeployUnits, params.DeploySettlement, e.liquidityCollector); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSinkDeploy, err)
	}
	if err := e.moveSettlement(ModuleAddress, e.feeCollector, params.DeployFeeSettlement, ErrDeployReserveShortfall); err != nil {
		return nil, err
	}
	cs.LiquidityDeployed = true
	if err := e.state.CurveStatePut(cs); err != nil {
		return nil, err
	}
	*pending = append(*pending, LiquidityDeployedEvent(params.DeploySettlement, params.DeployUnits))
	return &DeploymentReceipt{
		SettlementAmount: new(big.Int).Set(params.DeploySettlement),
		UnitsAmount:      new(big.Int).Set(params.DeployUnits),
	}, nil
}

func (e *Engine) settlementBalance(addr [20]byte) (*big.Int, error) {
	acc, err := e.state.Account(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Normalize().BalanceSettlement), nil
}

func (e *Engine) moveSettlement(from, to [20]byte, amount *big.Int, shortfall error) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	source, err := e.state.Account(from)
	if err != nil {
		return err
	}
	source = source.Normalize()
	if source.BalanceSettlement.Cmp(amount) < 0 {
		return shortfall
	}
	source.BalanceSettlement = new(big.Int).Sub(source.BalanceSettlement, amount)
	if err := e.state.PutAccount(from, source); err != nil {
		return err
	}
	dest, err := e.state.Account(to)
	if err != nil {
		return err
	}
	dest = dest.Normalize()
	dest.BalanceSettlement = new(big.Int).Add(dest.BalanceSettlement, amount)
	return e.state.PutAccount(to, dest)
}
