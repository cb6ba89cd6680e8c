package curve

import "errors"

var (
	// ErrZeroInput rejects operations invoked with a zero amount.
	ErrZeroInput = errors.New("curve: amount must be positive")
	// ErrSupplyExhausted rejects buys once the curve holds no inventory.
	ErrSupplyExhausted = errors.New("curve: inventory exhausted")
	// ErrInsufficientInventory rejects buys larger than the remaining inventory.
	ErrInsufficientInventory = errors.New("curve: insufficient inventory")
	// ErrNothingSold rejects sell quotes before any units have been sold.
	ErrNothingSold = errors.New("curve: no inventory sold")
	// ErrInsufficientReserve rejects sells exceeding the settlement reserve.
	ErrInsufficientReserve = errors.New("curve: insufficient settlement reserve")
	// ErrInsufficientFunds rejects buys the buyer cannot cover.
	ErrInsufficientFunds = errors.New("curve: insufficient settlement balance")
	// ErrDeployReserveShortfall aborts a threshold crossing when the reserve
	// cannot cover the fixed deployment amounts.
	ErrDeployReserveShortfall = errors.New("curve: insufficient reserve for liquidity deployment")
	// ErrLedgerTransfer wraps asset ledger rejections.
	ErrLedgerTransfer = errors.New("curve: ledger transfer failed")
	// ErrSinkDeploy wraps liquidity sink rejections.
	ErrSinkDeploy = errors.New("curve: liquidity sink deployment failed")
	// ErrReentrancy rejects a mutating operation entered while another one is
	// still in flight on the same engine instance.
	ErrReentrancy = errors.New("curve: reentrant call rejected")
	// ErrInvalidPrice rejects non-positive oracle quotes.
	ErrInvalidPrice = errors.New("curve: oracle price must be positive")

	errNilState  = errors.New("curve: state not configured")
	errNilLedger = errors.New("curve: asset ledger not configured")
	errNilOracle = errors.New("curve: price oracle not configured")
	errNilSink   = errors.New("curve: liquidity sink not configured")
)
