package venue

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"
)

var (
	errNilLedger    = errors.New("venue: asset ledger not configured")
	errInvalidInput = errors.New("venue: units and settlement must be positive")
)

// Ledger is the slice of the asset ledger the venue pulls inventory through.
type Ledger interface {
	TransferFrom(spender, from, to [20]byte, amount *big.Int) error
}

// Deposit records a completed liquidity hand-off for auditing.
type Deposit struct {
	Units      *big.Int
	Settlement *big.Int
	Collector  [20]byte
	At         int64
}

// Venue is the reference liquidity sink. It pulls the approved inventory
// slice from the curve account and records the deposit; a production
// deployment would swap this for an adapter encoding commands for a specific
// external exchange.
type Venue struct {
	addr   [20]byte
	source [20]byte
	ledger Ledger
	nowFn  func() int64

	mu       sync.Mutex
	deposits []Deposit
}

// New constructs a venue holding funds at addr and pulling inventory from
// source.
func New(addr, source [20]byte, ledger Ledger) *Venue {
	return &Venue{addr: addr, source: source, ledger: ledger, nowFn: func() int64 { return time.Now().Unix() }}
}

// SetNowFunc overrides the time source for deterministic testing.
func (v *Venue) SetNowFunc(now func() int64) {
	if v == nil || now == nil {
		return
	}
	v.nowFn = now
}

// Address returns the account receiving the settlement deposit.
func (v *Venue) Address() [20]byte { return v.addr }

// Deploy pulls the approved units from the source account and records the
// deposit. The settlement amount has already been credited to Address when
// this runs.
func (v *Venue) Deploy(units, settlement *big.Int, collector [20]byte) error {
	if v == nil || v.ledger == nil {
		return errNilLedger
	}
	if units == nil || units.Sign() <= 0 || settlement == nil || settlement.Sign() <= 0 {
		return errInvalidInput
	}
	if err := v.ledger.TransferFrom(v.addr, v.source, v.addr, units); err != nil {
		return fmt.Errorf("venue: pull inventory: %w", err)
	}
	v.mu.Lock()
	v.deposits = append(v.deposits, Deposit{
		Units:      new(big.Int).Set(units),
		Settlement: new(big.Int).Set(settlement),
		Collector:  collector,
		At:         v.nowFn(),
	})
	v.mu.Unlock()
	return nil
}

// Deposits returns a copy of the recorded hand-offs.
func (v *Venue) Deposits() []Deposit {
	if v == nil {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Deposit, 0, len(v.deposits))
	for _, dep := range v.deposits {
		out = append(out, Deposit{
			Units:      new(big.Int).Set(dep.Units),
			Settlement: new(big.Int).Set(dep.Settlement),
			Collector:  dep.Collector,
			At:         dep.At,
		})
	}
	return out
}
