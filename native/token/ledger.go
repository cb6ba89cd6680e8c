package token

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"curvelaunch/core/types"
)

var (
	errNilState            = errors.New("token ledger: state not configured")
	errInvalidAmount       = errors.New("token ledger: amount must be positive")
	errInsufficientBalance = errors.New("token ledger: insufficient balance")
	errInsufficientAllow   = errors.New("token ledger: insufficient allowance")
)

var allowancePrefix = []byte("token/allowance/")

// State abstracts the subset of the state manager the ledger relies on.
type State interface {
	Account(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, acc *types.Account) error
	KVGet(key []byte) ([]byte, bool, error)
	KVPut(key []byte, value []byte) error
}

// Ledger implements the asset-side balance book for the curve-issued token.
// Balances live on state accounts and allowances in the module key/value
// space, so both participate in the substrate's snapshot/revert journal.
type Ledger struct {
	state State
}

// NewLedger constructs a ledger bound to the provided state backend.
func NewLedger(state State) *Ledger {
	return &Ledger{state: state}
}

// BalanceOf returns the asset balance held by addr.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	acc, err := l.state.Account(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Normalize().BalanceAsset), nil
}

// Transfer moves amount units from one account to another.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	return l.move(from, to, amount)
}

// TransferFrom moves amount units on behalf of spender, consuming the
// allowance granted by the source account. A spender moving its own funds
// bypasses the allowance check.
func (l *Ledger) TransferFrom(spender, from, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	if spender != from {
		allowance, err := l.Allowance(from, spender)
		if err != nil {
			return err
		}
		if allowance.Cmp(amount) < 0 {
			return errInsufficientAllow
		}
		remaining := new(big.Int).Sub(allowance, amount)
		if err := l.putAllowance(from, spender, remaining); err != nil {
			return err
		}
	}
	return l.move(from, to, amount)
}

// Approve grants spender the right to move up to amount units from owner.
// A zero amount clears the grant.
func (l *Ledger) Approve(owner, spender [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return errInvalidAmount
	}
	return l.putAllowance(owner, spender, amount)
}

// Allowance reports the remaining grant from owner to spender.
func (l *Ledger) Allowance(owner, spender [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	raw, ok, err := l.state.KVGet(allowanceKey(owner, spender))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	value, valid := new(big.Int).SetString(string(raw), 10)
	if !valid {
		return nil, fmt.Errorf("token ledger: corrupt allowance %q", string(raw))
	}
	return value, nil
}

// Mint credits newly issued units to the supplied account. Only genesis
// bootstrap paths call this; the curve never expands supply afterwards.
func (l *Ledger) Mint(to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	acc, err := l.state.Account(to)
	if err != nil {
		return err
	}
	acc = acc.Normalize()
	acc.BalanceAsset = new(big.Int).Add(acc.BalanceAsset, amount)
	return l.state.PutAccount(to, acc)
}

func (l *Ledger) move(from, to [20]byte, amount *big.Int) error {
	source, err := l.state.Account(from)
	if err != nil {
		return err
	}
	source = source.Normalize()
	if source.BalanceAsset.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	source.BalanceAsset = new(big.Int).Sub(source.BalanceAsset, amount)
	if err := l.state.PutAccount(from, source); err != nil {
		return err
	}
	dest, err := l.state.Account(to)
	if err != nil {
		return err
	}
	dest = dest.Normalize()
	dest.BalanceAsset = new(big.Int).Add(dest.BalanceAsset, amount)
	return l.state.PutAccount(to, dest)
}

func (l *Ledger) putAllowance(owner, spender [20]byte, amount *big.Int) error {
	return l.state.KVPut(allowanceKey(owner, spender), []byte(amount.String()))
}

func allowanceKey(owner, spender [20]byte) []byte {
	key := make([]byte, 0, len(allowancePrefix)+81)
	key = append(key, allowancePrefix...)
	key = append(key, hex.EncodeToString(owner[:])...)
	key = append(key, '/')
	key = append(key, hex.EncodeToString(spender[:])...)
	return key
}
