package types

import "math/big"

// Account tracks the balances held by a single address. BalanceSettlement is
// denominated in the native settlement asset (wei, 1e18 scale) while
// BalanceAsset holds units of the curve-issued token at the same scale.
type Account struct {
	BalanceSettlement *big.Int
	BalanceAsset      *big.Int
}

// NewAccount returns an account with zeroed balances.
func NewAccount() *Account {
	return &Account{BalanceSettlement: big.NewInt(0), BalanceAsset: big.NewInt(0)}
}

// Normalize replaces nil balance fields with zero values so callers can
// operate on the account without nil checks.
func (a *Account) Normalize() *Account {
	if a == nil {
		return NewAccount()
	}
	if a.BalanceSettlement == nil {
		a.BalanceSettlement = big.NewInt(0)
	}
	if a.BalanceAsset == nil {
		a.BalanceAsset = big.NewInt(0)
	}
	return a
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{}
	if a.BalanceSettlement != nil {
		clone.BalanceSettlement = new(big.Int).Set(a.BalanceSettlement)
	}
	if a.BalanceAsset != nil {
		clone.BalanceAsset = new(big.Int).Set(a.BalanceAsset)
	}
	return clone
}
