package state

import (
	"errors"
	"math/big"
	"sync"

	"curvelaunch/core/types"
)

// ErrInvalidSnapshot is returned when reverting to an unknown snapshot id.
var ErrInvalidSnapshot = errors.New("state: invalid snapshot id")

// Manager is the in-memory execution substrate backing the native modules. It
// keeps account balances and a generic module key/value space, and records a
// journal of every mutation so an enclosing operation can be reverted
// wholesale. All methods are safe for use by a single operation at a time;
// callers serialise operations above this layer.
type Manager struct {
	mu       sync.Mutex
	accounts map[[20]byte]*types.Account
	kv       map[string][]byte
	journal  []func(*Manager)
}

// NewManager constructs an empty state manager.
func NewManager() *Manager {
	return &Manager{
		accounts: make(map[[20]byte]*types.Account),
		kv:       make(map[string][]byte),
	}
}

// Account returns a deep copy of the account stored under addr. Missing
// accounts resolve to zero balances.
func (m *Manager) Account(addr [20]byte) (*types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[addr]; ok && acc != nil {
		return acc.Clone().Normalize(), nil
	}
	return types.NewAccount(), nil
}

// PutAccount stores a deep copy of the supplied account and journals the
// previous value so the write participates in snapshot reverts.
func (m *Manager) PutAccount(addr [20]byte, acc *types.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, existed := m.accounts[addr]
	m.journal = append(m.journal, func(mgr *Manager) {
		if existed {
			mgr.accounts[addr] = prev
			return
		}
		delete(mgr.accounts, addr)
	})
	if acc == nil {
		delete(m.accounts, addr)
		return nil
	}
	m.accounts[addr] = acc.Clone().Normalize()
	return nil
}

// KVGet returns the raw value stored under key.
func (m *Manager) KVGet(key []byte) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.kv[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, value...), true, nil
}

// KVPut stores value under key, journaling the previous value.
func (m *Manager) KVPut(key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := string(key)
	prev, existed := m.kv[k]
	m.journal = append(m.journal, func(mgr *Manager) {
		if existed {
			mgr.kv[k] = prev
			return
		}
		delete(mgr.kv, k)
	})
	m.kv[k] = append([]byte{}, value...)
	return nil
}

// Snapshot returns an identifier for the current journal position. Reverting
// to it undoes every mutation performed afterwards.
func (m *Manager) Snapshot() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.journal)
}

// DiscardSnapshot commits every mutation performed since the supplied
// snapshot, releasing the journal entries that would have undone them. The
// enclosing operation calls this on success so the journal stays bounded by
// the single in-flight operation. Reverting to an earlier snapshot afterwards
// no longer undoes the discarded mutations.
func (m *Manager) DiscardSnapshot(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 0 || id > len(m.journal) {
		return ErrInvalidSnapshot
	}
	for i := id; i < len(m.journal); i++ {
		m.journal[i] = nil
	}
	m.journal = m.journal[:id]
	return nil
}

// RevertToSnapshot unwinds the journal back to the supplied snapshot id.
func (m *Manager) RevertToSnapshot(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 0 || id > len(m.journal) {
		return ErrInvalidSnapshot
	}
	for i := len(m.journal) - 1; i >= id; i-- {
		m.journal[i](m)
	}
	m.journal = m.journal[:id]
	return nil
}

// Credit adds amount to the settlement balance of addr. Used by genesis
// funding and test fixtures; regular flows move value through module engines.
func (m *Manager) Credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	acc, err := m.Account(addr)
	if err != nil {
		return err
	}
	acc.BalanceSettlement = new(big.Int).Add(acc.BalanceSettlement, amount)
	return m.PutAccount(addr, acc)
}
