package curve

import (
	"encoding/json"
	"fmt"
	"math/big"

	"curvelaunch/core/state"
	"curvelaunch/core/types"
)

var curveStateKey = []byte("curve/state")

// StateStore adapts the journaled state manager to the engine's persistence
// surface. The curve record is stored in the module key/value space so its
// writes participate in snapshot reverts alongside account balances.
type StateStore struct {
	mgr *state.Manager
}

// NewStateStore constructs a store bound to the supplied manager.
func NewStateStore(mgr *state.Manager) *StateStore {
	return &StateStore{mgr: mgr}
}

type storedCurveState struct {
	UnsoldInventory   string `json:"unsoldInventory"`
	RaisedUSD         string `json:"raisedUsd"`
	LiquidityDeployed bool   `json:"liquidityDeployed"`
}

// CurveStateGet loads the singleton curve record.
func (s *StateStore) CurveStateGet() (*CurveState, bool, error) {
	if s == nil || s.mgr == nil {
		return nil, false, errNilState
	}
	raw, ok, err := s.mgr.KVGet(curveStateKey)
	if err != nil || !ok {
		return nil, false, err
	}
	var stored storedCurveState
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("curve state: decode: %w", err)
	}
	inventory, ok := new(big.Int).SetString(stored.UnsoldInventory, 10)
	if !ok {
		return nil, false, fmt.Errorf("curve state: corrupt inventory %q", stored.UnsoldInventory)
	}
	raised, ok := new(big.Int).SetString(stored.RaisedUSD, 10)
	if !ok {
		return nil, false, fmt.Errorf("curve state: corrupt raised total %q", stored.RaisedUSD)
	}
	return &CurveState{
		UnsoldInventory:   inventory,
		RaisedUSD:         raised,
		LiquidityDeployed: stored.LiquidityDeployed,
	}, true, nil
}

// CurveStatePut stores the singleton curve record.
func (s *StateStore) CurveStatePut(cs *CurveState) error {
	if s == nil || s.mgr == nil {
		return errNilState
	}
	if cs == nil {
		return fmt.Errorf("curve state: record must not be nil")
	}
	stored := storedCurveState{
		UnsoldInventory:   formatAmount(cs.UnsoldInventory),
		RaisedUSD:         formatAmount(cs.RaisedUSD),
		LiquidityDeployed: cs.LiquidityDeployed,
	}
	encoded, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("curve state: encode: %w", err)
	}
	return s.mgr.KVPut(curveStateKey, encoded)
}

// Account delegates to the state manager.
func (s *StateStore) Account(addr [20]byte) (*types.Account, error) {
	return s.mgr.Account(addr)
}

// PutAccount delegates to the state manager.
func (s *StateStore) PutAccount(addr [20]byte, acc *types.Account) error {
	return s.mgr.PutAccount(addr, acc)
}

// Snapshot delegates to the state manager journal.
func (s *StateStore) Snapshot() int { return s.mgr.Snapshot() }

// RevertToSnapshot delegates to the state manager journal.
func (s *StateStore) RevertToSnapshot(id int) error { return s.mgr.RevertToSnapshot(id) }

// DiscardSnapshot delegates to the state manager journal.
func (s *StateStore) DiscardSnapshot(id int) error { return s.mgr.DiscardSnapshot(id) }
