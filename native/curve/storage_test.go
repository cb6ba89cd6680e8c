package curve

import (
	"testing"

	"curvelaunch/core/state"
)

func TestStateStoreRoundTrip(t *testing.T) {
	store := NewStateStore(state.NewManager())

	if _, ok, err := store.CurveStateGet(); err != nil || ok {
		t.Fatalf("empty store = (%v, %v)", ok, err)
	}

	cs := NewCurveState(wei(1000))
	cs.UnsoldInventory = wei(600)
	cs.RaisedUSD = wei(1000)
	cs.LiquidityDeployed = true
	if err := store.CurveStatePut(cs); err != nil {
		t.Fatalf("put: %v", err)
	}

	loaded, ok, err := store.CurveStateGet()
	if err != nil || !ok {
		t.Fatalf("get = (%v, %v)", ok, err)
	}
	if loaded.UnsoldInventory.Cmp(cs.UnsoldInventory) != 0 {
		t.Fatalf("inventory = %s, want %s", loaded.UnsoldInventory, cs.UnsoldInventory)
	}
	if loaded.RaisedUSD.Cmp(cs.RaisedUSD) != 0 {
		t.Fatalf("raised = %s, want %s", loaded.RaisedUSD, cs.RaisedUSD)
	}
	if !loaded.LiquidityDeployed {
		t.Fatalf("latch lost in round trip")
	}
}

func TestStateStoreWritesParticipateInSnapshots(t *testing.T) {
	mgr := state.NewManager()
	store := NewStateStore(mgr)

	if err := store.CurveStatePut(NewCurveState(wei(1000))); err != nil {
		t.Fatalf("seed put: %v", err)
	}
	snap := store.Snapshot()

	updated := NewCurveState(wei(1000))
	updated.UnsoldInventory = wei(400)
	if err := store.CurveStatePut(updated); err != nil {
		t.Fatalf("update put: %v", err)
	}
	if err := store.RevertToSnapshot(snap); err != nil {
		t.Fatalf("revert: %v", err)
	}

	loaded, ok, err := store.CurveStateGet()
	if err != nil || !ok {
		t.Fatalf("get after revert = (%v, %v)", ok, err)
	}
	if loaded.UnsoldInventory.Cmp(wei(1000)) != 0 {
		t.Fatalf("revert lost the seed record: %s", loaded.UnsoldInventory)
	}
}

func TestParseAddress(t *testing.T) {
	derived := DeriveAddress("curve/module")
	parsed, err := ParseAddress(hexAddr(derived))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != derived {
		t.Fatalf("round trip mismatch")
	}
	if _, err := ParseAddress("0x1234"); err == nil {
		t.Fatalf("short address should be rejected")
	}
	if _, err := ParseAddress("0x" + "zz" + "00000000000000000000000000000000000000"); err == nil {
		t.Fatalf("non-hex address should be rejected")
	}
}
