package curve

import (
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"
)

type countingFeed struct {
	price *big.Int
	calls atomic.Int64
	err   error
}

func (f *countingFeed) LatestPrice() (*big.Int, int64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, 0, f.err
	}
	return new(big.Int).Set(f.price), 0, nil
}

func TestOracleRefreshRespectsInterval(t *testing.T) {
	feed := &countingFeed{price: wei(1000)}
	oracle := NewOracle(feed, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	oracle.SetNowFunc(func() time.Time { return now })

	price, refreshed, err := oracle.Refresh()
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !refreshed || price.Cmp(wei(1000)) != 0 {
		t.Fatalf("first refresh = (%s, %v)", price, refreshed)
	}

	// Inside the window the cache answers without touching the feed.
	now = now.Add(30 * time.Second)
	if _, refreshed, err = oracle.Refresh(); err != nil || refreshed {
		t.Fatalf("second refresh = (%v, %v)", refreshed, err)
	}
	if feed.calls.Load() != 1 {
		t.Fatalf("feed calls = %d, want 1", feed.calls.Load())
	}

	// Past the window the feed is consulted again.
	feed.price = wei(1100)
	now = now.Add(31 * time.Second)
	price, refreshed, err = oracle.Refresh()
	if err != nil || !refreshed {
		t.Fatalf("stale refresh = (%v, %v)", refreshed, err)
	}
	if price.Cmp(wei(1100)) != 0 {
		t.Fatalf("refreshed price = %s, want 1100", price)
	}
}

func TestOracleCurrentDoesNotMutateCache(t *testing.T) {
	feed := &countingFeed{price: wei(1000)}
	oracle := NewOracle(feed, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	oracle.SetNowFunc(func() time.Time { return now })

	if _, _, err := oracle.Refresh(); err != nil {
		t.Fatalf("seed refresh: %v", err)
	}

	// A stale read-only lookup consults the feed but leaves the cache alone.
	feed.price = wei(1100)
	now = now.Add(2 * time.Minute)
	price, err := oracle.Current()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if price.Cmp(wei(1100)) != 0 {
		t.Fatalf("current = %s, want 1100", price)
	}
	// The next mutating refresh still observes a stale cache and rewrites it.
	if _, refreshed, err := oracle.Refresh(); err != nil || !refreshed {
		t.Fatalf("refresh after current = (%v, %v)", refreshed, err)
	}
}

func TestOracleRejectsInvalidPrice(t *testing.T) {
	feed := &countingFeed{price: big.NewInt(0)}
	oracle := NewOracle(feed, time.Minute)
	if _, _, err := oracle.Refresh(); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if _, err := oracle.Current(); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice from Current, got %v", err)
	}
}

func TestOraclePropagatesFeedError(t *testing.T) {
	feedErr := errors.New("upstream unavailable")
	feed := &countingFeed{err: feedErr}
	oracle := NewOracle(feed, time.Minute)
	if _, _, err := oracle.Refresh(); !errors.Is(err, feedErr) {
		t.Fatalf("expected feed error, got %v", err)
	}
}
