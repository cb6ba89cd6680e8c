package curve

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// PriceFeed resolves the latest reference-currency price for the settlement
// asset, scaled to the fixed 1e18 decimal base.
type PriceFeed interface {
	LatestPrice() (price *big.Int, updatedAt int64, err error)
}

// Oracle caches feed quotes so mutating refreshes hit the upstream at most
// once per update interval while read-only lookups stay responsive across
// interval boundaries.
type Oracle struct {
	mu          sync.Mutex
	feed        PriceFeed
	interval    time.Duration
	price       *big.Int
	lastRefresh time.Time
	nowFn       func() time.Time
}

// NewOracle constructs a cached oracle over the supplied feed.
func NewOracle(feed PriceFeed, interval time.Duration) *Oracle {
	return &Oracle{feed: feed, interval: interval, nowFn: time.Now}
}

// SetNowFunc overrides the time source for deterministic testing.
func (o *Oracle) SetNowFunc(now func() time.Time) {
	if o == nil || now == nil {
		return
	}
	o.mu.Lock()
	o.nowFn = now
	o.mu.Unlock()
}

// SetInterval updates the refresh window.
func (o *Oracle) SetInterval(interval time.Duration) {
	if o == nil || interval < 0 {
		return
	}
	o.mu.Lock()
	o.interval = interval
	o.mu.Unlock()
}

// Refresh updates the cache from the feed when the cached quote has aged past
// the update interval. It reports the effective price and whether the cache
// was actually rewritten.
func (o *Oracle) Refresh() (*big.Int, bool, error) {
	if o == nil || o.feed == nil {
		return nil, false, errNilOracle
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.nowFn()
	if o.price != nil && now.Before(o.lastRefresh.Add(o.interval)) {
		return new(big.Int).Set(o.price), false, nil
	}
	price, _, err := o.feed.LatestPrice()
	if err != nil {
		return nil, false, err
	}
	if price == nil || price.Sign() <= 0 {
		return nil, false, ErrInvalidPrice
	}
	o.price = new(big.Int).Set(price)
	o.lastRefresh = now
	return new(big.Int).Set(price), true, nil
}

// Current returns the cached price while it is fresh, consulting the feed
// directly — without touching the cache — once it has gone stale. Quote paths
// use this read-only lookup; transaction entry points call Refresh.
func (o *Oracle) Current() (*big.Int, error) {
	if o == nil || o.feed == nil {
		return nil, errNilOracle
	}
	o.mu.Lock()
	cached := o.price
	fresh := cached != nil && o.nowFn().Before(o.lastRefresh.Add(o.interval))
	o.mu.Unlock()
	if fresh {
		return new(big.Int).Set(cached), nil
	}
	price, _, err := o.feed.LatestPrice()
	if err != nil {
		return nil, err
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	return new(big.Int).Set(price), nil
}

// ManualFeed is an in-memory feed used for tests and operator overrides.
type ManualFeed struct {
	mu        sync.RWMutex
	price     *big.Int
	updatedAt int64
}

// NewManualFeed constructs a manual feed seeded with the supplied price.
func NewManualFeed(price *big.Int, updatedAt int64) *ManualFeed {
	feed := &ManualFeed{}
	feed.Set(price, updatedAt)
	return feed
}

// Set stores the supplied price.
func (f *ManualFeed) Set(price *big.Int, updatedAt int64) {
	if f == nil {
		return
	}
	f.mu.Lock()
	if price != nil {
		f.price = new(big.Int).Set(price)
	} else {
		f.price = nil
	}
	f.updatedAt = updatedAt
	f.mu.Unlock()
}

// LatestPrice implements the PriceFeed interface.
func (f *ManualFeed) LatestPrice() (*big.Int, int64, error) {
	if f == nil {
		return nil, 0, fmt.Errorf("manual feed not configured")
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.price == nil {
		return nil, 0, fmt.Errorf("manual feed: price not set")
	}
	return new(big.Int).Set(f.price), f.updatedAt, nil
}

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const defaultFeedEndpoint = "https://api.coingecko.com/api/v3/simple/price"

// HTTPFeed adapts the CoinGecko simple-price API into a settlement asset
// price feed.
type HTTPFeed struct {
	client   HTTPDoer
	endpoint string
	assetID  string
	vs       string
}

// NewHTTPFeed constructs an HTTP feed for the supplied asset identifier,
// quoting against vs (defaults to usd). A nil client falls back to
// http.DefaultClient.
func NewHTTPFeed(client HTTPDoer, endpoint, assetID, vs string) *HTTPFeed {
	if client == nil {
		client = http.DefaultClient
	}
	ep := strings.TrimSpace(endpoint)
	if ep == "" {
		ep = defaultFeedEndpoint
	}
	quote := strings.ToLower(strings.TrimSpace(vs))
	if quote == "" {
		quote = "usd"
	}
	return &HTTPFeed{client: client, endpoint: ep, assetID: strings.TrimSpace(assetID), vs: quote}
}

// LatestPrice implements the PriceFeed interface.
func (f *HTTPFeed) LatestPrice() (*big.Int, int64, error) {
	if f == nil {
		return nil, 0, fmt.Errorf("http feed not configured")
	}
	req, err := http.NewRequest(http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	values := url.Values{}
	values.Set("ids", f.assetID)
	values.Set("vs_currencies", f.vs)
	values.Set("include_last_updated_at", "true")
	req.URL.RawQuery = values.Encode()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, 0, fmt.Errorf("http feed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var payload map[string]map[string]json.Number
	if err := decoder.Decode(&payload); err != nil {
		return nil, 0, fmt.Errorf("http feed: decode: %w", err)
	}
	entry, ok := payload[f.assetID]
	if !ok {
		return nil, 0, fmt.Errorf("http feed: quote missing for %s", f.assetID)
	}
	raw, ok := entry[f.vs]
	if !ok {
		return nil, 0, fmt.Errorf("http feed: %s price missing for %s", f.vs, f.assetID)
	}
	rat, ok := new(big.Rat).SetString(raw.String())
	if !ok || rat.Sign() <= 0 {
		return nil, 0, fmt.Errorf("http feed: invalid price %q", raw.String())
	}
	scaled := new(big.Rat).Mul(rat, new(big.Rat).SetInt(priceScale))
	price := new(big.Int).Quo(scaled.Num(), scaled.Denom())
	var updatedAt int64
	if ts, ok := entry["last_updated_at"]; ok {
		if parsed, err := ts.Int64(); err == nil {
			updatedAt = parsed
		}
	}
	if updatedAt == 0 {
		updatedAt = time.Now().Unix()
	}
	return price, updatedAt, nil
}
