package curve

import (
	"math/big"
	"testing"
)

func TestInterpolatePrice(t *testing.T) {
	initial := wei(2)
	final := wei(4)
	threshold := wei(800)

	cases := []struct {
		name string
		sold *big.Int
		want *big.Int
	}{
		{"nothing sold", big.NewInt(0), wei(2)},
		{"quarter", wei(200), amount("2500000000000000000")},
		{"half", wei(400), wei(3)},
		{"at threshold", wei(800), wei(4)},
		// Sales past the threshold keep extending the same line.
		{"past threshold", wei(1200), wei(5)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := interpolatePrice(initial, final, tc.sold, threshold)
			if got.Cmp(tc.want) != 0 {
				t.Fatalf("interpolatePrice(%s) = %s, want %s", tc.sold, got, tc.want)
			}
		})
	}
}

func TestInterpolatePriceZeroThreshold(t *testing.T) {
	got := interpolatePrice(wei(2), wei(4), wei(100), big.NewInt(0))
	if got.Cmp(wei(2)) != 0 {
		t.Fatalf("zero threshold should pin the initial price, got %s", got)
	}
}

func TestInitialPriceFor(t *testing.T) {
	// multiplier 2.5e15 against a $1000 oracle quote gives $2.50.
	got := initialPriceFor(wei(1000), amount("2500000000000000"))
	if got.Cmp(amount("2500000000000000000")) != 0 {
		t.Fatalf("initial price = %s", got)
	}
}

func TestConversionRoundTrip(t *testing.T) {
	oracle := wei(1000)
	settlement := amount("1500000000000000000")
	usd := settlementToUSD(settlement, oracle)
	if usd.Cmp(wei(1500)) != 0 {
		t.Fatalf("settlementToUSD = %s, want 1500", usd)
	}
	back := usdToSettlement(usd, oracle)
	if back.Cmp(settlement) != 0 {
		t.Fatalf("usdToSettlement = %s, want %s", back, settlement)
	}

	price := amount("3750000000000000000")
	units := usdToUnits(usd, price)
	if units.Cmp(wei(400)) != 0 {
		t.Fatalf("usdToUnits = %s, want 400", units)
	}
	value := unitsToUSD(units, price)
	if value.Cmp(usd) != 0 {
		t.Fatalf("unitsToUSD = %s, want %s", value, usd)
	}
}

func TestFeeSplitReconstructsGross(t *testing.T) {
	cases := []struct {
		gross   *big.Int
		percent uint64
	}{
		{wei(1), 1},
		{big.NewInt(99), 1},
		{big.NewInt(1), 1},
		{amount("123456789123456789"), 7},
		{wei(1000), 0},
	}
	for _, tc := range cases {
		fee, net := feeSplit(tc.gross, tc.percent)
		sum := new(big.Int).Add(fee, net)
		if sum.Cmp(tc.gross) != 0 {
			t.Fatalf("fee %s + net %s != gross %s", fee, net, tc.gross)
		}
		if fee.Sign() < 0 || net.Sign() < 0 {
			t.Fatalf("negative split for gross %s", tc.gross)
		}
	}
}
