package curve

import "math/big"

// priceScale is the fixed decimal base shared by oracle quotes (USD per
// settlement token), unit prices (USD per unit) and all amounts (wei).
var priceScale = mustBigInt("1000000000000000000")

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// initialPriceFor scales the oracle quote by the configured multiplier to
// obtain the curve's starting unit price.
func initialPriceFor(oraclePrice, multiplier *big.Int) *big.Int {
	price := new(big.Int).Mul(multiplier, oraclePrice)
	return price.Quo(price, priceScale)
}

// interpolatePrice walks the line between the initial and final unit price
// using sold/threshold as the fraction. The fraction is deliberately left
// unclamped: selling past the threshold extrapolates beyond the final price,
// matching the reference curve.
func interpolatePrice(initial, final, sold, threshold *big.Int) *big.Int {
	if sold == nil || sold.Sign() == 0 || threshold == nil || threshold.Sign() == 0 {
		return new(big.Int).Set(initial)
	}
	span := new(big.Int).Sub(final, initial)
	span.Mul(span, sold)
	span.Quo(span, threshold)
	return span.Add(span, initial)
}

// settlementToUSD converts a settlement amount to reference-currency value at
// the supplied oracle price.
func settlementToUSD(amount, oraclePrice *big.Int) *big.Int {
	usd := new(big.Int).Mul(amount, oraclePrice)
	return usd.Quo(usd, priceScale)
}

// usdToSettlement converts reference-currency value back to the settlement
// asset at the supplied oracle price.
func usdToSettlement(usd, oraclePrice *big.Int) *big.Int {
	amount := new(big.Int).Mul(usd, priceScale)
	return amount.Quo(amount, oraclePrice)
}

// usdToUnits converts reference-currency value into asset units at the
// supplied unit price.
func usdToUnits(usd, unitPrice *big.Int) *big.Int {
	units := new(big.Int).Mul(usd, priceScale)
	return units.Quo(units, unitPrice)
}

// unitsToUSD converts asset units into reference-currency value at the
// supplied unit price.
func unitsToUSD(units, unitPrice *big.Int) *big.Int {
	usd := new(big.Int).Mul(units, unitPrice)
	return usd.Quo(usd, priceScale)
}

// feeSplit deducts the percentage fee from gross using integer truncation.
// fee+net always reconstructs gross exactly.
func feeSplit(gross *big.Int, feePercent uint64) (*big.Int, *big.Int) {
	fee := new(big.Int).Mul(gross, new(big.Int).SetUint64(feePercent))
	fee.Quo(fee, big.NewInt(100))
	net := new(big.Int).Sub(gross, fee)
	return fee, net
}
