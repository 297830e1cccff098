// Package pricing resolves reference prices for order construction when a
// decision carries no usable suggested price.
package pricing

// Reference maps symbols to static reference prices.
type Reference struct {
	prices       map[string]float64
	defaultPrice float64
}

// NewReference builds a lookup table. A copy of prices is taken so callers
// may reuse their map.
func NewReference(prices map[string]float64, defaultPrice float64) *Reference {
	cp := make(map[string]float64, len(prices))
	for sym, p := range prices {
		cp[sym] = p
	}
	if defaultPrice <= 0 {
		defaultPrice = 100.0
	}
	return &Reference{prices: cp, defaultPrice: defaultPrice}
}

// Price returns the reference price for symbol and whether the symbol was
// explicitly configured. Unknown symbols fall back to the default price.
func (r *Reference) Price(symbol string) (float64, bool) {
	if p, ok := r.prices[symbol]; ok {
		return p, true
	}
	return r.defaultPrice, false
}
