package pricing

import "testing"

func TestPriceKnownSymbol(t *testing.T) {
	r := NewReference(map[string]float64{"BTCUSDT": 65000}, 100)
	p, ok := r.Price("BTCUSDT")
	if !ok || p != 65000 {
		t.Fatalf("got %v/%v, want 65000/true", p, ok)
	}
}

func TestPriceUnknownSymbolFallsBack(t *testing.T) {
	r := NewReference(nil, 42)
	p, ok := r.Price("NOPE")
	if ok || p != 42 {
		t.Fatalf("got %v/%v, want 42/false", p, ok)
	}
}

func TestPriceDefaultGuard(t *testing.T) {
	r := NewReference(nil, 0)
	p, _ := r.Price("NOPE")
	if p != 100 {
		t.Fatalf("got %v, want 100 default", p)
	}
}

func TestReferenceCopiesInput(t *testing.T) {
	src := map[string]float64{"BTCUSDT": 1}
	r := NewReference(src, 100)
	src["BTCUSDT"] = 2
	if p, _ := r.Price("BTCUSDT"); p != 1 {
		t.Fatalf("reference shares caller map, got %v", p)
	}
}
