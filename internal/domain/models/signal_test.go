package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeSignalValid(t *testing.T) {
	raw := `{"symbol":"BTCUSDT","side":"BUY","qty":0.25,"price":65000.5,"timeframe":"5m","ts":1748779200000}`
	sig, err := DecodeSignal([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.Symbol != "BTCUSDT" || sig.Side != SideBuy || sig.Timeframe != TF5m {
		t.Fatalf("unexpected signal %+v", sig)
	}
	if sig.EventTime().UnixMilli() != 1748779200000 {
		t.Fatalf("event time = %v", sig.EventTime())
	}
}

func TestDecodeSignalDefaultsSchemaVersion(t *testing.T) {
	raw := `{"symbol":"BTCUSDT","side":"SELL","qty":0.1,"price":100,"timeframe":"1m","ts":1}`
	if _, err := DecodeSignal([]byte(raw)); err != nil {
		t.Fatalf("missing schema version should default to current: %v", err)
	}
}

func TestDecodeSignalRejectsUnknownSchema(t *testing.T) {
	raw := `{"schema_version":2,"symbol":"BTCUSDT","side":"BUY","qty":0.1,"price":100,"timeframe":"1m","ts":1}`
	_, err := DecodeSignal([]byte(raw))
	if err == nil || !strings.Contains(err.Error(), "schema version") {
		t.Fatalf("expected schema version error, got %v", err)
	}
}

func TestDecodeSignalRejectsBadFields(t *testing.T) {
	cases := map[string]string{
		"bad side":      `{"symbol":"BTCUSDT","side":"SIDEWAYS","qty":0.1,"price":100,"timeframe":"1m","ts":1}`,
		"zero qty":      `{"symbol":"BTCUSDT","side":"BUY","qty":0,"price":100,"timeframe":"1m","ts":1}`,
		"bad timeframe": `{"symbol":"BTCUSDT","side":"BUY","qty":0.1,"price":100,"timeframe":"2h","ts":1}`,
		"no symbol":     `{"side":"BUY","qty":0.1,"price":100,"timeframe":"1m","ts":1}`,
		"not json":      `{nope`,
	}
	for name, raw := range cases {
		if _, err := DecodeSignal([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestTimeframeStrengthOrdering(t *testing.T) {
	if !(TF1m.Strength() < TF5m.Strength() && TF5m.Strength() < TF15m.Strength()) {
		t.Fatalf("timeframe strengths not ascending")
	}
	if Timeframe("2h").Strength() != 0 {
		t.Fatalf("unknown timeframe must have zero strength")
	}
}

func TestSignalMarshalCarriesDerivedStrength(t *testing.T) {
	sig := Signal{Symbol: "BTCUSDT", Side: SideBuy, Qty: 0.1, Price: 100, Timeframe: TF15m, Ts: 1}
	b, err := json.Marshal(sig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var onWire map[string]interface{}
	if err := json.Unmarshal(b, &onWire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := onWire["strength"]; got != float64(3) {
		t.Fatalf("strength on wire = %v, want 3", got)
	}

	// strength is derived, never read back
	decoded, err := DecodeSignal(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Timeframe != TF15m {
		t.Fatalf("timeframe = %s", decoded.Timeframe)
	}
}

func TestActionHelpers(t *testing.T) {
	if ActionHold.IsActionable() {
		t.Fatalf("HOLD must not be actionable")
	}
	if !ActionStrongSell.IsActionable() || !ActionBuy.IsActionable() {
		t.Fatalf("trade actions must be actionable")
	}
	if !ActionStrongBuy.IsStrong() || ActionBuy.IsStrong() {
		t.Fatalf("unexpected strength classification")
	}
	if side, ok := ActionStrongBuy.OrderSide(); !ok || side != SideBuy {
		t.Fatalf("unexpected side mapping for STRONG_BUY")
	}
	if side, ok := ActionSell.OrderSide(); !ok || side != SideSell {
		t.Fatalf("unexpected side mapping for SELL")
	}
	if _, ok := ActionHold.OrderSide(); ok {
		t.Fatalf("HOLD must not map to a side")
	}
}
