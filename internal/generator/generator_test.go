package generator

import (
	"context"
	"sync"
	"testing"
	"time"

	"tradeflow/internal/domain/models"
	"tradeflow/pkg/logger"
)

type collectPublisher struct {
	mu      sync.Mutex
	signals []models.Signal
	topics  []string
}

func (p *collectPublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sig := value.(models.Signal)
	if string(key) != sig.Symbol {
		panic("record not keyed by symbol")
	}
	p.signals = append(p.signals, sig)
	p.topics = append(p.topics, topic)
	return nil
}

func testConfig() Config {
	return Config{
		Symbols:    []string{"BTCUSDT", "ETHUSDT"},
		Timeframes: []string{"1m", "5m"},
		RatePerSec: 10,
		Duration:   time.Second,
		BasePrices: map[string]float64{"BTCUSDT": 65000, "ETHUSDT": 3000},
		Topics:     map[string]string{"1m": "trading.signal.1m", "5m": "trading.signal.5m"},
	}
}

func TestGeneratorEmitsBoundedJitter(t *testing.T) {
	pub := &collectPublisher{}
	g := New(testConfig(), pub, logger.Nop(), 1)

	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(pub.signals) == 0 {
		t.Fatalf("no signals emitted")
	}

	for _, sig := range pub.signals {
		base := testConfig().BasePrices[sig.Symbol]
		if sig.Price < base*0.997 || sig.Price > base*1.003 {
			t.Fatalf("price %v outside 0.3%% band of %v", sig.Price, base)
		}
		if sig.Qty < 0.01 || sig.Qty >= 0.5 {
			t.Fatalf("qty %v outside [0.01, 0.5)", sig.Qty)
		}
		if sig.Side != models.SideBuy && sig.Side != models.SideSell {
			t.Fatalf("bad side %v", sig.Side)
		}
	}
	if g.Sent() != int64(len(pub.signals)) {
		t.Fatalf("sent counter %d != %d", g.Sent(), len(pub.signals))
	}
}

func TestGeneratorRoutesByTimeframe(t *testing.T) {
	pub := &collectPublisher{}
	g := New(testConfig(), pub, logger.Nop(), 7)
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, sig := range pub.signals {
		want := "trading.signal." + string(sig.Timeframe)
		if pub.topics[i] != want {
			t.Fatalf("signal on %s, want %s", pub.topics[i], want)
		}
	}
}

func TestGeneratorStopsOnCancel(t *testing.T) {
	pub := &collectPublisher{}
	cfg := testConfig()
	cfg.Duration = time.Hour
	g := New(cfg, pub, logger.Nop(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Run(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
