// Package generator emits synthetic trading signals for load and
// integration testing of the processing pipeline.
package generator

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"tradeflow/internal/domain/models"
	"tradeflow/pkg/logger"
)

const senderWorkers = 4

// Publisher sends one record keyed by symbol.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// Config controls the synthetic stream.
type Config struct {
	Symbols    []string
	Timeframes []string
	RatePerSec int
	Duration   time.Duration
	BasePrices map[string]float64
	Topics     map[string]string // timeframe -> topic
}

// Generator produces random signals at a fixed rate for a bounded duration.
type Generator struct {
	cfg  Config
	pub  Publisher
	log  *logger.Logger
	rand *rand.Rand
	mu   sync.Mutex
	sent int64
}

// New creates a generator. seed fixes the random stream; pass 0 for a
// time-based seed.
func New(cfg Config, pub Publisher, log *logger.Logger, seed int64) *Generator {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.Duration <= 0 {
		cfg.Duration = time.Minute
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		cfg:  cfg,
		pub:  pub,
		log:  log.With("signalgen"),
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Run emits RatePerSec signals every second until the duration elapses or
// ctx is canceled. Sending fans out over a small worker pool so a slow
// broker does not stall generation.
func (g *Generator) Run(ctx context.Context) error {
	g.log.Info("signal generation started",
		logger.Strings("symbols", g.cfg.Symbols),
		logger.Strings("timeframes", g.cfg.Timeframes),
		logger.Int("rate_per_sec", g.cfg.RatePerSec),
		logger.Duration("duration", g.cfg.Duration),
	)

	type job struct {
		topic  string
		signal models.Signal
	}
	jobs := make(chan job, g.cfg.RatePerSec*2)

	var wg sync.WaitGroup
	for i := 0; i < senderWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := g.pub.Publish(ctx, j.topic, []byte(j.signal.Symbol), j.signal); err != nil {
					g.log.Warn("signal publish failed",
						logger.String("symbol", j.signal.Symbol),
						logger.Error(err),
					)
					continue
				}
				atomic.AddInt64(&g.sent, 1)
			}
		}()
	}

	start := time.Now()
	deadline := start.Add(g.cfg.Duration)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

emit:
	for time.Now().Before(deadline) {
		for i := 0; i < g.cfg.RatePerSec; i++ {
			sig, topic := g.nextSignal()
			select {
			case jobs <- job{topic: topic, signal: sig}:
			case <-ctx.Done():
				break emit
			}
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			break emit
		}
	}

	close(jobs)
	wg.Wait()

	g.log.Info("signal generation completed",
		logger.Int64("sent", atomic.LoadInt64(&g.sent)),
		logger.Duration("elapsed", time.Since(start).Round(time.Second)),
	)
	return ctx.Err()
}

// Sent reports how many signals were published.
func (g *Generator) Sent() int64 { return atomic.LoadInt64(&g.sent) }

func (g *Generator) nextSignal() (models.Signal, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	symbol := g.cfg.Symbols[g.rand.Intn(len(g.cfg.Symbols))]
	timeframe := g.cfg.Timeframes[g.rand.Intn(len(g.cfg.Timeframes))]

	basePrice, ok := g.cfg.BasePrices[symbol]
	if !ok {
		basePrice = 100.0
	}
	// +/- 0.3% price jitter around the base
	price := basePrice * (1 + (g.rand.Float64()*0.006 - 0.003))

	side := models.SideBuy
	if g.rand.Intn(2) == 1 {
		side = models.SideSell
	}

	sig := models.Signal{
		Symbol:    symbol,
		Side:      side,
		Qty:       0.01 + g.rand.Float64()*0.49,
		Price:     price,
		Timeframe: models.Timeframe(timeframe),
		Ts:        time.Now().UnixMilli(),
	}
	return sig, g.cfg.Topics[timeframe]
}
