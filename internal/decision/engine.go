// Package decision derives trading decisions from aggregation snapshots.
package decision

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"tradeflow/internal/aggregate"
	"tradeflow/internal/domain/models"
	"tradeflow/pkg/logger"
)

const (
	alignmentWeight  = 0.4
	balanceWeight    = 0.4
	volatilityWeight = 0.2

	strongBalance = 5
	weakBalance   = 2

	defaultQty = 0.1
	recentQtys = 5
)

// Engine evaluates aggregation state into an optional trading decision.
// It has no side effects on the state.
type Engine struct {
	log *logger.Logger
	// randFloat supplies the quantity jitter in [0,1). Injectable so tests
	// can pin the simulated noise.
	randFloat func() float64
}

// Option configures Engine.
type Option func(*Engine)

// WithRandSource overrides the jitter source.
func WithRandSource(f func() float64) Option {
	return func(e *Engine) {
		if f != nil {
			e.randFloat = f
		}
	}
}

// NewEngine creates a decision engine.
func NewEngine(log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{log: log, randFloat: rand.Float64}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide evaluates one snapshot. It returns nil when fewer than two
// timeframes have data. The three constituent metrics are independent reads
// of an immutable snapshot and are computed concurrently.
func (e *Engine) Decide(ctx context.Context, symbol string, state *aggregate.State) *models.TradingDecision {
	if !state.HasMinimumSignals() {
		e.log.Debug("not enough timeframes for decision", logger.String("symbol", symbol))
		return nil
	}

	var (
		alignment  float64
		balance    int
		volatility map[models.Timeframe]float64
		wg         sync.WaitGroup
	)
	wg.Add(3)
	go func() { defer wg.Done(); alignment = state.Alignment() }()
	go func() { defer wg.Done(); balance = state.NetBalance() }()
	go func() { defer wg.Done(); volatility = state.Volatility() }()
	wg.Wait()

	if ctx.Err() != nil {
		return nil
	}
	return e.assemble(symbol, state, alignment, balance, volatility)
}

func (e *Engine) assemble(
	symbol string,
	state *aggregate.State,
	alignment float64,
	balance int,
	volatility map[models.Timeframe]float64,
) *models.TradingDecision {
	avgPrice := state.AveragePrice()
	signals := state.Signals()
	suggestedQty := e.quantity(signals)

	var (
		action     models.Action
		confidence float64
		priceAdj   float64
		reason     models.Reason
	)
	switch {
	case balance > strongBalance:
		action = models.ActionStrongBuy
		confidence = confidenceScore(alignment, balance, volatility)
		priceAdj = 0.998
		reason = strongReason(alignment)
	case balance > weakBalance:
		action = models.ActionBuy
		confidence = confidenceScore(alignment, balance, volatility)
		priceAdj = 0.999
		reason = models.ReasonAlignedSignals
	case balance < -strongBalance:
		action = models.ActionStrongSell
		confidence = confidenceScore(alignment, -balance, volatility)
		priceAdj = 1.002
		reason = strongReason(alignment)
	case balance < -weakBalance:
		action = models.ActionSell
		confidence = confidenceScore(alignment, -balance, volatility)
		priceAdj = 1.001
		reason = models.ReasonAlignedSignals
	default:
		action = models.ActionHold
		confidence = 0.5
		priceAdj = 1.0
		if alignment < 0.6 {
			reason = models.ReasonDivergentSignals
		} else {
			reason = models.ReasonInsufficientData
		}
	}

	qty := suggestedQty
	if action == models.ActionHold {
		qty = 0
	}

	e.log.Debug("decision assembled",
		logger.String("symbol", symbol),
		logger.String("action", string(action)),
		logger.Int("balance", balance),
		logger.Any("alignment", alignment),
	)

	return models.NewTradingDecision(symbol, action, confidence, avgPrice*priceAdj, qty, signals, reason)
}

func strongReason(alignment float64) models.Reason {
	if alignment > 0.8 {
		return models.ReasonAlignedSignals
	}
	return models.ReasonMomentumShift
}

// confidenceScore blends alignment, balance magnitude, and inverse
// volatility into [0,1].
func confidenceScore(alignment float64, absBalance int, volatility map[models.Timeframe]float64) float64 {
	avgVol := meanFiniteVolatility(volatility)
	volatilityFactor := math.Max(0.3, 1.0-avgVol/100)
	balanceFactor := math.Min(1.0, float64(absBalance)/10.0)
	return math.Min(1.0, alignment*alignmentWeight+balanceFactor*balanceWeight+volatilityFactor*volatilityWeight)
}

func meanFiniteVolatility(volatility map[models.Timeframe]float64) float64 {
	var sum float64
	n := 0
	for _, v := range volatility {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0.1
	}
	return sum / float64(n)
}

// quantity averages the five most recent signal quantities and applies a
// uniform jitter in [0.9,1.1), truncated to four decimal places. The jitter
// simulates sizing noise and is deliberately random.
func (e *Engine) quantity(signals []models.Signal) float64 {
	avg := defaultQty
	if len(signals) > 0 {
		n := recentQtys
		if len(signals) < n {
			n = len(signals)
		}
		var sum float64
		for _, sig := range signals[:n] {
			sum += sig.Qty
		}
		mean := sum / float64(n)
		if !math.IsNaN(mean) && !math.IsInf(mean, 0) {
			avg = mean
		}
	}

	factor := 0.9 + e.randFloat()*0.2
	return math.Trunc(avg*factor*10000) / 10000
}
