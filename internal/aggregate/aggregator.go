// Package aggregate holds the per-symbol windowed signal aggregation state.
//
// A State is owned exclusively by the task handling its symbol; it performs
// no internal locking. Callers that can race must guard it with a per-key
// lock (see internal/stream).
package aggregate

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"tradeflow/internal/domain/models"
)

// maxSignalsPerTimeframe bounds the retained history per timeframe.
const maxSignalsPerTimeframe = 10

// State accumulates signals for one symbol within one window.
type State struct {
	signalsByTimeframe  map[models.Timeframe][]models.Signal
	avgPriceByTimeframe map[models.Timeframe]float64
	balanceByTimeframe  map[models.Timeframe]int
}

// NewState creates an empty aggregation state.
func NewState() *State {
	return &State{
		signalsByTimeframe:  make(map[models.Timeframe][]models.Signal),
		avgPriceByTimeframe: make(map[models.Timeframe]float64),
		balanceByTimeframe:  make(map[models.Timeframe]int),
	}
}

// Add folds one signal into the state: appends to the timeframe's bounded
// list (evicting the oldest beyond capacity), recomputes that timeframe's
// average price over the retained list, and bumps its buy/sell balance.
// Eviction never adjusts the balance; it only resets at window rollover.
func (s *State) Add(sig models.Signal) {
	tf := sig.Timeframe

	list := append(s.signalsByTimeframe[tf], sig)
	if len(list) > maxSignalsPerTimeframe {
		list = list[len(list)-maxSignalsPerTimeframe:]
	}
	s.signalsByTimeframe[tf] = list

	var sum float64
	for _, x := range list {
		sum += x.Price
	}
	s.avgPriceByTimeframe[tf] = sum / float64(len(list))

	if sig.Side == models.SideBuy {
		s.balanceByTimeframe[tf]++
	} else {
		s.balanceByTimeframe[tf]--
	}
}

// HasMinimumSignals reports whether at least two distinct timeframes have
// contributed signals.
func (s *State) HasMinimumSignals() bool {
	return len(s.signalsByTimeframe) >= 2
}

// SignalCount returns the total number of retained signals.
func (s *State) SignalCount() int {
	n := 0
	for _, list := range s.signalsByTimeframe {
		n += len(list)
	}
	return n
}

// Signals returns all retained signals ordered most recent first.
func (s *State) Signals() []models.Signal {
	out := make([]models.Signal, 0, s.SignalCount())
	for _, tf := range models.Timeframes {
		out = append(out, s.signalsByTimeframe[tf]...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ts > out[j].Ts })
	return out
}

// AveragePrice is the unweighted mean of the per-timeframe running averages;
// each timeframe contributes equally regardless of sample count. Zero when
// no timeframe has data.
func (s *State) AveragePrice() float64 {
	if len(s.avgPriceByTimeframe) == 0 {
		return 0
	}
	var sum float64
	for _, avg := range s.avgPriceByTimeframe {
		sum += avg
	}
	return sum / float64(len(s.avgPriceByTimeframe))
}

// NetBalance is the sum of all per-timeframe buy/sell balances.
func (s *State) NetBalance() int {
	total := 0
	for _, b := range s.balanceByTimeframe {
		total += b
	}
	return total
}

// Alignment scores directional agreement across timeframes: 1.0 when every
// populated timeframe's dominant side matches, 0.0 when no timeframe has
// data, 0.5 otherwise. The dominant side per timeframe is the mode of its
// retained list; a tie goes to the side seen first.
func (s *State) Alignment() float64 {
	if len(s.signalsByTimeframe) == 0 {
		return 0.0
	}
	dominant := make(map[models.Side]struct{})
	for _, list := range s.signalsByTimeframe {
		dominant[dominantSide(list)] = struct{}{}
	}
	if len(dominant) == 1 {
		return 1.0
	}
	return 0.5
}

func dominantSide(list []models.Signal) models.Side {
	buys := 0
	for _, sig := range list {
		if sig.Side == models.SideBuy {
			buys++
		}
	}
	sells := len(list) - buys
	switch {
	case buys > sells:
		return models.SideBuy
	case sells > buys:
		return models.SideSell
	default:
		return list[0].Side
	}
}

// Volatility returns the population standard deviation of retained prices
// per timeframe; zero for timeframes with fewer than two samples.
func (s *State) Volatility() map[models.Timeframe]float64 {
	out := make(map[models.Timeframe]float64, len(s.signalsByTimeframe))
	for tf, list := range s.signalsByTimeframe {
		out[tf] = stddev(list)
	}
	return out
}

func stddev(list []models.Signal) float64 {
	if len(list) < 2 {
		return 0
	}
	var mean float64
	for _, sig := range list {
		mean += sig.Price
	}
	mean /= float64(len(list))

	var variance float64
	for _, sig := range list {
		d := sig.Price - mean
		variance += d * d
	}
	variance /= float64(len(list))
	return math.Sqrt(variance)
}

// Checkpoint is the lossless serializable form of State.
type Checkpoint struct {
	SignalsByTimeframe  map[models.Timeframe][]models.Signal `json:"signals_by_timeframe"`
	AvgPriceByTimeframe map[models.Timeframe]float64         `json:"avg_price_by_timeframe"`
	BalanceByTimeframe  map[models.Timeframe]int             `json:"balance_by_timeframe"`
}

// Snapshot copies the state into its checkpoint form.
func (s *State) Snapshot() Checkpoint {
	cp := Checkpoint{
		SignalsByTimeframe:  make(map[models.Timeframe][]models.Signal, len(s.signalsByTimeframe)),
		AvgPriceByTimeframe: make(map[models.Timeframe]float64, len(s.avgPriceByTimeframe)),
		BalanceByTimeframe:  make(map[models.Timeframe]int, len(s.balanceByTimeframe)),
	}
	for tf, list := range s.signalsByTimeframe {
		cp.SignalsByTimeframe[tf] = append([]models.Signal(nil), list...)
	}
	for tf, avg := range s.avgPriceByTimeframe {
		cp.AvgPriceByTimeframe[tf] = avg
	}
	for tf, b := range s.balanceByTimeframe {
		cp.BalanceByTimeframe[tf] = b
	}
	return cp
}

// Restore rebuilds a State from a checkpoint.
func Restore(cp Checkpoint) *State {
	s := NewState()
	for tf, list := range cp.SignalsByTimeframe {
		s.signalsByTimeframe[tf] = append([]models.Signal(nil), list...)
	}
	for tf, avg := range cp.AvgPriceByTimeframe {
		s.avgPriceByTimeframe[tf] = avg
	}
	for tf, b := range cp.BalanceByTimeframe {
		s.balanceByTimeframe[tf] = b
	}
	return s
}

// Marshal encodes the checkpoint for the durable state store.
func (cp Checkpoint) Marshal() ([]byte, error) {
	b, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("marshal aggregation checkpoint: %w", err)
	}
	return b, nil
}

// UnmarshalCheckpoint decodes a checkpoint written by Marshal.
func UnmarshalCheckpoint(b []byte) (Checkpoint, error) {
	var cp Checkpoint
	if err := json.Unmarshal(b, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("unmarshal aggregation checkpoint: %w", err)
	}
	return cp, nil
}
