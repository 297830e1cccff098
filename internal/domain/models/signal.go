package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Side is the direction of a trading signal or order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Timeframe identifies the bar interval a signal was derived from.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
)

// Timeframes lists all supported timeframes in ascending order.
var Timeframes = []Timeframe{TF1m, TF5m, TF15m}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1m, TF5m, TF15m:
		return true
	default:
		return false
	}
}

// Strength weights a timeframe: longer intervals carry more weight.
func (tf Timeframe) Strength() int {
	switch tf {
	case TF1m:
		return 1
	case TF5m:
		return 2
	case TF15m:
		return 3
	default:
		return 0
	}
}

// Signal is a single directional trading signal. Immutable once created.
type Signal struct {
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	Qty         float64   `json:"qty"`
	Price       float64   `json:"price"`
	Timeframe   Timeframe `json:"timeframe"`
	Ts          int64     `json:"ts"` // event time, epoch millis
	ProcessedAt time.Time `json:"processed_at,omitempty"`
}

// EventTime returns the signal's event time.
func (s Signal) EventTime() time.Time {
	return time.UnixMilli(s.Ts)
}

// MarshalJSON emits the wire form. Strength is derived from the timeframe
// and serialized so consumers need not recompute it; it is ignored on decode.
func (s Signal) MarshalJSON() ([]byte, error) {
	type wire Signal
	return json.Marshal(struct {
		wire
		Strength int `json:"strength"`
	}{wire(s), s.Timeframe.Strength()})
}

// WithProcessedAt returns a copy stamped with the given processing time.
func (s Signal) WithProcessedAt(t time.Time) Signal {
	s.ProcessedAt = t
	return s
}

// CurrentSignalSchema is the wire schema version this build understands.
const CurrentSignalSchema = 1

// signalEnvelope is the versioned wire form of Signal. Unknown schema
// versions are rejected instead of silently tolerated.
type signalEnvelope struct {
	SchemaVersion int       `json:"schema_version,omitempty" default:"1"`
	Symbol        string    `json:"symbol" validate:"required"`
	Side          Side      `json:"side" validate:"required,oneof=BUY SELL"`
	Qty           float64   `json:"qty" validate:"required,gt=0"`
	Price         float64   `json:"price" validate:"required,gt=0"`
	Timeframe     Timeframe `json:"timeframe" validate:"required,oneof=1m 5m 15m"`
	Ts            int64     `json:"ts" validate:"required,gt=0"`
	ProcessedAt   time.Time `json:"processed_at,omitempty"`
}

var validate = validator.New()

// DecodeSignal parses and validates a signal record from the wire.
func DecodeSignal(b []byte) (Signal, error) {
	var env signalEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Signal{}, fmt.Errorf("decode signal: %w", err)
	}
	if err := defaults.Set(&env); err != nil {
		return Signal{}, fmt.Errorf("signal defaults: %w", err)
	}
	if env.SchemaVersion != CurrentSignalSchema {
		return Signal{}, fmt.Errorf("unsupported signal schema version %d", env.SchemaVersion)
	}
	if err := validate.Struct(&env); err != nil {
		return Signal{}, fmt.Errorf("invalid signal: %w", err)
	}
	return Signal{
		Symbol:      env.Symbol,
		Side:        env.Side,
		Qty:         env.Qty,
		Price:       env.Price,
		Timeframe:   env.Timeframe,
		Ts:          env.Ts,
		ProcessedAt: env.ProcessedAt,
	}, nil
}
