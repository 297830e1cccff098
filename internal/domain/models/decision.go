package models

import (
	"time"

	"github.com/google/uuid"
)

// Action is the trading action derived from aggregated signals.
type Action string

const (
	ActionStrongBuy  Action = "STRONG_BUY"
	ActionBuy        Action = "BUY"
	ActionHold       Action = "HOLD"
	ActionSell       Action = "SELL"
	ActionStrongSell Action = "STRONG_SELL"
)

// IsActionable reports whether the action should produce an order.
func (a Action) IsActionable() bool {
	switch a {
	case ActionStrongBuy, ActionBuy, ActionSell, ActionStrongSell:
		return true
	default:
		return false
	}
}

// IsStrong reports whether the action is one of the STRONG variants.
func (a Action) IsStrong() bool {
	return a == ActionStrongBuy || a == ActionStrongSell
}

// OrderSide maps the action to the order side it implies.
// The second return is false for non-actionable actions.
func (a Action) OrderSide() (Side, bool) {
	switch a {
	case ActionBuy, ActionStrongBuy:
		return SideBuy, true
	case ActionSell, ActionStrongSell:
		return SideSell, true
	default:
		return "", false
	}
}

// Reason explains why a decision was made.
type Reason string

const (
	ReasonAlignedSignals   Reason = "ALIGNED_SIGNALS"
	ReasonDivergentSignals Reason = "DIVERGENT_SIGNALS"
	ReasonInsufficientData Reason = "INSUFFICIENT_DATA"
	ReasonMomentumShift    Reason = "MOMENTUM_SHIFT"
	ReasonVolumeSpike      Reason = "VOLUME_SPIKE"
)

// TradingDecision is the outcome of evaluating one aggregation snapshot.
// Produced once per qualifying snapshot, immutable thereafter.
type TradingDecision struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Action         Action    `json:"action"`
	Confidence     float64   `json:"confidence"`
	SuggestedPrice float64   `json:"suggested_price"`
	SuggestedQty   float64   `json:"suggested_qty"`
	Signals        []Signal  `json:"signals"`
	Timestamp      time.Time `json:"timestamp"`
	Reason         Reason    `json:"reason"`
}

// NewTradingDecision assembles a decision with a fresh id and timestamp.
func NewTradingDecision(symbol string, action Action, confidence, price, qty float64, signals []Signal, reason Reason) *TradingDecision {
	return &TradingDecision{
		ID:             uuid.NewString(),
		Symbol:         symbol,
		Action:         action,
		Confidence:     confidence,
		SuggestedPrice: price,
		SuggestedQty:   qty,
		Signals:        signals,
		Timestamp:      time.Now().UTC(),
		Reason:         reason,
	}
}
