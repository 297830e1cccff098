// Package stream merges the per-timeframe signal topics into one logical
// stream, re-keys it by symbol, and drives tumbling-window aggregation.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tradeflow/internal/aggregate"
	"tradeflow/internal/checkpoint"
	"tradeflow/internal/decision"
	"tradeflow/internal/domain/models"
	pkgkafka "tradeflow/pkg/kafka"
	"tradeflow/pkg/logger"
	"tradeflow/pkg/metrics"
)

// Publisher is the outbound side of the orchestrator.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// Orchestrator owns all per-symbol windows. Each window is guarded by its
// own lock so exactly one task mutates a key's state at a time; signals for
// different symbols proceed in parallel.
type Orchestrator struct {
	engine         *decision.Engine
	ckpt           checkpoint.Store
	pub            Publisher
	decisionsTopic string
	windowSize     time.Duration

	mu      sync.Mutex
	windows map[string]*symbolWindow

	log     *logger.Logger
	metrics *metrics.Recorder
}

// symbolWindow is the mutable aggregation context of one symbol.
type symbolWindow struct {
	mu         sync.Mutex
	loaded     bool
	dirty      bool // in-memory state is ahead of the durable checkpoint
	start      time.Time
	state      *aggregate.State
	watermarks map[string]int64 // "topic/partition" -> last applied offset
}

// NewOrchestrator creates the windowed processor.
func NewOrchestrator(
	engine *decision.Engine,
	ckpt checkpoint.Store,
	pub Publisher,
	decisionsTopic string,
	windowSize time.Duration,
	log *logger.Logger,
	rec *metrics.Recorder,
) *Orchestrator {
	if windowSize <= 0 {
		windowSize = 5 * time.Minute
	}
	return &Orchestrator{
		engine:         engine,
		ckpt:           ckpt,
		pub:            pub,
		decisionsTopic: decisionsTopic,
		windowSize:     windowSize,
		windows:        make(map[string]*symbolWindow),
		log:            log.With("stream"),
		metrics:        rec,
	}
}

// Handlers returns one consumer handler per (topic, timeframe) input stream.
func (o *Orchestrator) Handlers(topicsByTimeframe map[string]string) []pkgkafka.MessageHandler {
	hs := make([]pkgkafka.MessageHandler, 0, len(topicsByTimeframe))
	for tf, topic := range topicsByTimeframe {
		hs = append(hs, &signalHandler{topic: topic, timeframe: models.Timeframe(tf), orch: o})
	}
	return hs
}

// signalHandler adapts one signal topic onto the orchestrator.
type signalHandler struct {
	topic     string
	timeframe models.Timeframe
	orch      *Orchestrator
}

func (h *signalHandler) Topic() string { return h.topic }

// Handle deserializes one record and feeds it into the symbol's window.
// Malformed input is logged and dropped without halting the stream: the
// returned nil advances the offset past the bad record.
func (h *signalHandler) Handle(ctx context.Context, msg pkgkafka.Message) error {
	sig, err := models.DecodeSignal(msg.Value)
	if err != nil {
		h.orch.log.Warn("dropping malformed signal",
			logger.String("topic", h.topic),
			logger.Int64("offset", msg.Offset),
			logger.Error(err),
		)
		h.orch.metrics.RecordError("signal_decode")
		return nil
	}
	sig = sig.WithProcessedAt(time.Now().UTC())

	return h.orch.Process(ctx, msg, sig)
}

// Process re-keys the record by symbol and applies it to the owning window.
// State mutation, checkpoint, and decision emission happen under the
// symbol's lock, and the caller commits the input offset only after Process
// returns nil. A record replayed after a crash or a failed save is detected
// via the watermark and is not folded into the state twice; the window's
// dirty checkpoint is flushed first, then its snapshot is re-emitted, since
// downstream must tolerate multiple decisions per window.
func (o *Orchestrator) Process(ctx context.Context, msg pkgkafka.Message, sig models.Signal) error {
	w := o.window(sig.Symbol)
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.loaded {
		o.restore(ctx, w, sig.Symbol)
		w.loaded = true
	}

	src := fmt.Sprintf("%s/%d", msg.Topic, msg.Partition)
	if off, ok := w.watermarks[src]; ok && msg.Offset <= off {
		if err := o.flush(ctx, sig.Symbol, w); err != nil {
			return err
		}
		return o.emit(ctx, sig.Symbol, w)
	}

	windowStart := sig.EventTime().Truncate(o.windowSize)
	switch {
	case w.state == nil || windowStart.After(w.start):
		// tumbling rollover: previous window's state is discarded
		if w.state != nil {
			o.log.Debug("window closed",
				logger.String("symbol", sig.Symbol),
				logger.Any("window_start", w.start),
				logger.Int("signals", w.state.SignalCount()),
			)
		}
		w.state = aggregate.NewState()
		w.start = windowStart
	case windowStart.Before(w.start):
		// late arrival for an already-closed window
		o.metrics.RecordError("late_signal")
		w.watermarks[src] = msg.Offset
		return o.flush(ctx, sig.Symbol, w)
	}

	w.state.Add(sig)
	w.watermarks[src] = msg.Offset
	w.dirty = true
	o.metrics.RecordSignal(string(sig.Timeframe), sig.Symbol)

	if err := o.flush(ctx, sig.Symbol, w); err != nil {
		return err
	}

	return o.emit(ctx, sig.Symbol, w)
}

// flush writes the window's checkpoint if it is ahead of the durable copy.
// On failure the window stays dirty, so the save is re-attempted on the next
// record for the symbol, including a redelivery of the same offset; the
// input offset never commits while its mutation is missing from the store.
func (o *Orchestrator) flush(ctx context.Context, symbol string, w *symbolWindow) error {
	if !w.dirty || w.state == nil {
		return nil
	}

	if err := o.ckpt.Save(ctx, checkpoint.Record{
		Symbol:      symbol,
		WindowStart: w.start,
		State:       w.state.Snapshot(),
		Watermarks:  w.watermarks,
		UpdatedAt:   time.Now().UTC(),
	}); err != nil {
		o.metrics.RecordError("checkpoint_save")
		return fmt.Errorf("checkpoint %s: %w", symbol, err)
	}

	w.dirty = false
	return nil
}

// emit evaluates the window's current snapshot and publishes any decision
// keyed by symbol. Windows below the minimum-timeframe bar emit nothing.
func (o *Orchestrator) emit(ctx context.Context, symbol string, w *symbolWindow) error {
	if w.state == nil || !w.state.HasMinimumSignals() {
		return nil
	}

	d := o.engine.Decide(ctx, symbol, w.state)
	if d == nil {
		return nil
	}

	if err := o.pub.Publish(ctx, o.decisionsTopic, []byte(d.Symbol), d); err != nil {
		o.metrics.RecordError("decision_publish")
		return fmt.Errorf("publish decision for %s: %w", symbol, err)
	}

	o.metrics.RecordDecision(string(d.Action))
	o.log.Info("decision emitted",
		logger.String("symbol", d.Symbol),
		logger.String("action", string(d.Action)),
		logger.Float64("confidence", d.Confidence),
		logger.String("reason", string(d.Reason)),
	)
	return nil
}

func (o *Orchestrator) window(symbol string) *symbolWindow {
	o.mu.Lock()
	defer o.mu.Unlock()
	w, ok := o.windows[symbol]
	if !ok {
		w = &symbolWindow{watermarks: make(map[string]int64)}
		o.windows[symbol] = w
	}
	return w
}

// restore reloads a symbol's window from the checkpoint store on first
// touch, so a restarted or rebalanced task resumes mid-window.
func (o *Orchestrator) restore(ctx context.Context, w *symbolWindow, symbol string) {
	rec, err := o.ckpt.Load(ctx, symbol)
	if err != nil {
		if !errors.Is(err, checkpoint.ErrNotFound) {
			o.log.Warn("checkpoint restore failed, starting fresh",
				logger.String("symbol", symbol),
				logger.Error(err),
			)
			o.metrics.RecordError("checkpoint_restore")
		}
		return
	}

	w.start = rec.WindowStart
	w.state = aggregate.Restore(rec.State)
	if rec.Watermarks != nil {
		w.watermarks = rec.Watermarks
	}
	o.log.Info("window restored from checkpoint",
		logger.String("symbol", symbol),
		logger.Any("window_start", rec.WindowStart),
		logger.Int("signals", w.state.SignalCount()),
	)
}
