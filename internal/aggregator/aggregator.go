package aggregator

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/atikulmunna/logtally/internal/feed"
	"github.com/atikulmunna/logtally/internal/model"
	"github.com/atikulmunna/logtally/internal/output"
	"github.com/atikulmunna/logtally/internal/parser"
	"github.com/atikulmunna/logtally/internal/taint"
)

// DefaultCadence is the number of lines between interim summaries.
const DefaultCadence = 10

// ErrTerminated is returned by Run on an aggregator that already finished.
var ErrTerminated = errors.New("aggregator: already terminated")

// State is the position of the aggregator in its run loop.
type State int

const (
	Running State = iota
	Reporting
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Reporting:
		return "reporting"
	default:
		return "terminated"
	}
}

// Config is the immutable run configuration.
type Config struct {
	Verbose bool
	Taint   bool // implies Verbose
	Cadence int  // lines between interim summaries; <= 0 means DefaultCadence
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithCorruptor sets the strategy used in taint mode. Defaults to taint.NewRandom.
func WithCorruptor(c taint.Corruptor) Option {
	return func(a *Aggregator) { a.corruptor = c }
}

// WithPacer inserts a pause after every line is read.
func WithPacer(p feed.Pacer) Option {
	return func(a *Aggregator) { a.pacer = p }
}

func WithValidator(v parser.Validator) Option {
	return func(a *Aggregator) { a.validator = v }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

// Aggregator pulls lines from a feed, validates them and keeps the running
// summary. It reports every Cadence lines and once more on termination.
type Aggregator struct {
	cfg       Config
	reporter  output.Reporter
	validator parser.Validator
	corruptor taint.Corruptor
	pacer     feed.Pacer
	log       *zap.Logger

	mu      sync.RWMutex
	state   State
	summary *model.Summary
}

// New creates an Aggregator in the Running state with a zero summary.
func New(cfg Config, rep output.Reporter, opts ...Option) *Aggregator {
	if cfg.Taint {
		cfg.Verbose = true
	}
	if cfg.Cadence <= 0 {
		cfg.Cadence = DefaultCadence
	}

	a := &Aggregator{
		cfg:       cfg,
		reporter:  rep,
		validator: parser.NewAccessLogValidator(),
		pacer:     feed.NoPause{},
		log:       zap.NewNop(),
		summary:   model.NewSummary(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cfg.Taint && a.corruptor == nil {
		a.corruptor = taint.NewRandom(nil, taint.DefaultUntouchedWeight)
	}
	return a
}

// State returns the current loop state.
func (a *Aggregator) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Snapshot returns the current summary.
func (a *Aggregator) Snapshot() model.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.summary.Snapshot(a.state == Terminated)
}

// Run processes lines until the feed ends, ctx is cancelled or the feed
// fails. Every path ends with a final report. End of input and cancellation
// are normal terminations and return a nil error.
func (a *Aggregator) Run(ctx context.Context, f feed.Feed) (model.Snapshot, error) {
	if a.State() == Terminated {
		return a.Snapshot(), ErrTerminated
	}

	for {
		line, err := f.Next(ctx)
		if err != nil {
			return a.terminate(err)
		}
		if err := a.pacer.Pause(ctx); err != nil {
			return a.terminate(err)
		}

		if a.cfg.Taint {
			line = a.corruptor.Corrupt(line)
		}
		a.process(line)

		if a.lines()%int64(a.cfg.Cadence) == 0 {
			a.report(false)
		}
	}
}

// process validates one line, traces it and records it in the summary.
func (a *Aggregator) process(line string) {
	res := a.validator.Validate(line)

	a.mu.Lock()
	a.summary.Record(res)
	n := a.summary.Lines
	a.mu.Unlock()

	if !a.cfg.Verbose {
		return
	}
	if err := a.reporter.Trace(model.Trace{N: n, Line: line, Result: res}); err != nil {
		a.log.Warn("trace failed", zap.Int64("line", n), zap.Error(err))
	}
}

func (a *Aggregator) lines() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.summary.Lines
}

// report emits a summary, passing through Reporting.
func (a *Aggregator) report(final bool) model.Snapshot {
	a.mu.Lock()
	a.state = Reporting
	snap := a.summary.Snapshot(final)
	a.mu.Unlock()

	if err := a.reporter.Report(snap); err != nil {
		a.log.Warn("report failed", zap.Error(err))
	}

	a.mu.Lock()
	if final {
		a.state = Terminated
	} else {
		a.state = Running
	}
	a.mu.Unlock()
	return snap
}

// terminate emits the final report for the lines processed so far.
func (a *Aggregator) terminate(cause error) (model.Snapshot, error) {
	snap := a.report(true)

	switch {
	case errors.Is(cause, io.EOF):
		a.log.Debug("end of input", zap.Int64("lines", snap.Lines))
		return snap, nil
	case errors.Is(cause, context.Canceled), errors.Is(cause, context.DeadlineExceeded):
		a.log.Info("interrupted", zap.Int64("lines", snap.Lines))
		return snap, nil
	default:
		a.log.Error("feed failed", zap.Int64("lines", snap.Lines), zap.Error(cause))
		return snap, cause
	}
}
