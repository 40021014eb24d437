// Package session implements the click session state machine.
package session

import (
	"math"

	"github.com/jonboulle/clockwork"

	"github.com/revoirb612/pedamint-hcoding/internal/model"
	"github.com/revoirb612/pedamint-hcoding/internal/timer"
)

// Record timestamps use local date and minute layouts.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

const warningSeconds = 3

// State is the lifecycle phase of a session.
type State int

const (
	Idle State = iota
	Running
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of the engine.
type Snapshot struct {
	State     State
	Clicks    int
	Remaining int
	Duration  int
	Rate      float64
	Warning   bool
}

// Engine owns one session at a time. It is not safe for concurrent use;
// callers drive it from a single goroutine.
type Engine struct {
	clock clockwork.Clock
	ticks timer.Source

	state     State
	cfg       model.SessionConfig
	clicks    int
	remaining int
	epoch     uint64
}

// NewEngine constructs an idle engine.
func NewEngine(clock clockwork.Clock, ticks timer.Source) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ticks == nil {
		ticks = timer.NewCountdown(clock)
	}
	return &Engine{clock: clock, ticks: ticks}
}

// Start begins a session and arms the tick source. It is a no-op while a
// session is running or when the duration is not positive.
func (e *Engine) Start(cfg model.SessionConfig) (<-chan timer.Tick, bool) {
	if e.state == Running || cfg.DurationSeconds <= 0 {
		return nil, false
	}
	e.epoch++
	e.cfg = cfg
	e.clicks = 0
	e.remaining = cfg.DurationSeconds
	e.state = Running
	return e.ticks.Start(e.epoch, cfg.DurationSeconds), true
}

// RegisterClick counts a click when a session is running.
func (e *Engine) RegisterClick() bool {
	if e.state != Running {
		return false
	}
	e.clicks++
	return true
}

// OnTick applies one elapsed second. Ticks from a previous session are
// dropped. The record is returned once, on the tick that ends the session.
func (e *Engine) OnTick(t timer.Tick) (model.ScoreRecord, bool) {
	if e.state != Running || t.Epoch != e.epoch {
		return model.ScoreRecord{}, false
	}
	e.remaining--
	if e.remaining > 0 {
		return model.ScoreRecord{}, false
	}
	e.remaining = 0
	e.state = Ended
	return e.finalize(), true
}

// CurrentRate is the live clicks-per-second estimate over elapsed time.
func (e *Engine) CurrentRate() float64 {
	if e.state == Idle {
		return 0
	}
	elapsed := e.cfg.DurationSeconds - e.remaining
	if elapsed < 1 {
		elapsed = 1
	}
	return float64(e.clicks) / float64(elapsed)
}

// Reset stops the countdown and returns to Idle.
func (e *Engine) Reset() {
	if e.state == Running {
		e.ticks.Stop()
	}
	e.epoch++
	e.state = Idle
	e.clicks = 0
	e.remaining = 0
}

// State reports the current lifecycle phase.
func (e *Engine) State() State {
	return e.state
}

// Epoch identifies the current session for tick routing.
func (e *Engine) Epoch() uint64 {
	return e.epoch
}

// Snapshot returns the current counters.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		State:     e.state,
		Clicks:    e.clicks,
		Remaining: e.remaining,
		Duration:  e.cfg.DurationSeconds,
		Rate:      e.CurrentRate(),
		Warning:   e.state == Running && e.remaining <= warningSeconds,
	}
}

func (e *Engine) finalize() model.ScoreRecord {
	now := e.clock.Now()
	return model.ScoreRecord{
		Clicks: e.clicks,
		Rate:   FinalRate(e.clicks, e.cfg.DurationSeconds),
		Date:   now.Format(DateLayout),
		Time:   now.Format(TimeLayout),
	}
}

// FinalRate divides by the configured duration and rounds to one decimal.
func FinalRate(clicks, durationSeconds int) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return RoundRate(float64(clicks) / float64(durationSeconds))
}

// RoundRate rounds a rate to one decimal place.
func RoundRate(rate float64) float64 {
	return math.Round(rate*10) / 10
}
