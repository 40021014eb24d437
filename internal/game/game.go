// Package game wires the session engine to local and online rankings.
package game

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/revoirb612/pedamint-hcoding/internal/kv"
	"github.com/revoirb612/pedamint-hcoding/internal/model"
	"github.com/revoirb612/pedamint-hcoding/internal/ranking"
	"github.com/revoirb612/pedamint-hcoding/internal/session"
	"github.com/revoirb612/pedamint-hcoding/internal/timer"
)

// ErrOffline is reported when no ranking service is configured.
var ErrOffline = errors.New("online ranking disabled")

// History records completed sessions.
type History interface {
	InsertSession(ctx context.Context, res model.SessionResult) error
}

// Remote is the online ranking service.
type Remote interface {
	Submit(ctx context.Context, username string, score int) error
	FetchTop(ctx context.Context, programKey string) ([]model.RemoteEntry, error)
}

// Deps are the collaborators of a Game. Store is required.
type Deps struct {
	Clock   clockwork.Clock
	Ticks   timer.Source
	Store   kv.Store
	History History
	Remote  Remote
	Log     zerolog.Logger
	NewID   func() string
}

// Outcome is the local result of a finished session.
type Outcome struct {
	Record    model.ScoreRecord
	NewRecord bool
	Ranking   []model.ScoreRecord
	SaveErr   error
}

// RemoteResult is the result of a detached submit-and-refresh.
type RemoteResult struct {
	Score     int
	Submitted bool
	SubmitErr error
	Entries   []model.RemoteEntry
	FetchErr  error
}

// Game is the session context owned by a UI.
type Game struct {
	clock   clockwork.Clock
	engine  *session.Engine
	local   *ranking.Local
	profile *ranking.Profile
	history History
	remote  Remote
	log     zerolog.Logger
	newID   func() string

	startedAt time.Time
}

// New constructs a Game from deps.
func New(deps Deps) *Game {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Game{
		clock:   clock,
		engine:  session.NewEngine(clock, deps.Ticks),
		local:   ranking.NewLocal(deps.Store, deps.Log),
		profile: ranking.NewProfile(deps.Store),
		history: deps.History,
		remote:  deps.Remote,
		log:     deps.Log,
		newID:   newID,
	}
}

// Start begins a session of the given length.
func (g *Game) Start(seconds int) (<-chan timer.Tick, bool) {
	ticks, ok := g.engine.Start(model.SessionConfig{DurationSeconds: seconds})
	if ok {
		g.startedAt = g.clock.Now()
		g.log.Debug().Int("duration", seconds).Uint64("epoch", g.engine.Epoch()).Msg("session started")
	}
	return ticks, ok
}

// Click registers one click.
func (g *Game) Click() bool {
	return g.engine.RegisterClick()
}

// HandleTick applies a countdown tick. It returns the outcome when the tick
// ends the session; the record is already in the local ranking by then.
func (g *Game) HandleTick(ctx context.Context, t timer.Tick) *Outcome {
	rec, done := g.engine.OnTick(t)
	if !done {
		return nil
	}
	isNew, records, err := g.local.Insert(ctx, rec)
	if err != nil {
		g.log.Error().Err(err).Msg("failed to persist ranking")
	}
	g.recordHistory(ctx, rec)
	g.log.Info().Int("clicks", rec.Clicks).Float64("cps", rec.Rate).Bool("new_record", isNew).Msg("session finished")
	return &Outcome{Record: rec, NewRecord: isNew, Ranking: records, SaveErr: err}
}

func (g *Game) recordHistory(ctx context.Context, rec model.ScoreRecord) {
	if g.history == nil {
		return
	}
	snap := g.engine.Snapshot()
	res := model.SessionResult{
		ID:              g.newID(),
		StartedAt:       g.startedAt,
		EndedAt:         g.clock.Now(),
		DurationSeconds: snap.Duration,
		Clicks:          rec.Clicks,
		Rate:            rec.Rate,
	}
	if err := g.history.InsertSession(ctx, res); err != nil {
		g.log.Warn().Err(err).Msg("failed to record session history")
	}
}

// Reset abandons a running session or clears an ended one.
func (g *Game) Reset() {
	g.engine.Reset()
}

// Snapshot returns the engine counters.
func (g *Game) Snapshot() session.Snapshot {
	return g.engine.Snapshot()
}

// Epoch identifies the current session.
func (g *Game) Epoch() uint64 {
	return g.engine.Epoch()
}

// Today is the record date of the current clock.
func (g *Game) Today() string {
	return g.clock.Now().Format(session.DateLayout)
}

// LocalRanking returns the persisted top list.
func (g *Game) LocalRanking(ctx context.Context) []model.ScoreRecord {
	return g.local.Load(ctx)
}

// ClearRanking deletes the local top list. Callers confirm with the user first.
func (g *Game) ClearRanking(ctx context.Context) error {
	return g.local.Clear(ctx)
}

// Username returns the saved display name.
func (g *Game) Username(ctx context.Context) string {
	name, err := g.profile.Username(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("failed to load username")
		return ""
	}
	return name
}

// SetUsername saves a display name.
func (g *Game) SetUsername(ctx context.Context, name string) (string, error) {
	return g.profile.SetUsername(ctx, name)
}

// Online reports whether a ranking service is configured.
func (g *Game) Online() bool {
	return g.remote != nil
}

// RemoteTop fetches the online top list.
func (g *Game) RemoteTop(ctx context.Context) ([]model.RemoteEntry, error) {
	if g.remote == nil {
		return nil, ErrOffline
	}
	return g.remote.FetchTop(ctx, "")
}

// Publish submits score under the saved username and refreshes the online
// list. A missing username skips the submission but not the refresh.
func (g *Game) Publish(ctx context.Context, score int) RemoteResult {
	return g.publish(ctx, g.Username(ctx), score)
}

// PublishAsync runs Publish in a detached goroutine. The username is read
// before returning.
func (g *Game) PublishAsync(ctx context.Context, score int) <-chan RemoteResult {
	username := g.Username(ctx)
	out := make(chan RemoteResult, 1)
	go func() {
		out <- g.publish(ctx, username, score)
		close(out)
	}()
	return out
}

func (g *Game) publish(ctx context.Context, username string, score int) RemoteResult {
	res := RemoteResult{Score: score}
	if g.remote == nil {
		res.SubmitErr = ErrOffline
		res.FetchErr = ErrOffline
		return res
	}
	if err := g.remote.Submit(ctx, username, score); err != nil {
		res.SubmitErr = err
	} else {
		res.Submitted = true
	}
	res.Entries, res.FetchErr = g.remote.FetchTop(ctx, "")
	return res
}
