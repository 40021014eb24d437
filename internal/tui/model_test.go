package tui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/revoirb612/pedamint-hcoding/internal/game"
	"github.com/revoirb612/pedamint-hcoding/internal/kv"
	"github.com/revoirb612/pedamint-hcoding/internal/model"
	"github.com/revoirb612/pedamint-hcoding/internal/remote"
	"github.com/revoirb612/pedamint-hcoding/internal/session"
	"github.com/revoirb612/pedamint-hcoding/internal/timer"
)

type stubSource struct{}

func (stubSource) Start(uint64, int) <-chan timer.Tick { return make(chan timer.Tick) }
func (stubSource) Stop()                               {}

type fakeRemote struct{}

func (fakeRemote) Submit(context.Context, string, int) error { return nil }
func (fakeRemote) FetchTop(context.Context, string) ([]model.RemoteEntry, error) {
	return nil, nil
}

func newTestModel(t *testing.T, rem game.Remote) *Model {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 14, 5, 0, 0, time.Local))
	deps := game.Deps{
		Clock: clock,
		Ticks: stubSource{},
		Store: kv.NewMemory(),
		Log:   zerolog.Nop(),
	}
	if rem != nil {
		deps.Remote = rem
	}
	cfg := model.Config{Duration: 2, Durations: []int{5, 10, 15}}
	return NewModel(context.Background(), game.New(deps), cfg, zerolog.Nop())
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func tick(m *Model) tea.Cmd {
	_, cmd := m.Update(tickMsg{tick: timer.Tick{Epoch: m.game.Epoch()}})
	return cmd
}

func playSession(t *testing.T, m *Model, clicks int) {
	t.Helper()
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil {
		t.Fatalf("expected tick listener after start")
	}
	for i := 0; i < clicks; i++ {
		m.Update(tea.KeyMsg{Type: tea.KeySpace})
	}
	for i := 0; i < m.duration; i++ {
		tick(m)
	}
	if m.game.Snapshot().State != session.Ended {
		t.Fatalf("expected session to end")
	}
}

func TestSessionFlow(t *testing.T) {
	m := newTestModel(t, nil)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.game.Snapshot().State != session.Running {
		t.Fatalf("expected running session")
	}
	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m.Update(tea.MouseMsg{Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m.Update(keyRunes("n"))
	if m.mode != modePlay {
		t.Fatalf("name editing must wait for the session to end")
	}

	if cmd := tick(m); cmd == nil {
		t.Fatalf("expected next tick listener")
	}
	tick(m)

	if m.last == nil || m.last.Record.Clicks != 3 || m.last.Record.Rate != 1.5 {
		t.Fatalf("unexpected outcome %+v", m.last)
	}
	if !m.banner {
		t.Fatalf("expected new record banner")
	}
	view := m.View()
	for _, want := range []string{"New record!", "Final 3 clicks in 2s", "Clicks 3 · CPS 1.5"} {
		if !strings.Contains(view, want) {
			t.Fatalf("missing %q in view:\n%s", want, view)
		}
	}

	m.Update(bannerDoneMsg{id: m.bannerID - 1})
	if !m.banner {
		t.Fatalf("stale banner timer cleared the banner")
	}
	m.Update(bannerDoneMsg{id: m.bannerID})
	if m.banner {
		t.Fatalf("expected banner to clear")
	}
	if len(m.localRanking) != 1 {
		t.Fatalf("expected ranking to refresh, got %+v", m.localRanking)
	}
}

func TestClicksIgnoredWhenIdle(t *testing.T) {
	m := newTestModel(t, nil)
	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	if got := m.game.Snapshot().Clicks; got != 0 {
		t.Fatalf("expected no clicks while idle, got %d", got)
	}
}

func TestReplayDropsStaleTicks(t *testing.T) {
	m := newTestModel(t, nil)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	old := m.game.Epoch()
	m.Update(keyRunes("r"))
	if m.game.Epoch() == old {
		t.Fatalf("expected a new session epoch")
	}
	_, cmd := m.Update(tickMsg{tick: timer.Tick{Epoch: old}})
	if cmd != nil {
		t.Fatalf("stale tick must not re-arm the listener")
	}
	if got := m.game.Snapshot().Remaining; got != 2 {
		t.Fatalf("stale tick changed remaining to %d", got)
	}
}

func TestWarningInLastSeconds(t *testing.T) {
	m := newTestModel(t, nil)
	m.Update(keyRunes("1"))
	if m.duration != 5 {
		t.Fatalf("expected 5s duration, got %d", m.duration)
	}
	m.Update(keyRunes("s"))
	tick(m)
	if m.game.Snapshot().Warning {
		t.Fatalf("warning too early")
	}
	tick(m)
	if !m.game.Snapshot().Warning || !strings.Contains(m.renderTimer(), "3s") {
		t.Fatalf("expected warning at 3s, got %q", m.renderTimer())
	}
}

func TestDurationKeys(t *testing.T) {
	m := newTestModel(t, nil)
	m.Update(keyRunes("2"))
	if m.duration != 10 {
		t.Fatalf("expected 10s, got %d", m.duration)
	}
	m.Update(keyRunes("9"))
	if m.duration != 10 {
		t.Fatalf("out of range key changed duration to %d", m.duration)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(keyRunes("3"))
	if m.duration != 10 {
		t.Fatalf("duration changed while running")
	}
}

func TestNameEditing(t *testing.T) {
	m := newTestModel(t, nil)
	m.Update(keyRunes("n"))
	if m.mode != modeName {
		t.Fatalf("expected name mode")
	}
	m.Update(keyRunes("민준"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modePlay || m.username != "민준" {
		t.Fatalf("unexpected state mode=%v name=%q", m.mode, m.username)
	}
	if got := m.game.Username(context.Background()); got != "민준" {
		t.Fatalf("username not persisted: %q", got)
	}

	m.Update(keyRunes("n"))
	m.nameInput.SetValue("   ")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeName || !m.statusErr {
		t.Fatalf("expected empty name to be rejected")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modePlay || m.username != "민준" {
		t.Fatalf("escape should keep the saved name")
	}
}

func TestClearConfirmation(t *testing.T) {
	m := newTestModel(t, nil)
	playSession(t, m, 4)

	m.Update(keyRunes("c"))
	if m.mode != modeConfirmClear || !strings.Contains(m.View(), "(y/n)") {
		t.Fatalf("expected confirmation prompt")
	}
	m.Update(keyRunes("n"))
	if m.mode != modePlay || len(m.game.LocalRanking(context.Background())) != 1 {
		t.Fatalf("declining must keep the ranking")
	}

	m.Update(keyRunes("c"))
	m.Update(keyRunes("y"))
	if len(m.game.LocalRanking(context.Background())) != 0 {
		t.Fatalf("expected ranking cleared")
	}
	if !strings.Contains(m.View(), "No records yet.") {
		t.Fatalf("expected empty board")
	}
}

func TestRemotePanelOffline(t *testing.T) {
	m := newTestModel(t, nil)
	if cmd := m.Init(); cmd != nil {
		t.Fatalf("offline model must not fetch")
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if cmd != nil || m.panel != panelRemote {
		t.Fatalf("expected remote panel without fetch")
	}
	if !strings.Contains(m.View(), "Online ranking disabled.") {
		t.Fatalf("expected disabled placeholder")
	}
}

func TestRemotePanelOnline(t *testing.T) {
	m := newTestModel(t, fakeRemote{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if cmd == nil || !m.remoteLoading {
		t.Fatalf("expected remote fetch on toggle")
	}

	m.Update(remoteTopMsg{err: fmt.Errorf("%w: boom", remote.ErrUnavailable)})
	if !strings.Contains(m.View(), "Remote ranking unavailable.") {
		t.Fatalf("expected unavailable placeholder")
	}

	m.Update(remoteMsg{res: game.RemoteResult{
		Score:     42,
		Submitted: true,
		Entries: []model.RemoteEntry{
			{Username: "tapper", Score: 42, Timestamp: "2026-10-18T05:00:00Z"},
			{Username: "민준", Score: 40, Timestamp: "yesterday"},
		},
	}})
	view := m.View()
	for _, want := range []string{"Submitted 42 clicks online.", "tapper", "민준", "yesterday"} {
		if !strings.Contains(view, want) {
			t.Fatalf("missing %q in view:\n%s", want, view)
		}
	}

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.panel != panelLocal || !strings.Contains(m.View(), "No records yet.") {
		t.Fatalf("expected local panel")
	}
}

func TestFormatWhen(t *testing.T) {
	if got := formatWhen("not a time"); got != "not a time" {
		t.Fatalf("unexpected passthrough %q", got)
	}
	ts := time.Date(2026, 10, 18, 5, 0, 0, 0, time.UTC)
	want := ts.Local().Format("01-02 15:04")
	if got := formatWhen(ts.Format(time.RFC3339)); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestLeaderHighlightedWhenSetToday(t *testing.T) {
	m := newTestModel(t, nil)
	if m.leaderIsToday() {
		t.Fatalf("empty board has no leader")
	}
	playSession(t, m, 4)
	if !m.leaderIsToday() {
		t.Fatalf("expected today's record to be highlighted")
	}

	m.localRanking = []model.ScoreRecord{{Clicks: 9, Date: "2026-10-17", Time: "10:00"}}
	m.refreshBoard()
	if m.leaderIsToday() {
		t.Fatalf("older leader must not be highlighted")
	}

	m.localRanking = []model.ScoreRecord{{Clicks: 9, Date: m.game.Today()}}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.leaderIsToday() {
		t.Fatalf("online board has no local leader highlight")
	}
}
