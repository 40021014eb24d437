// Package tui provides the Bubble Tea click-speed interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/revoirb612/pedamint-hcoding/internal/game"
	"github.com/revoirb612/pedamint-hcoding/internal/model"
	"github.com/revoirb612/pedamint-hcoding/internal/ranking"
	"github.com/revoirb612/pedamint-hcoding/internal/session"
	"github.com/revoirb612/pedamint-hcoding/internal/timer"
)

const bannerDuration = 2 * time.Second

type mode int

const (
	modePlay mode = iota
	modeName
	modeConfirmClear
)

type tickMsg struct {
	tick timer.Tick
}

type remoteMsg struct {
	res game.RemoteResult
}

type remoteTopMsg struct {
	entries []model.RemoteEntry
	err     error
}

type bannerDoneMsg struct {
	id int
}

// Model implements the Bubble Tea game UI.
type Model struct {
	ctx  context.Context
	game *game.Game
	log  zerolog.Logger

	width  int
	height int

	mode      mode
	duration  int
	durations []int
	ticks     <-chan timer.Tick

	last      *game.Outcome
	banner    bool
	bannerID  int
	status    string
	statusErr bool

	username  string
	nameInput textinput.Model

	panel         int
	board         table.Model
	localRanking  []model.ScoreRecord
	remoteEntries []model.RemoteEntry
	remoteErr     error
	remoteLoading bool
}

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	timerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	bannerStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1A1A1A")).
			Background(lipgloss.Color("#C89A3A")).
			Bold(true).
			Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	leaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))

	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// NewModel constructs the game UI around g.
func NewModel(ctx context.Context, g *game.Game, cfg model.Config, log zerolog.Logger) *Model {
	m := &Model{
		ctx:       ctx,
		game:      g,
		log:       log,
		duration:  cfg.Duration,
		durations: cfg.Durations,
		board:     newBoard(),
	}
	m.nameInput = newNameInput()
	m.username = g.Username(ctx)
	m.localRanking = g.LocalRanking(ctx)
	m.refreshBoard()
	return m
}

func newNameInput() textinput.Model {
	input := textinput.New()
	input.Prompt = "Name: "
	input.Placeholder = "your name"
	input.CharLimit = 32
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if !m.game.Online() {
		return nil
	}
	m.remoteLoading = true
	return m.fetchRemoteTop()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		return m, m.handleTick(msg.tick)
	case remoteMsg:
		m.handleRemoteResult(msg.res)
		return m, nil
	case remoteTopMsg:
		m.remoteLoading = false
		m.remoteErr = msg.err
		if msg.err == nil {
			m.remoteEntries = msg.entries
		}
		m.refreshBoard()
		return m, nil
	case bannerDoneMsg:
		if msg.id == m.bannerID {
			m.banner = false
		}
		return m, nil
	case tea.MouseMsg:
		if m.mode == modePlay && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.game.Click()
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeName:
			return m.updateName(msg)
		case modeConfirmClear:
			m.updateConfirmClear(msg)
			return m, nil
		default:
			return m.updatePlay(msg)
		}
	default:
		if m.mode == modeName {
			var cmd tea.Cmd
			m.nameInput, cmd = m.nameInput.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

func (m *Model) updatePlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	running := m.game.Snapshot().State == session.Running
	switch msg.Type {
	case tea.KeySpace:
		m.game.Click()
		return m, nil
	case tea.KeyEnter:
		return m, m.start()
	case tea.KeyTab:
		return m, m.togglePanel()
	case tea.KeyEsc:
		if running {
			m.game.Reset()
			m.setStatus("Session cancelled.", false)
		}
		return m, nil
	}

	key := msg.String()
	switch key {
	case "q":
		return m, tea.Quit
	case "s":
		return m, m.start()
	case "r":
		m.game.Reset()
		return m, m.start()
	case "n":
		if running {
			return m, nil
		}
		m.mode = modeName
		m.nameInput.SetValue(m.username)
		m.nameInput.CursorEnd()
		return m, m.nameInput.Focus()
	case "c":
		if running {
			return m, nil
		}
		m.mode = modeConfirmClear
		return m, nil
	}
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' && !running {
		m.selectDuration(int(key[0] - '1'))
	}
	return m, nil
}

func (m *Model) updateName(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modePlay
		m.nameInput.Blur()
		return m, nil
	case tea.KeyEnter:
		name, err := m.game.SetUsername(m.ctx, m.nameInput.Value())
		if err != nil {
			if errors.Is(err, ranking.ErrEmptyUsername) {
				m.setStatus("Name cannot be empty.", true)
			} else {
				m.log.Error().Err(err).Msg("failed to save username")
				m.setStatus("Failed to save name.", true)
			}
			return m, nil
		}
		m.username = name
		m.mode = modePlay
		m.nameInput.Blur()
		m.setStatus(fmt.Sprintf("Playing as %s.", name), false)
		return m, nil
	}
	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m *Model) updateConfirmClear(msg tea.KeyMsg) {
	switch strings.ToLower(msg.String()) {
	case "y":
		if err := m.game.ClearRanking(m.ctx); err != nil {
			m.log.Error().Err(err).Msg("failed to clear ranking")
			m.setStatus("Failed to clear ranking.", true)
		} else {
			m.setStatus("Local ranking cleared.", false)
		}
		m.localRanking = m.game.LocalRanking(m.ctx)
		m.refreshBoard()
		m.mode = modePlay
	case "n", "esc":
		m.mode = modePlay
	}
}

func (m *Model) start() tea.Cmd {
	ticks, ok := m.game.Start(m.duration)
	if !ok {
		return nil
	}
	m.ticks = ticks
	m.last = nil
	m.banner = false
	m.status = ""
	return waitForTick(ticks)
}

func (m *Model) selectDuration(idx int) {
	if idx < 0 || idx >= len(m.durations) {
		return
	}
	m.duration = m.durations[idx]
	if m.game.Snapshot().State == session.Ended {
		m.game.Reset()
	}
	m.setStatus(fmt.Sprintf("Duration set to %ds.", m.duration), false)
}

func (m *Model) handleTick(t timer.Tick) tea.Cmd {
	if t.Epoch != m.game.Epoch() {
		return nil
	}
	out := m.game.HandleTick(m.ctx, t)
	if out == nil {
		return waitForTick(m.ticks)
	}
	m.last = out
	m.localRanking = out.Ranking
	if out.SaveErr != nil {
		m.setStatus("Failed to save ranking.", true)
	}
	m.refreshBoard()

	var cmds []tea.Cmd
	if out.NewRecord {
		m.banner = true
		m.bannerID++
		id := m.bannerID
		cmds = append(cmds, tea.Tick(bannerDuration, func(time.Time) tea.Msg {
			return bannerDoneMsg{id: id}
		}))
	}
	if m.game.Online() {
		if m.username == "" {
			m.setStatus("Set a name with n to join the online ranking.", false)
		}
		m.remoteLoading = true
		results := m.game.PublishAsync(m.ctx, out.Record.Clicks)
		cmds = append(cmds, func() tea.Msg {
			return remoteMsg{res: <-results}
		})
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleRemoteResult(res game.RemoteResult) {
	m.remoteLoading = false
	if res.Submitted {
		m.setStatus(fmt.Sprintf("Submitted %d clicks online.", res.Score), false)
	} else if res.SubmitErr != nil && m.username != "" {
		m.setStatus("Online submission failed.", true)
	}
	m.remoteErr = res.FetchErr
	if res.FetchErr == nil {
		m.remoteEntries = res.Entries
	}
	m.refreshBoard()
}

func (m *Model) togglePanel() tea.Cmd {
	if m.panel == panelLocal {
		m.panel = panelRemote
	} else {
		m.panel = panelLocal
	}
	m.refreshBoard()
	if m.panel == panelRemote && m.game.Online() && !m.remoteLoading {
		m.remoteLoading = true
		return m.fetchRemoteTop()
	}
	return nil
}

func (m *Model) fetchRemoteTop() tea.Cmd {
	ctx, g := m.ctx, m.game
	return func() tea.Msg {
		entries, err := g.RemoteTop(ctx)
		return remoteTopMsg{entries: entries, err: err}
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func waitForTick(ticks <-chan timer.Tick) tea.Cmd {
	return func() tea.Msg {
		t, ok := <-ticks
		if !ok {
			return nil
		}
		return tickMsg{tick: t}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	sections := []string{
		titleStyle.Render("Click Speed"),
		m.renderTimer(),
		m.renderCounters(),
	}
	if line := m.renderResult(); line != "" {
		sections = append(sections, line)
	}
	switch m.mode {
	case modeName:
		sections = append(sections, modalStyle.Render(m.nameInput.View()))
	case modeConfirmClear:
		sections = append(sections, modalStyle.Render("Clear the local ranking? (y/n)"))
	}
	if m.status != "" {
		style := mutedStyle
		if m.statusErr {
			style = errorStyle
		}
		sections = append(sections, style.Render(m.status))
	}
	sections = append(sections, "", m.renderPanel())
	content := lipgloss.JoinVertical(lipgloss.Center, sections...)

	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderTimer() string {
	snap := m.game.Snapshot()
	remaining := snap.Remaining
	if snap.State == session.Idle {
		remaining = m.duration
	}
	text := fmt.Sprintf("%ds", remaining)
	if snap.Warning {
		return warningStyle.Render(text)
	}
	return timerStyle.Render(text)
}

func (m *Model) renderCounters() string {
	snap := m.game.Snapshot()
	if snap.State == session.Ended && m.last != nil {
		return valueStyle.Render(fmt.Sprintf("Clicks %d · CPS %.1f", m.last.Record.Clicks, m.last.Record.Rate))
	}
	return valueStyle.Render(fmt.Sprintf("Clicks %d · CPS %.1f", snap.Clicks, snap.Rate))
}

func (m *Model) renderResult() string {
	if m.last == nil {
		return ""
	}
	line := mutedStyle.Render(fmt.Sprintf("Final %d clicks in %ds", m.last.Record.Clicks, m.game.Snapshot().Duration))
	if m.banner {
		line = lipgloss.JoinHorizontal(lipgloss.Center, bannerStyle.Render("New record!"), " ", line)
	}
	return line
}

func (m *Model) renderFooter() string {
	var state string
	switch m.game.Snapshot().State {
	case session.Running:
		state = "space/click to tap · esc cancel · r replay"
	case session.Ended:
		state = "enter play again · r replay"
	default:
		state = "enter start · space/click to tap"
	}
	player := m.username
	if player == "" {
		player = "anonymous"
	}
	segments := []string{
		state,
		"1-9 duration · n name · c clear · tab board · q quit",
		fmt.Sprintf("%ds · %s", m.duration, player),
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}
