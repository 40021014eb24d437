package tui

import (
	"errors"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/revoirb612/pedamint-hcoding/internal/game"
	"github.com/revoirb612/pedamint-hcoding/internal/model"
	"github.com/revoirb612/pedamint-hcoding/internal/stats"
)

const (
	panelLocal = iota
	panelRemote
)

const boardRows = 10

func localBoardData(records []model.ScoreRecord) ([]table.Column, []table.Row) {
	headers := []string{"#", "Clicks", "CPS", "Date", "Time"}
	rows := make([]table.Row, 0, len(records))
	for i, r := range records {
		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			strconv.Itoa(r.Clicks),
			strconv.FormatFloat(r.Rate, 'f', 1, 64),
			r.Date,
			r.Time,
		})
	}
	return boardColumns(headers, rows), rows
}

func remoteBoardData(entries []model.RemoteEntry) ([]table.Column, []table.Row) {
	headers := []string{"#", "Name", "Score", "When"}
	rows := make([]table.Row, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			e.Username,
			strconv.Itoa(e.Score),
			formatWhen(e.Timestamp),
		})
	}
	return boardColumns(headers, rows), rows
}

func boardColumns(headers []string, rows []table.Row) []table.Column {
	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		width := stats.DisplayWidth(h)
		for _, row := range rows {
			if i < len(row) {
				if w := stats.DisplayWidth(row[i]); w > width {
					width = w
				}
			}
		}
		cols[i] = table.Column{Title: h, Width: width}
	}
	return cols
}

// formatWhen shortens RFC 3339 timestamps. Other values pass through.
func formatWhen(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("01-02 15:04")
}

func newBoard() table.Model {
	t := table.New(
		table.WithHeight(boardRows+1),
	)
	t.SetStyles(boardStyles(false))
	return t
}

// The board never moves its cursor, so the selected row is always the
// leader and the selected style doubles as the leader highlight.
func boardStyles(highlightLeader bool) table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell
	if highlightLeader {
		styles.Selected = leaderStyle
	}
	return styles
}

func (m *Model) refreshBoard() {
	var (
		cols []table.Column
		rows []table.Row
	)
	if m.panel == panelRemote {
		cols, rows = remoteBoardData(m.remoteEntries)
	} else {
		cols, rows = localBoardData(m.localRanking)
	}
	m.board.SetStyles(boardStyles(m.leaderIsToday()))
	// Rows must be cleared before narrowing the column set.
	m.board.SetRows(nil)
	m.board.SetColumns(cols)
	m.board.SetRows(rows)
}

// leaderIsToday reports whether the local #1 record was set today.
func (m *Model) leaderIsToday() bool {
	return m.panel == panelLocal && len(m.localRanking) > 0 &&
		m.localRanking[0].Date == m.game.Today()
}

func (m *Model) renderPanel() string {
	local, online := inactiveNavStyle, inactiveNavStyle
	if m.panel == panelRemote {
		online = activeNavStyle
	} else {
		local = activeNavStyle
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Top, local.Render("Local"), online.Render("Online"))

	var body string
	switch {
	case m.panel == panelLocal && len(m.localRanking) == 0:
		body = mutedStyle.Render("No records yet.")
	case m.panel == panelRemote && !m.game.Online():
		body = mutedStyle.Render("Online ranking disabled.")
	case m.panel == panelRemote && m.remoteLoading && m.remoteEntries == nil:
		body = mutedStyle.Render("Loading…")
	case m.panel == panelRemote && m.remoteErr != nil:
		body = mutedStyle.Render(remotePlaceholder(m.remoteErr))
	case m.panel == panelRemote && len(m.remoteEntries) == 0:
		body = mutedStyle.Render("No online records yet.")
	default:
		body = m.board.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, tabs, body)
}

func remotePlaceholder(err error) string {
	if errors.Is(err, game.ErrOffline) {
		return "Online ranking disabled."
	}
	return "Remote ranking unavailable."
}
