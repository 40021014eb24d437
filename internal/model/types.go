// Package model defines shared data structures.
package model

import "time"

// Config defines game settings resolved from flags, config file and environment.
type Config struct {
	Duration   int
	Durations  []int
	Offline    bool
	RemoteURL  string
	SubmitPath string
	ListPath   string
	ProgramKey string
	Timeout    time.Duration
}

// SessionConfig fixes the parameters of a single session.
type SessionConfig struct {
	DurationSeconds int
}

// ScoreRecord is the persisted result of a completed session.
// The rate keeps the "cps" field name of the stored ranking format.
type ScoreRecord struct {
	Clicks int     `json:"clicks"`
	Rate   float64 `json:"cps"`
	Date   string  `json:"date"`
	Time   string  `json:"time"`
}

// RemoteEntry is one row of the online leaderboard.
type RemoteEntry struct {
	Username  string `json:"username"`
	Score     int    `json:"score"`
	Timestamp string `json:"timestamp"`
}

// SessionResult captures a completed session for history and stats.
type SessionResult struct {
	ID              string
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds int
	Clicks          int
	Rate            float64
}

// StatsConfig defines filters for the stats output.
type StatsConfig struct {
	Since    *time.Time
	Last     int
	Duration int
	Window   int
}
