// Package ranking maintains the local top-N leaderboard and player identity.
package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/revoirb612/pedamint-hcoding/internal/kv"
	"github.com/revoirb612/pedamint-hcoding/internal/model"
)

const (
	// RankingKey stores the JSON-encoded ranking list.
	RankingKey = "clickSpeedRanking"
	// MaxEntries bounds the ranking list.
	MaxEntries = 10
)

// Local is the persisted top-10 list of session results.
type Local struct {
	store kv.Store
	log   zerolog.Logger
}

// NewLocal returns a Local ranking backed by store.
func NewLocal(store kv.Store, log zerolog.Logger) *Local {
	return &Local{store: store, log: log}
}

// Load returns the persisted ranking. Missing, unreadable or corrupt data
// yields an empty list.
func (l *Local) Load(ctx context.Context) []model.ScoreRecord {
	records, err := l.read(ctx)
	if err != nil {
		l.log.Warn().Err(err).Msg("failed to read ranking, starting empty")
		return []model.ScoreRecord{}
	}
	return records
}

// read returns the persisted ranking sorted and capped at MaxEntries. Absent
// or corrupt content is an empty list; only store failures are errors.
func (l *Local) read(ctx context.Context) ([]model.ScoreRecord, error) {
	raw, ok, err := l.store.Get(ctx, RankingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read ranking: %w", err)
	}
	if !ok || raw == "" {
		return []model.ScoreRecord{}, nil
	}
	var records []model.ScoreRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		l.log.Warn().Err(err).Msg("discarding corrupt ranking")
		return []model.ScoreRecord{}, nil
	}
	if records == nil {
		return []model.ScoreRecord{}, nil
	}
	return rank(records), nil
}

func rank(records []model.ScoreRecord) []model.ScoreRecord {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Clicks > records[j].Clicks
	})
	if len(records) > MaxEntries {
		records = records[:MaxEntries]
	}
	return records
}

// Insert adds rec, keeps the best MaxEntries by clicks and persists the list.
// It reports whether rec now leads the ranking, judged by matching the top
// entry's clicks and date. When the stored list cannot be read, nothing is
// written and rec is returned on its own together with the read error.
func (l *Local) Insert(ctx context.Context, rec model.ScoreRecord) (bool, []model.ScoreRecord, error) {
	existing, err := l.read(ctx)
	if err != nil {
		return true, []model.ScoreRecord{rec}, err
	}
	records := rank(append(existing, rec))
	isNew := records[0].Clicks == rec.Clicks && records[0].Date == rec.Date

	data, err := json.Marshal(records)
	if err != nil {
		return isNew, records, fmt.Errorf("failed to encode ranking: %w", err)
	}
	if err := l.store.Set(ctx, RankingKey, string(data)); err != nil {
		return isNew, records, fmt.Errorf("failed to save ranking: %w", err)
	}
	return isNew, records, nil
}

// Clear removes every ranking record.
func (l *Local) Clear(ctx context.Context) error {
	if err := l.store.Delete(ctx, RankingKey); err != nil {
		return fmt.Errorf("failed to clear ranking: %w", err)
	}
	return nil
}
