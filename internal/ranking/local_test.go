package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/revoirb612/pedamint-hcoding/internal/kv"
	"github.com/revoirb612/pedamint-hcoding/internal/model"
)

type failingStore struct {
	getErr error
	setErr error
}

func (f failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, f.getErr
}

func (f failingStore) Set(context.Context, string, string) error {
	return f.setErr
}

func (f failingStore) Delete(context.Context, string) error {
	return f.setErr
}

// flakyStore fails the next failGets reads and then behaves like Memory.
type flakyStore struct {
	*kv.Memory
	failGets int
	sets     int
}

func (f *flakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failGets > 0 {
		f.failGets--
		return "", false, errors.New("database is locked")
	}
	return f.Memory.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key, value string) error {
	f.sets++
	return f.Memory.Set(ctx, key, value)
}

func newTestLocal() (*Local, *kv.Memory) {
	mem := kv.NewMemory()
	return NewLocal(mem, zerolog.Nop()), mem
}

func clicksOf(records []model.ScoreRecord) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.Clicks
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestInsertSortsDescending(t *testing.T) {
	l, _ := newTestLocal()
	ctx := context.Background()
	l.Insert(ctx, model.ScoreRecord{Clicks: 20, Date: "2026-10-17"})
	l.Insert(ctx, model.ScoreRecord{Clicks: 15, Date: "2026-10-17"})

	isNew, records, err := l.Insert(ctx, model.ScoreRecord{Clicks: 18, Date: "2026-10-18"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if isNew {
		t.Fatalf("18 clicks should not be a new record")
	}
	if got := clicksOf(records); !equalInts(got, []int{20, 18, 15}) {
		t.Fatalf("unexpected order: %v", got)
	}
	if got := clicksOf(l.Load(ctx)); !equalInts(got, []int{20, 18, 15}) {
		t.Fatalf("unexpected persisted order: %v", got)
	}
}

func TestInsertKeepsTopTen(t *testing.T) {
	l, _ := newTestLocal()
	ctx := context.Background()
	inputs := []int{30, 12, 45, 7, 33, 21, 50, 18, 27, 39, 9}
	for _, c := range inputs {
		if _, _, err := l.Insert(ctx, model.ScoreRecord{Clicks: c}); err != nil {
			t.Fatalf("insert %d: %v", c, err)
		}
	}
	got := clicksOf(l.Load(ctx))
	want := []int{50, 45, 39, 33, 30, 27, 21, 18, 12, 9}
	if !equalInts(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestInsertStableOnTies(t *testing.T) {
	l, _ := newTestLocal()
	ctx := context.Background()
	for _, tm := range []string{"10:00", "10:01", "10:02"} {
		l.Insert(ctx, model.ScoreRecord{Clicks: 25, Date: "2026-10-18", Time: tm})
	}
	l.Insert(ctx, model.ScoreRecord{Clicks: 30, Date: "2026-10-18", Time: "10:03"})
	records := l.Load(ctx)
	wantTimes := []string{"10:03", "10:00", "10:01", "10:02"}
	for i, want := range wantTimes {
		if records[i].Time != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, records[i].Time)
		}
	}
}

func TestInsertNewRecordDetection(t *testing.T) {
	l, _ := newTestLocal()
	ctx := context.Background()

	isNew, _, _ := l.Insert(ctx, model.ScoreRecord{Clicks: 40, Date: "2026-10-17"})
	if !isNew {
		t.Fatalf("first record should lead")
	}
	isNew, _, _ = l.Insert(ctx, model.ScoreRecord{Clicks: 41, Date: "2026-10-18"})
	if !isNew {
		t.Fatalf("higher score should be a new record")
	}
	isNew, _, _ = l.Insert(ctx, model.ScoreRecord{Clicks: 10, Date: "2026-10-18"})
	if isNew {
		t.Fatalf("lower score should not be a new record")
	}
	// A same-day tie with the leader also reports a new record.
	isNew, records, _ := l.Insert(ctx, model.ScoreRecord{Clicks: 41, Date: "2026-10-18", Time: "later"})
	if !isNew {
		t.Fatalf("same-day tie with the leader reports a new record")
	}
	if records[0].Time == "later" {
		t.Fatalf("tie must not displace the earlier leader")
	}
}

func TestLoadCorruptIsEmpty(t *testing.T) {
	l, mem := newTestLocal()
	ctx := context.Background()
	for _, raw := range []string{"{not json", `{"clicks":1}`, "null", ""} {
		_ = mem.Set(ctx, RankingKey, raw)
		if got := l.Load(ctx); got == nil || len(got) != 0 {
			t.Fatalf("raw %q: expected empty slice, got %v", raw, got)
		}
	}
}

func TestLoadIdempotent(t *testing.T) {
	l, _ := newTestLocal()
	ctx := context.Background()
	l.Insert(ctx, model.ScoreRecord{Clicks: 3})
	l.Insert(ctx, model.ScoreRecord{Clicks: 9})
	first := clicksOf(l.Load(ctx))
	second := clicksOf(l.Load(ctx))
	if !equalInts(first, second) {
		t.Fatalf("load not idempotent: %v vs %v", first, second)
	}
}

func TestClearEmptiesRanking(t *testing.T) {
	l, _ := newTestLocal()
	ctx := context.Background()
	l.Insert(ctx, model.ScoreRecord{Clicks: 3})
	if err := l.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := l.Load(ctx); len(got) != 0 {
		t.Fatalf("expected empty ranking after clear, got %v", got)
	}
}

func TestStoreFailuresDegrade(t *testing.T) {
	boom := errors.New("disk gone")
	l := NewLocal(failingStore{getErr: boom, setErr: boom}, zerolog.Nop())
	ctx := context.Background()
	if got := l.Load(ctx); len(got) != 0 {
		t.Fatalf("expected empty ranking on read failure")
	}
	isNew, records, err := l.Insert(ctx, model.ScoreRecord{Clicks: 5, Date: "d"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected save error, got %v", err)
	}
	if !isNew || len(records) != 1 {
		t.Fatalf("expected in-memory result despite save failure")
	}
}

func TestProfileUsername(t *testing.T) {
	p := NewProfile(kv.NewMemory())
	ctx := context.Background()
	if name, err := p.Username(ctx); err != nil || name != "" {
		t.Fatalf("expected empty username, got %q (%v)", name, err)
	}
	if _, err := p.SetUsername(ctx, "   "); !errors.Is(err, ErrEmptyUsername) {
		t.Fatalf("expected ErrEmptyUsername, got %v", err)
	}
	saved, err := p.SetUsername(ctx, "  tapper  ")
	if err != nil || saved != "tapper" {
		t.Fatalf("unexpected save result %q (%v)", saved, err)
	}
	if name, _ := p.Username(ctx); name != "tapper" {
		t.Fatalf("expected tapper, got %q", name)
	}
}

func TestInsertKeepsRankingOnReadFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Memory: kv.NewMemory()}
	l := NewLocal(store, zerolog.Nop())
	for c := 50; c < 60; c++ {
		if _, _, err := l.Insert(ctx, model.ScoreRecord{Clicks: c, Date: "2026-10-17"}); err != nil {
			t.Fatalf("seed insert: %v", err)
		}
	}
	seeded := store.sets

	store.failGets = 1
	isNew, records, err := l.Insert(ctx, model.ScoreRecord{Clicks: 1, Date: "2026-10-18"})
	if err == nil {
		t.Fatalf("expected read error")
	}
	if store.sets != seeded {
		t.Fatalf("ranking was overwritten after a failed read")
	}
	if !isNew || len(records) != 1 || records[0].Clicks != 1 {
		t.Fatalf("expected in-memory result, got new=%v %v", isNew, records)
	}

	got := clicksOf(l.Load(ctx))
	want := []int{59, 58, 57, 56, 55, 54, 53, 52, 51, 50}
	if !equalInts(got, want) {
		t.Fatalf("expected persisted ranking %v, got %v", want, got)
	}
}

func TestLoadSortsAndCapsStoredList(t *testing.T) {
	l, mem := newTestLocal()
	ctx := context.Background()
	stored := make([]model.ScoreRecord, 12)
	for i := range stored {
		stored[i] = model.ScoreRecord{Clicks: i, Date: "2026-10-18"}
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := mem.Set(ctx, RankingKey, string(raw)); err != nil {
		t.Fatalf("set: %v", err)
	}

	got := clicksOf(l.Load(ctx))
	want := []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}
	if !equalInts(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
