package rankserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/revoirb612/pedamint-hcoding/internal/model"
	"github.com/revoirb612/pedamint-hcoding/internal/remote"
)

func newTestServer(t *testing.T, limit int) (*httptest.Server, *clockwork.FakeClock) {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "rank.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 14, 0, 0, 0, time.UTC))
	s := New(Config{Limit: limit}, repo, clock, zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, clock
}

func post(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := srv.Client().Post(srv.URL+"/api/ranking", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func list(t *testing.T, srv *httptest.Server, key string) []model.RemoteEntry {
	t.Helper()
	resp, err := srv.Client().Get(srv.URL + "/api/ranking/" + key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var entries []model.RemoteEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return entries
}

func TestSubmitValidation(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{"score":`},
		{"missing key", `{"score":1,"username":"a"}`},
		{"missing username", `{"program_key":"k","score":1,"username":"  "}`},
		{"negative score", `{"program_key":"k","score":-1,"username":"a"}`},
		{"long username", `{"program_key":"k","score":1,"username":"abcdefghijklmnopqrstuvwxyz0123456789"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if resp := post(t, srv, tc.body); resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
	if got := list(t, srv, "k"); len(got) != 0 {
		t.Fatalf("expected nothing stored, got %+v", got)
	}
}

func TestTopOrdersByScoreThenTime(t *testing.T) {
	srv, clock := newTestServer(t, 0)
	for _, s := range []struct {
		name  string
		score int
	}{{"first", 10}, {"best", 20}, {"later", 10}} {
		resp := post(t, srv, fmt.Sprintf(`{"program_key":"click-speed","score":%d,"username":%q}`, s.score, s.name))
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
		clock.Advance(time.Minute)
	}
	post(t, srv, `{"program_key":"other","score":99,"username":"elsewhere"}`)

	got := list(t, srv, "click-speed")
	want := []string{"best", "first", "later"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), got)
	}
	for i, name := range want {
		if got[i].Username != name {
			t.Fatalf("position %d: expected %s, got %+v", i, name, got)
		}
	}
	if got[1].Timestamp != "2026-10-18T14:00:00Z" {
		t.Fatalf("unexpected timestamp %q", got[1].Timestamp)
	}
}

func TestTopLimit(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	for i := 0; i < 12; i++ {
		post(t, srv, fmt.Sprintf(`{"program_key":"k","score":%d,"username":"p%d"}`, i, i))
	}
	got := list(t, srv, "k")
	if len(got) != DefaultLimit {
		t.Fatalf("expected %d entries, got %d", DefaultLimit, len(got))
	}
	if got[0].Score != 11 || got[len(got)-1].Score != 2 {
		t.Fatalf("unexpected bounds %+v", got)
	}
}

func TestRemoteClientRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	c := remote.New(remote.Config{
		BaseURL:    srv.URL,
		SubmitPath: "/api/ranking",
		ListPath:   "/api/ranking",
		ProgramKey: "click-speed",
	}, srv.Client(), zerolog.Nop())

	ctx := context.Background()
	if err := c.Submit(ctx, "민준", 47); err != nil {
		t.Fatalf("submit: %v", err)
	}
	entries, err := c.FetchTop(ctx, "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(entries) != 1 || entries[0].Username != "민준" || entries[0].Score != 47 {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/ranking", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestOpenRepository(t *testing.T) {
	ctx := context.Background()
	if _, err := OpenRepository(ctx, " "); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
	if _, err := OpenRepository(ctx, "mysql://localhost/db"); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
	for _, dsn := range []string{
		"sqlite://" + filepath.Join(t.TempDir(), "a.db"),
		filepath.Join(t.TempDir(), "b.db"),
	} {
		repo, err := OpenRepository(ctx, dsn)
		if err != nil {
			t.Fatalf("open %s: %v", dsn, err)
		}
		if _, ok := repo.(*SQLite); !ok {
			t.Fatalf("expected sqlite repository for %s", dsn)
		}
		_ = repo.Close()
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, ln, http.HandlerFunc(healthz), zerolog.Nop())
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}
