// Package remote talks to the online ranking service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/revoirb612/pedamint-hcoding/internal/model"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

var (
	// ErrEmptyUsername is returned by Submit before any request is made.
	ErrEmptyUsername = errors.New("username is required for online ranking")
	// ErrSubmitFailed wraps transport and status failures of Submit.
	ErrSubmitFailed = errors.New("score submission failed")
	// ErrUnavailable wraps every FetchTop failure.
	ErrUnavailable = errors.New("remote ranking unavailable")
)

// Config locates the ranking service.
type Config struct {
	BaseURL    string
	SubmitPath string
	ListPath   string
	ProgramKey string
	Timeout    time.Duration
}

// Client issues single best-effort requests to the ranking service.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

type submitRequest struct {
	ProgramKey string `json:"program_key"`
	Score      int    `json:"score"`
	Username   string `json:"username"`
}

// New returns a Client. A nil httpClient gets a client with cfg.Timeout.
func New(cfg Config, httpClient *http.Client, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient, log: log}
}

// ProgramKey returns the configured program key.
func (c *Client) ProgramKey() string {
	return c.cfg.ProgramKey
}

// Submit posts score under username.
func (c *Client) Submit(ctx context.Context, username string, score int) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrEmptyUsername
	}
	body, err := json.Marshal(submitRequest{
		ProgramKey: c.cfg.ProgramKey,
		Score:      score,
		Username:   username,
	})
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.cfg.BaseURL+c.cfg.SubmitPath, bytes.NewReader(body))
	if err != nil {
		c.log.Error().Err(err).Str("username", username).Int("score", score).Msg("score submission failed")
		return fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	defer closeBody(resp)
	if err := checkStatus(resp); err != nil {
		c.log.Error().Err(err).Str("username", username).Int("score", score).Msg("score submission rejected")
		return fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	c.log.Info().Str("username", username).Int("score", score).Msg("score submitted")
	return nil
}

// FetchTop returns the service's top list for programKey in service order.
func (c *Client) FetchTop(ctx context.Context, programKey string) ([]model.RemoteEntry, error) {
	if programKey == "" {
		programKey = c.cfg.ProgramKey
	}
	entries, err := c.fetchTop(ctx, programKey)
	if err != nil {
		c.log.Warn().Err(err).Str("program_key", programKey).Msg("remote ranking unavailable")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return entries, nil
}

func (c *Client) fetchTop(ctx context.Context, programKey string) ([]model.RemoteEntry, error) {
	endpoint := c.cfg.BaseURL + c.cfg.ListPath + "/" + url.PathEscape(programKey)
	resp, err := c.do(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var entries *[]model.RemoteEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode ranking: %w", err)
	}
	if entries == nil {
		return nil, fmt.Errorf("ranking payload is not a list")
	}
	for i, e := range *entries {
		if strings.TrimSpace(e.Username) == "" || e.Score < 0 {
			return nil, fmt.Errorf("malformed ranking entry at %d", i)
		}
	}
	return *entries, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}

func closeBody(resp *http.Response) {
	if cerr := resp.Body.Close(); cerr != nil {
		// Best-effort body close.
		_ = cerr
	}
}
