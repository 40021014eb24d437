// Package meal looks up school meal menus from the NEIS open API.
package meal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the NEIS meal service endpoint.
	DefaultBaseURL = "https://open.neis.go.kr/hub/mealServiceDietInfo"
	// DefaultFallbackDelay is how long LookupWithFallback waits before serving the mock menu.
	DefaultFallbackDelay = time.Second

	serviceName    = "mealServiceDietInfo"
	codeOK         = "INFO-000"
	codeNoData     = "INFO-200"
	dateLayout     = "20060102"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

var (
	// ErrMissingRegion is returned when the query has no region.
	ErrMissingRegion = errors.New("region is required")
	// ErrUnknownRegion is returned for a region without an education office code.
	ErrUnknownRegion = errors.New("unknown region")
	// ErrMissingSchoolCode is returned when the query has no school code.
	ErrMissingSchoolCode = errors.New("school code is required")
	// ErrUnknownMeal is returned for an unsupported meal filter.
	ErrUnknownMeal = errors.New("unknown meal")
)

var (
	breakTag      = regexp.MustCompile(`(?i)<br\s*/?>`)
	// Allergy codes are dot-terminated digit groups such as "5.6." or "(1.5.13.)".
	allergyMarker = regexp.MustCompile(`\s*(?:\((?:\d+\.)+\)|(?:\d+\.)+)\s*$`)
)

// Config locates the meal service.
type Config struct {
	BaseURL       string
	APIKey        string
	FallbackDelay time.Duration
	Timeout       time.Duration
}

// Query selects one school's meals for a date.
type Query struct {
	Region     string
	SchoolCode string
	Date       time.Time
	// Meal filters to one meal code. Empty means all meals.
	Meal string
	// APIKey overrides the configured key when set.
	APIKey string
}

// Meal is one served meal.
type Meal struct {
	Code     string   `yaml:"code"`
	Name     string   `yaml:"name"`
	Dishes   []string `yaml:"dishes"`
	Calories string   `yaml:"calories"`
}

// Menu is the lookup result for one school and date.
type Menu struct {
	School string `yaml:"school"`
	Date   string `yaml:"-"`
	Meals  []Meal `yaml:"meals"`
	// Mock is set when the menu is the built-in sample.
	Mock bool `yaml:"-"`
}

// Client queries the meal service.
type Client struct {
	cfg   Config
	http  *http.Client
	clock clockwork.Clock
	log   zerolog.Logger
}

// New returns a Client. Nil httpClient and clock get defaults.
func New(cfg Config, httpClient *http.Client, clock clockwork.Clock, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.FallbackDelay < 0 {
		cfg.FallbackDelay = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{cfg: cfg, http: httpClient, clock: clock, log: log}
}

type envelope struct {
	Service []struct {
		Head []struct {
			Count  int        `json:"list_total_count"`
			Result *apiResult `json:"RESULT"`
		} `json:"head"`
		Row []row `json:"row"`
	} `json:"mealServiceDietInfo"`
	Result *apiResult `json:"RESULT"`
}

type apiResult struct {
	Code    string `json:"CODE"`
	Message string `json:"MESSAGE"`
}

type row struct {
	SchoolName string `json:"SCHUL_NM"`
	MealCode   string `json:"MMEAL_SC_CODE"`
	MealName   string `json:"MMEAL_SC_NM"`
	Dishes     string `json:"DDISH_NM"`
	Calories   string `json:"CAL_INFO"`
	Date       string `json:"MLSV_YMD"`
}

// Validate checks q without any I/O and returns the education office code.
func (q Query) Validate() (string, error) {
	region := strings.TrimSpace(q.Region)
	if region == "" {
		return "", ErrMissingRegion
	}
	office, ok := OfficeCode(region)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownRegion, region)
	}
	if strings.TrimSpace(q.SchoolCode) == "" {
		return "", ErrMissingSchoolCode
	}
	if _, ok := ParseMealCode(q.Meal); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownMeal, q.Meal)
	}
	return office, nil
}

// Lookup fetches the menu for q. A date without data yields an empty menu.
func (c *Client) Lookup(ctx context.Context, q Query) (Menu, error) {
	office, err := q.Validate()
	if err != nil {
		return Menu{}, err
	}
	date := q.Date
	if date.IsZero() {
		date = c.clock.Now()
	}
	mealCode, _ := ParseMealCode(q.Meal)

	params := url.Values{}
	key := strings.TrimSpace(q.APIKey)
	if key == "" {
		key = c.cfg.APIKey
	}
	if key != "" {
		params.Set("KEY", key)
	}
	params.Set("Type", "json")
	params.Set("pIndex", "1")
	params.Set("pSize", "100")
	params.Set("ATPT_OFCDC_SC_CODE", office)
	params.Set("SD_SCHUL_CODE", strings.TrimSpace(q.SchoolCode))
	params.Set("MLSV_YMD", date.Format(dateLayout))
	if mealCode != "" {
		params.Set("MMEAL_SC_CODE", mealCode)
	}

	menu, err := c.fetch(ctx, c.cfg.BaseURL+"?"+params.Encode())
	if err != nil {
		return Menu{}, err
	}
	menu.Date = date.Format(dateLayout)
	return menu, nil
}

// LookupWithFallback is Lookup that serves the built-in sample menu after the
// fallback delay when the service fails. Validation errors are returned as is.
func (c *Client) LookupWithFallback(ctx context.Context, q Query) (Menu, error) {
	if _, err := q.Validate(); err != nil {
		return Menu{}, err
	}
	menu, err := c.Lookup(ctx, q)
	if err == nil {
		return menu, nil
	}
	c.log.Warn().Err(err).Str("school", q.SchoolCode).Msg("meal lookup failed, serving sample menu")

	timer := c.clock.NewTimer(c.cfg.FallbackDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Menu{}, ctx.Err()
	case <-timer.Chan():
	}

	mock, err := sampleMenu()
	if err != nil {
		return Menu{}, err
	}
	date := q.Date
	if date.IsZero() {
		date = c.clock.Now()
	}
	mock.Date = date.Format(dateLayout)
	if mealCode, _ := ParseMealCode(q.Meal); mealCode != "" {
		mock.Meals = filterMeals(mock.Meals, mealCode)
	}
	return mock, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) (Menu, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return Menu{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return Menu{}, fmt.Errorf("meal request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Menu{}, fmt.Errorf("meal service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return Menu{}, fmt.Errorf("failed to decode meal response: %w", err)
	}
	return parseEnvelope(env)
}

func parseEnvelope(env envelope) (Menu, error) {
	if env.Result != nil {
		if env.Result.Code == codeNoData {
			return Menu{}, nil
		}
		return Menu{}, fmt.Errorf("meal service error %s: %s", env.Result.Code, env.Result.Message)
	}
	if len(env.Service) == 0 {
		return Menu{}, fmt.Errorf("meal response has no %s section", serviceName)
	}

	var menu Menu
	for _, part := range env.Service {
		for _, h := range part.Head {
			if h.Result != nil && h.Result.Code != codeOK {
				if h.Result.Code == codeNoData {
					return Menu{}, nil
				}
				return Menu{}, fmt.Errorf("meal service error %s: %s", h.Result.Code, h.Result.Message)
			}
		}
		for _, r := range part.Row {
			if menu.School == "" {
				menu.School = r.SchoolName
			}
			name := r.MealName
			if name == "" {
				name = MealName(r.MealCode)
			}
			menu.Meals = append(menu.Meals, Meal{
				Code:     r.MealCode,
				Name:     name,
				Dishes:   CleanDishes(r.Dishes),
				Calories: strings.TrimSpace(r.Calories),
			})
		}
	}
	return menu, nil
}

// CleanDishes splits a DDISH_NM value into dishes without allergy markers.
func CleanDishes(raw string) []string {
	parts := breakTag.Split(raw, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(allergyMarker.ReplaceAllString(strings.TrimSpace(p), ""))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func filterMeals(meals []Meal, code string) []Meal {
	out := meals[:0:0]
	for _, m := range meals {
		if m.Code == code {
			out = append(out, m)
		}
	}
	return out
}
