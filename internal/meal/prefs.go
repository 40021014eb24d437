package meal

import (
	"context"
	"fmt"
	"strings"

	"github.com/revoirb612/pedamint-hcoding/internal/kv"
)

// Storage keys for saved lookup preferences.
const (
	KeyRegion     = "savedRegion"
	KeySchoolCode = "savedSchoolCode"
	KeySchoolName = "savedSchoolName"
	KeyAPIKey     = "neisApiKey"
)

// Prefs are the remembered lookup inputs.
type Prefs struct {
	Region     string
	SchoolCode string
	SchoolName string
	APIKey     string
}

type prefField struct {
	key string
	val *string
}

func (p *Prefs) fields() []prefField {
	return []prefField{
		{KeyRegion, &p.Region},
		{KeySchoolCode, &p.SchoolCode},
		{KeySchoolName, &p.SchoolName},
		{KeyAPIKey, &p.APIKey},
	}
}

// LoadPrefs reads saved preferences. Missing keys stay empty.
func LoadPrefs(ctx context.Context, store kv.Store) (Prefs, error) {
	var p Prefs
	for _, f := range p.fields() {
		v, ok, err := store.Get(ctx, f.key)
		if err != nil {
			return Prefs{}, fmt.Errorf("failed to load %s: %w", f.key, err)
		}
		if ok {
			*f.val = v
		}
	}
	return p, nil
}

// SavePrefs stores p. Empty fields are removed.
func SavePrefs(ctx context.Context, store kv.Store, p Prefs) error {
	for _, f := range p.fields() {
		v := strings.TrimSpace(*f.val)
		var err error
		if v == "" {
			err = store.Delete(ctx, f.key)
		} else {
			err = store.Set(ctx, f.key, v)
		}
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", f.key, err)
		}
	}
	return nil
}

// Query builds a lookup query from the saved preferences.
func (p Prefs) Query() Query {
	return Query{Region: p.Region, SchoolCode: p.SchoolCode, APIKey: p.APIKey}
}

// Merge returns p with every non-empty field of o applied.
func (p Prefs) Merge(o Prefs) Prefs {
	if v := strings.TrimSpace(o.Region); v != "" {
		p.Region = v
	}
	if v := strings.TrimSpace(o.SchoolCode); v != "" {
		p.SchoolCode = v
	}
	if v := strings.TrimSpace(o.SchoolName); v != "" {
		p.SchoolName = v
	}
	if v := strings.TrimSpace(o.APIKey); v != "" {
		p.APIKey = v
	}
	return p
}
