package ranking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/revoirb612/pedamint-hcoding/internal/kv"
)

// UsernameKey stores the display name used for online submissions.
const UsernameKey = "username"

// ErrEmptyUsername is returned when a blank display name is set.
var ErrEmptyUsername = errors.New("username must not be empty")

// Profile holds the player's display name.
type Profile struct {
	store kv.Store
}

// NewProfile returns a Profile backed by store.
func NewProfile(store kv.Store) *Profile {
	return &Profile{store: store}
}

// Username returns the saved display name, or "" when none is set.
func (p *Profile) Username(ctx context.Context) (string, error) {
	name, _, err := p.store.Get(ctx, UsernameKey)
	if err != nil {
		return "", fmt.Errorf("failed to read username: %w", err)
	}
	return strings.TrimSpace(name), nil
}

// SetUsername saves a trimmed display name.
func (p *Profile) SetUsername(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyUsername
	}
	if err := p.store.Set(ctx, UsernameKey, name); err != nil {
		return "", fmt.Errorf("failed to save username: %w", err)
	}
	return name, nil
}
