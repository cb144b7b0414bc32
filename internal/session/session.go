// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoUser is returned by a Provider when nobody is signed in.
var ErrNoUser = errors.New("session: no signed-in user")

// =============================================================================
// TYPES
// =============================================================================

// Tier is the user's subscription tier.
type Tier string

const (
	TierFree    Tier = "free"
	TierPlus    Tier = "plus"
	TierGold    Tier = "gold"
	TierUnknown Tier = ""
)

// ParseTier normalizes a tier name, defaulting to TierFree.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierPlus, TierGold:
		return Tier(s)
	default:
		return TierFree
	}
}

// User is the signed-in account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Preferences are the per-user display settings.
type Preferences struct {
	Theme    string `json:"theme"`
	Language string `json:"language"`
}

// State is everything a Provider knows about the current session.
type State struct {
	User        User
	Tier        Tier
	Preferences Preferences
}

// Provider resolves the current session state, e.g. from config or an
// identity service.
type Provider interface {
	Current(ctx context.Context) (State, error)
}

// =============================================================================
// SESSION
// =============================================================================

// Session is a thread-safe view of the signed-in user.
type Session struct {
	mu sync.RWMutex

	provider    Provider
	user        *User
	tier        Tier
	prefs       Preferences
	refreshedAt time.Time
}

// New creates a signed-out session backed by provider.
// Call Refresh to load the user.
func New(provider Provider) *Session {
	return &Session{
		provider: provider,
		prefs:    Preferences{Theme: "auto", Language: "en"},
	}
}

// NewWithUser creates a session already signed in as user.
// Refresh is a no-op unless a provider is set.
func NewWithUser(user User, tier Tier) *Session {
	s := New(nil)
	s.user = &user
	s.tier = tier
	s.refreshedAt = time.Now()
	return s
}

// User returns the signed-in user, or false when signed out.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// UserID returns the signed-in user's ID or "".
func (s *Session) UserID() string {
	u, _ := s.User()
	return u.ID
}

// Tier returns the subscription tier of the signed-in user.
func (s *Session) Tier() Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return TierUnknown
	}
	return s.tier
}

// Theme returns the preferred theme ("light", "dark" or "auto").
func (s *Session) Theme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Theme
}

// Language returns the preferred language tag.
func (s *Session) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Language
}

// SetPreferences updates theme and language. Empty fields are left as is.
func (s *Session) SetPreferences(p Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Theme != "" {
		s.prefs.Theme = p.Theme
	}
	if p.Language != "" {
		s.prefs.Language = p.Language
	}
}

// RefreshedAt returns when the session was last loaded.
func (s *Session) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

// Refresh re-reads the session from the provider. ErrNoUser signs the
// session out without returning an error.
func (s *Session) Refresh(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}
	st, err := s.provider.Current(ctx)
	if errors.Is(err, ErrNoUser) {
		s.SignOut()
		return nil
	}
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user := st.User
	s.user = &user
	s.tier = st.Tier
	if st.Preferences.Theme != "" {
		s.prefs.Theme = st.Preferences.Theme
	}
	if st.Preferences.Language != "" {
		s.prefs.Language = st.Preferences.Language
	}
	s.refreshedAt = time.Now()
	return nil
}

// SignOut clears the user. Preferences are kept.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.tier = TierUnknown
}

// =============================================================================
// STATIC PROVIDER
// =============================================================================

// StaticProvider returns a fixed state, typically built from config.
type StaticProvider struct {
	state State
}

// NewStaticProvider creates a provider for the given user. An empty user
// ID means signed out.
func NewStaticProvider(user User, tier string, prefs Preferences) *StaticProvider {
	return &StaticProvider{state: State{User: user, Tier: ParseTier(tier), Preferences: prefs}}
}

// Current implements Provider.
func (p *StaticProvider) Current(context.Context) (State, error) {
	if p.state.User.ID == "" {
		return State{}, ErrNoUser
	}
	return p.state, nil
}
