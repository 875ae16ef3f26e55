// Package settings owns the process-wide configuration mutated by user
// action: the sync endpoint URL and the auto-save flag. Values are loaded
// once at startup and persisted immediately on every change.
package settings

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"tally/internal/notify"
)

const (
	keyEndpointURL = "endpoint_url"
	keyAutoSave    = "autosave_enabled"
)

// Settings is the current user configuration snapshot.
type Settings struct {
	EndpointURL string
	AutoSave    bool
}

// Store is the persistence side of settings, injectable so tests can
// fake it.
type Store interface {
	GetSetting(ctx context.Context, key string) (value string, ok bool, err error)
	SetSetting(ctx context.Context, key, value string) error
}

// Service is the single owner of the settings state.
type Service struct {
	mu       sync.Mutex
	current  Settings
	store    Store
	notifier notify.Notifier
}

func NewService(store Store, notifier notify.Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// Load reads persisted settings. Read failures leave the defaults in
// place and only log a warning.
func (s *Service) Load(ctx context.Context) {
	var loaded Settings
	if url, ok, err := s.store.GetSetting(ctx, keyEndpointURL); err != nil {
		slog.WarnContext(ctx, "Could not load endpoint URL setting", "error", err)
	} else if ok {
		loaded.EndpointURL = url
	}
	if v, ok, err := s.store.GetSetting(ctx, keyAutoSave); err != nil {
		slog.WarnContext(ctx, "Could not load auto-save setting", "error", err)
	} else if ok {
		loaded.AutoSave, _ = strconv.ParseBool(v)
	}

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
}

// Current returns a copy of the settings.
func (s *Service) Current() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetEndpointURL stores the sync endpoint URL and persists it.
func (s *Service) SetEndpointURL(ctx context.Context, url string) {
	url = strings.TrimSpace(url)
	s.mu.Lock()
	s.current.EndpointURL = url
	s.mu.Unlock()

	if err := s.store.SetSetting(ctx, keyEndpointURL, url); err != nil {
		slog.WarnContext(ctx, "Could not persist endpoint URL", "error", err)
		if s.notifier != nil {
			s.notifier.Warning("Could not save the endpoint URL.")
		}
		return
	}
	if s.notifier != nil {
		s.notifier.Success("Sync endpoint URL saved!")
	}
}

// SetAutoSave toggles the debounced auto-save behavior and persists the
// flag.
func (s *Service) SetAutoSave(ctx context.Context, enabled bool) {
	s.mu.Lock()
	s.current.AutoSave = enabled
	s.mu.Unlock()

	if err := s.store.SetSetting(ctx, keyAutoSave, strconv.FormatBool(enabled)); err != nil {
		slog.WarnContext(ctx, "Could not persist auto-save flag", "error", err)
		if s.notifier != nil {
			s.notifier.Warning("Could not save the auto-save setting.")
		}
		return
	}
	if s.notifier != nil {
		if enabled {
			s.notifier.Success("Auto-save enabled.")
		} else {
			s.notifier.Success("Auto-save disabled.")
		}
	}
}
