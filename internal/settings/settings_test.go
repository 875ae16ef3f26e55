package settings

import (
	"context"
	"errors"
	"testing"

	"tally/internal/notify"
)

type fakeStore struct {
	values map[string]string
	getErr error
	setErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (s *fakeStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *fakeStore) SetSetting(_ context.Context, key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value
	return nil
}

func TestLoadDefaults(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	svc.Load(context.Background())

	got := svc.Current()
	if got.EndpointURL != "" || got.AutoSave {
		t.Fatalf("expected zero defaults, got %+v", got)
	}
}

func TestSetAndReload(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	svc := NewService(store, &notify.Recorder{})
	svc.SetEndpointURL(ctx, "  https://example.com/exec ")
	svc.SetAutoSave(ctx, true)

	if got := svc.Current(); got.EndpointURL != "https://example.com/exec" || !got.AutoSave {
		t.Fatalf("unexpected settings: %+v", got)
	}

	// A fresh service over the same store sees the persisted values.
	fresh := NewService(store, nil)
	fresh.Load(ctx)
	if got := fresh.Current(); got.EndpointURL != "https://example.com/exec" || !got.AutoSave {
		t.Fatalf("persisted settings not reloaded: %+v", got)
	}
}

func TestLoadFailureKeepsDefaults(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("db closed")

	svc := NewService(store, nil)
	svc.Load(context.Background())
	if got := svc.Current(); got.EndpointURL != "" || got.AutoSave {
		t.Fatalf("expected defaults on load failure, got %+v", got)
	}
}

func TestPersistFailureWarnsAndKeepsInMemoryValue(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("disk full")
	rec := &notify.Recorder{}

	svc := NewService(store, rec)
	svc.SetAutoSave(context.Background(), true)

	if !svc.Current().AutoSave {
		t.Fatal("in-memory value should change even when persistence fails")
	}
	if len(rec.Warnings) != 1 {
		t.Fatalf("expected one warning, got %+v", rec)
	}
}
