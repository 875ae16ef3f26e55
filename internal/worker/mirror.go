package worker

import (
	"context"
	"errors"

	"tally/internal/core"
	"tally/internal/remote"
	"tally/internal/remote/webhook"
	"tally/internal/settings"
)

// ErrNoEndpointConfigured means the settings store holds no webhook URL
// yet. The worker skips mirroring until one is saved.
var ErrNoEndpointConfigured = errors.New("no sync endpoint configured")

// SettingsWebhook is a Mirror that resolves the webhook endpoint from
// the settings store on every call, so URL changes made through the API
// take effect without restarting the worker.
type SettingsWebhook struct {
	svc  *settings.Service
	dial func(url string) remote.Mirror
}

func NewSettingsWebhook(svc *settings.Service, dial func(url string) remote.Mirror) *SettingsWebhook {
	if dial == nil {
		dial = func(url string) remote.Mirror { return webhook.New(url) }
	}
	return &SettingsWebhook{svc: svc, dial: dial}
}

var _ remote.Mirror = (*SettingsWebhook)(nil)

func (m *SettingsWebhook) Fetch(ctx context.Context) ([]core.Transaction, error) {
	mirror, err := m.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return mirror.Fetch(ctx)
}

func (m *SettingsWebhook) Save(ctx context.Context, list []core.Transaction) error {
	mirror, err := m.resolve(ctx)
	if err != nil {
		return err
	}
	return mirror.Save(ctx, list)
}

func (m *SettingsWebhook) resolve(ctx context.Context) (remote.Mirror, error) {
	m.svc.Load(ctx)
	url := m.svc.Current().EndpointURL
	if url == "" {
		return nil, ErrNoEndpointConfigured
	}
	return m.dial(url), nil
}
