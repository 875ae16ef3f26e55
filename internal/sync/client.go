// Package sync drives the exchange with the remote mirror: manual fetch
// and save, the debounced auto-save, and the status record the
// presentation layer reads.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"

	"tally/internal/ledger"
	"tally/internal/notify"
	"tally/internal/remote"
	"tally/internal/remote/webhook"
	"tally/internal/settings"
)

// Status is the single-owner sync state read by the presentation layer.
type Status struct {
	Loading bool
	Message string
	Err     bool
}

// Confirmer answers the destructive-overwrite question when both the
// local ledger and the fetched list are non-empty.
type Confirmer interface {
	ConfirmOverwrite(ctx context.Context, incoming, local int) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, incoming, local int) bool

func (f ConfirmFunc) ConfirmOverwrite(ctx context.Context, incoming, local int) bool {
	return f(ctx, incoming, local)
}

var (
	// ErrNoEndpoint is returned when no endpoint URL is configured. It
	// is rejected locally before any network call and causes no status
	// transition.
	ErrNoEndpoint = errors.New("no sync endpoint configured")
	// ErrCancelled is returned when the user declines the overwrite.
	// A cancellation, not an error.
	ErrCancelled = errors.New("fetch cancelled by user")
)

// Client owns the sync status record and performs fetch/save against
// whatever endpoint is currently configured.
type Client struct {
	store    *ledger.Store
	settings *settings.Service
	notifier notify.Notifier

	// dial builds a mirror for the configured endpoint URL; injectable
	// so tests and the sheets backend can substitute the transport.
	dial func(url string) remote.Mirror

	mu     stdsync.Mutex
	status Status
}

func NewClient(store *ledger.Store, svc *settings.Service, notifier notify.Notifier, dial func(url string) remote.Mirror) *Client {
	if dial == nil {
		dial = func(url string) remote.Mirror { return webhook.New(url) }
	}
	return &Client{
		store:    store,
		settings: svc,
		notifier: notifier,
		dial:     dial,
		status:   Status{Message: "Not connected."},
	}
}

// Status returns the current status record.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// NoteReady marks the client ready without touching the ledger, used at
// startup when a persisted endpoint URL exists.
func (c *Client) NoteReady() {
	c.setStatus(Status{Message: "Ready to sync."})
}

// NoteEndpointConfigured acknowledges a freshly saved endpoint URL.
func (c *Client) NoteEndpointConfigured() {
	c.setStatus(Status{Message: "URL saved. Ready to sync."})
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// Fetch pulls the remote list and replaces the local ledger with it.
// When both sides hold data the confirmer decides; declining leaves the
// ledger untouched and records a cancellation, not an error.
func (c *Client) Fetch(ctx context.Context, confirm Confirmer) error {
	url := c.settings.Current().EndpointURL
	if url == "" {
		c.notifier.Error("Please set the sync endpoint URL first.")
		return ErrNoEndpoint
	}

	c.setStatus(Status{Loading: true, Message: "Fetching data from the sync endpoint..."})

	list, err := c.dial(url).Fetch(ctx)
	if err != nil {
		msg := fetchFailureMessage(err)
		slog.WarnContext(ctx, "Fetch from endpoint failed", "error", err)
		c.notifier.Error(msg)
		c.setStatus(Status{Message: msg, Err: true})
		return err
	}

	if len(list) > 0 && c.store.Count() > 0 {
		if confirm == nil || !confirm.ConfirmOverwrite(ctx, len(list), c.store.Count()) {
			c.setStatus(Status{Message: "Fetch cancelled by user."})
			return ErrCancelled
		}
	}

	c.store.ReplaceAll(ctx, list)
	c.notifier.Success(fmt.Sprintf("Successfully fetched %d transactions.", len(list)))
	c.setStatus(Status{Message: "Last fetch successful."})
	return nil
}

// Save pushes the full current list to the endpoint. The endpoint's
// response is not machine-readable, so transport completion is success.
// Auto-save keeps quiet about a missing endpoint; a manual save
// complains.
func (c *Client) Save(ctx context.Context, manual bool) error {
	url := c.settings.Current().EndpointURL
	if url == "" {
		if manual {
			c.notifier.Error("Please set the sync endpoint URL first.")
		}
		return ErrNoEndpoint
	}

	if manual {
		c.setStatus(Status{Loading: true, Message: "Saving data to the sync endpoint..."})
	} else {
		c.setStatus(Status{Loading: true, Message: "Auto-saving changes..."})
	}

	if err := c.dial(url).Save(ctx, c.store.List()); err != nil {
		msg := "Save failed. Could not send data. Please check your network connection and that the endpoint URL is correct."
		slog.WarnContext(ctx, "Save to endpoint failed", "error", err, "manual", manual)
		c.notifier.Error(msg)
		c.setStatus(Status{Message: msg, Err: true})
		return err
	}

	if manual {
		c.notifier.Success("Save request sent. The remote copy will update shortly.")
		c.setStatus(Status{Message: "Data sent successfully."})
	} else {
		c.notifier.Success("Auto-saved to the sync endpoint.")
		c.setStatus(Status{Message: "Changes saved automatically."})
	}
	return nil
}

func fetchFailureMessage(err error) string {
	switch remote.KindOf(err) {
	case remote.KindHTTPStatus:
		return fmt.Sprintf("Fetch failed: %v.", err)
	case remote.KindBadBody:
		return "Fetch failed: could not parse the server response. It might be an HTML error page instead of JSON; check the endpoint deployment."
	case remote.KindScriptError:
		return fmt.Sprintf("Fetch failed: script error: %v.", err)
	case remote.KindBadSchema:
		return "Fetch failed: data from the sync endpoint is invalid or malformed."
	default:
		return "Fetch failed. Please check your network connection and verify the endpoint URL is correct and publicly accessible."
	}
}
