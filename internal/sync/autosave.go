package sync

import (
	"context"
	stdsync "sync"
	"time"

	"tally/internal/ledger"
	"tally/internal/settings"
)

// DefaultDebounce is the quiet window after the last mutation before an
// auto-save fires.
const DefaultDebounce = 2 * time.Second

// Scheduler is an explicit cancellable scheduled task, split out so
// tests can drive time deterministically.
type Scheduler interface {
	// Schedule runs fn after d unless the returned cancel func is
	// called first.
	Schedule(d time.Duration, fn func()) (cancel func())
}

type timerScheduler struct{}

func (timerScheduler) Schedule(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// AutoSaver debounces store mutations into saves: every mutation while
// auto-save is enabled and an endpoint is configured restarts the
// window, so only the last mutation of a burst triggers one save.
type AutoSaver struct {
	client   *Client
	settings *settings.Service
	sched    Scheduler
	delay    time.Duration

	mu      stdsync.Mutex
	cancel  func()
	stopped bool
}

func NewAutoSaver(client *Client, svc *settings.Service, sched Scheduler, delay time.Duration) *AutoSaver {
	if sched == nil {
		sched = timerScheduler{}
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &AutoSaver{client: client, settings: svc, sched: sched, delay: delay}
}

// OnMutation is the ledger's mutation hook. The store does not call it
// for the startup load, so the first persisted state never auto-saves.
func (a *AutoSaver) OnMutation(ledger.Mutation) {
	cfg := a.settings.Current()
	if !cfg.AutoSave || cfg.EndpointURL == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.cancel = a.sched.Schedule(a.delay, a.fire)
}

func (a *AutoSaver) fire() {
	a.mu.Lock()
	a.cancel = nil
	stopped := a.stopped
	a.mu.Unlock()
	if stopped {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	// Failures already update status and notify; nothing more to do.
	_ = a.client.Save(ctx, false)
}

// Stop cancels any pending save. Used at shutdown.
func (a *AutoSaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}
