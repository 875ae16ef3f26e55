// Package ledger owns the in-memory transaction list, the single source
// of truth for everything else in the process. Every mutation mirrors the
// full list to durable storage and fires the mutation hook that drives
// auto-save and event publishing.
package ledger

import (
	"context"
	"log/slog"
	"sync"

	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/notify"
)

// Persister mirrors the full transaction list to durable storage. It is
// injected so tests can fake it and so persistence failures stay
// non-fatal to the store.
type Persister interface {
	SaveSnapshot(ctx context.Context, list []core.Transaction) error
	LoadSnapshot(ctx context.Context) ([]core.Transaction, error)
}

// Mutation ops reported to the hook.
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
)

// Mutation describes a completed store mutation for observers.
type Mutation struct {
	Op            string
	TransactionID string // set for add and remove
	Count         int    // list size after the mutation
}

// Store is the ordered transaction list. Locally-added entries go to the
// front (newest first); a wholesale replace keeps the incoming order.
type Store struct {
	mu        sync.Mutex
	items     []core.Transaction
	persister Persister
	notifier  notify.Notifier

	// onMutate runs after each successful mutation, outside storage
	// error paths. Set once during wiring, before any traffic.
	onMutate func(Mutation)
}

func NewStore(persister Persister, notifier notify.Notifier) *Store {
	return &Store{persister: persister, notifier: notifier}
}

// SetMutationHook registers the callback fired after every mutation.
// Loading the persisted snapshot at startup does not count as a
// mutation: it represents load, not a user edit.
func (s *Store) SetMutationHook(fn func(Mutation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMutate = fn
}

// Load rehydrates the store from the persister. Malformed or unreadable
// persisted data leaves the store empty and only logs a warning.
func (s *Store) Load(ctx context.Context) {
	list, err := s.persister.LoadSnapshot(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Could not load persisted transactions, starting empty", applog.FieldError, err)
		if s.notifier != nil {
			s.notifier.Warning("Could not load saved data.")
		}
		return
	}
	s.mu.Lock()
	s.items = list
	s.mu.Unlock()
	slog.InfoContext(ctx, "Loaded persisted transactions", applog.FieldCount, len(list))
}

// Add materializes the draft (system-assigned id and timestamp) and
// prepends it. Always succeeds; drafts are validated by the caller.
func (s *Store) Add(ctx context.Context, d core.Draft) core.Transaction {
	tx := core.NewTransaction(d)
	s.mu.Lock()
	s.items = append([]core.Transaction{tx}, s.items...)
	snapshot := s.snapshotLocked()
	hook := s.onMutate
	s.persist(ctx, snapshot)
	s.mu.Unlock()

	if hook != nil {
		hook(Mutation{Op: OpAdd, TransactionID: tx.ID, Count: len(snapshot)})
	}
	return tx
}

// Remove deletes the entry with the given id. Removing an absent id is a
// no-op, not an error.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	removed := false
	out := s.items[:0]
	for _, t := range s.items {
		if t.ID == id && !removed {
			removed = true
			continue
		}
		out = append(out, t)
	}
	s.items = out
	snapshot := s.snapshotLocked()
	hook := s.onMutate
	if removed {
		s.persist(ctx, snapshot)
	}
	s.mu.Unlock()

	if removed && hook != nil {
		hook(Mutation{Op: OpRemove, TransactionID: id, Count: len(snapshot)})
	}
	return removed
}

// ReplaceAll swaps in a new list wholesale. Used only by a successful
// sync fetch; the remote's order is kept as-is.
func (s *Store) ReplaceAll(ctx context.Context, list []core.Transaction) {
	s.mu.Lock()
	s.items = append([]core.Transaction(nil), list...)
	snapshot := s.snapshotLocked()
	hook := s.onMutate
	s.persist(ctx, snapshot)
	s.mu.Unlock()

	if hook != nil {
		hook(Mutation{Op: OpReplace, Count: len(snapshot)})
	}
}

// List returns a copy of the current contents.
func (s *Store) List() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) snapshotLocked() []core.Transaction {
	return append([]core.Transaction(nil), s.items...)
}

// persist is called with s.mu held, so snapshots reach the persister in
// mutation order and an older snapshot can never overwrite a newer one.
func (s *Store) persist(ctx context.Context, snapshot []core.Transaction) {
	if err := s.persister.SaveSnapshot(ctx, snapshot); err != nil {
		slog.WarnContext(ctx, "Could not persist transactions", applog.FieldError, err, applog.FieldCount, len(snapshot))
		if s.notifier != nil {
			s.notifier.Warning("Could not save new data.")
		}
	}
}
