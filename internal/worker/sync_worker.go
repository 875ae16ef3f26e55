package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/remote"
)

// SnapshotSource provides the current persisted ledger snapshot.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context) ([]core.Transaction, error)
}

// MirrorWorker pushes the persisted ledger snapshot to a remote mirror
// whenever a ledger mutation event arrives.
type MirrorWorker struct {
	source SnapshotSource
	mirror remote.Mirror
}

func NewMirrorWorker(source SnapshotSource, mirror remote.Mirror) *MirrorWorker {
	return &MirrorWorker{
		source: source,
		mirror: mirror,
	}
}

// HandleLedgerEvent processes a single ledger mutation event from AMQP.
// The event only signals that the ledger changed; the worker always
// mirrors the full current snapshot, so replayed or reordered events
// converge to the same remote state.
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"op", msg.Op,
		applog.FieldTransactionID, msg.TransactionID,
		applog.FieldCount, msg.Count)

	return w.mirrorSnapshot(ctx)
}

// StartupFlush mirrors the current snapshot once at worker startup.
// This recovers from events missed while the worker was down.
func (w *MirrorWorker) StartupFlush(ctx context.Context) error {
	slog.InfoContext(ctx, "Running startup flush")

	if err := w.mirrorSnapshot(ctx); err != nil {
		return fmt.Errorf("startup flush: %w", err)
	}

	slog.InfoContext(ctx, "Startup flush completed")
	return nil
}

func (w *MirrorWorker) mirrorSnapshot(ctx context.Context) error {
	list, err := w.source.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	if err := w.mirror.Save(ctx, list); err != nil {
		if errors.Is(err, ErrNoEndpointConfigured) {
			// Nothing to mirror to yet; requeueing would just spin.
			slog.InfoContext(ctx, "No sync endpoint configured, skipping mirror")
			return nil
		}
		return fmt.Errorf("save to mirror: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored ledger snapshot", applog.FieldCount, len(list))
	return nil
}
