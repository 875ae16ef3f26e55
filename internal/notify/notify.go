// Package notify is the transient-notification channel: the ledger and
// the sync client report outcomes through it instead of owning any UI.
package notify

import "log/slog"

// Notifier receives short user-facing messages. Implementations decide
// how to surface them; failures here must never propagate.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Warning(msg string)
}

// LogNotifier writes notifications to the structured log. It is the
// default sink when no richer presentation channel is attached.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(msg string) {
	n.logger.Info("notification", "kind", "success", "message", msg)
}

func (n *LogNotifier) Error(msg string) {
	n.logger.Error("notification", "kind", "error", "message", msg)
}

func (n *LogNotifier) Warning(msg string) {
	n.logger.Warn("notification", "kind", "warning", "message", msg)
}

// Recorder captures notifications for tests.
type Recorder struct {
	Successes []string
	Errors    []string
	Warnings  []string
}

func (r *Recorder) Success(msg string) { r.Successes = append(r.Successes, msg) }
func (r *Recorder) Error(msg string)   { r.Errors = append(r.Errors, msg) }
func (r *Recorder) Warning(msg string) { r.Warnings = append(r.Warnings, msg) }
