// Package notify delivers operator alerts for notable exchange events to
// external channels (Telegram, Discord). Alerts carry an event kind that can
// be filtered so operators only receive the categories they opted into.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Sender delivers one formatted alert to a single external channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs, e.g. "telegram".
	Name() string
}

// Notifier fans alerts out to the configured senders, applying the event-kind
// filter first. A Notifier with no senders accepts alerts and drops them.
type Notifier struct {
	senders []Sender
	allowed map[string]struct{}
	logger  *slog.Logger
}

// NewNotifier builds a Notifier delivering to senders. Only alerts whose kind
// appears in kinds pass the filter; an empty kinds list admits everything.
func NewNotifier(senders []Sender, kinds []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		if k = strings.TrimSpace(k); k != "" {
			allowed[k] = struct{}{}
		}
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether at least one sender is configured.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// Notify delivers an alert of the given kind to every sender, unless the kind
// is filtered out. Delivery failures on one channel do not block the others;
// all failures are joined into the returned error.
func (n *Notifier) Notify(ctx context.Context, kind, title, message string) error {
	if len(n.allowed) > 0 {
		if _, ok := n.allowed[kind]; !ok {
			n.logger.DebugContext(ctx, "alert kind filtered",
				slog.String("kind", kind),
			)
			return nil
		}
	}
	return n.deliver(ctx, title, message)
}

// NotifyAll bypasses the kind filter.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.deliver(ctx, title, message)
}

func (n *Notifier) deliver(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "alert delivery failed",
				slog.String("channel", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "alert delivered",
			slog.String("channel", s.Name()),
			slog.String("title", title),
		)
	}
	return errors.Join(errs...)
}
