package events

import (
	"context"
	"time"

	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// SlogSink writes audit events through the context logger. Good enough for
// a single-node deployment; swap in a queue-backed sink for fan-out.
type SlogSink struct{}

func NewSlogSink() *SlogSink { return &SlogSink{} }

func (s *SlogSink) Raise(ctx context.Context, e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	attrs := []any{
		"event", e.Name,
		"success", e.Success,
		"time", e.Time,
	}
	if e.ClientID != "" {
		attrs = append(attrs, "client_id", e.ClientID)
	}
	if e.Subject != "" {
		attrs = append(attrs, "subject", e.Subject)
	}
	if e.GrantType != "" {
		attrs = append(attrs, "grant_type", e.GrantType)
	}
	for k, v := range e.Details {
		attrs = append(attrs, k, v)
	}

	log := slogx.FromContext(ctx)
	if e.Success {
		log.Info("audit", attrs...)
	} else {
		log.Warn("audit", attrs...)
	}
}

// NopSink discards events. Used in tests.
type NopSink struct{}

func (NopSink) Raise(context.Context, Event) {}

var _ Sink = (*SlogSink)(nil)
var _ Sink = NopSink{}
