// Package lokiship adapts a process-wide logging facade to a
// Grafana-Loki-compatible push API. Records are labeled, buffered in
// memory, and delivered in batches once a flush threshold is crossed, via
// a no-op, blocking, or background HTTP backend.
package lokiship

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Sink is the facade-facing entry point. It is safe for concurrent use
// without external synchronization; the entry buffer is the only shared
// mutable state and is owned exclusively by the sink.
type Sink struct {
	policy         labelPolicy
	buffer         *entryBuffer
	serializer     Serializer
	backend        Backend
	flushThreshold int
	maxMessageSize int
	ignoredTargets []string
	log            zerolog.Logger
}

// Record ingests one log record: applies the label policy, appends to the
// buffer, and flushes on the calling goroutine once the buffer reaches the
// threshold. Records originating from the delivery transport itself are
// ignored to prevent feedback loops. Oversized messages are dropped
// silently. Never panics; failures degrade to best-effort delivery.
func (s *Sink) Record(rec LogRecord) error {
	for _, prefix := range s.ignoredTargets {
		if strings.HasPrefix(rec.Target, prefix) {
			return nil
		}
	}

	if s.maxMessageSize > 0 && len(rec.Message) > s.maxMessageSize {
		s.log.Debug().
			Str("target", rec.Target).
			Int("size", len(rec.Message)).
			Msg("dropping oversized message")
		return nil
	}

	labels, err := s.policy.labels(rec)
	if err != nil {
		s.log.Error().Err(err).Msg("dropping record with broken structured fields")
		return err
	}

	timestamp := rec.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	size := s.buffer.append(LogEntry{
		Timestamp: timestamp,
		Labels:    labels,
		Line:      rec.Message,
	})
	if size >= s.flushThreshold {
		return s.Flush()
	}
	return nil
}

// Flush drains the buffer and pushes the batch through the serializer and
// backend. A no-op when the buffer is empty. A batch that fails to encode
// is discarded, not retried.
func (s *Sink) Flush() error {
	batch := s.buffer.drain()
	if len(batch) == 0 {
		return nil
	}

	payload, err := s.serializer.Encode(batch)
	if err != nil {
		s.log.Error().Err(err).Int("entries", len(batch)).Msg("discarding batch")
		return err
	}

	if err := s.backend.Send(payload); err != nil {
		s.log.Error().Err(err).Int("entries", len(batch)).Msg("push failed")
		return err
	}

	s.log.Debug().Int("entries", len(batch)).Msg("flushed batch")
	return nil
}

// Close flushes any buffered entries and stops the delivery backend.
func (s *Sink) Close() error {
	err := s.Flush()

	if closer, ok := s.backend.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}

	return err
}
