package lokiship

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
)

// Serializer converts a batch of entries into a transmittable payload. It
// must not mutate the batch.
type Serializer interface {
	Encode(batch []LogEntry) ([]byte, error)
}

// Stream is one group of log lines sharing an identical label set, per the
// push-API wire schema.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// Payload is the push-API request body.
type Payload struct {
	Streams []Stream `json:"streams"`
}

// noopSerializer is used until a serialization format is selected.
type noopSerializer struct{}

func (noopSerializer) Encode([]LogEntry) ([]byte, error) { return nil, nil }

type jsonSerializer struct {
	compress bool
}

func (s jsonSerializer) Encode(batch []LogEntry) ([]byte, error) {
	payload, err := buildPayload(batch)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}

	if !s.compress {
		return body, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, &EncodingError{Err: err}
	}
	if err := zw.Close(); err != nil {
		return nil, &EncodingError{Err: err}
	}
	return buf.Bytes(), nil
}

// buildPayload coalesces entries sharing an identical label set into one
// stream, preserving first-seen stream order and per-stream entry order.
func buildPayload(entries []LogEntry) (Payload, error) {
	streams := make(map[string]int, len(entries))
	payload := Payload{Streams: make([]Stream, 0, len(entries))}

	for _, entry := range entries {
		if err := validateEntry(entry); err != nil {
			return Payload{}, err
		}

		key := streamKey(entry.Labels)
		idx, ok := streams[key]
		if !ok {
			idx = len(payload.Streams)
			streams[key] = idx
			payload.Streams = append(payload.Streams, Stream{
				Stream: entry.Labels,
			})
		}

		timestamp := strconv.FormatInt(entry.Timestamp.UnixNano(), 10)
		payload.Streams[idx].Values = append(payload.Streams[idx].Values, [2]string{timestamp, entry.Line})
	}

	return payload, nil
}

func validateEntry(entry LogEntry) error {
	if !utf8.ValidString(entry.Line) {
		return fmt.Errorf("log line is not valid UTF-8")
	}
	for k, v := range entry.Labels {
		if !utf8.ValidString(k) || !utf8.ValidString(v) {
			return fmt.Errorf("label %q is not valid UTF-8", k)
		}
	}
	return nil
}

func streamKey(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(labels[k])
		sb.WriteByte(',')
	}
	return sb.String()
}
