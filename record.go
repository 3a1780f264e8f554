package lokiship

import (
	"time"
)

// Level is the severity of a log record as reported by the logging facade.
type Level int8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FieldSource yields the structured key/value pairs attached to a single
// record. Implementations must call fn exactly once per pair; returning a
// non-nil error aborts extraction for that record.
type FieldSource interface {
	VisitFields(fn func(key, value string)) error
}

// MapFields is a FieldSource backed by a plain map.
type MapFields map[string]string

func (m MapFields) VisitFields(fn func(key, value string)) error {
	for k, v := range m {
		fn(k, v)
	}
	return nil
}

// LogRecord is the input contract between the logging facade and the sink.
type LogRecord struct {
	Time    time.Time
	Level   Level
	Target  string
	Message string
	File    string
	Line    int
	Fields  FieldSource
}

// LogEntry is one accumulated record awaiting delivery. Entries are
// immutable once appended to the buffer.
type LogEntry struct {
	Timestamp time.Time
	Labels    map[string]string
	Line      string
}
