package lokiship

import (
	"context"
	"log/slog"
	"runtime"
)

// HandlerOptions configures the slog bridge.
type HandlerOptions struct {
	// Level is the minimum level forwarded to the sink. Defaults to
	// slog.LevelInfo.
	Level slog.Leveler
	// Target is reported as the record's module identifier.
	Target string
}

// Handler bridges log/slog to a Sink. Register it once with the host's
// logging subsystem, e.g. slog.SetDefault(slog.New(handler)); the sink
// holds no global state of its own.
type Handler struct {
	sink   *Sink
	level  slog.Leveler
	target string
	attrs  map[string]string
	groups []string
}

func NewHandler(sink *Sink, opts *HandlerOptions) *Handler {
	h := &Handler{sink: sink, level: slog.LevelInfo}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.target = opts.Target
	}
	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, rec slog.Record) error {
	fields := make(map[string]string, rec.NumAttrs()+len(h.attrs))
	for k, v := range h.attrs {
		fields[k] = v
	}
	rec.Attrs(func(a slog.Attr) bool {
		h.addAttr(fields, a)
		return true
	})

	var file string
	var line int
	if rec.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{rec.PC})
		frame, _ := frames.Next()
		file, line = frame.File, frame.Line
	}

	return h.sink.Record(LogRecord{
		Time:    rec.Time,
		Level:   levelFromSlog(rec.Level),
		Target:  h.target,
		Message: rec.Message,
		File:    file,
		Line:    line,
		Fields:  MapFields(fields),
	})
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	for _, a := range attrs {
		clone.addAttr(clone.attrs, a)
	}
	return clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *Handler) clone() *Handler {
	attrs := make(map[string]string, len(h.attrs))
	for k, v := range h.attrs {
		attrs[k] = v
	}
	groups := make([]string, len(h.groups))
	copy(groups, h.groups)
	return &Handler{
		sink:   h.sink,
		level:  h.level,
		target: h.target,
		attrs:  attrs,
		groups: groups,
	}
}

func (h *Handler) addAttr(fields map[string]string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		for _, member := range a.Value.Group() {
			member.Key = a.Key + "." + member.Key
			h.addAttr(fields, member)
		}
		return
	}
	if a.Key == "" {
		return
	}

	key := a.Key
	for i := len(h.groups) - 1; i >= 0; i-- {
		key = h.groups[i] + "." + key
	}
	fields[key] = a.Value.String()
}

func levelFromSlog(level slog.Level) Level {
	switch {
	case level < slog.LevelDebug:
		return LevelTrace
	case level < slog.LevelInfo:
		return LevelDebug
	case level < slog.LevelWarn:
		return LevelInfo
	case level < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}
