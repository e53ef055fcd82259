package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// syslog severities used by the GELF wire format.
const (
	gelfLevelError   = 3
	gelfLevelWarning = 4
	gelfLevelInfo    = 6
	gelfLevelDebug   = 7
)

// GelfHandler is a slog.Handler that ships records to a Graylog server.
type GelfHandler struct {
	writer *gelf.Writer
	level  slog.Level
	host   string
	attrs  []slog.Attr
}

// NewGelfHandler connects to the Graylog server at addr (host:port).
func NewGelfHandler(addr string, level slog.Level) (*GelfHandler, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, err
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "geosync"
	}
	return &GelfHandler{writer: w, level: level, host: hostname}, nil
}

// Enabled reports whether the record level passes the configured minimum.
func (h *GelfHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle converts the record into a GELF message and sends it.
func (h *GelfHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]interface{}, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		extra["_"+a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		extra["_"+a.Key] = a.Value.Any()
		return true
	})

	return h.writer.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(r.Time.UnixNano()) / float64(time.Second),
		Level:    gelfLevel(r.Level),
		Facility: "geosync",
		Extra:    extra,
	})
}

// WithAttrs returns a handler that includes attrs on every message.
func (h *GelfHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &GelfHandler{writer: h.writer, level: h.level, host: h.host, attrs: merged}
}

// WithGroup is accepted but flattened; GELF has no nested fields.
func (h *GelfHandler) WithGroup(string) slog.Handler {
	return h
}

// Close releases the underlying connection when the writer supports it.
func (h *GelfHandler) Close() error {
	if c, ok := any(h.writer).(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func gelfLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return gelfLevelError
	case l >= slog.LevelWarn:
		return gelfLevelWarning
	case l >= slog.LevelInfo:
		return gelfLevelInfo
	default:
		return gelfLevelDebug
	}
}
