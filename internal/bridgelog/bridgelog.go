// Package bridgelog wraps the standard logger so every line also lands in
// the in-memory LogRow ring buffer that the control surface exposes to the
// shell, mirroring the teacher's plain log.Printf call sites.
package bridgelog

import (
	"fmt"
	"log"
	"time"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
)

// Sink receives each row as it's logged, in addition to the ring buffer;
// wsbridge.Server implements this to push log rows to the shell live.
type Sink interface {
	PushLogRow(model.LogRow)
}

// Logger is a stdlib log.Logger paired with a bounded ring buffer and an
// optional live sink.
type Logger struct {
	std  *log.Logger
	ring *model.LogRing
	sink Sink
}

// New returns a Logger writing through std and recording into ring.
func New(std *log.Logger, ring *model.LogRing) *Logger {
	return &Logger{std: std, ring: ring}
}

// SetSink attaches (or clears, with nil) the live broadcast target.
func (l *Logger) SetSink(sink Sink) {
	l.sink = sink
}

func (l *Logger) record(level model.Level, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.std.Printf("[%s] %s", level, msg)

	row := model.LogRow{At: time.Now(), Level: level, Message: msg}
	if l.ring != nil {
		l.ring.Push(row)
	}
	if l.sink != nil {
		l.sink.PushLogRow(row)
	}
}

// Info logs an informational line.
func (l *Logger) Info(format string, args ...any) { l.record(model.LevelInfo, format, args...) }

// Warn logs a warning line.
func (l *Logger) Warn(format string, args ...any) { l.record(model.LevelWarn, format, args...) }

// Error logs an error line.
func (l *Logger) Error(format string, args ...any) { l.record(model.LevelError, format, args...) }
