// Package report carries operator-facing events out of the reconciliation
// core. Core code never writes to stdout or to a logger directly; it reports
// events to a Sink supplied by the caller.
package report

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Level is the severity of an event.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Field is a key/value detail attached to an event.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Event is one reportable occurrence.
type Event struct {
	Level   Level
	Message string
	Fields  []Field
}

// Field returns the value of key, or nil.
func (e Event) Field(key string) any {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// Sink receives events.
type Sink interface {
	Report(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Report(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Info reports an informational event.
func Info(s Sink, msg string, fields ...Field) {
	s.Report(Event{Level: LevelInfo, Message: msg, Fields: fields})
}

// Warn reports a warning event.
func Warn(s Sink, msg string, fields ...Field) {
	s.Report(Event{Level: LevelWarn, Message: msg, Fields: fields})
}

// Error reports an error event.
func Error(s Sink, msg string, fields ...Field) {
	s.Report(Event{Level: LevelError, Message: msg, Fields: fields})
}

// LogSink writes events to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a sink logging through l.
func NewLogSink(l *zap.Logger) *LogSink {
	return &LogSink{logger: l}
}

func (s *LogSink) Report(e Event) {
	fields := make([]zap.Field, 0, len(e.Fields))
	for _, f := range e.Fields {
		fields = append(fields, zap.Any(f.Key, f.Value))
	}
	switch e.Level {
	case LevelWarn:
		s.logger.Warn(e.Message, fields...)
	case LevelError:
		s.logger.Error(e.Message, fields...)
	default:
		s.logger.Info(e.Message, fields...)
	}
}

// dedupe forwards an event only the first time its exact payload is seen.
type dedupe struct {
	next Sink
	mu   sync.Mutex
	seen map[[sha256.Size]byte]struct{}
}

// Dedupe wraps next so that identical events are emitted once.
func Dedupe(next Sink) Sink {
	return &dedupe{next: next, seen: make(map[[sha256.Size]byte]struct{})}
}

func (d *dedupe) Report(e Event) {
	sum := fingerprint(e)
	d.mu.Lock()
	_, dup := d.seen[sum]
	if !dup {
		d.seen[sum] = struct{}{}
	}
	d.mu.Unlock()
	if !dup {
		d.next.Report(e)
	}
}

func fingerprint(e Event) [sha256.Size]byte {
	h := sha256.New()
	fmt.Fprintf(h, "%d\x00%s", e.Level, e.Message)
	for _, f := range e.Fields {
		fmt.Fprintf(h, "\x00%s=%v", f.Key, f.Value)
	}
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// Collector records events in memory.
type Collector struct {
	mu     sync.Mutex
	Events []Event
}

func (c *Collector) Report(e Event) {
	c.mu.Lock()
	c.Events = append(c.Events, e)
	c.mu.Unlock()
}

// Messages returns the messages of events at level.
func (c *Collector) Messages(level Level) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, e := range c.Events {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Find returns the first event with msg.
func (c *Collector) Find(msg string) (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.Events {
		if e.Message == msg {
			return e, true
		}
	}
	return Event{}, false
}
