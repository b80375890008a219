package logger

import (
	"sync"
)

// Record is a single message captured by a Recorder.
type Record struct {
	Level   Level
	Message string
	Fields  []any
}

// Recorder keeps every message it receives, children created by With share
// the parent's records. It is safe for concurrent use.
type Recorder struct {
	mu      *sync.Mutex
	records *[]Record
	fields  []any
	level   Level
}

var _ Logger = (*Recorder)(nil)

// NewRecorder returns a Recorder that keeps messages of every level.
func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, records: &[]Record{}, level: DebugLevel}
}

func (r *Recorder) Debug(msg string, keysAndValues ...any) { r.add(DebugLevel, msg, keysAndValues) }
func (r *Recorder) Info(msg string, keysAndValues ...any)  { r.add(InfoLevel, msg, keysAndValues) }
func (r *Recorder) Warn(msg string, keysAndValues ...any)  { r.add(WarnLevel, msg, keysAndValues) }
func (r *Recorder) Error(msg string, keysAndValues ...any) { r.add(ErrorLevel, msg, keysAndValues) }
func (r *Recorder) Fatal(msg string, keysAndValues ...any) { r.add(FatalLevel, msg, keysAndValues) }

func (r *Recorder) With(keyValues ...any) Logger {
	fields := make([]any, 0, len(r.fields)+len(keyValues))
	fields = append(fields, r.fields...)
	fields = append(fields, keyValues...)

	return &Recorder{mu: r.mu, records: r.records, fields: fields, level: r.level}
}

func (r *Recorder) Level() Level {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.level
}

func (r *Recorder) SetLevel(level Level) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.level = level
}

// Records returns a copy of the captured messages.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Record(nil), (*r.records)...)
}

// Reset drops the captured messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	*r.records = (*r.records)[:0]
}

func (r *Recorder) add(level Level, msg string, keysAndValues []any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if level < r.level {
		return
	}
	fields := make([]any, 0, len(r.fields)+len(keysAndValues))
	fields = append(fields, r.fields...)
	fields = append(fields, keysAndValues...)
	*r.records = append(*r.records, Record{Level: level, Message: msg, Fields: fields})
}
