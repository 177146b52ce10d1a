package receiver

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nixlim/tooltop/internal/storage"
)

// Logger writes a raw trace of what the receivers accepted. It is separate
// from the zap logger so the trace can go to its own file.
// Implementations must be safe for concurrent use.
type Logger interface {
	LogUsage(source string, rec storage.UsageRecord)
	LogIgnored(source string, count int)
}

// NopLogger discards all output. It is the default when tracing is off.
type NopLogger struct{}

func (NopLogger) LogUsage(string, storage.UsageRecord) {}

func (NopLogger) LogIgnored(string, int) {}

type logEntry struct {
	Timestamp string `json:"ts"`
	Type      string `json:"type"`
	Source    string `json:"source"`
	Tool      string `json:"tool,omitempty"`
	Count     int    `json:"count,omitempty"`
}

// FileLogger writes one JSON object per line.
type FileLogger struct {
	w   io.Writer
	mu  sync.Mutex
	now func() time.Time
}

func NewFileLogger(w io.Writer) *FileLogger {
	return &FileLogger{w: w, now: time.Now}
}

func (l *FileLogger) LogUsage(source string, rec storage.UsageRecord) {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = l.now()
	}
	l.write(logEntry{
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Type:      "usage",
		Source:    source,
		Tool:      rec.ToolName,
	})
}

func (l *FileLogger) LogIgnored(source string, count int) {
	if count == 0 {
		return
	}
	l.write(logEntry{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		Type:      "ignored",
		Source:    source,
		Count:     count,
	})
}

// write drops entries that fail to serialise rather than disrupting ingest.
func (l *FileLogger) write(entry logEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s\n", data)
}
