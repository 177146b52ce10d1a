// Package receiver ingests OpenTelemetry log records and turns tool
// invocations into usage records.
package receiver

import (
	"strings"
	"time"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"

	"github.com/nixlim/tooltop/internal/storage"
)

const (
	toolNameKey  = "tool_name"
	eventNameKey = "event.name"

	toolResultSuffix = "tool_result"
)

// Recorder receives every extracted usage record.
type Recorder interface {
	Record(rec storage.UsageRecord)
}

// Extract returns one usage record per log record that names a tool.
// Records with an event name only count when the name ends in tool_result,
// so decision and permission events for the same call are not counted
// twice. Records without any event name count whenever tool_name is set.
func Extract(req *collogspb.ExportLogsServiceRequest, now time.Time) ([]storage.UsageRecord, int) {
	var out []storage.UsageRecord
	ignored := 0
	for _, rl := range req.GetResourceLogs() {
		for _, sl := range rl.GetScopeLogs() {
			for _, lr := range sl.GetLogRecords() {
				rec, ok := usageFromLog(lr, now)
				if !ok {
					ignored++
					continue
				}
				out = append(out, rec)
			}
		}
	}
	return out, ignored
}

func usageFromLog(lr *logspb.LogRecord, now time.Time) (storage.UsageRecord, bool) {
	attrs := lr.GetAttributes()
	tool := strings.TrimSpace(stringAttr(attrs, toolNameKey))
	if tool == "" {
		return storage.UsageRecord{}, false
	}

	name := lr.GetEventName()
	if name == "" {
		name = stringAttr(attrs, eventNameKey)
	}
	if name != "" && !strings.HasSuffix(name, toolResultSuffix) {
		return storage.UsageRecord{}, false
	}

	return storage.UsageRecord{ToolName: tool, Timestamp: logTime(lr, now)}, true
}

func logTime(lr *logspb.LogRecord, now time.Time) time.Time {
	if ts := lr.GetTimeUnixNano(); ts != 0 {
		return time.Unix(0, int64(ts))
	}
	if ts := lr.GetObservedTimeUnixNano(); ts != 0 {
		return time.Unix(0, int64(ts))
	}
	return now
}

func stringAttr(attrs []*commonpb.KeyValue, key string) string {
	for _, kv := range attrs {
		if kv.GetKey() == key {
			return kv.GetValue().GetStringValue()
		}
	}
	return ""
}
