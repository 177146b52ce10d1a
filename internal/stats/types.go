// Package stats defines the wire shape of the /api/stats response shared by
// the dashboard and the stats server.
package stats

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedPayload marks a stats document that does not match the
// expected schema. Nothing from such a document is rendered.
var ErrMalformedPayload = errors.New("malformed stats payload")

// ToolCount is one (tool, invocation count) pair. On the wire it is a
// two-element array: ["search", 3].
type ToolCount struct {
	ToolName string
	Count    int64
}

// LogEntry is one (tool, timestamp) pair of the recent activity log. On the
// wire it is a two-element array: ["fetch", "2024-01-01T10:00:00"].
type LogEntry struct {
	ToolName  string
	Timestamp string
}

// Payload is the document served by GET /api/stats.
//
// ToolStats keeps server order and holds one entry per distinct tool.
// RecentLogs is most-recent-first and bounded by the server.
type Payload struct {
	ToolStats  []ToolCount `json:"tool_stats"`
	RecentLogs []LogEntry  `json:"recent_logs"`
}

func (tc ToolCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{tc.ToolName, tc.Count})
}

func (tc *ToolCount) UnmarshalJSON(data []byte) error {
	elems, err := splitPair(data, "tool_stats")
	if err != nil {
		return err
	}

	var name string
	if err := json.Unmarshal(elems[0], &name); err != nil {
		return fmt.Errorf("%w: tool_stats tool name must be a string", ErrMalformedPayload)
	}
	if name == "" {
		return fmt.Errorf("%w: tool_stats has an empty tool name", ErrMalformedPayload)
	}

	var num json.Number
	raw := bytes.TrimSpace(elems[1])
	if len(raw) > 0 && raw[0] == '"' {
		return fmt.Errorf("%w: count for %q must be a number", ErrMalformedPayload, name)
	}
	if err := json.Unmarshal(raw, &num); err != nil {
		return fmt.Errorf("%w: count for %q must be a number", ErrMalformedPayload, name)
	}
	count, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil || count < 0 {
		return fmt.Errorf("%w: count for %q must be a non-negative integer, got %s", ErrMalformedPayload, name, num)
	}

	tc.ToolName = name
	tc.Count = count
	return nil
}

func (le LogEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{le.ToolName, le.Timestamp})
}

func (le *LogEntry) UnmarshalJSON(data []byte) error {
	elems, err := splitPair(data, "recent_logs")
	if err != nil {
		return err
	}

	var name, ts string
	if err := json.Unmarshal(elems[0], &name); err != nil {
		return fmt.Errorf("%w: recent_logs tool name must be a string", ErrMalformedPayload)
	}
	if name == "" {
		return fmt.Errorf("%w: recent_logs has an empty tool name", ErrMalformedPayload)
	}
	if err := json.Unmarshal(elems[1], &ts); err != nil {
		return fmt.Errorf("%w: timestamp for %q must be a string", ErrMalformedPayload, name)
	}

	le.ToolName = name
	le.Timestamp = ts
	return nil
}

// MarshalJSON always emits both keys as arrays, never null.
func (p Payload) MarshalJSON() ([]byte, error) {
	out := struct {
		ToolStats  []ToolCount `json:"tool_stats"`
		RecentLogs []LogEntry  `json:"recent_logs"`
	}{p.ToolStats, p.RecentLogs}
	if out.ToolStats == nil {
		out.ToolStats = []ToolCount{}
	}
	if out.RecentLogs == nil {
		out.RecentLogs = []LogEntry{}
	}
	return json.Marshal(out)
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: document is null", ErrMalformedPayload)
	}

	var out Payload
	if err := decodeSequence(raw, "tool_stats", &out.ToolStats); err != nil {
		return err
	}
	if err := decodeSequence(raw, "recent_logs", &out.RecentLogs); err != nil {
		return err
	}

	*p = out
	return nil
}

func decodeSequence[T any](raw map[string]json.RawMessage, key string, dst *[]T) error {
	field, ok := raw[key]
	if !ok {
		return fmt.Errorf("%w: missing %q", ErrMalformedPayload, key)
	}
	if string(field) == "null" {
		return fmt.Errorf("%w: %q is null", ErrMalformedPayload, key)
	}
	items := []T{}
	if err := json.Unmarshal(field, &items); err != nil {
		if errors.Is(err, ErrMalformedPayload) {
			return err
		}
		return fmt.Errorf("%w: %q: %v", ErrMalformedPayload, key, err)
	}
	*dst = items
	return nil
}

func splitPair(data []byte, field string) ([]json.RawMessage, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("%w: %s entry must be an array", ErrMalformedPayload, field)
	}
	if len(elems) != 2 {
		return nil, fmt.Errorf("%w: %s entry must have 2 elements, got %d", ErrMalformedPayload, field, len(elems))
	}
	return elems, nil
}
