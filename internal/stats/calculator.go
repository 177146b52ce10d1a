package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Decode reads a single stats document from r. Any schema violation, or
// anything but whitespace after the document, is reported as
// ErrMalformedPayload.
func Decode(r io.Reader) (Payload, error) {
	dec := json.NewDecoder(r)
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("decoding stats payload: %w", err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return Payload{}, fmt.Errorf("decoding stats payload: %w: trailing data after document", ErrMalformedPayload)
	}
	return p, nil
}

// TotalCalls sums the per-tool counts.
func (p Payload) TotalCalls() int64 {
	var total int64
	for _, tc := range p.ToolStats {
		total += tc.Count
	}
	return total
}

// ToolCount is the number of distinct tools in the payload.
func (p Payload) ToolCount() int {
	return len(p.ToolStats)
}

// SortByName orders tool counts alphabetically, matching the order an
// SQL GROUP BY on tool_name produces.
func SortByName(tcs []ToolCount) {
	sort.SliceStable(tcs, func(i, j int) bool {
		return tcs[i].ToolName < tcs[j].ToolName
	})
}
