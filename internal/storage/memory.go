package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/nixlim/tooltop/internal/stats"
)

// MemoryStore keeps per-tool totals for every record and the most recent
// records in a bounded ring. Nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	counts map[string]int64
	recent *ringBuffer[UsageRecord]
}

func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{
		counts: make(map[string]int64),
		recent: newRingBuffer[UsageRecord](capacity),
	}
}

func (m *MemoryStore) Record(rec UsageRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[rec.ToolName]++
	m.recent.add(rec)
}

func (m *MemoryStore) Stats(_ context.Context, limit int) (stats.Payload, error) {
	if limit < 1 {
		limit = DefaultRecentLimit
	}

	m.mu.RLock()
	toolStats := make([]stats.ToolCount, 0, len(m.counts))
	for name, n := range m.counts {
		toolStats = append(toolStats, stats.ToolCount{ToolName: name, Count: n})
	}
	recs := m.recent.list()
	m.mu.RUnlock()

	stats.SortByName(toolStats)

	// Newest first; records with equal timestamps keep the later insert first.
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp.After(recs[j].Timestamp)
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}

	logs := make([]stats.LogEntry, 0, len(recs))
	for _, r := range recs {
		logs = append(logs, stats.LogEntry{ToolName: r.ToolName, Timestamp: FormatTimestamp(r.Timestamp)})
	}

	return stats.Payload{ToolStats: toolStats, RecentLogs: logs}, nil
}

func (m *MemoryStore) DroppedWrites() int64 { return 0 }

func (m *MemoryStore) Close() error { return nil }
