package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/nixlim/tooltop/internal/stats"
)

const (
	writeChannelSize = 1000
	batchSize        = 50
	flushInterval    = 100 * time.Millisecond

	// DefaultRecentLimit is how many recent rows the stats query returns.
	DefaultRecentLimit = 20
)

// UsageRecord is one tool invocation.
type UsageRecord struct {
	ToolName  string
	Timestamp time.Time
}

// Store records tool invocations and answers the stats query.
type Store interface {
	Record(rec UsageRecord)
	Stats(ctx context.Context, limit int) (stats.Payload, error)
	DroppedWrites() int64
	Close() error
}

// FormatTimestamp renders t the way usage rows are stored: local wall time,
// ISO-8601 without an offset, microseconds only when non-zero.
func FormatTimestamp(t time.Time) string {
	t = t.Local()
	if t.Nanosecond()/1000 == 0 {
		return t.Format("2006-01-02T15:04:05")
	}
	return t.Format("2006-01-02T15:04:05.000000")
}

type SQLiteStore struct {
	db              *sql.DB
	logger          *zap.Logger
	writeChan       chan UsageRecord
	droppedWrites   atomic.Int64
	doneChan        chan struct{}
	closed          atomic.Bool
	cancelMaint     context.CancelFunc
	maintenanceDone chan struct{}
}

func NewSQLiteStore(dbPath string, retentionDays int, logger *zap.Logger) (*SQLiteStore, error) {
	return newSQLiteStoreWithChannelSize(dbPath, writeChannelSize, retentionDays, logger)
}

func newSQLiteStoreWithChannelSize(dbPath string, chanSize, retentionDays int, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	store := &SQLiteStore{
		db:              db,
		logger:          logger.Named("storage"),
		writeChan:       make(chan UsageRecord, chanSize),
		doneChan:        make(chan struct{}),
		cancelMaint:     cancel,
		maintenanceDone: make(chan struct{}),
	}

	go store.writerLoop()
	store.startMaintenance(ctx, retentionDays)

	return store, nil
}

// Record queues rec for the writer. When the queue is full the write is
// dropped and counted.
func (s *SQLiteStore) Record(rec UsageRecord) {
	if s.closed.Load() {
		return
	}
	defer func() { _ = recover() }()
	select {
	case s.writeChan <- rec:
	default:
		s.droppedWrites.Add(1)
		s.logger.Warn("write channel full, dropped usage record", zap.String("tool", rec.ToolName))
	}
}

// Stats returns per-tool counts ordered by name and the most recent rows,
// newest first. Rows still queued for the writer are not visible yet.
func (s *SQLiteStore) Stats(ctx context.Context, limit int) (stats.Payload, error) {
	if limit < 1 {
		limit = DefaultRecentLimit
	}
	p := stats.Payload{
		ToolStats:  []stats.ToolCount{},
		RecentLogs: []stats.LogEntry{},
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT tool_name, COUNT(*) FROM usage_log GROUP BY tool_name ORDER BY tool_name")
	if err != nil {
		return stats.Payload{}, fmt.Errorf("querying tool counts: %w", err)
	}
	for rows.Next() {
		var tc stats.ToolCount
		if err := rows.Scan(&tc.ToolName, &tc.Count); err != nil {
			_ = rows.Close()
			return stats.Payload{}, fmt.Errorf("scanning tool count: %w", err)
		}
		p.ToolStats = append(p.ToolStats, tc)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return stats.Payload{}, fmt.Errorf("iterating tool counts: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT tool_name, timestamp FROM usage_log ORDER BY timestamp DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return stats.Payload{}, fmt.Errorf("querying recent usage: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var le stats.LogEntry
		if err := rows.Scan(&le.ToolName, &le.Timestamp); err != nil {
			return stats.Payload{}, fmt.Errorf("scanning usage row: %w", err)
		}
		p.RecentLogs = append(p.RecentLogs, le)
	}
	if err := rows.Err(); err != nil {
		return stats.Payload{}, fmt.Errorf("iterating usage rows: %w", err)
	}

	return p, nil
}

func (s *SQLiteStore) DroppedWrites() int64 {
	return s.droppedWrites.Load()
}

// Close stops maintenance, drains queued writes and closes the database.
func (s *SQLiteStore) Close() error {
	s.closed.Store(true)

	s.cancelMaint()
	select {
	case <-s.maintenanceDone:
	case <-time.After(30 * time.Second):
		s.logger.Warn("maintenance goroutine did not stop within 30s")
	}

	close(s.writeChan)

	select {
	case <-s.doneChan:
	case <-time.After(10 * time.Second):
		s.logger.Error("failed to drain writes within 10s, data may be lost")
	}

	return s.db.Close()
}
