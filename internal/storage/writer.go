package storage

import (
	"database/sql"
	"time"

	"go.uber.org/zap"
)

func (s *SQLiteStore) writerLoop() {
	defer close(s.doneChan)

	batch := make([]UsageRecord, 0, batchSize)
	flushTimer := time.NewTimer(flushInterval)
	defer flushTimer.Stop()

	for {
		select {
		case rec, ok := <-s.writeChan:
			if !ok {
				if len(batch) > 0 {
					s.flushBatch(batch)
				}
				return
			}

			batch = append(batch, rec)

			if len(batch) >= batchSize {
				s.flushBatch(batch)
				batch = batch[:0]
				flushTimer.Reset(flushInterval)
			}

		case <-flushTimer.C:
			if len(batch) > 0 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
			flushTimer.Reset(flushInterval)
		}
	}
}

func (s *SQLiteStore) flushBatch(batch []UsageRecord) {
	tx, err := s.db.Begin()
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range batch {
		if err := insertUsage(tx, rec); err != nil {
			s.logger.Error("failed to insert usage record", zap.String("tool", rec.ToolName), zap.Error(err))
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Int("batch", len(batch)), zap.Error(err))
	}
}

func insertUsage(tx *sql.Tx, rec UsageRecord) error {
	_, err := tx.Exec(
		"INSERT INTO usage_log (tool_name, timestamp) VALUES (?, ?)",
		rec.ToolName, FormatTimestamp(rec.Timestamp),
	)
	return err
}
