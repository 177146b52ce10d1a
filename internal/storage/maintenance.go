package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	maintenanceInterval = 1 * time.Hour
	vacuumInterval      = 7 * 24 * time.Hour
)

func (s *SQLiteStore) startMaintenance(ctx context.Context, retentionDays int) {
	go s.maintenanceLoop(ctx, retentionDays)
}

func (s *SQLiteStore) maintenanceLoop(ctx context.Context, retentionDays int) {
	defer close(s.maintenanceDone)

	lastVacuum := time.Now()
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := s.runMaintenanceCycle(time.Now(), retentionDays)
			if err != nil {
				s.logger.Error("maintenance cycle failed", zap.Error(err))
			} else if pruned > 0 {
				s.logger.Info("pruned usage rows", zap.Int64("rows", pruned), zap.Int("retention_days", retentionDays))
			}

			if time.Since(lastVacuum) >= vacuumInterval {
				if _, err := s.db.Exec("VACUUM"); err != nil {
					s.logger.Error("VACUUM failed", zap.Error(err))
				} else {
					lastVacuum = time.Now()
				}
			}
		}
	}
}

// runMaintenanceCycle deletes usage rows older than retentionDays before now.
// Stored timestamps are fixed-layout local ISO strings, so a string
// comparison orders them correctly.
func (s *SQLiteStore) runMaintenanceCycle(now time.Time, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := FormatTimestamp(now.AddDate(0, 0, -retentionDays))

	res, err := s.db.Exec("DELETE FROM usage_log WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning old usage rows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned rows: %w", err)
	}
	return n, nil
}
