package storage

import (
	"go.uber.org/zap"

	"github.com/nixlim/tooltop/internal/config"
)

// NewStore opens the SQLite store at cfg.DBPath. An empty path, or a path
// that cannot be opened, yields a MemoryStore; the bool reports whether the
// returned store persists.
func NewStore(cfg config.StorageConfig, logger *zap.Logger) (Store, bool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DBPath == "" {
		return NewMemoryStore(cfg.MemoryCapacity), false, nil
	}

	dbPath := config.ExpandTilde(cfg.DBPath)

	store, err := NewSQLiteStore(dbPath, cfg.RetentionDays, logger)
	if err != nil {
		logger.Warn("SQLite storage unavailable, falling back to in-memory store",
			zap.String("path", dbPath), zap.Error(err))
		return NewMemoryStore(cfg.MemoryCapacity), false, nil
	}

	return store, true, nil
}
