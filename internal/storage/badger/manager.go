package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrivo/internal/common"
	"github.com/ternarybob/scrivo/internal/interfaces"
)

// Manager owns the Badger connection and the storages built on it.
type Manager struct {
	db     *BadgerDB
	jobs   interfaces.JobStore
	logger arbor.ILogger
}

// NewManager opens the database and wires up the job store.
func NewManager(logger arbor.ILogger, storageConfig *common.BadgerConfig, workerConfig *common.WorkerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, storageConfig)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		jobs:   NewJobStorage(db, logger, workerConfig.MaxRetries),
		logger: logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// JobStore returns the job storage interface.
func (m *Manager) JobStore() interfaces.JobStore {
	return m.jobs
}

// Close closes the database connection.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
