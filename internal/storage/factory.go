package storage

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/common"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/storage/badger"
)

// NewStateStorage opens the host-local state store described by config
func NewStateStorage(logger arbor.ILogger, config *common.Config) (interfaces.StateStorage, error) {
	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}
	return badger.NewStateStorage(db, logger), nil
}
