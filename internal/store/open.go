package store

import (
	"fmt"
	"strings"

	"github.com/harunnryd/minutes/internal/config"
	"github.com/harunnryd/minutes/internal/meeting"
)

const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// Open builds the meeting store selected by store.driver.
func Open(cfg config.StoreConfig) (meeting.Store, error) {
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", DriverSQLite:
		s, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverFile:
		lockCfg, err := FileLockConfigFrom(cfg)
		if err != nil {
			return nil, err
		}
		s, err := OpenFileStore(cfg.Dir, lockCfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q (want %s or %s)", cfg.Driver, DriverSQLite, DriverFile)
	}
}
