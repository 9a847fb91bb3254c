package cli

import (
	"fmt"

	"github.com/splitkit/splitkit/internal/config"
	"github.com/splitkit/splitkit/internal/engine"
	"github.com/splitkit/splitkit/internal/logger"
	"github.com/splitkit/splitkit/internal/store"
)

// withEngine loads configuration, opens the store, builds the engine, and
// handles cleanup around fn.
func withEngine(fn func(*engine.Engine, *store.SQLiteStore) error) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	// Flags win over config file and environment.
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if logLevel != "" {
		cfg.Logger.Level = logLevel
	}

	log, err := logger.New(cfg.Logger.Mode, cfg.Logger.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(engine.New(s, log), s)
}
