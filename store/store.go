// Package store provides the SQLite-backed persistence layer for agent
// events, episodic and semantic memory, and loop checkpoints. It is built
// on GORM with the pure-Go SQLite driver so a single binary needs no cgo
// and no external database to run durably.
package store

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options configures Open.
type Options struct {
	// Debug enables GORM statement logging.
	Debug bool
}

// Open connects to the SQLite database at dsn and migrates the schema.
// Use ":memory:" for an ephemeral database in tests.
func Open(dsn string, optFns ...func(o *Options)) (*gorm.DB, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if opts.Debug {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", dsn, err)
	}
	if err := db.AutoMigrate(&eventRow{}, &episodeRow{}, &factRow{}, &checkpointRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}
