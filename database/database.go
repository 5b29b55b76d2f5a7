// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Store is the SQLite-backed lease ledger. It holds block summaries, lease
// history, and the payment batches derived from them.
type Store struct {
	db           *gorm.DB
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	dataDir      string
}

// Config describes the persistence configuration for a Store.
type Config struct {
	// DataDir is the directory holding the sqlite database file. An empty
	// value selects a shared in-memory database, useful for testing.
	DataDir      string
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// New opens (and migrates) the lease ledger store.
func New(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	var ledgerDb *gorm.DB
	var err error
	if cfg.DataDir == "" {
		// cache=shared allows multiple connections to share the same in-memory database
		ledgerDb, err = gorm.Open(
			sqlite.Open("file::memory:?cache=shared"),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(cfg.DataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(cfg.DataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		dbPath := filepath.Join(cfg.DataDir, "ledger.sqlite")
		// WAL journal mode so a reader (calculate) never blocks the writer (sync)
		connOpts := "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		ledgerDb, err = gorm.Open(
			sqlite.Open(fmt.Sprintf("file:%s?%s", dbPath, connOpts)),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	}
	db := &Store{
		db:           ledgerDb,
		dataDir:      cfg.DataDir,
		logger:       cfg.Logger,
		promRegistry: cfg.PromRegistry,
	}
	if err := db.init(); err != nil {
		return db, err
	}
	for _, model := range MigrateModels {
		db.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := db.db.AutoMigrate(model); err != nil {
			return db, err
		}
	}
	return db, nil
}

func (d *Store) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	// Configure tracing for GORM
	if err := d.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	return nil
}

// Close shuts down the database connection.
func (d *Store) Close() error {
	db, err := d.DB().DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return db.Close()
}

// DB returns the underlying GORM database handle.
func (d *Store) DB() *gorm.DB {
	return d.db
}

// Transaction starts a new database transaction.
func (d *Store) Transaction() *gorm.DB {
	return d.DB().Begin()
}
