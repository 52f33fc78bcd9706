package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"job-tracker-backend/models/jobs"
	"job-tracker-backend/models/users"
)

// InitDB opens the SQLite file at path and migrates the schema.
func InitDB(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create database directory %s", dir)
		}
	}
	return OpenDB(path + "?_foreign_keys=on&_busy_timeout=5000")
}

// OpenDB opens dsn with the sqlite driver. Tests pass "file::memory:".
func OpenDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "database handle")
	}
	// One file, one writer.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "ping database")
	}

	if err := db.AutoMigrate(&users.User{}, &jobs.Job{}); err != nil {
		return nil, errors.Wrap(err, "migrate database")
	}
	return db, nil
}
