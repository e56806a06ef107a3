package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options tunes gorm logging and the connection pool.
type Options struct {
	LogLevel               logger.LogLevel
	MaxIdleConns           int
	MaxOpenConns           int
	ConnMaxLifetime        time.Duration
	SkipDefaultTransaction bool
}

// DefaultOptions picks a SQL log level for the environment. Every statement
// is logged in development, only slow ones and errors in production.
func DefaultOptions(environment string) Options {
	level := logger.Info
	switch environment {
	case "production":
		level = logger.Warn
	case "test":
		level = logger.Silent
	}
	return Options{
		LogLevel:        level,
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
	}
}

func getLogger(level logger.LogLevel) logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  true,
		},
	)
}

func configureConnectionPool(db *gorm.DB, opts Options) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	return nil
}

// Open wraps any dialector. Tests pass a postgres dialector over sqlmock.
func Open(dialector gorm.Dialector, opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 getLogger(opts.LogLevel),
		SkipDefaultTransaction: opts.SkipDefaultTransaction,
	})
	if err != nil {
		return nil, err
	}

	if err := configureConnectionPool(db, opts); err != nil {
		return nil, err
	}

	return db, nil
}

func NewGormDBFromDSN(dsn string) (*gorm.DB, error) {
	return Open(postgres.Open(dsn), DefaultOptions(os.Getenv("GO_ENV")))
}
