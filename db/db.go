package db

import (
	"context"
	"time"

	"api-monitor/model"
	"api-monitor/pkg/logger"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store is the gorm-backed datastore.
type Store struct {
	db *gorm.DB
}

// Open connects to the SQLite file at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}
	// SQLite 只允许单写连接，避免 database is locked
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&model.AuthProfile{},
		&model.Monitor{},
		&model.HealthCheck{},
		&model.Incident{},
		&model.IncidentUpdate{},
		&model.NotificationChannel{},
		&model.AlertRule{},
		&model.AlertLog{},
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	logger.Info("Database ready", zap.String("path", path))
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for seeding and ad-hoc queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	logger.Info("Closing database...")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
