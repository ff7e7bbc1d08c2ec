package database

import (
	"sync"

	"github.com/synaptica-ai/noshow/pkg/common/config"
	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	db     *gorm.DB
	dbOnce sync.Once
)

// GetPostgres opens the shared audit/snapshot database once per process.
func GetPostgres(cfg *config.Config) (*gorm.DB, error) {
	var err error
	dbOnce.Do(func() {
		db, err = gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			logger.Log.WithError(err).WithField("host", cfg.PostgresHost).Error("Failed to connect to PostgreSQL")
			return
		}

		logger.Log.WithField("db", cfg.PostgresDB).Info("Connected to PostgreSQL")
	})

	return db, err
}

func ClosePostgres() error {
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
