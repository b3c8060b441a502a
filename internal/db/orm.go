package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitPostgresORM wraps an already open pool with GORM
func InitPostgresORM(conn *sql.DB) (*gorm.DB, error) {
	lg := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		Logger: lg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Open connects the sqlx pool and wraps the same pool with GORM
func Open(dsn string) (*sqlx.DB, *gorm.DB, error) {
	sqlDB, err := InitPostgres(dsn)
	if err != nil {
		return nil, nil, err
	}

	gormDB, err := InitPostgresORM(sqlDB.DB)
	if err != nil {
		sqlDB.Close()
		return nil, nil, err
	}

	return sqlDB, gormDB, nil
}
