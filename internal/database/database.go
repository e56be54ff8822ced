package database

import (
	"database/sql"
	"net/url"
	"strings"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/loyalty/internal/models"
)

// Connect opens the PostgreSQL connection, creating the database if needed, and runs migrations.
func Connect(dsn string, level logger.LogLevel) *gorm.DB {
	if err := ensureDatabase(dsn); err != nil {
		log.WithError(err).Fatal("failed to ensure database")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	if err := Migrate(conn); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}

	return conn
}

// Migrate creates or updates every table the application uses.
func Migrate(conn *gorm.DB) error {
	migrations := []interface{}{
		&models.Member{},
		&models.Product{},
		&models.Scan{},
		&models.MonthlyReward{},
		&models.RewardTransaction{},
	}

	for _, migration := range migrations {
		if err := conn.AutoMigrate(migration); err != nil {
			return err
		}
	}

	return nil
}

func ensureDatabase(dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return err
	}

	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return nil
	}

	parsed.Path = "/postgres"
	masterDSN := parsed.String()

	sqlDB, err := sql.Open("postgres", masterDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	var exists bool
	if err := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists); err != nil {
		return err
	}

	if exists {
		return nil
	}

	log.WithField("database", dbName).Info("creating database")
	_, err = sqlDB.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName))
	return err
}
