package db

import (
	"fmt"

	"github.com/apex/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lojf/garage/internal/models"
)

var conn *gorm.DB

// Init opens the default database and keeps it for Conn.
func Init(dsn string) error {
	gdb, err := Open(dsn)
	if err != nil {
		return err
	}
	conn = gdb
	return nil
}

// Open connects to sqlite and brings the schema up to date.
func Open(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// SQLite works best with a single writer; cap the pool accordingly.
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := Migrate(gdb); err != nil {
		return nil, err
	}

	log.WithField("dsn", dsn).Info("database ready (sqlite)")
	return gdb, nil
}

// attendance_reports is created by hand: gorm can't express the generated
// total column, the CHECKs, or the SET NULL action on the location FK.
const attendanceReportsDDL = `
CREATE TABLE IF NOT EXISTS attendance_reports (
	id          TEXT PRIMARY KEY,
	created_at  DATETIME,
	updated_at  DATETIME,
	date        TEXT NOT NULL,
	location_id TEXT REFERENCES locations(id) ON DELETE SET NULL,
	sv1         INTEGER NOT NULL DEFAULT 0 CHECK (sv1 >= 0),
	sv2         INTEGER NOT NULL DEFAULT 0 CHECK (sv2 >= 0),
	yxp         INTEGER NOT NULL DEFAULT 0 CHECK (yxp >= 0),
	kids        INTEGER NOT NULL DEFAULT 0 CHECK (kids >= 0),
	"local"     INTEGER NOT NULL DEFAULT 0 CHECK ("local" >= 0),
	hc1         INTEGER NOT NULL DEFAULT 0 CHECK (hc1 >= 0),
	hc2         INTEGER NOT NULL DEFAULT 0 CHECK (hc2 >= 0),
	tier        TEXT NOT NULL DEFAULT 'gray'
	            CHECK (tier IN ('purple','green','yellow','orange','red','blue','gray')),
	total_attendance INTEGER GENERATED ALWAYS AS
	            (sv1 + sv2 + yxp + kids + "local" + hc1 + hc2) STORED
)`

// Migrate creates or updates every table the service uses.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Location{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	stmts := []string{
		attendanceReportsDDL,
		"CREATE INDEX IF NOT EXISTS idx_reports_date     ON attendance_reports(date)",
		"CREATE INDEX IF NOT EXISTS idx_reports_location ON attendance_reports(location_id, date)",
		"CREATE INDEX IF NOT EXISTS idx_reports_tier     ON attendance_reports(tier)",
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("migrate attendance_reports: %w", err)
		}
	}
	return nil
}

func Conn() *gorm.DB {
	return conn
}
