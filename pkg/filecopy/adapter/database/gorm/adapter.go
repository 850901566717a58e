// Package gorm implements the database adapter on top of gorm.
// Dialects register themselves from their own subpackages (sqlite, mysql, postgres).
package gorm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database"
	dbconfig "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database/config"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// NewGormLogger creates a gorm logger that writes through the application logger.
func NewGormLogger(level string) gormLogger.Interface {
	var gormLevel gormLogger.LogLevel
	switch strings.ToUpper(level) {
	case "ERROR":
		gormLevel = gormLogger.Error
	case "WARN":
		gormLevel = gormLogger.Warn
	case "INFO", "DEBUG", "TRACE":
		gormLevel = gormLogger.Info
	default:
		gormLevel = gormLogger.Silent
	}

	return gormLogger.New(
		NewGormWriter(),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// GormWriter redirects gorm log output to the application logger.
type GormWriter struct{}

// NewGormWriter creates a new instance of GormWriter.
func NewGormWriter() *GormWriter {
	return &GormWriter{}
}

// Printf implements the gorm logger Writer interface.
// Statement traces go to DEBUG, everything else to INFO.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isStatement(msg) {
		logger.Debugf("[GORM] %s", msg)
		return
	}
	logger.Infof("[GORM] %s", msg)
}

func isStatement(msg string) bool {
	if !strings.Contains(msg, "[") || !strings.Contains(msg, "]") {
		return false
	}
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE"} {
		if strings.Contains(msg, verb) {
			return true
		}
	}
	return false
}

// GormDBAdapter implements database.DBConnection.
type GormDBAdapter struct {
	db    *gorm.DB
	sqlDB *sql.DB
	cfg   dbconfig.DatabaseConfig
	name  string
}

var _ database.DBConnection = (*GormDBAdapter)(nil)

// NewGormDBAdapter wraps an open gorm session.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) (*GormDBAdapter, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB for '%s': %w", name, err)
	}
	return &GormDBAdapter{db: db, sqlDB: sqlDB, cfg: cfg, name: name}, nil
}

// GetDB returns the gorm session.
func (a *GormDBAdapter) GetDB() *gorm.DB {
	return a.db
}

// Close closes the connection pool.
func (a *GormDBAdapter) Close() error {
	if a.sqlDB == nil {
		return nil
	}
	logger.Infof("Closing database connection '%s'...", a.name)
	return a.sqlDB.Close()
}

func (a *GormDBAdapter) Type() string {
	return a.cfg.Type
}

func (a *GormDBAdapter) Name() string {
	return a.name
}

// RefreshConnection pings the connection pool.
func (a *GormDBAdapter) RefreshConnection(ctx context.Context) error {
	if a.sqlDB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	return a.sqlDB.PingContext(ctx)
}

func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig {
	return a.cfg
}

func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	if a.sqlDB == nil {
		return nil, fmt.Errorf("underlying sql.DB is nil")
	}
	return a.sqlDB, nil
}
