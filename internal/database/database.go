// Package database handles database connections and migrations.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"techatlas/internal/config"
	"techatlas/internal/middleware"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database connection instance.
var DB *gorm.DB

var readDB *gorm.DB

// ZapGormLogger adapts GORM logging to zap and ignores ErrRecordNotFound.
type ZapGormLogger struct {
	logger *zap.Logger
	Config logger.Config
}

// NewZapGormLogger returns a GORM logger writing warnings and slow queries to l.
func NewZapGormLogger(l *zap.Logger) *ZapGormLogger {
	return &ZapGormLogger{
		logger: l,
		Config: logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	}
}

// LogMode sets the logging level and returns a new interface instance.
func (l *ZapGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newlogger := *l
	newlogger.Config.LogLevel = level
	return &newlogger
}

func (l *ZapGormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Info {
		l.with(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

func (l *ZapGormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Warn {
		l.with(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *ZapGormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Error {
		l.with(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs failed and slow statements, and every statement at Info level.
func (l *ZapGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Config.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}

	switch {
	case err != nil && l.Config.LogLevel >= logger.Error &&
		!(l.Config.IgnoreRecordNotFoundError && errors.Is(err, gorm.ErrRecordNotFound)):
		l.with(ctx).Error("GORM query error", append(fields, zap.Error(err))...)
	case l.Config.SlowThreshold != 0 && elapsed > l.Config.SlowThreshold && l.Config.LogLevel >= logger.Warn:
		l.with(ctx).Warn("GORM slow query", fields...)
	case l.Config.LogLevel >= logger.Info:
		l.with(ctx).Info("GORM query", fields...)
	}
}

func (l *ZapGormLogger) with(ctx context.Context) *zap.Logger {
	return l.logger.With(middleware.ContextFields(ctx)...)
}

// Dialector returns the GORM dialector for the configured driver.
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.Driver() {
	case "postgres":
		return postgres.Open(cfg.DSN()), nil
	case "mysql":
		return mysql.Open(cfg.DSN()), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver())
	}
}

// Open connects to the primary database without touching the schema.
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	dbInstance, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   NewZapGormLogger(middleware.Logger),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := configurePool(dbInstance, cfg); err != nil {
		return nil, err
	}

	middleware.Logger.Info("Database connected successfully", zap.String("driver", cfg.Driver()))
	DB = dbInstance
	return dbInstance, nil
}

// Connect opens the primary database, applies the schema and attaches the
// read replica when one is configured.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dbInstance, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	if err := ApplySchema(context.Background(), dbInstance, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	if dsn := cfg.ReadDSN(); dsn != "" {
		replica, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: NewZapGormLogger(middleware.Logger)})
		if err != nil {
			middleware.Logger.Warn("read replica unavailable, serving reads from primary", zap.Error(err))
		} else {
			readDB = replica
		}
	}

	return dbInstance, nil
}

func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql.DB: %w", err)
	}

	maxOpen := cfg.DBMaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.DBMaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := cfg.DBConnMaxLifetimeMinutes
	if lifetime <= 0 {
		lifetime = 5
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(time.Duration(lifetime) * time.Minute)
	return nil
}

// GetReadDB returns the read replica, or nil when reads go to the primary.
func GetReadDB() *gorm.DB {
	return readDB
}
