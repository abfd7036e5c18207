package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"techatlas/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{DBMaxOpenConns: 10, DBMaxIdleConns: 5, DBConnMaxLifetimeMinutes: 15}

	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestApplySchema_HybridOnSQLite(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{DBDriver: "sqlite", DBSchemaMode: SchemaModeHybrid, Env: "test"}
	ctx := context.Background()

	require.NoError(t, ApplySchema(ctx, db, cfg))

	for _, table := range []string{"hubs", "jobs", "learning_resources", "forum_threads", "users", "migration_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("jobs", "idx_jobs_status_created"))

	status, err := GetSchemaStatus(ctx, db, cfg)
	require.NoError(t, err)
	assert.Empty(t, status.PendingMigrations)
	assert.Len(t, status.AppliedVersions, len(GetMigrations()))

	// Re-running is a no-op.
	require.NoError(t, ApplySchema(ctx, db, cfg))
}

func TestRollbackMigration(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{DBDriver: "sqlite", Env: "test"}
	ctx := context.Background()
	require.NoError(t, ApplySchema(ctx, db, cfg))

	latest := GetMigrations()[len(GetMigrations())-1]
	require.NoError(t, RollbackMigration(ctx, db, latest.Version))

	status, err := GetSchemaStatus(ctx, db, cfg)
	require.NoError(t, err)
	require.Len(t, status.PendingMigrations, 1)
	assert.Equal(t, latest.Version, status.PendingMigrations[0].Version)

	assert.Error(t, RollbackMigration(ctx, db, latest.Version))
	assert.Error(t, RollbackMigration(ctx, db, 999999))
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		sql     bool
		auto    bool
		wantErr bool
	}{
		{"hybrid postgres", config.Config{DBDriver: "postgres"}, true, true, false},
		{"hybrid mysql skips sql", config.Config{DBDriver: "mysql"}, false, true, false},
		{"sql mode", config.Config{DBDriver: "postgres", DBSchemaMode: "sql"}, true, false, false},
		{"sql mode on mysql", config.Config{DBDriver: "mysql", DBSchemaMode: "sql"}, false, false, true},
		{"auto in production refused", config.Config{DBDriver: "postgres", DBSchemaMode: "auto", Env: "production"}, false, false, true},
		{"auto in production allowed", config.Config{DBDriver: "postgres", DBSchemaMode: "auto", Env: "production", DBAutoMigrateAllowDestructive: true}, false, true, false},
		{"unknown mode", config.Config{DBSchemaMode: "yolo"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			runSQL, runAuto, err := schemaPolicy(&cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.sql, runSQL)
			assert.Equal(t, tt.auto, runAuto)
		})
	}
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))
	err := validateAppliedVersions([]int{1, 7}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")
}

func TestStatements(t *testing.T) {
	got := statements("CREATE INDEX a ON t (x);\n\n  CREATE INDEX b ON t (y);\n")
	assert.Equal(t, []string{"CREATE INDEX a ON t (x)", "CREATE INDEX b ON t (y)"}, got)
}

func TestZapGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewZapGormLogger(zap.New(core))
	ctx := context.Background()
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), fc, gorm.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())

	l.Trace(ctx, time.Now(), fc, errors.New("syntax error"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "GORM query error", logs.All()[0].Message)

	l.Trace(ctx, time.Now().Add(-time.Second), fc, nil)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "GORM slow query", logs.All()[1].Message)

	l.LogMode(logger.Silent).Trace(ctx, time.Now(), fc, errors.New("ignored"))
	assert.Equal(t, 2, logs.Len())
}
