package bootstrap

import (
	"context"
	"testing"
	"time"

	"techatlas/internal/config"
	"techatlas/internal/featureflags"
	"techatlas/internal/models"
	"techatlas/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(name string) *config.Config {
	return &config.Config{
		Env:                 "development",
		JWTSecret:           "bootstrap-test-secret-with-enough-length",
		DBDriver:            "sqlite",
		DBName:              "file:" + name + "?mode=memory&cache=shared",
		DBSchemaMode:        "auto",
		MemoryStoreCapacity: 50,
		FeatureFlags:        "ai_agents=on",
		AIProvider:          "anthropic",
		DevRootPassword:     "root-password-123",
	}
}

func TestInitRuntime_WiresServices(t *testing.T) {
	rt, err := InitRuntime(testConfig("bootstrap_wires"), zaptest.NewLogger(t), Options{})
	require.NoError(t, err)

	require.NotNil(t, rt.DB)
	assert.Nil(t, rt.Redis)
	assert.Nil(t, rt.Supabase)
	assert.Nil(t, rt.Index)
	assert.NotNil(t, rt.Auth)
	assert.NotNil(t, rt.Users)
	assert.NotNil(t, rt.Blog)
	assert.NotNil(t, rt.Forum)
	assert.Len(t, rt.Registry.All(), 8)
	assert.False(t, rt.Agents.Configured())
	assert.True(t, rt.Flags.Enabled(featureflags.AIAgents, 0))
	assert.Equal(t, []string{"admin feed"}, rt.Events.Sinks())

	var root models.User
	require.NoError(t, rt.DB.First(&root, 1).Error)
	assert.Equal(t, models.RoleAdmin, root.Role)
	assert.Equal(t, "root@techatlas.local", root.Email)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rt.Start(ctx))
	assert.Nil(t, rt.Scheduler)
	require.NoError(t, rt.Close(ctx))
}

func TestInitRuntime_SchedulesExpiry(t *testing.T) {
	cfg := testConfig("bootstrap_cron")
	cfg.CronEnabled = true
	cfg.ExpirySchedule = "0 0 * * * *"
	rt, err := InitRuntime(cfg, zaptest.NewLogger(t), Options{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, rt.Start(ctx))
	require.NotNil(t, rt.Scheduler)
	assert.Len(t, rt.Scheduler.Entries(), 1)
	require.NoError(t, rt.Close(ctx))
}

func TestInitRuntime_Degraded(t *testing.T) {
	cfg := testConfig("bootstrap_degraded")
	cfg.DBDriver = "oracle"

	_, err := InitRuntime(cfg, zaptest.NewLogger(t), Options{})
	require.Error(t, err)

	rt, err := InitRuntime(cfg, zaptest.NewLogger(t), Options{AllowDegraded: true})
	require.NoError(t, err)
	assert.Nil(t, rt.DB)
	assert.Nil(t, rt.Auth)
	assert.Nil(t, rt.Users)

	hubs, ok := rt.Registry.Lookup("hubs")
	require.True(t, ok)
	rec, report, err := hubs.Create(context.Background(), service.Caller{ID: 1, Role: models.RoleAdmin}, []byte(`{"name":"Innovation Village","location":"Ntinda"}`))
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "innovation-village", rec.GetSlug())
}

func TestEnsureDevRootAdmin_PromotesExistingUser(t *testing.T) {
	cfg := testConfig("bootstrap_promote")
	rt, err := InitRuntime(cfg, zaptest.NewLogger(t), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })

	require.NoError(t, rt.DB.Model(&models.User{}).Where("id = ?", 1).Update("role", models.RoleUser).Error)
	require.NoError(t, ensureDevRootAdmin(cfg, rt.DB, zaptest.NewLogger(t)))

	var root models.User
	require.NoError(t, rt.DB.First(&root, 1).Error)
	assert.Equal(t, models.RoleAdmin, root.Role)

	prod := *cfg
	prod.Env = "production"
	require.NoError(t, rt.DB.Model(&models.User{}).Where("id = ?", 1).Update("role", models.RoleUser).Error)
	require.NoError(t, ensureDevRootAdmin(&prod, rt.DB, zaptest.NewLogger(t)))
	require.NoError(t, rt.DB.First(&root, 1).Error)
	assert.Equal(t, models.RoleUser, root.Role)
}
