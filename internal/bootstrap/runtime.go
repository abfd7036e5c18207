// Package bootstrap wires configuration into the stores, services and
// background workers shared by the server and the command line tools.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"techatlas/internal/agent"
	"techatlas/internal/cache"
	"techatlas/internal/config"
	"techatlas/internal/database"
	"techatlas/internal/events"
	"techatlas/internal/featureflags"
	"techatlas/internal/models"
	"techatlas/internal/notifications"
	"techatlas/internal/repository"
	"techatlas/internal/scheduler"
	"techatlas/internal/search"
	"techatlas/internal/service"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	agentHistoryTTL = 30 * 24 * time.Hour
	cronJobTimeout  = 5 * time.Minute
	pageFetchBudget = 8 * time.Second
)

// Options control runtime initialization behavior.
type Options struct {
	// AllowDegraded keeps the runtime up when the primary database is
	// unreachable. Content then falls back to the secondary and memory stores.
	AllowDegraded bool
	// SkipSchema connects without applying migrations.
	SkipSchema bool
}

// Runtime holds every long-lived dependency of the API.
type Runtime struct {
	Config *config.Config
	Logger *zap.Logger

	DB       *gorm.DB
	Redis    *redis.Client
	Supabase *resty.Client
	Index    search.Indexer

	Flags    *featureflags.Manager
	Events   *events.Dispatcher
	Hub      *notifications.Hub
	Notifier *notifications.Notifier

	Registry   *service.Registry
	Auth       *service.AuthService
	Users      *service.UserService
	Blog       *service.BlogService
	Forum      *service.ForumService
	Moderation *service.ModerationService
	Expiry     *service.ExpiryService
	Agents     *agent.Service
	Scheduler  *scheduler.Runner

	cancel context.CancelFunc
}

// InitRuntime connects to the configured backends and builds the services.
// Optional backends that are missing or unreachable are logged and skipped.
func InitRuntime(cfg *config.Config, logger *zap.Logger, opts Options) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rt := &Runtime{
		Config: cfg,
		Logger: logger,
		Flags:  featureflags.NewManager(cfg.FeatureFlags),
	}

	db, err := connect(cfg, opts)
	switch {
	case err == nil:
		rt.DB = db
	case opts.AllowDegraded:
		logger.Warn("primary database unavailable, serving content from fallback stores", zap.Error(err))
	default:
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	rt.Redis = cache.InitRedis(cfg.RedisURL)

	if err := ensureDevRootAdmin(cfg, rt.DB, logger); err != nil {
		return nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if cfg.SupabaseEnabled() {
		rt.Supabase = repository.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseTimeout())
	} else {
		logger.Warn("SUPABASE_URL or SUPABASE_SERVICE_KEY missing, secondary store disabled")
	}

	if cfg.AlgoliaEnabled() {
		rt.Index = search.NewAlgoliaIndex(search.AlgoliaConfig{
			AppID:  cfg.AlgoliaAppID,
			APIKey: cfg.AlgoliaAPIKey,
			Index:  cfg.AlgoliaIndex,
		})
	} else {
		logger.Warn("ALGOLIA_APP_ID or ALGOLIA_API_KEY missing, search falls back to the content stores")
	}

	if rt.DB != nil {
		userRepo := repository.NewUserRepository(rt.DB)
		rt.Auth = service.NewAuthService(userRepo, rt.Redis, cfg.JWTSecret)
		rt.Users = service.NewUserService(userRepo)
		rt.Blog = service.NewBlogService(repository.NewBlogRepository(rt.DB))
		rt.Forum = service.NewForumService(repository.NewForumRepository(rt.DB))
	}

	rt.Hub = notifications.NewHub(logger.Named("admin_feed"))
	rt.Events = events.NewDispatcher(logger.Named("events"), rt.sinks()...)

	chain := repository.ChainConfig{
		DB:             rt.DB,
		REST:           rt.Supabase,
		MemoryCapacity: cfg.MemoryStoreCapacity,
		Logger:         logger.Named("content"),
	}
	if kinds, ok := cfg.MockWriteKinds(); ok {
		chain.MockKinds = kinds
	}
	deps := service.ContentDeps{Events: rt.Events}
	if rt.Index != nil {
		deps.Index = search.NewGate(rt.Index, func() bool {
			return rt.Flags.Enabled(featureflags.SearchIndex, 0)
		})
	}
	rt.Registry = service.NewRegistry(chain, deps)
	rt.Moderation = service.NewModerationService(rt.DB, rt.Registry)
	rt.Expiry = service.NewExpiryService(rt.DB, rt.Events, deps.Index)
	rt.Agents = rt.newAgents()

	return rt, nil
}

func connect(cfg *config.Config, opts Options) (*gorm.DB, error) {
	if opts.SkipSchema {
		return database.Open(cfg)
	}
	return database.Connect(cfg)
}

// sinks returns the notification targets that are configured. Without Redis
// the admin feed is fed directly, which only reaches this instance.
func (rt *Runtime) sinks() []events.Sink {
	cfg := rt.Config
	var sinks []events.Sink
	if rt.Redis != nil {
		rt.Notifier = notifications.NewNotifier(rt.Redis, rt.Logger.Named("notifier"))
		sinks = append(sinks, rt.Notifier)
	} else {
		sinks = append(sinks, rt.Hub)
	}

	if brokers := config.SplitList(cfg.KafkaBrokers); len(brokers) > 0 {
		sinks = append(sinks, events.NewKafkaSink(brokers, cfg.KafkaTopic))
	}
	if cfg.SlackWebhookURL != "" {
		sinks = append(sinks, events.NewSlackSink(cfg.SlackWebhookURL, cfg.SiteURL))
	} else {
		rt.Logger.Warn("SLACK_WEBHOOK_URL missing, Slack notifications disabled")
	}
	if cfg.SMTPEnabled() {
		sinks = append(sinks, events.NewMailSink(events.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, config.SplitList(cfg.AdminEmails), rt.emailOf))
	} else {
		rt.Logger.Warn("SMTP_HOST missing, moderation emails disabled")
	}
	return sinks
}

func (rt *Runtime) emailOf(ctx context.Context, userID uint) (string, error) {
	if rt.Users == nil || userID == 0 {
		return "", nil
	}
	return rt.Users.Email(ctx, userID)
}

func (rt *Runtime) newAgents() *agent.Service {
	cfg := rt.Config
	opts := []agent.Option{
		agent.WithTimeout(cfg.AITimeout()),
		agent.WithLogger(rt.Logger.Named("agent")),
	}
	if rt.Redis != nil {
		opts = append(opts, agent.WithHistory(agent.NewRedisHistory(rt.Redis, agentHistoryTTL)))
	}
	if cfg.AIEnrichPages {
		opts = append(opts, agent.WithEnricher(agent.NewPageEnricher(pageFetchBudget)))
	}

	gen, err := agent.NewGenerator(agent.ProviderConfig{
		Provider: cfg.AIProvider,
		APIKey:   cfg.AIKey(),
		Model:    cfg.AIModel,
	})
	if err != nil {
		if errors.Is(err, agent.ErrNotConfigured) {
			rt.Logger.Warn("AI provider key missing, agent endpoints will report a configuration error",
				zap.String("provider", cfg.AIProvider))
		} else {
			rt.Logger.Error("AI provider unavailable", zap.Error(err))
		}
		gen = nil
	}
	return agent.New(gen, rt.Registry, opts...)
}

// Start launches the background workers: event delivery, the admin feed
// subscription and the cron runner.
func (rt *Runtime) Start(ctx context.Context) error {
	ctx, rt.cancel = context.WithCancel(ctx)
	rt.Events.Start()

	if rt.Notifier != nil {
		if err := rt.Hub.StartWiring(ctx, rt.Notifier); err != nil {
			rt.Logger.Warn("admin feed subscription failed", zap.Error(err))
		}
	}

	if !rt.Config.CronEnabled {
		rt.Logger.Info("scheduled jobs disabled")
		return nil
	}
	rt.Scheduler = scheduler.New(ctx, rt.Logger.Named("cron"), cronJobTimeout)
	if _, err := rt.Scheduler.Add("expire-listings", rt.Config.ExpirySchedule, scheduler.ExpiryJob(rt.Expiry, rt.Logger)); err != nil {
		return err
	}
	rt.Scheduler.Start()
	return nil
}

// Close stops the workers and releases connections.
func (rt *Runtime) Close(ctx context.Context) error {
	if rt.cancel != nil {
		rt.cancel()
	}
	if rt.Scheduler != nil {
		rt.Scheduler.Stop()
	}

	var errs []error
	if rt.Events != nil {
		if err := rt.Events.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close events: %w", err))
		}
	}
	if rt.Hub != nil {
		if err := rt.Hub.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close admin feed: %w", err))
		}
	}
	if rt.DB != nil {
		if sqlDB, err := rt.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ensureDevRootAdmin makes user 1 an admin in development when a root
// password is configured.
func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB, logger *zap.Logger) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || cfg.DevRootPassword == "" {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "atlas_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@techatlas.local"
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.First(&root, 1).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				ID:       1,
				Username: username,
				Email:    email,
				Password: string(hashedPassword),
				Role:     models.RoleAdmin,
			}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
		case findErr != nil:
			return findErr
		default:
			if err := tx.Model(&models.User{}).Where("id = ?", 1).Update("role", models.RoleAdmin).Error; err != nil {
				return err
			}
		}

		// Explicit ID inserts leave the Postgres sequence behind.
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec(`
				SELECT setval(
					pg_get_serial_sequence('users', 'id'),
					GREATEST((SELECT COALESCE(MAX(id), 1) FROM users), 1),
					true
				)
			`).Error; err != nil {
				return fmt.Errorf("failed to reset users sequence: %w", err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	cache.InvalidateUser(context.Background(), 1)
	logger.Info("development root admin ensured", zap.Uint("user_id", 1), zap.String("email", email))
	return nil
}
