// Package server contains the HTTP and WebSocket handlers of the Tech Atlas API.
package server

import (
	"context"
	"errors"
	"time"

	_ "techatlas/docs" // swagger docs
	"techatlas/internal/agent"
	"techatlas/internal/bootstrap"
	"techatlas/internal/config"
	"techatlas/internal/featureflags"
	"techatlas/internal/middleware"
	"techatlas/internal/models"
	"techatlas/internal/notifications"
	"techatlas/internal/search"
	"techatlas/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server holds the runtime dependencies and provides the handlers.
type Server struct {
	config         *config.Config
	runtime        *bootstrap.Runtime
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	logger         *zap.Logger

	registry     *service.Registry
	authService  *service.AuthService
	userService  *service.UserService
	blogService  *service.BlogService
	forumService *service.ForumService
	moderation   *service.ModerationService
	agents       *agent.Service
	index        search.Indexer
	hub          *notifications.Hub
	featureFlags *featureflags.Manager
}

// NewServer creates a server on top of an initialized runtime.
func NewServer(rt *bootstrap.Runtime) *Server {
	logger := rt.Logger
	if logger == nil {
		logger = middleware.Logger
	}
	return &Server{
		config:         rt.Config,
		runtime:        rt,
		db:             rt.DB,
		redis:          rt.Redis,
		promMiddleware: middleware.InitMetrics("techatlas-api"),
		logger:         logger,
		registry:       rt.Registry,
		authService:    rt.Auth,
		userService:    rt.Users,
		blogService:    rt.Blog,
		forumService:   rt.Forum,
		moderation:     rt.Moderation,
		agents:         rt.Agents,
		index:          rt.Index,
		hub:            rt.Hub,
		featureFlags:   rt.Flags,
	}
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:   "Tech Atlas Uganda API",
		BodyLimit: 2 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code := models.CodeInternal
				switch {
				case fe.Code == fiber.StatusNotFound:
					code = models.CodeNotFound
				case fe.Code < fiber.StatusInternalServerError:
					code = models.CodeValidation
				}
				return models.RespondWithError(c, fe.Code, &models.AppError{Code: code, Message: fe.Message})
			}
			middleware.LoggerFromContext(c.UserContext()).Error("unhandled error", zap.Error(err))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		ExposeHeaders:    storeHeader,
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Tech Atlas API Metrics",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Get("/me", s.AuthRequired(), s.Me)
	auth.Put("/me", s.AuthRequired(), s.UpdateMe)

	blog := api.Group("/blog", s.OptionalAuth())
	blog.Get("/", s.ListBlogPosts)
	blog.Get("/:slug", s.GetBlogPost)
	blog.Post("/", s.AuthRequired(), middleware.RateLimit(s.redis, 5, 10*time.Minute, "blog_post"), s.CreateBlogPost)
	blog.Put("/:id", s.RoleRequired(models.RoleEditor), s.UpdateBlogPost)
	blog.Delete("/:id", s.RoleRequired(models.RoleModerator), s.DeleteBlogPost)

	forum := api.Group("/forum")
	forum.Get("/threads", s.ListThreads)
	forum.Get("/threads/:slug", s.GetThread)
	forum.Post("/threads", s.AuthRequired(), middleware.RateLimit(s.redis, 5, 10*time.Minute, "forum_thread"), s.CreateThread)
	forum.Post("/threads/:slug/replies", s.AuthRequired(), middleware.RateLimit(s.redis, 15, time.Minute, "forum_reply"), s.CreateReply)
	forum.Delete("/threads/:id", s.RoleRequired(models.RoleModerator), s.DeleteThread)
	forum.Post("/threads/:id/pin", s.RoleRequired(models.RoleModerator), s.PinThread)
	forum.Post("/threads/:id/lock", s.RoleRequired(models.RoleModerator), s.LockThread)
	forum.Delete("/replies/:id", s.RoleRequired(models.RoleModerator), s.DeleteReply)

	api.Get("/search", middleware.RateLimit(s.redis, 30, time.Minute, "search"), s.Search)
	api.Get("/stats/infographic.svg", s.StatsInfographic)
	api.Get("/feature-flags", s.OptionalAuth(), s.GetFeatureFlags)

	agents := api.Group("/agents", s.OptionalAuth(), s.agentsEnabled,
		middleware.RateLimit(s.redis, 10, time.Minute, "agents"))
	agents.Post("/infographic", s.Infographic)
	agents.Post("/:target", s.RunAgent)

	admin := api.Group("/admin")
	admin.Get("/stats", s.RoleRequired(models.RoleAdmin), s.AdminStats)
	admin.Get("/pending", s.RoleRequired(models.RoleModerator), s.AdminPending)
	admin.Get("/users", s.RoleRequired(models.RoleAdmin), s.AdminListUsers)
	admin.Put("/users/:id/role", s.RoleRequired(models.RoleAdmin), s.AdminSetRole)
	admin.Get("/feature-flags", s.RoleRequired(models.RoleAdmin), s.AdminFeatureFlags)
	admin.Put("/feature-flags/:name", s.RoleRequired(models.RoleAdmin), s.AdminSetFeatureFlag)
	admin.Post("/:kind/:id/approve", s.RoleRequired(models.RoleModerator), s.ApproveContent)
	admin.Post("/:kind/:id/reject", s.RoleRequired(models.RoleModerator), s.RejectContent)
	admin.Delete("/:kind/:id", s.RoleRequired(models.RoleAdmin), s.AdminDeleteContent)

	api.Get("/ws/admin", s.RoleRequired(models.RoleModerator), s.AdminFeedHandler())

	// Generic content routes come last so the named groups above win.
	content := api.Group("/:kind", s.OptionalAuth())
	content.Get("/", s.ListContent)
	content.Get("/:slug", s.GetContent)
	content.Post("/", middleware.RateLimit(s.redis, 20, 10*time.Minute, "content_create"), s.CreateContent)
	content.Put("/:id", s.RoleRequired(models.RoleModerator), s.UpdateContent)
	content.Delete("/:id", s.RoleRequired(models.RoleModerator), s.DeleteContent)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports the state of each backend. Only a healthy content
// path is required: the memory tier keeps the API serving without a database.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "unavailable"
	if s.db != nil {
		dbStatus = "healthy"
		sqlDB, err := s.db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "unhealthy"
		}
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	secondary := "unavailable"
	if s.runtime != nil && s.runtime.Supabase != nil {
		secondary = "configured"
	}

	status := fiber.StatusOK
	overall := "healthy"
	switch {
	case dbStatus == "unhealthy" || redisStatus == "unhealthy":
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	case dbStatus == "unavailable":
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database":  dbStatus,
			"redis":     redisStatus,
			"secondary": secondary,
		},
		"time": time.Now(),
	})
}

// Start serves HTTP on the configured port until Shutdown.
func (s *Server) Start() error {
	app := s.App()
	s.logger.Info("server starting", zap.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and closes the runtime.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			s.logger.Warn("error shutting down HTTP server", zap.Error(err))
		}
	}
	if s.runtime != nil {
		if err := s.runtime.Close(ctx); err != nil {
			s.logger.Warn("error closing runtime", zap.Error(err))
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}
