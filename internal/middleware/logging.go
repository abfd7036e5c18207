package middleware

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global structured logger instance used throughout the application.
var Logger = zap.NewNop()

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TraceIDKey   contextKey = "trace_id"
)

// LogOptions selects the encoder and level of the global logger.
type LogOptions struct {
	Level       string
	Development bool
}

func init() {
	env := os.Getenv("APP_ENV")
	l, err := NewLogger(LogOptions{
		Level:       os.Getenv("LOG_LEVEL"),
		Development: env != "production" && env != "prod",
	})
	if err == nil {
		Logger = l
	}
}

// NewLogger builds a zap logger: JSON in production, console otherwise.
func NewLogger(opts LogOptions) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(strings.ToLower(opts.Level)); err != nil {
			level = zapcore.InfoLevel
		}
	}

	zc := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       opts.Development,
		Encoding:          "json",
		DisableStacktrace: !opts.Development,
		EncoderConfig:     zap.NewProductionEncoderConfig(),
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if opts.Development {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	return zc.Build()
}

// SetLogger replaces the global logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	Logger = l
}

// ContextFields returns the request scoped fields carried by ctx.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	var fields []zap.Field
	if rid, ok := ctx.Value(RequestIDKey).(string); ok {
		fields = append(fields, zap.String("request_id", rid))
	}
	if uid, ok := ctx.Value(UserIDKey).(uint); ok {
		fields = append(fields, zap.Uint("user_id", uid))
	}
	if tid, ok := ctx.Value(TraceIDKey).(string); ok {
		fields = append(fields, zap.String("trace_id", tid))
	}
	return fields
}

// LoggerFromContext returns the global logger decorated with request fields.
func LoggerFromContext(ctx context.Context) *zap.Logger {
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ContextMiddleware injects request ID and user ID from Fiber locals into the request context.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals("requestid").(string); ok {
			ctx = context.WithValue(ctx, RequestIDKey, rid)
		}
		if uid, ok := c.Locals("userID").(uint); ok {
			ctx = context.WithValue(ctx, UserIDKey, uid)
		}
		if tid, ok := c.Locals("traceID").(string); ok {
			ctx = context.WithValue(ctx, TraceIDKey, tid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger returns a Fiber middleware for logging requests.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Response().StatusCode()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", c.Get("User-Agent")),
		}

		log := LoggerFromContext(c.UserContext())
		if err != nil {
			log.Error("request failed", append(fields, zap.Error(err))...)
		} else {
			log.Info("request processed", fields...)
		}

		return err
	}
}
