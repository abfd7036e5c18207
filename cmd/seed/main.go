// Command seed populates the primary database with demo directory data.
package main

import (
	"context"
	"flag"
	"log"

	"techatlas/internal/bootstrap"
	"techatlas/internal/config"
	"techatlas/internal/middleware"
	"techatlas/internal/seed"

	"go.uber.org/zap"
)

func main() {
	defaults := seed.DefaultOptions()
	opts := seed.Options{}
	flag.IntVar(&opts.Users, "users", defaults.Users, "Number of member accounts to create")
	flag.IntVar(&opts.PerKind, "per-kind", defaults.PerKind, "Generated listings per content type")
	flag.IntVar(&opts.BlogPosts, "posts", defaults.BlogPosts, "Number of blog posts to create")
	flag.IntVar(&opts.Threads, "threads", defaults.Threads, "Number of forum threads to create")
	flag.IntVar(&opts.RepliesPerThread, "replies", defaults.RepliesPerThread, "Maximum replies per thread")
	flag.BoolVar(&opts.Clean, "clean", false, "Delete existing data before seeding")
	flag.BoolVar(&opts.SkipBcrypt, "fast", false, "Store pre-hashed demo passwords (development only)")
	flag.StringVar(&opts.FixturesPath, "fixtures", "", "YAML fixtures file replacing the built-in fixtures")
	flag.BoolVar(&opts.SkipFixtures, "no-fixtures", false, "Skip the fixture accounts and listings")
	flag.Int64Var(&opts.Seed, "seed", 0, "Random seed for reproducible data (0 is random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := middleware.NewLogger(middleware.LogOptions{Level: cfg.LogLevel, Development: true})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	middleware.SetLogger(logger)
	defer func() { _ = logger.Sync() }()

	rt, err := bootstrap.InitRuntime(cfg, logger, bootstrap.Options{})
	if err != nil {
		logger.Fatal("failed to connect", zap.Error(err))
	}
	ctx := context.Background()
	defer func() { _ = rt.Close(ctx) }()

	rt.Events.Start()

	sum, err := seed.NewSeeder(rt.DB, rt.Registry, opts, logger.Named("seed")).Run(ctx)
	if err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
	logger.Info("database populated",
		zap.Int("users", sum.Users),
		zap.Int("skipped", sum.Skipped),
	)
}
