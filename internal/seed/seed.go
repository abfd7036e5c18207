// Package seed fills a database with curated and generated demo data.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"techatlas/internal/database"
	"techatlas/internal/models"
	"techatlas/internal/repository"
	"techatlas/internal/service"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	Users     int
	PerKind   int
	BlogPosts int
	Threads   int
	// RepliesPerThread is the maximum number of replies per thread.
	RepliesPerThread int
	Clean            bool
	SkipBcrypt       bool
	// FixturesPath replaces the built-in fixtures when set.
	FixturesPath string
	SkipFixtures bool
	// Seed makes generated data reproducible; zero is random.
	Seed int64
}

// DefaultOptions seeds a small demo dataset.
func DefaultOptions() Options {
	return Options{Users: 10, PerKind: 8, BlogPosts: 6, Threads: 8, RepliesPerThread: 4}
}

// Summary counts what a run created.
type Summary struct {
	Users     int                 `json:"users"`
	Listings  map[models.Kind]int `json:"listings"`
	Skipped   int                 `json:"skipped"`
	BlogPosts int                 `json:"blog_posts"`
	Threads   int                 `json:"threads"`
	Replies   int                 `json:"replies"`
}

// Seeder writes demo data through the same services the API uses.
type Seeder struct {
	db       *gorm.DB
	registry *service.Registry
	users    repository.UserRepository
	blog     *service.BlogService
	forum    *service.ForumService
	factory  *Factory
	opts     Options
	logger   *zap.Logger
}

func NewSeeder(db *gorm.DB, registry *service.Registry, opts Options, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		db:       db,
		registry: registry,
		users:    repository.NewUserRepository(db),
		blog:     service.NewBlogService(repository.NewBlogRepository(db)),
		forum:    service.NewForumService(repository.NewForumRepository(db)),
		factory:  NewFactory(opts.Seed),
		opts:     opts,
		logger:   logger,
	}
}

// Run seeds fixtures, accounts, listings, blog posts and forum threads.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{Listings: map[models.Kind]int{}}

	if s.opts.Clean {
		if err := Clean(s.db); err != nil {
			return nil, err
		}
		s.logger.Info("cleared existing data")
	}

	curator := service.Caller{Role: models.RoleAdmin}
	if !s.opts.SkipFixtures {
		fx, err := s.fixtures()
		if err != nil {
			return nil, err
		}
		admin, err := s.fixtureUsers(ctx, fx, sum)
		if err != nil {
			return nil, err
		}
		if admin != nil {
			curator.ID = admin.ID
		}
		for raw, bodies := range fx.Listings {
			api, ok := s.registry.Lookup(raw)
			if !ok {
				continue
			}
			for _, body := range bodies {
				s.createListing(ctx, api, curator, body, sum)
			}
		}
	}

	authors, err := s.createUsers(ctx, sum)
	if err != nil {
		return nil, err
	}
	if len(authors) == 0 && curator.ID != 0 {
		authors = []*models.User{{ID: curator.ID, Role: models.RoleAdmin}}
	}

	for _, api := range s.registry.All() {
		kind := api.Info().Kind
		for i := 0; i < s.opts.PerKind; i++ {
			body := s.factory.Listing(kind)
			body["status"] = models.StatusApproved
			// every fourth generated listing waits for review
			if i%4 == 3 {
				body["status"] = models.StatusPending
			}
			s.createListing(ctx, api, curator, body, sum)
		}
	}

	if len(authors) > 0 {
		if err := s.createBlogPosts(ctx, authors, curator, sum); err != nil {
			return nil, err
		}
		if err := s.createThreads(ctx, authors, sum); err != nil {
			return nil, err
		}
	}

	s.logger.Info("seeding completed",
		zap.Int("users", sum.Users),
		zap.Any("listings", sum.Listings),
		zap.Int("skipped", sum.Skipped),
		zap.Int("blog_posts", sum.BlogPosts),
		zap.Int("threads", sum.Threads),
		zap.Int("replies", sum.Replies),
	)
	return sum, nil
}

func (s *Seeder) fixtures() (*Fixtures, error) {
	if s.opts.FixturesPath != "" {
		return LoadFixtures(s.opts.FixturesPath)
	}
	return DefaultFixtures()
}

// fixtureUsers creates fixture accounts that do not exist yet and returns
// the first admin.
func (s *Seeder) fixtureUsers(ctx context.Context, fx *Fixtures, sum *Summary) (*models.User, error) {
	var admin *models.User
	for _, fu := range fx.Users {
		user, err := s.users.GetByEmail(ctx, fu.Email)
		if err != nil {
			return nil, err
		}
		if user == nil {
			user = &models.User{
				Username:    fu.Username,
				Email:       fu.Email,
				DisplayName: fu.DisplayName,
				Role:        fu.Role,
				Password:    hashPassword(DefaultPassword, s.opts.SkipBcrypt),
			}
			if err := s.users.Create(ctx, user); err != nil {
				return nil, fmt.Errorf("create fixture user %s: %w", fu.Username, err)
			}
			sum.Users++
		}
		if admin == nil && user.Role == models.RoleAdmin {
			admin = user
		}
	}
	return admin, nil
}

func (s *Seeder) createUsers(ctx context.Context, sum *Summary) ([]*models.User, error) {
	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		role := models.RoleUser
		if i == 0 {
			role = models.RoleEditor
		}
		user := s.factory.User(role, s.opts.SkipBcrypt)
		if err := s.users.Create(ctx, user); err != nil {
			if isConflict(err) {
				sum.Skipped++
				continue
			}
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
		sum.Users++
	}
	return users, nil
}

func (s *Seeder) createListing(ctx context.Context, api service.ContentAPI, caller service.Caller, body map[string]any, sum *Summary) {
	kind := api.Info().Kind
	raw, err := jsonBody(body)
	if err != nil {
		s.logger.Warn("skipping listing", zap.String("kind", string(kind)), zap.Error(err))
		sum.Skipped++
		return
	}
	if _, _, err := api.Create(ctx, caller, raw); err != nil {
		s.logger.Warn("skipping listing", zap.String("kind", string(kind)), zap.Error(err))
		sum.Skipped++
		return
	}
	sum.Listings[kind]++
}

func (s *Seeder) createBlogPosts(ctx context.Context, authors []*models.User, curator service.Caller, sum *Summary) error {
	editor := service.Caller{ID: curator.ID, Role: models.RoleEditor}
	for i := 0; i < s.opts.BlogPosts; i++ {
		author := authors[i%len(authors)]
		post, err := s.blog.Create(ctx, service.Caller{ID: author.ID, Role: author.Role}, s.factory.Post())
		if err != nil {
			if isConflict(err) {
				sum.Skipped++
				continue
			}
			return fmt.Errorf("create blog post: %w", err)
		}
		if i%3 != 2 {
			if _, err := s.blog.Update(ctx, editor, post.ID, service.BlogInput{Status: models.StatusApproved}); err != nil {
				return fmt.Errorf("publish blog post: %w", err)
			}
		}
		sum.BlogPosts++
	}
	return nil
}

func (s *Seeder) createThreads(ctx context.Context, authors []*models.User, sum *Summary) error {
	for i := 0; i < s.opts.Threads; i++ {
		author := authors[i%len(authors)]
		thread, err := s.forum.CreateThread(ctx, service.Caller{ID: author.ID, Role: author.Role}, s.factory.Thread())
		if err != nil {
			return fmt.Errorf("create thread: %w", err)
		}
		sum.Threads++

		replies := 0
		if s.opts.RepliesPerThread > 0 {
			replies = (i * 7) % (s.opts.RepliesPerThread + 1)
		}
		for j := 0; j < replies; j++ {
			replier := authors[(i+j+1)%len(authors)]
			if _, err := s.forum.Reply(ctx, service.Caller{ID: replier.ID, Role: replier.Role}, thread.Slug, s.factory.Reply()); err != nil {
				return fmt.Errorf("reply to %s: %w", thread.Slug, err)
			}
			sum.Replies++
		}
	}
	return nil
}

// Clean deletes every row of the application tables.
func Clean(db *gorm.DB) error {
	all := database.PersistentModels()
	tx := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped()
	for i := len(all) - 1; i >= 0; i-- {
		if err := tx.Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clean %T: %w", all[i], err)
		}
	}
	return nil
}

func isConflict(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeConflict
}

func jsonBody(body map[string]any) ([]byte, error) {
	return json.Marshal(body)
}
