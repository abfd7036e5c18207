package repository

import (
	"context"
	"errors"
	"time"

	"techatlas/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlogRepository defines persistence operations for blog posts.
type BlogRepository interface {
	List(ctx context.Context, status models.Status, limit, offset int) ([]*models.BlogPost, error)
	GetBySlug(ctx context.Context, slug string) (*models.BlogPost, error)
	GetByID(ctx context.Context, id uint) (*models.BlogPost, error)
	Create(ctx context.Context, post *models.BlogPost) error
	Update(ctx context.Context, post *models.BlogPost) error
	Delete(ctx context.Context, id uint) error
}

type blogRepository struct {
	db *gorm.DB
}

// NewBlogRepository returns a new BlogRepository implementation.
func NewBlogRepository(db *gorm.DB) BlogRepository {
	return &blogRepository{db: db}
}

func (r *blogRepository) List(ctx context.Context, status models.Status, limit, offset int) ([]*models.BlogPost, error) {
	q := readDB(r.db).WithContext(ctx).Preload("Author")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var posts []*models.BlogPost
	if err := q.Order("published_at DESC").Order("created_at DESC").
		Limit(clampLimit(limit)).Offset(offset).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *blogRepository) GetBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	return r.first(ctx, "slug = ?", slug)
}

func (r *blogRepository) GetByID(ctx context.Context, id uint) (*models.BlogPost, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *blogRepository) first(ctx context.Context, query string, arg any) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := readDB(r.db).WithContext(ctx).Preload("Author").Where(query, arg).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *blogRepository) Create(ctx context.Context, post *models.BlogPost) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A post with this title already exists", err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *blogRepository) Update(ctx context.Context, post *models.BlogPost) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(post).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A post with this title already exists", err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *blogRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.BlogPost{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// ForumRepository defines persistence operations for forum threads and replies.
type ForumRepository interface {
	ListThreads(ctx context.Context, category string, limit, offset int) ([]*models.ForumThread, error)
	GetThread(ctx context.Context, slug string) (*models.ForumThread, error)
	GetThreadByID(ctx context.Context, id uint) (*models.ForumThread, error)
	CreateThread(ctx context.Context, thread *models.ForumThread) error
	SetThreadFlags(ctx context.Context, id uint, pinned, locked bool) error
	DeleteThread(ctx context.Context, id uint) error
	AddReply(ctx context.Context, reply *models.ForumReply) error
	DeleteReply(ctx context.Context, id uint) error
}

type forumRepository struct {
	db *gorm.DB
}

// NewForumRepository returns a new ForumRepository implementation.
func NewForumRepository(db *gorm.DB) ForumRepository {
	return &forumRepository{db: db}
}

func (r *forumRepository) ListThreads(ctx context.Context, category string, limit, offset int) ([]*models.ForumThread, error) {
	q := readDB(r.db).WithContext(ctx).Preload("Author").Where("status = ?", models.StatusApproved)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var threads []*models.ForumThread
	if err := q.Order("is_pinned DESC").
		Order("COALESCE(last_reply_at, created_at) DESC").
		Limit(clampLimit(limit)).Offset(offset).
		Find(&threads).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return threads, nil
}

func (r *forumRepository) GetThread(ctx context.Context, slug string) (*models.ForumThread, error) {
	return r.thread(ctx, "slug = ?", slug)
}

func (r *forumRepository) GetThreadByID(ctx context.Context, id uint) (*models.ForumThread, error) {
	return r.thread(ctx, "id = ?", id)
}

func (r *forumRepository) thread(ctx context.Context, query string, arg any) (*models.ForumThread, error) {
	var thread models.ForumThread
	err := readDB(r.db).WithContext(ctx).
		Preload("Author").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Where("status = ?", models.StatusApproved).Order("created_at ASC")
		}).
		Preload("Replies.Author").
		Where(query, arg).
		First(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &thread, nil
}

func (r *forumRepository) CreateThread(ctx context.Context, thread *models.ForumThread) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(thread).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A thread with this title already exists", err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *forumRepository) SetThreadFlags(ctx context.Context, id uint, pinned, locked bool) error {
	res := r.db.WithContext(ctx).Model(&models.ForumThread{}).Where("id = ?", id).
		Updates(map[string]any{"is_pinned": pinned, "is_locked": locked})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Thread", id)
	}
	return nil
}

// DeleteThread removes a thread together with its replies.
func (r *forumRepository) DeleteThread(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("thread_id = ?", id).Delete(&models.ForumReply{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		res := tx.Delete(&models.ForumThread{}, id)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Thread", id)
		}
		return nil
	})
}

// AddReply stores reply and bumps the thread's reply counter.
func (r *forumRepository) AddReply(ctx context.Context, reply *models.ForumReply) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(reply).Error; err != nil {
			return models.NewInternalError(err)
		}
		at := reply.CreatedAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
		res := tx.Model(&models.ForumThread{}).Where("id = ?", reply.ThreadID).UpdateColumns(map[string]any{
			"reply_count":   gorm.Expr("reply_count + 1"),
			"last_reply_at": at,
		})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Thread", reply.ThreadID)
		}
		return nil
	})
}

func (r *forumRepository) DeleteReply(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reply models.ForumReply
		if err := tx.First(&reply, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Reply", id)
			}
			return models.NewInternalError(err)
		}
		if err := tx.Delete(&reply).Error; err != nil {
			return models.NewInternalError(err)
		}
		return tx.Model(&models.ForumThread{}).Where("id = ? AND reply_count > 0", reply.ThreadID).
			UpdateColumn("reply_count", gorm.Expr("reply_count - 1")).Error
	})
}
