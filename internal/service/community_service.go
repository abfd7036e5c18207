package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"techatlas/internal/models"
	"techatlas/internal/repository"
	"techatlas/internal/validation"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderMarkdown converts post content to HTML. Raw HTML in the source is
// dropped by the renderer.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BlogInput is the editable part of a blog post.
type BlogInput struct {
	Title      string   `json:"title"`
	Excerpt    string   `json:"excerpt"`
	Content    string   `json:"content"`
	CoverImage string   `json:"cover_image"`
	Tags       []string `json:"tags"`
	// Status is honoured for editors and admins only.
	Status models.Status `json:"status"`
}

// BlogService manages blog posts. Authors submit drafts; editors publish.
type BlogService struct {
	repo repository.BlogRepository
	now  func() time.Time
}

func NewBlogService(repo repository.BlogRepository) *BlogService {
	return &BlogService{repo: repo, now: time.Now}
}

func (s *BlogService) List(ctx context.Context, caller Caller, status models.Status, limit, offset int) ([]*models.BlogPost, error) {
	if !caller.IsModerator() || status == "" {
		status = models.StatusApproved
	}
	return s.repo.List(ctx, status, limit, offset)
}

func (s *BlogService) Get(ctx context.Context, caller Caller, slug string) (*models.BlogPost, error) {
	post, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if post == nil || (post.Status != models.StatusApproved && !caller.IsModerator() && post.CreatedBy != caller.ID) {
		return nil, models.NewNotFoundError("Post", slug)
	}
	if post.ContentHTML == "" {
		if post.ContentHTML, err = RenderMarkdown(post.Content); err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return post, nil
}

func (s *BlogService) Create(ctx context.Context, caller Caller, in BlogInput) (*models.BlogPost, error) {
	if !caller.Authenticated() {
		return nil, models.NewUnauthenticatedError("authorization required")
	}
	post := &models.BlogPost{}
	post.CreatedBy = caller.ID
	post.Status = models.StatusPending
	if err := s.apply(caller, post, in); err != nil {
		return nil, err
	}
	post.Slug = validation.GenerateSlug(post.Title)
	if post.Slug == "" {
		return nil, models.NewValidationError("title must contain letters or digits")
	}
	post.Touch(s.now().UTC())

	if err := s.repo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *BlogService) Update(ctx context.Context, caller Caller, id uint, in BlogInput) (*models.BlogPost, error) {
	if !caller.Role.AtLeast(models.RoleEditor) {
		return nil, models.NewForbiddenError("access denied")
	}
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.NewNotFoundError("Post", id)
	}
	if err := s.apply(caller, post, in); err != nil {
		return nil, err
	}
	post.Touch(s.now().UTC())
	if err := s.repo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *BlogService) Delete(ctx context.Context, caller Caller, id uint) error {
	if !caller.IsModerator() {
		return models.NewForbiddenError("access denied")
	}
	return s.repo.Delete(ctx, id)
}

func (s *BlogService) apply(caller Caller, post *models.BlogPost, in BlogInput) error {
	if in.Title != "" {
		post.Title = strings.TrimSpace(in.Title)
	}
	if in.Content != "" {
		post.Content = in.Content
	}
	if in.Excerpt != "" {
		post.Excerpt = strings.TrimSpace(in.Excerpt)
	}
	if in.CoverImage != "" {
		post.CoverImage = in.CoverImage
	}
	if in.Tags != nil {
		post.Tags = in.Tags
	}
	if in.Status != "" && caller.Role.AtLeast(models.RoleEditor) {
		if !in.Status.Valid() {
			return models.NewValidationError("unknown status " + string(in.Status))
		}
		now := s.now().UTC()
		post.Review(in.Status, caller.ID, now)
		if in.Status == models.StatusApproved && post.PublishedAt == nil {
			post.PublishedAt = &now
		}
	}
	if err := validation.Struct(post); err != nil {
		return err
	}

	rendered, err := RenderMarkdown(post.Content)
	if err != nil {
		return models.NewInternalError(err)
	}
	post.ContentHTML = rendered
	return nil
}

// ThreadInput opens a forum thread.
type ThreadInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// ForumService manages threads and replies.
type ForumService struct {
	repo repository.ForumRepository
	now  func() time.Time
}

func NewForumService(repo repository.ForumRepository) *ForumService {
	return &ForumService{repo: repo, now: time.Now}
}

func (s *ForumService) ListThreads(ctx context.Context, category string, limit, offset int) ([]*models.ForumThread, error) {
	return s.repo.ListThreads(ctx, strings.ToLower(strings.TrimSpace(category)), limit, offset)
}

func (s *ForumService) GetThread(ctx context.Context, slug string) (*models.ForumThread, error) {
	thread, err := s.repo.GetThread(ctx, slug)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, models.NewNotFoundError("Thread", slug)
	}
	return thread, nil
}

// CreateThread derives the slug from the title and appends a short suffix
// when the title was used before.
func (s *ForumService) CreateThread(ctx context.Context, caller Caller, in ThreadInput) (*models.ForumThread, error) {
	if !caller.Authenticated() {
		return nil, models.NewUnauthenticatedError("authorization required")
	}
	thread := &models.ForumThread{
		Title:    strings.TrimSpace(in.Title),
		Content:  in.Content,
		Category: strings.ToLower(strings.TrimSpace(in.Category)),
	}
	if thread.Category == "" {
		thread.Category = "general"
	}
	if err := validation.Struct(thread); err != nil {
		return nil, err
	}
	thread.Slug = validation.GenerateSlug(thread.Title)
	if thread.Slug == "" {
		return nil, models.NewValidationError("title must contain letters or digits")
	}
	thread.Status = models.StatusApproved
	thread.CreatedBy = caller.ID
	thread.Touch(s.now().UTC())

	err := s.repo.CreateThread(ctx, thread)
	if isConflict(err) {
		thread.ID = 0
		thread.Slug = thread.Slug + "-" + shortID()
		err = s.repo.CreateThread(ctx, thread)
	}
	if err != nil {
		return nil, err
	}
	return thread, nil
}

// Reply answers the thread with slug. Locked threads only accept replies
// from moderators.
func (s *ForumService) Reply(ctx context.Context, caller Caller, threadSlug, content string) (*models.ForumReply, error) {
	if !caller.Authenticated() {
		return nil, models.NewUnauthenticatedError("authorization required")
	}
	thread, err := s.GetThread(ctx, threadSlug)
	if err != nil {
		return nil, err
	}
	if thread.IsLocked && !caller.IsModerator() {
		return nil, models.NewForbiddenError("thread is locked")
	}

	reply := &models.ForumReply{
		Slug:      thread.Slug + "-" + shortID(),
		ThreadID:  thread.ID,
		AuthorID:  caller.ID,
		Content:   strings.TrimSpace(content),
		Status:    models.StatusApproved,
		CreatedAt: s.now().UTC(),
	}
	if err := validation.Struct(reply); err != nil {
		return nil, err
	}
	if err := s.repo.AddReply(ctx, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *ForumService) DeleteThread(ctx context.Context, caller Caller, id uint) error {
	if !caller.IsModerator() {
		return models.NewForbiddenError("access denied")
	}
	return s.repo.DeleteThread(ctx, id)
}

func (s *ForumService) DeleteReply(ctx context.Context, caller Caller, id uint) error {
	if !caller.IsModerator() {
		return models.NewForbiddenError("access denied")
	}
	return s.repo.DeleteReply(ctx, id)
}

// Pin sets the pinned flag and leaves the lock untouched.
func (s *ForumService) Pin(ctx context.Context, caller Caller, id uint, pinned bool) (*models.ForumThread, error) {
	return s.setFlags(ctx, caller, id, func(t *models.ForumThread) { t.IsPinned = pinned })
}

// Lock sets the locked flag and leaves the pin untouched.
func (s *ForumService) Lock(ctx context.Context, caller Caller, id uint, locked bool) (*models.ForumThread, error) {
	return s.setFlags(ctx, caller, id, func(t *models.ForumThread) { t.IsLocked = locked })
}

func (s *ForumService) setFlags(ctx context.Context, caller Caller, id uint, change func(*models.ForumThread)) (*models.ForumThread, error) {
	if !caller.IsModerator() {
		return nil, models.NewForbiddenError("access denied")
	}
	thread, err := s.repo.GetThreadByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, models.NewNotFoundError("Thread", id)
	}
	change(thread)
	if err := s.repo.SetThreadFlags(ctx, id, thread.IsPinned, thread.IsLocked); err != nil {
		return nil, err
	}
	return thread, nil
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func isConflict(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeConflict
}
