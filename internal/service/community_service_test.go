package service

import (
	"context"
	"strings"
	"testing"

	"techatlas/internal/models"
	"techatlas/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var editor = Caller{ID: 3, Role: models.RoleEditor}

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()
	html, err := RenderMarkdown("Hello **Kampala**\n<script>alert(1)</script>")
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>Kampala</strong>")
	assert.NotContains(t, html, "<script>")
}

func TestBlogService_SubmitAndPublish(t *testing.T) {
	t.Parallel()
	svc := NewBlogService(repository.NewBlogRepository(newTestDB(t)))
	svc.now = clock
	ctx := context.Background()

	_, err := svc.Create(ctx, anonymous, BlogInput{Title: "Draft", Content: "Some long enough content"})
	assertAppError(t, err, models.CodeUnauthenticated)

	_, err = svc.Create(ctx, member, BlogInput{Title: "Hi", Content: "short"})
	assertValidationError(t, err)

	post, err := svc.Create(ctx, member, BlogInput{
		Title:   "Building fintech in Kampala",
		Content: "Mobile money changed **everything** for local startups.",
		Tags:    []string{"fintech", "startups"},
		Status:  models.StatusApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, "building-fintech-in-kampala", post.Slug)
	assert.Equal(t, models.StatusPending, post.Status, "members cannot self-publish")
	assert.Contains(t, post.ContentHTML, "<strong>everything</strong>")
	assert.Nil(t, post.PublishedAt)

	_, err = svc.Get(ctx, anonymous, post.Slug)
	assertAppError(t, err, models.CodeNotFound)
	own, err := svc.Get(ctx, member, post.Slug)
	require.NoError(t, err)
	assert.Equal(t, post.ID, own.ID)

	list, err := svc.List(ctx, anonymous, models.StatusPending, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list, "non-moderators only see approved posts")

	_, err = svc.Update(ctx, moderator, post.ID, BlogInput{Status: models.StatusApproved})
	assertAppError(t, err, models.CodeForbidden)

	published, err := svc.Update(ctx, editor, post.ID, BlogInput{Status: models.StatusApproved, Excerpt: "Mobile money and startups"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, published.Status)
	require.NotNil(t, published.PublishedAt)
	assert.True(t, published.PublishedAt.Equal(fixedNow))
	require.NotNil(t, published.ApprovedBy)
	assert.Equal(t, editor.ID, *published.ApprovedBy)

	list, err = svc.List(ctx, anonymous, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Mobile money and startups", list[0].Excerpt)

	assertAppError(t, svc.Delete(ctx, member, post.ID), models.CodeForbidden)
	require.NoError(t, svc.Delete(ctx, moderator, post.ID))
}

func TestForumService_Threads(t *testing.T) {
	t.Parallel()
	svc := NewForumService(repository.NewForumRepository(newTestDB(t)))
	svc.now = clock
	ctx := context.Background()

	_, err := svc.CreateThread(ctx, member, ThreadInput{Title: "Hiring", Content: "Anyone hiring?", Category: "gossip"})
	assertValidationError(t, err)

	first, err := svc.CreateThread(ctx, member, ThreadInput{Title: "Where to learn Go?", Content: "Looking for resources"})
	require.NoError(t, err)
	assert.Equal(t, "where-to-learn-go", first.Slug)
	assert.Equal(t, "general", first.Category)

	second, err := svc.CreateThread(ctx, admin, ThreadInput{Title: "Where to learn Go?", Content: "Same question", Category: "Learning"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(second.Slug, "where-to-learn-go-"))
	assert.Len(t, second.Slug, len("where-to-learn-go-")+8)
	assert.Equal(t, "learning", second.Category)

	reply, err := svc.Reply(ctx, admin, first.Slug, "  Try the Tour of Go  ")
	require.NoError(t, err)
	assert.Equal(t, "Try the Tour of Go", reply.Content)

	_, err = svc.Reply(ctx, member, first.Slug, "   ")
	assertValidationError(t, err)
	_, err = svc.Reply(ctx, member, "no-such-thread", "hello")
	assertAppError(t, err, models.CodeNotFound)

	_, err = svc.Lock(ctx, member, first.ID, true)
	assertAppError(t, err, models.CodeForbidden)

	locked, err := svc.Lock(ctx, moderator, first.ID, true)
	require.NoError(t, err)
	assert.True(t, locked.IsLocked)
	pinned, err := svc.Pin(ctx, moderator, first.ID, true)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)
	assert.True(t, pinned.IsLocked, "pinning keeps the lock")

	_, err = svc.Reply(ctx, member, first.Slug, "late answer")
	assertAppError(t, err, models.CodeForbidden)
	_, err = svc.Reply(ctx, moderator, first.Slug, "closing note")
	require.NoError(t, err)

	got, err := svc.GetThread(ctx, first.Slug)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ReplyCount)

	threads, err := svc.ListThreads(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, first.ID, threads[0].ID)

	require.NoError(t, svc.DeleteReply(ctx, moderator, reply.ID))
	assertAppError(t, svc.DeleteThread(ctx, member, second.ID), models.CodeForbidden)
	require.NoError(t, svc.DeleteThread(ctx, moderator, second.ID))
}
