package server

import (
	"techatlas/internal/models"
	"techatlas/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListBlogPosts handles GET /api/blog
// @Summary List blog posts
// @Description Published posts, newest first. Moderators may pass status.
// @Tags blog
// @Produce json
// @Param status query string false "pending|approved|rejected"
// @Param limit query int false "Maximum rows"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} object{posts=[]models.BlogPost,count=int}
// @Router /blog [get]
func (s *Server) ListBlogPosts(c *fiber.Ctx) error {
	if err := requireDatabase(c, s.blogService != nil, "the blog"); err != nil {
		return nil
	}
	page := parsePagination(c, 20)
	posts, err := s.blogService.List(c.UserContext(), s.callerOrAnonymous(c),
		models.Status(c.Query("status")), page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts, "count": len(posts)})
}

// GetBlogPost handles GET /api/blog/:slug
// @Summary Get a blog post
// @Tags blog
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} models.BlogPost
// @Failure 404 {object} models.ErrorResponse
// @Router /blog/{slug} [get]
func (s *Server) GetBlogPost(c *fiber.Ctx) error {
	if err := requireDatabase(c, s.blogService != nil, "the blog"); err != nil {
		return nil
	}
	post, err := s.blogService.Get(c.UserContext(), s.callerOrAnonymous(c), c.Params("slug"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(post)
}

// CreateBlogPost handles POST /api/blog
// @Summary Write a blog post
// @Description Members submit drafts for review; editors publish directly.
// @Tags blog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.BlogInput true "Post"
// @Success 201 {object} models.BlogPost
// @Failure 400 {object} models.ErrorResponse
// @Router /blog [post]
func (s *Server) CreateBlogPost(c *fiber.Ctx) error {
	if err := requireDatabase(c, s.blogService != nil, "the blog"); err != nil {
		return nil
	}
	var req service.BlogInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	caller, err := s.caller(c)
	if err != nil {
		return models.Respond(c, err)
	}
	post, err := s.blogService.Create(c.UserContext(), caller, req)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdateBlogPost handles PUT /api/blog/:id (editor+)
// @Summary Edit a blog post
// @Tags blog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body service.BlogInput true "Post"
// @Success 200 {object} models.BlogPost
// @Router /blog/{id} [put]
func (s *Server) UpdateBlogPost(c *fiber.Ctx) error {
	if err := requireDatabase(c, s.blogService != nil, "the blog"); err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.BlogInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	caller, err := s.caller(c)
	if err != nil {
		return models.Respond(c, err)
	}
	post, err := s.blogService.Update(c.UserContext(), caller, id, req)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(post)
}

// DeleteBlogPost handles DELETE /api/blog/:id (moderator+)
// @Summary Delete a blog post
// @Tags blog
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Router /blog/{id} [delete]
func (s *Server) DeleteBlogPost(c *fiber.Ctx) error {
	if err := requireDatabase(c, s.blogService != nil, "the blog"); err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	caller, err := s.caller(c)
	if err != nil {
		return models.Respond(c, err)
	}
	if err := s.blogService.Delete(c.UserContext(), caller, id); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// ListThreads handles GET /api/forum/threads
// @Summary List forum threads
// @Description Pinned threads first, then by latest activity.
// @Tags forum
// @Produce json
// @Param category query string false "Category"
// @Param limit query int false "Maximum rows"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} object{threads=[]models.ForumThread,count=int}
// @Router /forum/threads [get]
func (s *Server) ListThreads(c *fiber.Ctx) error {
	if err := requireDatabase(c, s.forumService != nil, "the forum"); err != nil {
		return nil
	}
	page := parsePagination(c, 30)
	threads, err := s.forumService.ListThreads(c.UserContext(), c.Query("category"), page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"threads": threads, "count": len(threads)})
}

// GetThread handles GET /api/forum/threads/:slug
// @Summary Get a thread with its replies
// @Tags forum
// @Produce json
// @Param slug path string true "Thread slug"
// @Success 200 {object} models.ForumThread
// @Failure 404 {object} models.ErrorResponse
// @Router /forum/threads/{slug} [get]
func (s *Server) GetThread(c *fiber.Ctx) error {
	if err := requireDatabase(c, s.forumService != nil, "the forum"); err != nil {
		return nil
	}
	thread, err := s.forumService.GetThread(c.UserContext(), c.Params("slug"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(thread)
}

// CreateThread handles POST /api/forum/threads
// @Summary Open a thread
// @Tags forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.ThreadInput true "Thread"
// @Success 201 {object} models.ForumThread
// @Failure 400 {object} models.ErrorResponse
// @Router /forum/threads [post]
func (s *Server) CreateThread(c *fiber.Ctx) error {
	if err := requireDatabase(c, s.forumService != nil, "the forum"); err != nil {
		return nil
	}
	var req service.ThreadInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	caller, err := s.caller(c)
	if err != nil {
		return models.Respond(c, err)
	}
	thread, err := s.forumService.CreateThread(c.UserContext(), caller, req)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(thread)
}

// CreateReply handles POST /api/forum/threads/:slug/replies
// @Summary Reply to a thread
// @Tags forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Thread slug"
// @Param request body object{content=string} true "Reply"
// @Success 201 {object} models.ForumReply
// @Failure 403 {object} models.ErrorResponse
// @Router /forum/threads/{slug}/replies [post]
func (s *Server) CreateReply(c *fiber.Ctx) error {
	if err := requireDatabase(c, s.forumService != nil, "the forum"); err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	caller, err := s.caller(c)
	if err != nil {
		return models.Respond(c, err)
	}
	reply, err := s.forumService.Reply(c.UserContext(), caller, c.Params("slug"), req.Content)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reply)
}

// DeleteThread handles DELETE /api/forum/threads/:id (moderator+)
// @Summary Delete a thread
// @Tags forum
// @Security BearerAuth
// @Param id path int true "Thread ID"
// @Success 200 {object} object{message=string}
// @Router /forum/threads/{id} [delete]
func (s *Server) DeleteThread(c *fiber.Ctx) error {
	return s.forumAction(c, func(caller service.Caller, id uint) (any, error) {
		return fiber.Map{"message": "Thread deleted"}, s.forumService.DeleteThread(c.UserContext(), caller, id)
	})
}

// DeleteReply handles DELETE /api/forum/replies/:id (moderator+)
// @Summary Delete a reply
// @Tags forum
// @Security BearerAuth
// @Param id path int true "Reply ID"
// @Success 200 {object} object{message=string}
// @Router /forum/replies/{id} [delete]
func (s *Server) DeleteReply(c *fiber.Ctx) error {
	return s.forumAction(c, func(caller service.Caller, id uint) (any, error) {
		return fiber.Map{"message": "Reply deleted"}, s.forumService.DeleteReply(c.UserContext(), caller, id)
	})
}

// PinThread handles POST /api/forum/threads/:id/pin (moderator+)
// @Summary Pin or unpin a thread
// @Tags forum
// @Accept json
// @Security BearerAuth
// @Param id path int true "Thread ID"
// @Param request body object{pinned=bool} false "Defaults to true"
// @Success 200 {object} models.ForumThread
// @Router /forum/threads/{id}/pin [post]
func (s *Server) PinThread(c *fiber.Ctx) error {
	return s.forumAction(c, func(caller service.Caller, id uint) (any, error) {
		return s.forumService.Pin(c.UserContext(), caller, id, toggleValue(c, "pinned"))
	})
}

// LockThread handles POST /api/forum/threads/:id/lock (moderator+)
// @Summary Lock or unlock a thread
// @Tags forum
// @Accept json
// @Security BearerAuth
// @Param id path int true "Thread ID"
// @Param request body object{locked=bool} false "Defaults to true"
// @Success 200 {object} models.ForumThread
// @Router /forum/threads/{id}/lock [post]
func (s *Server) LockThread(c *fiber.Ctx) error {
	return s.forumAction(c, func(caller service.Caller, id uint) (any, error) {
		return s.forumService.Lock(c.UserContext(), caller, id, toggleValue(c, "locked"))
	})
}

func (s *Server) forumAction(c *fiber.Ctx, action func(caller service.Caller, id uint) (any, error)) error {
	if err := requireDatabase(c, s.forumService != nil, "the forum"); err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	caller, err := s.caller(c)
	if err != nil {
		return models.Respond(c, err)
	}
	result, err := action(caller, id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(result)
}

// toggleValue reads a boolean field from an optional JSON body. A missing
// body or field means true.
func toggleValue(c *fiber.Ctx, field string) bool {
	if len(c.Body()) == 0 {
		return true
	}
	var body map[string]*bool
	if err := c.BodyParser(&body); err != nil || body[field] == nil {
		return true
	}
	return *body[field]
}
