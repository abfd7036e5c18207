package server

import (
	"errors"

	"techatlas/internal/models"
	"techatlas/internal/repository"
	"techatlas/internal/service"

	"github.com/gofiber/fiber/v2"
)

// contentAPI resolves the :kind route parameter. Unknown kinds answer 404.
func (s *Server) contentAPI(c *fiber.Ctx) (service.ContentAPI, error) {
	kind := c.Params("kind")
	api, ok := s.registry.Lookup(kind)
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusNotFound,
			&models.AppError{Code: models.CodeNotFound, Message: "unknown content type " + kind})
		return nil, errResponseWritten
	}
	return api, nil
}

// ListContent handles GET /api/:kind
// @Summary List listings
// @Description List approved listings of a content type. Moderators may pass status=pending|rejected|all.
// @Tags content
// @Produce json
// @Param kind path string true "Content type" Enums(hubs, communities, startups, jobs, gigs, events, opportunities, resources)
// @Param search query string false "Title search"
// @Param upcoming query bool false "Only upcoming events"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} object{count=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /{kind} [get]
func (s *Server) ListContent(c *fiber.Ctx) error {
	api, err := s.contentAPI(c)
	if err != nil {
		return nil
	}
	records, report, err := api.List(c.UserContext(), s.callerOrAnonymous(c), c.Queries())
	setStoreHeader(c, report)
	if err != nil {
		return models.Respond(c, err)
	}
	info := api.Info()
	return c.JSON(fiber.Map{
		string(info.Kind): records,
		"count":           len(records),
	})
}

// GetContent handles GET /api/:kind/:slug
// @Summary Get a listing
// @Tags content
// @Produce json
// @Param kind path string true "Content type"
// @Param slug path string true "Listing slug"
// @Success 200 {object} object
// @Failure 404 {object} models.ErrorResponse
// @Router /{kind}/{slug} [get]
func (s *Server) GetContent(c *fiber.Ctx) error {
	api, err := s.contentAPI(c)
	if err != nil {
		return nil
	}
	rec, err := api.Get(c.UserContext(), s.callerOrAnonymous(c), c.Params("slug"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{api.Info().Singular: rec})
}

// CreateContent handles POST /api/:kind
// @Summary Submit a listing
// @Description Anyone may submit. Submissions by members and anonymous callers wait for review.
// @Description When every store fails for job, gig, opportunity and resource submissions the API answers 202 with degraded=true and the record is not saved.
// @Tags content
// @Accept json
// @Produce json
// @Param kind path string true "Content type"
// @Success 201 {object} object
// @Success 202 {object} object{degraded=bool,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /{kind} [post]
func (s *Server) CreateContent(c *fiber.Ctx) error {
	api, err := s.contentAPI(c)
	if err != nil {
		return nil
	}
	info := api.Info()
	rec, report, err := api.Create(c.UserContext(), s.callerOrAnonymous(c), c.Body())
	setStoreHeader(c, report)

	var degraded *repository.DegradedWriteError
	switch {
	case errors.As(err, &degraded):
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"degraded":    true,
			"code":        models.CodeDegradedWrite,
			"message":     "The " + info.Singular + " could not be saved right now. Please try again later.",
			info.Singular: rec,
		})
	case err != nil:
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{info.Singular: rec})
}

// UpdateContent handles PUT /api/:kind/:id (moderator+)
// @Summary Update a listing
// @Tags content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Content type"
// @Param id path int true "Listing ID"
// @Success 200 {object} object
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /{kind}/{id} [put]
func (s *Server) UpdateContent(c *fiber.Ctx) error {
	api, err := s.contentAPI(c)
	if err != nil {
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
	rec, err := api.Update(c.UserContext(), caller, id, c.Body())
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{api.Info().Singular: rec})
}

// DeleteContent handles DELETE /api/:kind/:id (moderator+)
// @Summary Delete a listing
// @Tags content
// @Security BearerAuth
// @Param kind path string true "Content type"
// @Param id path int true "Listing ID"
// @Success 200 {object} object{message=string}
// @Router /{kind}/{id} [delete]
func (s *Server) DeleteContent(c *fiber.Ctx) error {
	return s.deleteContent(c)
}

func (s *Server) deleteContent(c *fiber.Ctx) error {
	api, err := s.contentAPI(c)
	if err != nil {
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
	if err := api.Delete(c.UserContext(), caller, id); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": api.Info().Singular + " deleted"})
}
