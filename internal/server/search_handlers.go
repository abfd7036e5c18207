package server

import (
	"strings"

	"techatlas/internal/middleware"
	"techatlas/internal/models"
	"techatlas/internal/search"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const perKindSearchLimit = 10

// Search handles GET /api/search
// @Summary Search the directory
// @Description Uses the hosted index when configured and falls back to title search in the content stores.
// @Tags search
// @Produce json
// @Param q query string true "Search text"
// @Param limit query int false "Maximum results"
// @Success 200 {object} object{results=[]search.Document,count=int,source=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /search [get]
func (s *Server) Search(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Search query is required"))
	}
	page := parsePagination(c, 20)
	ctx := c.UserContext()

	if s.index != nil {
		docs, err := s.index.Search(ctx, q, page.Limit)
		if err == nil {
			return c.JSON(fiber.Map{"results": docs, "count": len(docs), "source": "index"})
		}
		middleware.LoggerFromContext(ctx).Warn("search index query failed, using content stores", zap.Error(err))
	}

	docs := make([]search.Document, 0, page.Limit)
	for _, api := range s.registry.All() {
		if len(docs) >= page.Limit {
			break
		}
		kind := api.Info().Kind
		rows, err := api.Search(ctx, q, perKindSearchLimit)
		if err != nil {
			middleware.LoggerFromContext(ctx).Warn("content search failed", zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		for _, rec := range rows {
			docs = append(docs, search.DocumentFor(kind, rec))
		}
	}
	if len(docs) > page.Limit {
		docs = docs[:page.Limit]
	}
	return c.JSON(fiber.Map{"results": docs, "count": len(docs), "source": "database"})
}
