package server

import (
	"bytes"
	"errors"
	"html/template"

	"techatlas/internal/agent"
	"techatlas/internal/middleware"
	"techatlas/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RunAgent handles POST /api/agents/:target
// @Summary Autofill a listing
// @Description Looks the query up with the configured language model and returns a draft listing.
// @Tags agents
// @Accept json
// @Produce json
// @Param target path string true "Agent" Enums(hubs, jobs, resources, search)
// @Param request body agent.Request true "Query"
// @Success 200 {object} object{success=bool,duplicate=bool,message=string}
// @Failure 400 {object} object{error=string,message=string}
// @Failure 500 {object} object{error=string,message=string}
// @Router /agents/{target} [post]
func (s *Server) RunAgent(c *fiber.Ctx) error {
	var req agent.Request
	if err := c.BodyParser(&req); err != nil {
		return agentError(c, &agent.Error{Kind: agent.KindInvalid, Message: "invalid request body"})
	}
	res, err := s.agents.Run(c.UserContext(), c.Params("target"), req)
	if err != nil {
		return agentError(c, err)
	}
	return c.JSON(res.Body())
}

// Infographic handles POST /api/agents/infographic
// @Summary Generate an infographic
// @Description Returns a sanitized SVG document. Send Accept: image/svg+xml for the raw document.
// @Tags agents
// @Accept json
// @Produce json,image/svg+xml
// @Param request body object{topic=string} true "Topic"
// @Success 200 {object} object{success=bool,svg=string}
// @Failure 400 {object} object{error=string,message=string}
// @Router /agents/infographic [post]
func (s *Server) Infographic(c *fiber.Ctx) error {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := c.BodyParser(&req); err != nil {
		return agentError(c, &agent.Error{Kind: agent.KindInvalid, Message: "invalid request body"})
	}
	svg, err := s.agents.Infographic(c.UserContext(), req.Topic)
	if err != nil {
		return agentError(c, err)
	}
	if c.Accepts(fiber.MIMEApplicationJSON, "image/svg+xml") == "image/svg+xml" {
		c.Set(fiber.HeaderContentType, "image/svg+xml")
		return c.SendString(svg)
	}
	return c.JSON(fiber.Map{"success": true, "svg": svg})
}

// agentError writes the {error, message} body the agent endpoints use.
func agentError(c *fiber.Ctx, err error) error {
	if errors.Is(err, agent.ErrUnknownTarget) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "unknown agent " + c.Params("target"),
		})
	}
	var agentErr *agent.Error
	if !errors.As(err, &agentErr) {
		agentErr = &agent.Error{Kind: agent.KindSearch, Message: "generation failed, try again later", Err: err}
	}
	if agentErr.Status() >= fiber.StatusInternalServerError {
		middleware.LoggerFromContext(c.UserContext()).Error("agent request failed",
			zap.String("kind", agentErr.Kind), zap.Error(agentErr))
	}
	return c.Status(agentErr.Status()).JSON(fiber.Map{
		"error":   agentErr.Kind,
		"message": agentErr.Message,
	})
}

const (
	chartWidth  = 800
	chartLeft   = 160
	chartTop    = 70
	barHeight   = 36
	barGap      = 14
	barMaxWidth = 520
)

var statsChart = template.Must(template.New("stats").Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}" role="img" aria-label="Tech Atlas Uganda listings">
<rect width="100%" height="100%" fill="#ffffff"/>
<text x="24" y="40" font-family="sans-serif" font-size="22" font-weight="bold" fill="#111827">Tech Atlas Uganda: approved listings</text>
{{range .Bars}}<text x="{{$.Left}}" y="{{.TextY}}" dx="-12" text-anchor="end" font-family="sans-serif" font-size="14" fill="#374151">{{.Label}}</text>
<rect x="{{$.Left}}" y="{{.Y}}" width="{{.Width}}" height="{{$.BarHeight}}" rx="4" fill="#f59e0b"/>
<text x="{{.ValueX}}" y="{{.TextY}}" dx="8" font-family="sans-serif" font-size="14" fill="#111827">{{.Count}}</text>
{{end}}</svg>`))

type chartBar struct {
	Label  string
	Count  int64
	Y      int
	TextY  int
	Width  int
	ValueX int
}

// StatsInfographic handles GET /api/stats/infographic.svg
// @Summary Directory infographic
// @Description Bar chart of approved listings per content type.
// @Tags stats
// @Produce image/svg+xml
// @Success 200 {string} string
// @Router /stats/infographic.svg [get]
func (s *Server) StatsInfographic(c *fiber.Ctx) error {
	stats, err := s.moderation.Stats(c.UserContext())
	if err != nil {
		return models.Respond(c, err)
	}

	var peak int64 = 1
	for _, k := range stats.Kinds {
		if k.Approved() > peak {
			peak = k.Approved()
		}
	}
	bars := make([]chartBar, 0, len(stats.Kinds))
	for i, k := range stats.Kinds {
		y := chartTop + i*(barHeight+barGap)
		width := int(k.Approved() * barMaxWidth / peak)
		bars = append(bars, chartBar{
			Label:  string(k.Kind),
			Count:  k.Approved(),
			Y:      y,
			TextY:  y + barHeight/2 + 5,
			Width:  width,
			ValueX: chartLeft + width,
		})
	}

	var buf bytes.Buffer
	err = statsChart.Execute(&buf, map[string]any{
		"Width":     chartWidth,
		"Height":    chartTop + len(bars)*(barHeight+barGap) + 20,
		"Left":      chartLeft,
		"BarHeight": barHeight,
		"Bars":      bars,
	})
	if err != nil {
		return models.Respond(c, models.NewInternalError(err))
	}
	c.Set(fiber.HeaderContentType, "image/svg+xml")
	c.Set(fiber.HeaderCacheControl, "public, max-age=300")
	return c.Send(buf.Bytes())
}
