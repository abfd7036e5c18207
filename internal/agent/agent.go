// Package agent implements the content autofill helpers: a language model
// looks up a listing on the web and returns it as JSON ready for review.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"techatlas/internal/models"
	"techatlas/internal/observability"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Error kinds reported to clients in the "error" field.
const (
	KindConfiguration = "configuration_error"
	KindParse         = "parse_error"
	KindSearch        = "search_failed"
	KindInvalid       = "invalid_request"
)

// Error is a failed agent request.
type Error struct {
	Kind    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return e.Kind + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status is the HTTP status for the error.
func (e *Error) Status() int {
	if e.Kind == KindInvalid {
		return 400
	}
	return 500
}

// ErrUnknownTarget is returned for an agent path that does not exist.
var ErrUnknownTarget = errors.New("unknown agent target")

// Catalog lists existing titles so the model can skip known entries.
type Catalog interface {
	Titles(ctx context.Context, kind models.Kind, limit int) ([]string, error)
}

// Request is the body of an agent call.
type Request struct {
	Query string `json:"query"`
	// Type picks the listing kind for the search agent.
	Type string `json:"type,omitempty"`
}

// Result is a generated listing. Field is the response key holding Item.
type Result struct {
	Field     string
	Kind      models.Kind
	Item      map[string]any
	Duplicate bool
	Message   string
}

// Body returns the response document.
func (r *Result) Body() map[string]any {
	body := map[string]any{
		"success":   true,
		r.Field:     r.Item,
		"kind":      r.Kind,
		"duplicate": r.Duplicate,
	}
	if r.Message != "" {
		body["message"] = r.Message
	}
	return body
}

const existingTitleLimit = 100

// Service runs agent requests against a Generator.
type Service struct {
	gen      Generator
	catalog  Catalog
	history  HistoryStore
	enricher Enricher
	timeout  time.Duration
	logger   *zap.Logger
}

type Option func(*Service)

// WithHistory replaces the in-memory duplicate history.
func WithHistory(h HistoryStore) Option { return func(s *Service) { s.history = h } }

// WithEnricher fills empty fields from the page behind the result URL.
func WithEnricher(e Enricher) Option { return func(s *Service) { s.enricher = e } }

func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

// New returns a Service. gen may be nil when no provider is configured;
// every call then fails with a configuration error.
func New(gen Generator, catalog Catalog, opts ...Option) *Service {
	s := &Service{
		gen:     gen,
		catalog: catalog,
		history: NewMemoryHistory(),
		timeout: 60 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether a provider is available.
func (s *Service) Configured() bool { return s.gen != nil }

// Run looks up req.Query for the named target and flags results that match
// the history or an existing title.
func (s *Service) Run(ctx context.Context, target string, req Request) (*Result, error) {
	t, ok := targets[target]
	if !ok {
		return nil, ErrUnknownTarget
	}
	res, err := s.run(ctx, t, req)
	outcome := "ok"
	var agentErr *Error
	if errors.As(err, &agentErr) {
		outcome = agentErr.Kind
	} else if res != nil && res.Duplicate {
		outcome = "duplicate"
	}
	observability.ObserveAgent(t.name, outcome)
	return res, err
}

func (s *Service) run(ctx context.Context, t target, req Request) (*Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, &Error{Kind: KindInvalid, Message: "query is required"}
	}
	if s.gen == nil {
		return nil, &Error{Kind: KindConfiguration, Message: ErrNotConfigured.Error()}
	}

	info, err := t.resolve(req.Type)
	if err != nil {
		return nil, &Error{Kind: KindInvalid, Message: err.Error()}
	}
	shape := shapes[info.Kind]

	existing := s.existingTitles(ctx, info.Kind)
	text, err := s.generate(ctx, systemPrompt, buildPrompt(info, shape, query, existing))
	if err != nil {
		return nil, &Error{Kind: KindSearch, Message: "search failed, try again later", Err: err}
	}

	raw, ok := ExtractJSON(text)
	if !ok {
		return nil, &Error{Kind: KindParse, Message: "could not read a listing from the model response"}
	}
	item := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, &Error{Kind: KindParse, Message: "could not read a listing from the model response", Err: err}
	}

	title := gjson.Get(raw, shape.titleField).String()
	link := firstString(raw, shape.urlFields)
	if link != "" && s.enricher != nil {
		s.enrich(ctx, item, shape, link)
	}

	dup, err := s.duplicate(ctx, title, link, existing)
	if err != nil {
		s.logger.Warn("agent history unavailable", zap.Error(err))
	}
	res := &Result{Field: t.field, Kind: info.Kind, Item: item, Duplicate: dup}
	if dup {
		res.Message = fmt.Sprintf("A similar %s is already listed", info.Singular)
	}
	return res, nil
}

// Infographic asks the model for a standalone SVG illustrating topic.
func (s *Service) Infographic(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	var (
		svg string
		err error
	)
	switch {
	case topic == "":
		err = &Error{Kind: KindInvalid, Message: "topic is required"}
	case s.gen == nil:
		err = &Error{Kind: KindConfiguration, Message: ErrNotConfigured.Error()}
	default:
		svg, err = s.infographic(ctx, topic)
	}
	outcome := "ok"
	var agentErr *Error
	if errors.As(err, &agentErr) {
		outcome = agentErr.Kind
	}
	observability.ObserveAgent("infographic", outcome)
	return svg, err
}

func (s *Service) infographic(ctx context.Context, topic string) (string, error) {
	text, err := s.generate(ctx, infographicSystemPrompt, fmt.Sprintf(infographicPrompt, topic))
	if err != nil {
		return "", &Error{Kind: KindSearch, Message: "generation failed, try again later", Err: err}
	}
	svg, ok := ExtractSVG(text)
	if !ok {
		return "", &Error{Kind: KindParse, Message: "the model response did not contain an SVG document"}
	}
	clean := SanitizeSVG(svg)
	if !strings.HasPrefix(clean, "<svg") {
		return "", &Error{Kind: KindParse, Message: "the model response did not contain an SVG document"}
	}
	return clean, nil
}

func (s *Service) generate(ctx context.Context, system, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	text, err := s.gen.Generate(ctx, system, prompt)
	observability.AgentLatency.WithLabelValues(s.gen.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("model call failed", zap.String("provider", s.gen.Name()), zap.Error(err))
	}
	return text, err
}

func (s *Service) existingTitles(ctx context.Context, kind models.Kind) []string {
	if s.catalog == nil {
		return nil
	}
	titles, err := s.catalog.Titles(ctx, kind, existingTitleLimit)
	if err != nil {
		s.logger.Warn("could not load existing titles", zap.String("kind", string(kind)), zap.Error(err))
		return nil
	}
	return titles
}

func (s *Service) enrich(ctx context.Context, item map[string]any, shape shape, link string) {
	missing := isBlank(item[shape.descriptionField]) || (shape.imageField != "" && isBlank(item[shape.imageField]))
	if !missing {
		return
	}
	meta, err := s.enricher.Fetch(ctx, link)
	if err != nil {
		s.logger.Debug("page enrichment failed", zap.String("url", link), zap.Error(err))
		return
	}
	if isBlank(item[shape.descriptionField]) && meta.Description != "" {
		item[shape.descriptionField] = meta.Description
	}
	if shape.imageField != "" && isBlank(item[shape.imageField]) && meta.Image != "" {
		item[shape.imageField] = meta.Image
	}
}

// duplicate checks the history before remembering the key, so the first
// sighting of a pair is never a duplicate of itself.
func (s *Service) duplicate(ctx context.Context, title, link string, existing []string) (bool, error) {
	dup := matchesExisting(title, existing)
	if title == "" && link == "" {
		return dup, nil
	}
	key := HistoryKey(title, link)
	seen, err := s.history.Seen(ctx, key)
	if err != nil {
		return dup, err
	}
	if err := s.history.Remember(ctx, key); err != nil {
		return dup || seen, err
	}
	return dup || seen, nil
}

func matchesExisting(title string, existing []string) bool {
	needle := strings.ToLower(strings.TrimSpace(title))
	if needle == "" {
		return false
	}
	for _, e := range existing {
		known := strings.ToLower(strings.TrimSpace(e))
		if known == "" {
			continue
		}
		if known == needle || strings.Contains(known, needle) || strings.Contains(needle, known) {
			return true
		}
	}
	return false
}

func firstString(raw string, paths []string) string {
	for _, p := range paths {
		if v := strings.TrimSpace(gjson.Get(raw, p).String()); v != "" {
			return v
		}
	}
	return ""
}

func isBlank(v any) bool {
	s, ok := v.(string)
	return v == nil || (ok && strings.TrimSpace(s) == "")
}
