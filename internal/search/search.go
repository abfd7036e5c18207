// Package search syncs approved listings to a hosted search index.
package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"techatlas/internal/models"

	"github.com/go-resty/resty/v2"
)

// Document is the indexed form of a listing.
type Document struct {
	ObjectID string        `json:"objectID"`
	Kind     models.Kind   `json:"kind"`
	ID       uint          `json:"id"`
	Slug     string        `json:"slug"`
	Title    string        `json:"title"`
	Summary  string        `json:"summary,omitempty"`
	URL      string        `json:"url,omitempty"`
	Status   models.Status `json:"status"`
}

// ObjectID is the stable index key of a listing.
func ObjectID(kind models.Kind, slug string) string {
	return string(kind) + ":" + slug
}

// DocumentFor converts rec into a Document.
func DocumentFor(kind models.Kind, rec models.Record) Document {
	return Document{
		ObjectID: ObjectID(kind, rec.GetSlug()),
		Kind:     kind,
		ID:       rec.GetID(),
		Slug:     rec.GetSlug(),
		Title:    rec.DisplayTitle(),
		Summary:  rec.Summary(),
		URL:      rec.ExternalURL(),
		Status:   rec.GetStatus(),
	}
}

// Indexer keeps an external index in step with approved listings.
type Indexer interface {
	Index(ctx context.Context, doc Document) error
	Remove(ctx context.Context, objectID string) error
	Search(ctx context.Context, query string, limit int) ([]Document, error)
}

// AlgoliaIndex talks to the Algolia REST API.
type AlgoliaIndex struct {
	client *resty.Client
	index  string
}

// AlgoliaConfig configures an AlgoliaIndex. BaseURL overrides the
// application host.
type AlgoliaConfig struct {
	AppID   string
	APIKey  string
	Index   string
	BaseURL string
	Timeout time.Duration
}

// NewAlgoliaIndex returns an index client.
func NewAlgoliaIndex(cfg AlgoliaConfig) *AlgoliaIndex {
	base := cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.algolia.net", strings.ToLower(cfg.AppID))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetHeader("X-Algolia-Application-Id", cfg.AppID).
		SetHeader("X-Algolia-API-Key", cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &AlgoliaIndex{client: client, index: cfg.Index}
}

func (a *AlgoliaIndex) objectPath(objectID string) string {
	return fmt.Sprintf("/1/indexes/%s/%s", url.PathEscape(a.index), url.PathEscape(objectID))
}

func (a *AlgoliaIndex) Index(ctx context.Context, doc Document) error {
	resp, err := a.client.R().SetContext(ctx).SetBody(doc).Put(a.objectPath(doc.ObjectID))
	return check("index", resp, err)
}

func (a *AlgoliaIndex) Remove(ctx context.Context, objectID string) error {
	resp, err := a.client.R().SetContext(ctx).Delete(a.objectPath(objectID))
	return check("remove", resp, err)
}

type queryResponse struct {
	Hits []Document `json:"hits"`
}

func (a *AlgoliaIndex) Search(ctx context.Context, query string, limit int) ([]Document, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("hitsPerPage", strconv.Itoa(limit))
	params.Set("filters", "status:"+string(models.StatusApproved))

	var out queryResponse
	resp, err := a.client.R().SetContext(ctx).
		SetBody(map[string]string{"params": params.Encode()}).
		SetResult(&out).
		Post(fmt.Sprintf("/1/indexes/%s/query", url.PathEscape(a.index)))
	if err := check("search", resp, err); err != nil {
		return nil, err
	}
	return out.Hits, nil
}

func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("algolia %s: %w", op, err)
	}
	if resp.IsError() {
		return fmt.Errorf("algolia %s: %s: %s", op, resp.Status(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// Gate wraps an Indexer so writes are skipped while enabled reports false.
// Queries always reach the index.
type Gate struct {
	Indexer
	enabled func() bool
}

// NewGate returns idx guarded by enabled.
func NewGate(idx Indexer, enabled func() bool) *Gate {
	return &Gate{Indexer: idx, enabled: enabled}
}

func (g *Gate) Index(ctx context.Context, doc Document) error {
	if !g.enabled() {
		return nil
	}
	return g.Indexer.Index(ctx, doc)
}

func (g *Gate) Remove(ctx context.Context, objectID string) error {
	if !g.enabled() {
		return nil
	}
	return g.Indexer.Remove(ctx, objectID)
}
