package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"techatlas/internal/models"

	"github.com/go-resty/resty/v2"
)

// NewSupabaseClient returns a resty client for the PostgREST API of a
// Supabase project. baseURL is the project URL without the /rest/v1 suffix.
func NewSupabaseClient(baseURL, serviceKey string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/rest/v1").
		SetHeader("apikey", serviceKey).
		SetAuthToken(serviceKey).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(0)
}

// RESTStore is the secondary store: the same tables reached through PostgREST.
type RESTStore[T any, PT RecordPtr[T]] struct {
	client *resty.Client
	info   models.KindInfo
}

// NewRESTStore returns a secondary store for info.Table.
func NewRESTStore[T any, PT RecordPtr[T]](client *resty.Client, info models.KindInfo) *RESTStore[T, PT] {
	return &RESTStore[T, PT]{client: client, info: info}
}

func (s *RESTStore[T, PT]) Name() string { return "secondary" }

func (s *RESTStore[T, PT]) Tier() Tier { return TierSecondary }

func (s *RESTStore[T, PT]) path() string { return "/" + s.info.Table }

func (s *RESTStore[T, PT]) List(ctx context.Context, filters models.Filters) ([]*T, error) {
	req := s.client.R().SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("order", "created_at.desc").
		SetQueryParam("limit", strconv.Itoa(clampLimit(filters.Limit)))

	if filters.Status != "" {
		req.SetQueryParam("status", "eq."+string(filters.Status))
	}
	for column, value := range filters.Fields {
		req.SetQueryParam(column, "eq."+fmt.Sprint(value))
	}
	if filters.Since != nil {
		req.SetQueryParam(filters.Since.Column, "gte."+filters.Since.From.UTC().Format(time.RFC3339))
	}
	if term := strings.TrimSpace(filters.Search); term != "" {
		req.SetQueryParam(s.info.TitleColumn, "ilike.*"+term+"*")
	}

	resp, err := req.Get(s.path())
	return s.decode(resp, err)
}

func (s *RESTStore[T, PT]) GetBySlug(ctx context.Context, slug string) (*T, error) {
	return s.first(ctx, "slug", slug)
}

func (s *RESTStore[T, PT]) GetByID(ctx context.Context, id uint) (*T, error) {
	return s.first(ctx, "id", strconv.FormatUint(uint64(id), 10))
}

func (s *RESTStore[T, PT]) first(ctx context.Context, column, value string) (*T, error) {
	resp, err := s.client.R().SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam(column, "eq."+value).
		SetQueryParam("limit", "1").
		Get(s.path())
	rows, err := s.decode(resp, err)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *RESTStore[T, PT]) Create(ctx context.Context, rec *T) error {
	body, err := s.body(rec, "id")
	if err != nil {
		return err
	}
	resp, err := s.client.R().SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(body).
		Post(s.path())
	if err == nil && resp.StatusCode() == http.StatusConflict {
		return ErrConflict
	}
	rows, err := s.decode(resp, err)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("postgrest %s: empty insert response", s.info.Table)
	}
	*rec = *rows[0]
	return nil
}

// clearedOnPatch are nullable columns omitted from JSON when empty. A patch
// sends them as null so a rejection clears an earlier approval.
var clearedOnPatch = []string{"approved_by", "approved_at"}

func (s *RESTStore[T, PT]) Update(ctx context.Context, rec *T) error {
	body, err := s.body(rec, "id", "created_at")
	if err != nil {
		return err
	}
	for _, key := range clearedOnPatch {
		if _, ok := body[key]; !ok {
			body[key] = nil
		}
	}
	resp, err := s.client.R().SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", "eq."+strconv.FormatUint(uint64(PT(rec).GetID()), 10)).
		SetBody(body).
		Patch(s.path())
	if err == nil && resp.StatusCode() == http.StatusConflict {
		return ErrConflict
	}
	rows, err := s.decode(resp, err)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	*rec = *rows[0]
	return nil
}

func (s *RESTStore[T, PT]) Delete(ctx context.Context, id uint) error {
	resp, err := s.client.R().SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", "eq."+strconv.FormatUint(uint64(id), 10)).
		Delete(s.path())
	rows, err := s.decode(resp, err)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RESTStore[T, PT]) body(rec *T, drop ...string) (map[string]any, error) {
	fields, err := recordFields(rec)
	if err != nil {
		return nil, err
	}
	for _, key := range drop {
		delete(fields, key)
	}
	return fields, nil
}

func (s *RESTStore[T, PT]) decode(resp *resty.Response, err error) ([]*T, error) {
	if err != nil {
		return nil, fmt.Errorf("postgrest %s: %w", s.info.Table, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("postgrest %s: %s: %s", s.info.Table, resp.Status(), strings.TrimSpace(resp.String()))
	}
	var rows []*T
	if len(resp.Body()) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("postgrest %s: decode: %w", s.info.Table, err)
	}
	return rows, nil
}
