package service

import (
	"context"

	"techatlas/internal/models"
	"techatlas/internal/repository"
)

// Registry resolves API path segments to content services.
type Registry struct {
	apis  map[models.Kind]ContentAPI
	order []models.Kind
}

// NewRegistry builds a fallback chain and content service for every listing kind.
func NewRegistry(chain repository.ChainConfig, deps ContentDeps) *Registry {
	r := &Registry{apis: map[models.Kind]ContentAPI{}}
	register[models.Hub](r, models.KindHub, chain, deps)
	register[models.Community](r, models.KindCommunity, chain, deps)
	register[models.Startup](r, models.KindStartup, chain, deps)
	register[models.Job](r, models.KindJob, chain, deps)
	register[models.Gig](r, models.KindGig, chain, deps)
	register[models.Event](r, models.KindEvent, chain, deps)
	register[models.Opportunity](r, models.KindOpportunity, chain, deps)
	register[models.LearningResource](r, models.KindResource, chain, deps)
	return r
}

func register[T any, PT repository.RecordPtr[T]](r *Registry, kind models.Kind, chain repository.ChainConfig, deps ContentDeps) {
	store := repository.NewChain[T, PT](models.MustKind(kind), chain)
	r.Add(NewContentService(store, deps))
}

// Add registers api under its kind, replacing any previous entry.
func (r *Registry) Add(api ContentAPI) {
	kind := api.Info().Kind
	if _, exists := r.apis[kind]; !exists {
		r.order = append(r.order, kind)
	}
	r.apis[kind] = api
}

// Lookup accepts a plural path segment or a singular name.
func (r *Registry) Lookup(raw string) (ContentAPI, bool) {
	info, ok := models.LookupKind(raw)
	if !ok {
		return nil, false
	}
	api, ok := r.apis[info.Kind]
	return api, ok
}

// All returns the registered services in registration order.
func (r *Registry) All() []ContentAPI {
	out := make([]ContentAPI, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.apis[k])
	}
	return out
}

// Titles returns existing titles of kind, newest first. Unknown kinds have none.
func (r *Registry) Titles(ctx context.Context, kind models.Kind, limit int) ([]string, error) {
	api, ok := r.apis[kind]
	if !ok {
		return nil, nil
	}
	return api.Titles(ctx, limit)
}
