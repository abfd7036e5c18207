package service

import (
	"context"
	"errors"
	"testing"

	"techatlas/internal/models"
	"techatlas/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readOnlyStore serves reads from the wrapped store and refuses writes.
type readOnlyStore[T any] struct {
	repository.ContentStore[T]
}

func (readOnlyStore[T]) Create(context.Context, *T) error { return errStoreDown }
func (readOnlyStore[T]) Update(context.Context, *T) error { return errStoreDown }
func (readOnlyStore[T]) Delete(context.Context, uint) error { return errStoreDown }

// kindService builds a content service for info. With writable false every
// store in the chain refuses the write while reads still answer.
func kindService[T any, PT repository.RecordPtr[T]](info models.KindInfo, writable bool) ContentAPI {
	mem := repository.NewMemoryStore[T, PT](info, 0)
	stores := []repository.ContentStore[T]{mem}
	if !writable {
		stores = []repository.ContentStore[T]{downStore[T]{}, readOnlyStore[T]{mem}}
	}
	store := repository.NewFallbackStore[T, PT](info, stores, repository.WithClock(clock))
	return NewContentService(store, ContentDeps{Now: clock})
}

var kindCases = map[models.Kind]struct {
	build func(models.KindInfo, bool) ContentAPI
	body  string
	slug  string
	title string
}{
	models.KindHub: {
		build: kindService[models.Hub, *models.Hub],
		body:  `{"name":"Outbox Hub","location":"Kampala"}`,
		slug:  "outbox-hub",
		title: "Outbox Hub",
	},
	models.KindCommunity: {
		build: kindService[models.Community, *models.Community],
		body:  `{"name":"Kampala Gophers","location":"Kampala"}`,
		slug:  "kampala-gophers",
		title: "Kampala Gophers",
	},
	models.KindStartup: {
		build: kindService[models.Startup, *models.Startup],
		body:  `{"name":"SafeBoda","stage":"growth"}`,
		slug:  "safeboda",
		title: "SafeBoda",
	},
	models.KindJob: {
		build: kindService[models.Job, *models.Job],
		body:  `{"title":"Backend Engineer","company":"Acme","type":"full-time"}`,
		slug:  "backend-engineer-acme",
		title: "Backend Engineer",
	},
	models.KindGig: {
		build: kindService[models.Gig, *models.Gig],
		body:  `{"title":"Logo design for fintech","category":"design"}`,
		slug:  "logo-design-for-fintech",
		title: "Logo design for fintech",
	},
	models.KindEvent: {
		build: kindService[models.Event, *models.Event],
		body:  `{"title":"DevFest Kampala","start_date":"2025-11-01T09:00:00Z","category":"conference"}`,
		slug:  "devfest-kampala",
		title: "DevFest Kampala",
	},
	models.KindOpportunity: {
		build: kindService[models.Opportunity, *models.Opportunity],
		body:  `{"title":"Hive Colab Fellowship","type":"fellowship","organization":"Hive Colab"}`,
		slug:  "hive-colab-fellowship",
		title: "Hive Colab Fellowship",
	},
	models.KindResource: {
		build: kindService[models.LearningResource, *models.LearningResource],
		body:  `{"title":"A Tour of Go","type":"tutorial"}`,
		slug:  "a-tour-of-go",
		title: "A Tour of Go",
	},
}

func TestContentService_RoundTripEveryKind(t *testing.T) {
	ctx := context.Background()
	for _, info := range models.AllKinds() {
		t.Run(string(info.Kind), func(t *testing.T) {
			tc, ok := kindCases[info.Kind]
			require.True(t, ok, "no case for %s", info.Kind)
			svc := tc.build(info, true)

			rec, report, err := svc.Create(ctx, member, []byte(tc.body))
			require.NoError(t, err)
			assert.False(t, report.Degraded)
			assert.Equal(t, "memory", report.Served)
			assert.NotZero(t, rec.GetID())

			got, err := svc.Get(ctx, member, tc.slug)
			require.NoError(t, err)
			assert.Equal(t, rec.GetID(), got.GetID())
			assert.Equal(t, tc.slug, got.GetSlug())
			assert.Equal(t, tc.title, got.DisplayTitle())
			assert.Equal(t, rec.Summary(), got.Summary())
			assert.Equal(t, member.ID, got.GetCreatedBy())
			assert.Equal(t, info.DefaultStatus, got.GetStatus())

			list, _, err := svc.List(ctx, moderator, map[string]string{"status": string(info.DefaultStatus)})
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestContentService_FailedWriteEveryKind(t *testing.T) {
	ctx := context.Background()
	for _, info := range models.AllKinds() {
		t.Run(string(info.Kind), func(t *testing.T) {
			tc, ok := kindCases[info.Kind]
			require.True(t, ok, "no case for %s", info.Kind)
			svc := tc.build(info, false)

			rec, report, err := svc.Create(ctx, member, []byte(tc.body))
			require.Error(t, err)
			require.NotNil(t, report)
			assert.Len(t, report.Attempts, 2)

			var degraded *repository.DegradedWriteError
			if info.MockOnFailure {
				require.True(t, errors.As(err, &degraded), "got %v", err)
				require.NotNil(t, rec)
				assert.True(t, report.Degraded)
				assert.Equal(t, uint(fixedNow.UnixMilli()), rec.GetID())
				assert.Equal(t, tc.slug, rec.GetSlug())
				assert.Equal(t, tc.title, rec.DisplayTitle())
			} else {
				assert.False(t, errors.As(err, &degraded))
				assert.Nil(t, rec)
				assert.False(t, report.Degraded)
				assertAppError(t, err, models.CodeInternal)
				assert.ErrorIs(t, err, errStoreDown)
			}

			_, err = svc.Get(ctx, member, tc.slug)
			assertAppError(t, err, models.CodeNotFound)
		})
	}
}
