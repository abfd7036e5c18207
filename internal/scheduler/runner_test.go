package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"techatlas/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type expirerStub struct {
	runFn func(ctx context.Context) (map[models.Kind]int, error)
}

func (s expirerStub) Run(ctx context.Context) (map[models.Kind]int, error) { return s.runFn(ctx) }

func TestRunner_AddRejectsBadSpec(t *testing.T) {
	r := New(context.Background(), nil, 0)
	_, err := r.Add("broken", "not a spec", func(context.Context) error { return nil })
	assert.Error(t, err)

	_, err = r.Add("hourly", "0 0 * * * *", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Len(t, r.Entries(), 1)
}

func TestRunner_RunAppliesTimeout(t *testing.T) {
	r := New(context.Background(), nil, 10*time.Millisecond)
	var sawDeadline atomic.Bool
	r.Run("slow", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		sawDeadline.Store(ok)
		return nil
	})
	assert.True(t, sawDeadline.Load())
}

func TestRunner_FiresScheduledJob(t *testing.T) {
	r := New(context.Background(), nil, 0)
	fired := make(chan struct{}, 1)
	_, err := r.Add("tick", "* * * * * *", func(context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	})
	require.NoError(t, err)

	r.Start()
	defer r.Stop()
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}
}

func TestExpiryJob(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	job := ExpiryJob(expirerStub{runFn: func(context.Context) (map[models.Kind]int, error) {
		return map[models.Kind]int{models.KindEvent: 2, models.KindJob: 0}, nil
	}}, logger)
	require.NoError(t, job(context.Background()))
	require.Equal(t, 1, logs.FilterMessage("expired listings").Len())
	assert.Equal(t, int64(2), logs.All()[0].ContextMap()["total"])

	quiet := ExpiryJob(expirerStub{runFn: func(context.Context) (map[models.Kind]int, error) {
		return map[models.Kind]int{}, nil
	}}, logger)
	require.NoError(t, quiet(context.Background()))
	assert.Equal(t, 1, logs.Len())

	failing := ExpiryJob(expirerStub{runFn: func(context.Context) (map[models.Kind]int, error) {
		return nil, errors.New("db down")
	}}, logger)
	assert.Error(t, failing(context.Background()))
}
