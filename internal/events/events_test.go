package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"techatlas/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingSink struct {
	mu     sync.Mutex
	name   string
	err    error
	events []ContentEvent
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(_ context.Context, ev ContentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) received() []ContentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ContentEvent(nil), s.events...)
}

func sampleEvent(t Type) ContentEvent {
	return ContentEvent{
		Type: t, Kind: models.KindJob, ID: 3, Slug: "backend-engineer-acme",
		Title: "Backend Engineer", Status: models.StatusPending, CreatedBy: 9,
		At: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	ok := &recordingSink{name: "ok"}
	failing := &recordingSink{name: "failing", err: errors.New("boom")}
	d := NewDispatcher(nil, failing, ok)
	d.Start()

	d.Publish(context.Background(), sampleEvent(Submitted))
	d.Publish(context.Background(), sampleEvent(Approved))
	require.NoError(t, d.Close(context.Background()))

	assert.Len(t, ok.received(), 2)
	assert.Len(t, failing.received(), 2)
	assert.Equal(t, []string{"failing", "ok"}, d.Sinks())

	assert.NotPanics(t, func() { d.Publish(context.Background(), sampleEvent(Deleted)) })
}

func TestFromRecord(t *testing.T) {
	job := &models.Job{Title: "Backend Engineer", Company: "Acme", ApplyURL: "https://acme.example/jobs/1"}
	job.ID = 5
	job.Slug = "backend-engineer-acme"
	job.Status = models.StatusApproved
	job.CreatedBy = 2

	ev := FromRecord(Approved, models.KindJob, job, 1)
	assert.Equal(t, "jobs:backend-engineer-acme", ev.Key())
	assert.Equal(t, uint(2), ev.CreatedBy)
	assert.Equal(t, uint(1), ev.ActorID)
	assert.Equal(t, "https://acme.example/jobs/1", ev.URL)
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSink_Deliver(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{writer: w, topic: "techatlas.content"}

	require.NoError(t, sink.Deliver(context.Background(), sampleEvent(Submitted)))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "jobs:backend-engineer-acme", string(w.msgs[0].Key))

	var decoded ContentEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, Submitted, decoded.Type)
	assert.Equal(t, "submitted", string(w.msgs[0].Headers[0].Value))

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestSlackSink_Deliver(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewSlackSink(srv.URL, "https://techatlas.ug")
	require.NoError(t, sink.Deliver(context.Background(), sampleEvent(Submitted)))
	assert.Equal(t, "New submission awaiting review", payload["text"])

	attachments := payload["attachments"].([]any)
	first := attachments[0].(map[string]any)
	assert.Equal(t, "https://techatlas.ug/jobs/backend-engineer-acme", first["title_link"])

	payload = nil
	require.NoError(t, sink.Deliver(context.Background(), sampleEvent(Updated)))
	assert.Nil(t, payload, "updates are not posted")
}

type fakeDialer struct {
	sent []*gomail.Message
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return nil
}

func TestMailSink_Deliver(t *testing.T) {
	dialer := &fakeDialer{}
	lookups := 0
	sink := &MailSink{
		dialer: dialer,
		from:   "atlas@example.com",
		admins: []string{"mods@example.com"},
		lookup: func(_ context.Context, id uint) (string, error) {
			lookups++
			assert.Equal(t, uint(9), id)
			return "submitter@example.com", nil
		},
	}
	ctx := context.Background()

	require.NoError(t, sink.Deliver(ctx, sampleEvent(Submitted)))
	require.Len(t, dialer.sent, 1)
	assert.Equal(t, []string{"mods@example.com"}, dialer.sent[0].GetHeader("To"))
	assert.Contains(t, dialer.sent[0].GetHeader("Subject")[0], "New job submission")

	require.NoError(t, sink.Deliver(ctx, sampleEvent(Approved)))
	require.Len(t, dialer.sent, 2)
	assert.Equal(t, []string{"submitter@example.com"}, dialer.sent[1].GetHeader("To"))
	assert.Equal(t, 1, lookups)

	anon := sampleEvent(Rejected)
	anon.CreatedBy = 0
	require.NoError(t, sink.Deliver(ctx, anon))
	assert.Len(t, dialer.sent, 2)
}
