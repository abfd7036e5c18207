package agent

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"techatlas/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generatorStub struct {
	calls      atomic.Int32
	generateFn func(ctx context.Context, system, prompt string) (string, error)
}

func (g *generatorStub) Name() string { return "stub" }

func (g *generatorStub) Generate(ctx context.Context, system, prompt string) (string, error) {
	g.calls.Add(1)
	return g.generateFn(ctx, system, prompt)
}

type catalogStub struct {
	titles map[models.Kind][]string
	err    error
}

func (c catalogStub) Titles(_ context.Context, kind models.Kind, _ int) ([]string, error) {
	return c.titles[kind], c.err
}

func reply(text string) *generatorStub {
	return &generatorStub{generateFn: func(context.Context, string, string) (string, error) { return text, nil }}
}

func requireAgentError(t *testing.T, err error, kind string) {
	t.Helper()
	var agentErr *Error
	require.True(t, errors.As(err, &agentErr), "expected *Error, got %v", err)
	assert.Equal(t, kind, agentErr.Kind)
}

func TestService_RunJob(t *testing.T) {
	var prompt string
	gen := &generatorStub{generateFn: func(_ context.Context, _, p string) (string, error) {
		prompt = p
		return "I found this posting:\n" + `{"title":"Backend Engineer","company":"SafeBoda","type":"full-time","apply_url":"https://safeboda.com/careers"}`, nil
	}}
	svc := New(gen, catalogStub{titles: map[models.Kind][]string{models.KindJob: {"Data Analyst at Fenix"}}})

	res, err := svc.Run(context.Background(), "jobs", Request{Query: "backend jobs kampala"})
	require.NoError(t, err)
	assert.Equal(t, "job", res.Field)
	assert.Equal(t, models.KindJob, res.Kind)
	assert.Equal(t, "SafeBoda", res.Item["company"])
	assert.False(t, res.Duplicate)

	assert.Contains(t, prompt, `"backend jobs kampala"`)
	assert.Contains(t, prompt, "- Data Analyst at Fenix")
	assert.Contains(t, prompt, `"apply_url"`)

	body := res.Body()
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body, "job")
	assert.NotContains(t, body, "message")
}

func TestService_DuplicateFromHistory(t *testing.T) {
	gen := reply(`{"name":"Outbox Hub","website":"https://outbox.co.ug","description":"Incubator"}`)
	svc := New(gen, nil)
	ctx := context.Background()

	first, err := svc.Run(ctx, "hubs", Request{Query: "outbox"})
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := svc.Run(ctx, "hubs", Request{Query: "outbox incubator"})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, "A similar hub is already listed", second.Message)
	assert.Equal(t, int32(2), gen.calls.Load(), "the comparison must not call the model")
}

func TestService_DuplicateFromExistingTitles(t *testing.T) {
	svc := New(reply(`{"title":"A Tour of Go","url":"https://go.dev/tour"}`),
		catalogStub{titles: map[models.Kind][]string{models.KindResource: {"a tour of go (official)"}}})

	res, err := svc.Run(context.Background(), "resources", Request{Query: "go tutorial"})
	require.NoError(t, err)
	assert.Equal(t, "resource", res.Field)
	assert.True(t, res.Duplicate)
}

func TestService_SearchTargetUsesType(t *testing.T) {
	gen := reply(`{"title":"DevFest Kampala","registration_url":"https://gdg.community.dev"}`)
	svc := New(gen, catalogStub{err: errors.New("db down")})

	res, err := svc.Run(context.Background(), "search", Request{Query: "devfest", Type: "event"})
	require.NoError(t, err)
	assert.Equal(t, "item", res.Field)
	assert.Equal(t, models.KindEvent, res.Kind)

	_, err = svc.Run(context.Background(), "search", Request{Query: "devfest", Type: "spaceships"})
	requireAgentError(t, err, KindInvalid)
}

func TestService_Failures(t *testing.T) {
	ctx := context.Background()

	_, err := New(nil, nil).Run(ctx, "hubs", Request{Query: "x"})
	requireAgentError(t, err, KindConfiguration)

	_, err = New(reply("sorry, nothing found"), nil).Run(ctx, "hubs", Request{Query: "x"})
	requireAgentError(t, err, KindParse)

	failing := &generatorStub{generateFn: func(context.Context, string, string) (string, error) {
		return "", errors.New("connection reset")
	}}
	_, err = New(failing, nil).Run(ctx, "jobs", Request{Query: "x"})
	requireAgentError(t, err, KindSearch)
	var agentErr *Error
	require.True(t, errors.As(err, &agentErr))
	assert.Equal(t, http.StatusInternalServerError, agentErr.Status())

	_, err = New(reply("{}"), nil).Run(ctx, "hubs", Request{Query: "  "})
	requireAgentError(t, err, KindInvalid)

	_, err = New(reply("{}"), nil).Run(ctx, "planets", Request{Query: "x"})
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestService_GenerateRespectsTimeout(t *testing.T) {
	gen := &generatorStub{generateFn: func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	svc := New(gen, nil, WithTimeout(20*time.Millisecond))

	_, err := svc.Run(context.Background(), "hubs", Request{Query: "slow"})
	requireAgentError(t, err, KindSearch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_EnrichesFromPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><head><title>Hive Colab</title>
<meta property="og:description" content="Kampala innovation hub">
<meta property="og:image" content="/logo.png"></head><body></body></html>`)
	}))
	t.Cleanup(srv.Close)

	gen := reply(`{"name":"Hive Colab","website":"` + srv.URL + `","description":""}`)
	svc := New(gen, nil, WithEnricher(newPageEnricher(2*time.Second, nil)))

	res, err := svc.Run(context.Background(), "hubs", Request{Query: "hive colab"})
	require.NoError(t, err)
	assert.Equal(t, "Kampala innovation hub", res.Item["description"])
	assert.Equal(t, srv.URL+"/logo.png", res.Item["logo_url"])
}

func TestPageEnricher_Fallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, `<html><head><title> Refactory </title><meta name="description" content="Software bootcamp"></head></html>`)
	}))
	t.Cleanup(srv.Close)
	e := newPageEnricher(2*time.Second, nil)

	meta, err := e.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Refactory", meta.Title)
	assert.Equal(t, "Software bootcamp", meta.Description)
	assert.Empty(t, meta.Image)

	_, err = e.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
	_, err = e.Fetch(context.Background(), "ftp://example.com")
	assert.Error(t, err)
}

func TestPageEnricher_RefusesInternalAddresses(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><head><meta property="og:description" content="internal"></head></html>`)
	}))
	t.Cleanup(srv.Close)

	_, err := NewPageEnricher(2*time.Second).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-public address")
	assert.Zero(t, hits.Load())

	gen := reply(`{"name":"Metadata","website":"` + srv.URL + `","description":""}`)
	svc := New(gen, nil, WithEnricher(NewPageEnricher(2*time.Second)))
	res, err := svc.Run(context.Background(), "hubs", Request{Query: "metadata"})
	require.NoError(t, err)
	assert.NotEqual(t, "internal", res.Item["description"])
	assert.Zero(t, hits.Load())
}

func TestPublicOnly(t *testing.T) {
	for _, addr := range []string{
		"127.0.0.1:80", "10.1.2.3:80", "172.16.0.9:443", "192.168.1.1:80",
		"169.254.169.254:80", "100.64.0.1:80", "0.0.0.0:80", "[::1]:80",
		"[fe80::1]:80", "[fd00::1]:443", "[::ffff:127.0.0.1]:80", "224.0.0.1:80",
	} {
		assert.Error(t, publicOnly("tcp", addr, nil), addr)
	}
	for _, addr := range []string{"196.43.128.10:443", "8.8.8.8:80", "[2001:4860:4860::8888]:443"} {
		assert.NoError(t, publicOnly("tcp", addr, nil), addr)
	}
}

func TestPageEnricher_HTMLOnlyAndBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/feed.json" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"title":"not a page"}`)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><head><title>Outbox</title></head><body>`)
		_, _ = io.WriteString(w, strings.Repeat("a", maxPageBytes))
		_, _ = io.WriteString(w, `<meta name="description" content="beyond the cap"></body></html>`)
	}))
	t.Cleanup(srv.Close)
	e := newPageEnricher(2*time.Second, nil)

	_, err := e.Fetch(context.Background(), srv.URL+"/feed.json")
	assert.Error(t, err)

	meta, err := e.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Outbox", meta.Title)
	assert.Empty(t, meta.Description)
}

func TestService_Infographic(t *testing.T) {
	var system string
	gen := &generatorStub{generateFn: func(_ context.Context, s, _ string) (string, error) {
		system = s
		return `<svg viewBox="0 0 800 600" onload="x()"><text>Startups</text></svg>`, nil
	}}
	svc := New(gen, nil)

	svg, err := svc.Infographic(context.Background(), "startup funding")
	require.NoError(t, err)
	assert.Equal(t, `<svg viewBox="0 0 800 600"><text>Startups</text></svg>`, svg)
	assert.True(t, strings.Contains(system, "SVG"))

	_, err = New(reply("no drawing"), nil).Infographic(context.Background(), "x")
	requireAgentError(t, err, KindParse)
	_, err = New(nil, nil).Infographic(context.Background(), "x")
	requireAgentError(t, err, KindConfiguration)
	_, err = svc.Infographic(context.Background(), "")
	requireAgentError(t, err, KindInvalid)
}

func TestNewGenerator(t *testing.T) {
	_, err := NewGenerator(ProviderConfig{Provider: "anthropic"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	g, err := NewGenerator(ProviderConfig{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", g.Name())

	g, err = NewGenerator(ProviderConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", g.Name())

	_, err = NewGenerator(ProviderConfig{Provider: "llama", APIKey: "k"})
	assert.Error(t, err)
}

func TestAnthropicGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"))
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "web_search")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
"content":[{"type":"text","text":"{\"name\":"},{"type":"text","text":"\"Outbox\"}"}],
"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":5}}`)
	}))
	t.Cleanup(srv.Close)

	g := NewAnthropicGenerator(ProviderConfig{APIKey: "test-key", Model: "claude-test", BaseURL: srv.URL + "/"})
	text, err := g.Generate(context.Background(), "system", "find outbox")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Outbox"}`, text)
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1700000000,"model":"gpt-test",
"choices":[{"index":0,"message":{"role":"assistant","content":"{\"title\":\"Go Dev\"}"},"finish_reason":"stop"}]}`)
	}))
	t.Cleanup(srv.Close)

	g := NewOpenAIGenerator(ProviderConfig{APIKey: "test-key", Model: "gpt-test", BaseURL: srv.URL + "/"})
	text, err := g.Generate(context.Background(), "system", "find jobs")
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Go Dev"}`, text)

	searching := NewOpenAIGenerator(ProviderConfig{APIKey: "test-key", BaseURL: srv.URL + "/"})
	_, err = searching.Generate(context.Background(), "system", "find jobs")
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.NotContains(t, bodies[0], "web_search_options")
	assert.Contains(t, bodies[1], `"web_search_options"`)
	assert.Contains(t, bodies[1], defaultOpenAIModel)
}
