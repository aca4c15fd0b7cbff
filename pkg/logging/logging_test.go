package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/account_service/pkg/reqctx"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestNew_AddsRequestIDFromContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info").With("svc", "auth.login")

	ctx := reqctx.With(context.Background(), "rid-42")
	l.InfoContext(ctx, "login_successful")
	l.InfoContext(context.Background(), "no_request")
	l.DebugContext(ctx, "hidden")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "rid-42", lines[0]["request_id"])
	assert.Equal(t, "auth.login", lines[0]["svc"])
	assert.NotContains(t, lines[1], "request_id")
}

func TestRequestIDSurvivesDetachedContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info")
	ctx, cancel := context.WithCancel(reqctx.With(context.Background(), "rid-async"))
	detached := context.WithoutCancel(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.InfoContext(detached, "event_published")
	}()
	<-done

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "rid-async", lines[0]["request_id"])
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	t.Parallel()

	assert.Same(t, slog.Default(), FromContext(context.Background()))

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.Same(t, l, FromContext(IntoContext(context.Background(), l)))
}

type captureTransport struct {
	mu   sync.Mutex
	docs []map[string]any
	hit  chan struct{}
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		var doc map[string]any
		if err := json.NewDecoder(req.Body).Decode(&doc); err == nil {
			c.mu.Lock()
			c.docs = append(c.docs, doc)
			c.mu.Unlock()
		}
	}
	select {
	case c.hit <- struct{}{}:
	default:
	}
	h := http.Header{}
	h.Set("X-Elastic-Product", "Elasticsearch")
	h.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: http.StatusCreated,
		Header:     h,
		Body:       io.NopCloser(bytes.NewBufferString(`{"result":"created"}`)),
		Request:    req,
	}, nil
}

func TestElasticHandler_ShipsWarnAndAbove(t *testing.T) {
	t.Parallel()

	tr := &captureTransport{hit: make(chan struct{}, 8)}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://es.invalid:9200"},
		Transport: tr,
	})
	require.NoError(t, err)

	eh := NewElasticHandler(client, "account-logs", slog.LevelWarn)
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", eh).With("handler", "auth_login")

	ctx := reqctx.With(context.Background(), "rid-es")
	l.InfoContext(ctx, "login_successful")
	l.WarnContext(ctx, "login_failed", "status", 401, "error", errors.New("bad password"))

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, eh.Close(closeCtx))

	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Len(t, tr.docs, 1)
	doc := tr.docs[0]
	assert.Equal(t, "login_failed", doc["message"])
	assert.Equal(t, "WARN", doc["level"])
	assert.Equal(t, "rid-es", doc["request_id"])
	assert.Equal(t, "auth_login", doc["handler"])
	assert.Equal(t, "bad password", doc["error"])

	assert.Len(t, decodeLines(t, &buf), 2)
}
