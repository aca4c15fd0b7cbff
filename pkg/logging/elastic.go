package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
)

const elasticQueueSize = 256

type elasticSink struct {
	client *elasticsearch.Client
	index  string
	queue  chan []byte
	done   chan struct{}
	once   sync.Once
	errOut io.Writer
}

// ElasticHandler indexes records at or above its level into an Elasticsearch index.
// Records are shipped by a background worker; a full queue or an index failure is
// reported on stderr and never returned to the caller.
type ElasticHandler struct {
	sink   *elasticSink
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

func NewElasticHandler(client *elasticsearch.Client, index string, level slog.Leveler) *ElasticHandler {
	if level == nil {
		level = slog.LevelWarn
	}
	s := &elasticSink{
		client: client,
		index:  index,
		queue:  make(chan []byte, elasticQueueSize),
		done:   make(chan struct{}),
		errOut: os.Stderr,
	}
	go s.run()
	return &ElasticHandler{sink: s, level: level}
}

func (s *elasticSink) run() {
	defer close(s.done)
	for doc := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		res, err := s.client.Index(s.index, bytes.NewReader(doc), s.client.Index.WithContext(ctx))
		if err != nil {
			fmt.Fprintf(s.errOut, "elastic log sink: index failed: %v\n", err)
			cancel()
			continue
		}
		if res.IsError() {
			fmt.Fprintf(s.errOut, "elastic log sink: index failed: %s\n", res.Status())
		}
		res.Body.Close()
		cancel()
	}
}

// Close stops accepting records and waits for queued ones to be shipped.
func (h *ElasticHandler) Close(ctx context.Context) error {
	h.sink.once.Do(func() { close(h.sink.queue) })
	select {
	case <-h.sink.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *ElasticHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *ElasticHandler) Handle(_ context.Context, r slog.Record) error {
	doc := map[string]any{
		"@timestamp": r.Time.UTC().Format(time.RFC3339Nano),
		"level":      r.Level.String(),
		"message":    r.Message,
	}
	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		putAttr(doc, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		putAttr(doc, prefix, a)
		return true
	})

	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	defer func() {
		// Close raced with a late record.
		if recover() != nil {
			fmt.Fprintln(h.sink.errOut, "elastic log sink: closed, record dropped")
		}
	}()
	select {
	case h.sink.queue <- body:
	default:
		fmt.Fprintln(h.sink.errOut, "elastic log sink: queue full, record dropped")
	}
	return nil
}

func (h *ElasticHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	prefix := strings.Join(h.groups, ".")
	cp.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	cp.attrs = append(cp.attrs, h.attrs...)
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		cp.attrs = append(cp.attrs, a)
	}
	return &cp
}

func (h *ElasticHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.groups = append(append([]string{}, h.groups...), name)
	return &cp
}

func putAttr(doc map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			putAttr(doc, key, ga)
		}
		return
	}
	switch v := a.Value.Any().(type) {
	case error:
		doc[key] = v.Error()
	case time.Duration:
		doc[key] = v.String()
	default:
		doc[key] = v
	}
}
