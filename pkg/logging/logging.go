package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ctxKey struct{}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds the JSON stdout logger. Extra handlers receive every record as well,
// and all of them see the request_id taken from the record's context.
func New(level string, extra ...slog.Handler) *slog.Logger {
	return NewWithWriter(os.Stdout, level, extra...)
}

func NewWithWriter(w io.Writer, level string, extra ...slog.Handler) *slog.Logger {
	lvl := new(slog.LevelVar)
	lvl.Set(ParseLevel(level))

	var h slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	if len(extra) > 0 {
		h = Fanout(append([]slog.Handler{h}, extra...)...)
	}
	return slog.New(&ContextHandler{Handler: h})
}

func IntoContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func FromContext(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}
