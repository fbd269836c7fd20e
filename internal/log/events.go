package log

import (
	"context"
	"log/slog"
	"net/http"
)

// Events writes the fixed-shape records other packages emit at well-known
// points: request boundaries and committed transaction writes.
type Events struct {
	http *Logger
	tx   *Logger
}

func NewEvents(logger *Logger) *Events {
	return &Events{
		http: logger.WithComponent(ComponentHTTP),
		tx:   logger.WithComponent(ComponentTransaction),
	}
}

// RequestStarted is logged at debug so that only completions show by default.
func (e *Events) RequestStarted(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP)
	e.http.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// RequestCompleted logs at info below 400, warn for 4xx and error for 5xx.
func (e *Events) RequestCompleted(ctx context.Context, r *http.Request, status int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(status, durationMs, status < 400).
		WithClientIP(clientIP)
	e.http.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// TransactionWritten records a committed create, update or delete.
func (e *Events) TransactionWritten(ctx context.Context, op string, id, ownerID string, amount float64, categoryID string) {
	fields := NewFields().
		WithTransaction(id, ownerID, amount, categoryID).
		WithOperation(op)
	e.tx.InfoContext(ctx, "Transaction written", fields.ToSlice()...)
}
