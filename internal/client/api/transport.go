package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/matsync/pkg/api"
)

// loggingTransport логирует исходящие запросы: метод, путь, статус, длительность.
// Заголовки (токен) и тела запросов не логируются.
type loggingTransport struct {
	next   http.RoundTripper
	logger *slog.Logger
	skip   map[string]bool
}

// newLoggingTransport оборачивает next. Запросы на пути из skipPaths не логируются.
func newLoggingTransport(next http.RoundTripper, logger *slog.Logger, skipPaths ...string) *loggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	skip := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = true
	}
	return &loggingTransport{next: next, logger: logger, skip: skip}
}

// RoundTrip implements http.RoundTripper
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.skip[req.URL.Path] {
		return t.next.RoundTrip(req)
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.logger.LogAttrs(req.Context(), slog.LevelWarn, "HTTP request failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int64("duration_ms", duration.Milliseconds()),
			slog.Any("error", err),
		)
		return nil, err
	}

	// Уровень зависит от статуса ответа
	level := slog.LevelDebug
	switch {
	case resp.StatusCode >= 500:
		level = slog.LevelError
	case resp.StatusCode >= 400:
		level = slog.LevelWarn
	}

	t.logger.LogAttrs(req.Context(), level, "HTTP request",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Int64("duration_ms", duration.Milliseconds()),
	)
	return resp, nil
}

// WithLogger logs every request except health checks to logger
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger == nil {
		return c
	}
	c.httpClient.Transport = newLoggingTransport(c.httpClient.Transport, logger, api.HealthPath)
	return c
}
