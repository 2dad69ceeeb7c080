package worker

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// InternalTokenHeader authorizes direct (trusted) trigger calls, including
// the worker's own retrigger.
const InternalTokenHeader = "X-Internal-Token"

// HTTPDispatcher continues the processing chain by POSTing the trigger
// endpoint. Dispatch returns immediately; the request runs in its own
// goroutine and only a dispatch failure is logged. A failed retrigger is
// recovered by the fallback sweep, not retried here.
type HTTPDispatcher struct {
	url     string
	token   string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPDispatcher creates a dispatcher targeting the trigger endpoint
func NewHTTPDispatcher(url, token string, timeout time.Duration, logger *slog.Logger) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPDispatcher{
		url:     url,
		token:   token,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Dispatch implements Dispatcher
func (d *HTTPDispatcher) Dispatch() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, nil)
		if err != nil {
			d.logger.Warn("Failed to build retrigger request",
				slog.Any("error", err),
			)
			return
		}
		req.Header.Set(InternalTokenHeader, d.token)

		res, err := d.client.Do(req)
		if err != nil {
			d.logger.Warn("Retrigger dispatch failed",
				slog.String("url", d.url),
				slog.Any("error", err),
			)
			return
		}
		res.Body.Close()

		d.logger.Debug("Retrigger dispatched",
			slog.Int("status", res.StatusCode),
		)
	}()
}
