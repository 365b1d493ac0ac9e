package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"alcyxob/coaching-app/internal/logger"
)

// HTTPDispatcher POSTs requests to a remote worker endpoint.
type HTTPDispatcher struct {
	url        string
	token      string
	httpClient *http.Client
	log        *logger.Logger
}

func NewHTTPDispatcher(url, token string, timeout time.Duration, log *logger.Logger) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPDispatcher{
		url:        url,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With("component", "worker_http"),
	}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, r Request) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal worker request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build worker request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", r.RequestID)
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to worker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			return fmt.Errorf("worker responded %s", resp.Status)
		}
		return fmt.Errorf("worker responded %s: %s", resp.Status, msg)
	}
	d.log.Debug("job accepted by worker", "job_id", r.JobID, "request_id", r.RequestID, "status", resp.StatusCode)
	return nil
}
