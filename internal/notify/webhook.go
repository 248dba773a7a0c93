package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	webhookTimeout    = 10 * time.Second
	webhookRetryDelay = 500 * time.Millisecond
	// Enough of the response to tell a misconfigured endpoint from a
	// flaky one, without logging whole HTML error pages.
	webhookBodySnippet = 256
)

type webhookNotifier struct {
	url     string
	headers map[string]string
	client  *http.Client
}

func NewWebhook(url string, headers map[string]string) (Notifier, error) {
	trimmedURL := strings.TrimSpace(url)
	if trimmedURL == "" {
		return nil, fmt.Errorf("config.url is required")
	}

	copyHeaders := make(map[string]string, len(headers))
	for k, v := range headers {
		copyHeaders[k] = v
	}

	return &webhookNotifier{
		url:     trimmedURL,
		headers: copyHeaders,
		client:  &http.Client{Timeout: webhookTimeout},
	}, nil
}

// Notify posts the sweep summary as JSON. Transient failures (network
// errors, 5xx) get one retry; 4xx means the endpoint is misconfigured
// and retrying would not help. Receivers that want per-machine detail
// should consume the run report instead.
func (w *webhookNotifier) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	err = w.post(ctx, body)
	if err == nil || !isTransient(err) {
		return err
	}

	select {
	case <-ctx.Done():
		return err
	case <-time.After(webhookRetryDelay):
	}
	if retryErr := w.post(ctx, body); retryErr != nil {
		return fmt.Errorf("%w (retry: %v)", err, retryErr)
	}
	return nil
}

func (w *webhookNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "offhours")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return &webhookError{transient: true, err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, webhookBodySnippet))
	err = fmt.Errorf("endpoint returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	return &webhookError{transient: resp.StatusCode >= 500, err: err}
}

type webhookError struct {
	transient bool
	err       error
}

func (e *webhookError) Error() string { return e.err.Error() }
func (e *webhookError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	we, ok := err.(*webhookError)
	return ok && we.transient
}
