// Package notify delivers backup outcome events to HTTP webhooks.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"

	"mbackup-go/internal/mbackup"
)

const (
	requestTimeout = 10 * time.Second
	maxRetries     = 3
)

// Payload is the JSON body posted to a webhook.
type Payload struct {
	Status     string  `json:"status"`
	BackupType string  `json:"backup_type"`
	BackupDir  string  `json:"backup_dir"`
	BackupName *string `json:"backup_name"`
	Timestamp  string  `json:"timestamp"`
	Message    string  `json:"message,omitempty"`
	SizeBytes  *int64  `json:"size_bytes,omitempty"`
}

// NewPayload builds the webhook body for e.
func NewPayload(e mbackup.Event) Payload {
	p := Payload{
		Status:     "failure",
		BackupType: e.Kind.String(),
		BackupDir:  e.Directory,
		Timestamp:  e.Time.UTC().Format("2006-01-02T15:04:05.999999Z07:00"),
		Message:    e.Message,
	}
	if e.Success {
		p.Status = "success"
	}
	if e.Directory != "" {
		name := filepath.Base(e.Directory)
		p.BackupName = &name
	}
	if e.SizeBytes >= 0 {
		size := e.SizeBytes
		p.SizeBytes = &size
	}
	return p
}

// WebhookNotifier posts events to the success or failure URL. An empty URL
// disables delivery for that outcome.
type WebhookNotifier struct {
	successURL string
	failureURL string
	client     *http.Client
	logger     mbackup.Logger
	newBackOff func() backoff.BackOff
}

// NewWebhookNotifier creates a notifier using a client with a 10s timeout.
func NewWebhookNotifier(successURL, failureURL string, logger mbackup.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		successURL: successURL,
		failureURL: failureURL,
		client:     &http.Client{Timeout: requestTimeout},
		logger:     logger,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = time.Second
			bo.MaxElapsedTime = 30 * time.Second
			return backoff.WithMaxRetries(bo, maxRetries)
		},
	}
}

// Notify posts e, retrying transient failures. Client errors (4xx) are not retried.
func (n *WebhookNotifier) Notify(ctx context.Context, e mbackup.Event) error {
	url := n.failureURL
	if e.Success {
		url = n.successURL
	}
	if url == "" {
		return nil
	}

	body, err := json.Marshal(NewPayload(e))
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	attempt := 0
	op := func() error {
		attempt++
		err := n.post(ctx, url, body)
		if err != nil {
			n.logger.Debug("webhook attempt failed", "url", url, "attempt", attempt, "error", err)
		}
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(n.newBackOff(), ctx)); err != nil {
		return fmt.Errorf("sending webhook to %s: %w", url, err)
	}
	n.logger.Info("webhook sent", "url", url, "status", NewPayload(e).Status)
	return nil
}

func (n *WebhookNotifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return backoff.Permanent(fmt.Errorf("webhook rejected with status %d", resp.StatusCode))
	default:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
}

// Compile-time check that WebhookNotifier implements mbackup.Notifier interface
var _ mbackup.Notifier = (*WebhookNotifier)(nil)
