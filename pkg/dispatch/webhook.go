package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const webhookTimeout = 30 * time.Second

// WebhookDispatcher POSTs rendered messages to an external delivery relay,
// which owns the actual provider integrations (email, SMS).
type WebhookDispatcher struct {
	url     string
	headers map[string]string
	client  *http.Client
}

func NewWebhookDispatcher(config map[string]string) (Dispatcher, error) {
	url, present := config["url"]
	if !present || url == "" {
		return nil, errors.New("webhook dispatcher requires a url")
	}

	headers := make(map[string]string)
	if token := config["auth_token"]; token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	return &WebhookDispatcher{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: webhookTimeout},
	}, nil
}

func (d *WebhookDispatcher) Send(ctx context.Context, message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build relay request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range d.headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay request failed: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}

	return nil
}
