package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultWebhookTimeout = 10 * time.Second
	maxErrorBodyBytes     = 1024
)

func newWebhookClient() *http.Client {
	return &http.Client{Timeout: defaultWebhookTimeout}
}

// postJSON posts payload to url and turns non-2xx replies into "{service} API error: {body}".
func postJSON(ctx context.Context, client *http.Client, url, service string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("%s API error: %s", service, string(text))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
