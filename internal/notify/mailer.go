package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIError is returned by Mailer.Send when the provider answers non-2xx.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mail api returned %d: %s", e.StatusCode, e.Body)
}

// Sender delivers one email. Implemented by Mailer; test doubles stand in
// for it in dispatcher tests.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Mailer posts messages to a transactional-email HTTP API with bearer
// authentication. It never retries.
type Mailer struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
}

// NewMailer creates a Mailer for the given provider endpoint.
func NewMailer(endpoint, apiKey, from string, timeout time.Duration) *Mailer {
	return &Mailer{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		client:   &http.Client{Timeout: timeout},
	}
}

type mailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send delivers one message. A non-2xx provider response is returned as
// *APIError; transport failures are returned as-is.
func (m *Mailer) Send(ctx context.Context, to, subject, html string) error {
	body, err := json.Marshal(mailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("encode mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("post mail: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Cap the echoed body so a misbehaving provider cannot flood the log.
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return nil
}
