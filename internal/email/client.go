package email

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stepweaver/cashflow-server/internal/errors"
)

const defaultTimeout = 15 * time.Second

// APISender delivers mail through a JSON email API.
type APISender struct {
	endpoint string
	apiKey   string
	from     string
	http     *http.Client
	logger   *slog.Logger
}

// NewAPISender creates a sender targeting the given API endpoint.
func NewAPISender(endpoint, apiKey, from string, timeout time.Duration, logger *slog.Logger) *APISender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &APISender{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		http: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send implements Sender.
func (s *APISender) Send(ctx context.Context, msg Message) (string, error) {
	body, err := json.Marshal(sendRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute email request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if s.logger != nil {
			s.logger.Warn("Email provider returned unexpected status",
				"status", resp.StatusCode,
				"to", msg.To,
			)
		}
		return "", errors.Internalf("email provider returned status %d", resp.StatusCode)
	}

	var result sendResponse
	if err := json.UnmarshalRead(resp.Body, &result); err != nil {
		return "", fmt.Errorf("decode email response: %w", err)
	}

	return result.ID, nil
}

// CaptureSender records messages instead of delivering them.
// For development and tests only. Safe for concurrent sends, since the
// development server wires it in when no email endpoint is configured.
type CaptureSender struct {
	mu       sync.Mutex
	messages []Message
}

// Send implements Sender.
func (s *CaptureSender) Send(_ context.Context, msg Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return fmt.Sprintf("capture-%d", len(s.messages)), nil
}

// Captured returns a snapshot of the recorded messages.
func (s *CaptureSender) Captured() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
