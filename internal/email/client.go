// Package email provides the transactional email delivery client.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/colorcompete/colorcompete-backend/internal/config"
	"github.com/colorcompete/colorcompete-backend/pkg/logger"
)

// Message is one outbound email. Subject and bodies are fully rendered
// before they reach this package.
type Message struct {
	To          string
	ToName      string
	Subject     string
	HTMLContent string
	TextContent string
}

// Result reports a successful delivery handoff.
type Result struct {
	MessageID string
}

// Sender delivers rendered email. Automation handlers depend on this
// interface so tests can substitute a recording fake.
type Sender interface {
	Send(ctx context.Context, msg *Message) (*Result, error)
}

// Client sends email through a Brevo-compatible transactional API.
type Client struct {
	apiURL      string
	apiKey      string
	senderEmail string
	senderName  string
	enabled     bool
	httpClient  *http.Client
	log         *logger.Logger
}

// NewClient creates a new email client.
func NewClient(cfg *config.EmailConfig, log *logger.Logger) *Client {
	return &Client{
		apiURL:      cfg.APIURL,
		apiKey:      cfg.APIKey,
		senderEmail: cfg.SenderEmail,
		senderName:  cfg.SenderName,
		enabled:     cfg.Enabled,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		log:         log,
	}
}

type sendRequest struct {
	Sender      party   `json:"sender"`
	To          []party `json:"to"`
	Subject     string  `json:"subject"`
	HTMLContent string  `json:"htmlContent"`
	TextContent string  `json:"textContent,omitempty"`
}

type party struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendResponse struct {
	MessageID string `json:"messageId"`
}

// Send delivers one message. When the client is disabled (local dev,
// tests) it logs and reports success without calling the provider.
func (c *Client) Send(ctx context.Context, msg *Message) (*Result, error) {
	if !c.enabled {
		c.log.Debug().
			Str("to", msg.To).
			Str("subject", msg.Subject).
			Msg("Email delivery is disabled, skipping send")
		return &Result{MessageID: "disabled"}, nil
	}

	payload, err := json.Marshal(&sendRequest{
		Sender:      party{Email: c.senderEmail, Name: c.senderName},
		To:          []party{{Email: msg.To, Name: msg.ToName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTMLContent,
		TextContent: msg.TextContent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("email provider returned status %d: %s", resp.StatusCode, body)
	}

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		// Provider accepted the message; a missing id is not a failure.
		parsed.MessageID = ""
	}

	c.log.Debug().
		Str("to", msg.To).
		Str("message_id", parsed.MessageID).
		Msg("Sent email")

	return &Result{MessageID: parsed.MessageID}, nil
}
