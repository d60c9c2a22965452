// Package giftcard provides the gift card fulfillment client.
package giftcard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/colorcompete/colorcompete-backend/internal/config"
	"github.com/colorcompete/colorcompete-backend/pkg/logger"
)

// Request describes one gift card order. Reference names the order to
// the provider; callers derive it from stable order identity (drawing
// period, contest) so a retried request cannot produce a second card.
type Request struct {
	RecipientEmail string
	RecipientName  string
	Amount         float64
	Message        string
	Reference      string
}

// GiftCard is the fulfilled card returned by the provider.
type GiftCard struct {
	ID        string
	Code      string
	RedeemURL string
}

// Sender fulfills gift card orders. Automation handlers depend on this
// interface so tests can substitute a recording fake.
type Sender interface {
	Send(ctx context.Context, req *Request) (*GiftCard, error)
}

// Client orders gift cards through the configured provider API.
type Client struct {
	apiURL     string
	apiKey     string
	enabled    bool
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new gift card client.
func NewClient(cfg *config.GiftCardConfig, log *logger.Logger) *Client {
	return &Client{
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		enabled:    cfg.Enabled,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		log:        log,
	}
}

type orderRequest struct {
	RecipientEmail string  `json:"recipient_email"`
	RecipientName  string  `json:"recipient_name"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Message        string  `json:"message,omitempty"`
	ExternalID     string  `json:"external_id"`
}

type orderResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	RedeemURL string `json:"redeem_url"`
}

// Send orders one gift card. When the client is disabled it returns a
// synthetic card so lower environments can exercise the drawing flow
// end to end.
func (c *Client) Send(ctx context.Context, req *Request) (*GiftCard, error) {
	if !c.enabled {
		id := uuid.NewString()
		c.log.Debug().
			Str("recipient", req.RecipientEmail).
			Float64("amount", req.Amount).
			Msg("Gift card delivery is disabled, returning synthetic card")
		return &GiftCard{ID: id, Code: "TEST-" + id[:8], RedeemURL: ""}, nil
	}

	externalID := req.Reference
	if externalID == "" {
		externalID = uuid.NewString()
	}

	payload, err := json.Marshal(&orderRequest{
		RecipientEmail: req.RecipientEmail,
		RecipientName:  req.RecipientName,
		Amount:         req.Amount,
		Currency:       "USD",
		Message:        req.Message,
		ExternalID:     externalID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gift card order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to order gift card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("gift card provider returned status %d: %s", resp.StatusCode, body)
	}

	var parsed orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode gift card response: %w", err)
	}

	c.log.Info().
		Str("recipient", req.RecipientEmail).
		Str("gift_card_id", parsed.ID).
		Float64("amount", req.Amount).
		Msg("Gift card ordered")

	return &GiftCard{ID: parsed.ID, Code: parsed.Code, RedeemURL: parsed.RedeemURL}, nil
}
