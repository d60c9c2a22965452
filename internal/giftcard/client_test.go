package giftcard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/colorcompete/colorcompete-backend/internal/config"
	"github.com/colorcompete/colorcompete-backend/pkg/logger"
)

func testClient(apiURL string, enabled bool) *Client {
	return NewClient(&config.GiftCardConfig{
		APIURL:  apiURL,
		APIKey:  "test-key",
		Enabled: enabled,
	}, logger.Nop())
}

func TestSend_PostsOrderWithReference(t *testing.T) {
	var received orderRequest
	var auth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		_ = json.NewEncoder(w).Encode(orderResponse{
			ID:        "gc-1",
			Code:      "CODE-9999",
			RedeemURL: "https://cards.example.com/redeem/CODE-9999",
		})
	}))
	defer server.Close()

	client := testClient(server.URL, true)
	card, err := client.Send(context.Background(), &Request{
		RecipientEmail: "ann@example.com",
		RecipientName:  "Ann",
		Amount:         50,
		Reference:      "drawing:pro:2026-08",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if auth != "Bearer test-key" {
		t.Errorf("Expected bearer auth header, got %q", auth)
	}
	// The reference names the order to the provider so a retried
	// request cannot produce a second card.
	if received.ExternalID != "drawing:pro:2026-08" {
		t.Errorf("Expected the caller's reference as external id, got %q", received.ExternalID)
	}
	if received.Amount != 50 || received.Currency != "USD" {
		t.Errorf("Unexpected order: %+v", received)
	}
	if card.Code != "CODE-9999" {
		t.Errorf("Expected fulfilled card code, got %q", card.Code)
	}
}

func TestSend_EmptyReferenceGetsGeneratedID(t *testing.T) {
	var received orderRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		_ = json.NewEncoder(w).Encode(orderResponse{ID: "gc-1", Code: "CODE-1"})
	}))
	defer server.Close()

	client := testClient(server.URL, true)
	if _, err := client.Send(context.Background(), &Request{RecipientEmail: "ann@example.com", Amount: 25}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if received.ExternalID == "" {
		t.Error("Expected a generated external id when no reference is given")
	}
}

func TestSend_ProviderErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"upstream outage"}`))
	}))
	defer server.Close()

	client := testClient(server.URL, true)
	_, err := client.Send(context.Background(), &Request{RecipientEmail: "ann@example.com", Amount: 25})
	if err == nil {
		t.Fatal("Expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("Expected status in error, got %v", err)
	}
}

func TestSend_DisabledReturnsSyntheticCard(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := testClient(server.URL, false)
	card, err := client.Send(context.Background(), &Request{RecipientEmail: "ann@example.com", Amount: 25})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if called {
		t.Error("Expected no provider call while disabled")
	}
	if !strings.HasPrefix(card.Code, "TEST-") {
		t.Errorf("Expected synthetic card code, got %q", card.Code)
	}
}
