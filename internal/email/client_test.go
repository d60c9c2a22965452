package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/colorcompete/colorcompete-backend/internal/config"
	"github.com/colorcompete/colorcompete-backend/pkg/logger"
)

func testClient(apiURL string, enabled bool) *Client {
	return NewClient(&config.EmailConfig{
		APIURL:      apiURL,
		APIKey:      "test-key",
		SenderEmail: "hello@colorcompete.test",
		SenderName:  "ColorCompete",
		Enabled:     enabled,
	}, logger.Nop())
}

func TestSend_PostsBrevoPayload(t *testing.T) {
	var received sendRequest
	var apiKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(sendResponse{MessageID: "msg-42"})
	}))
	defer server.Close()

	client := testClient(server.URL, true)
	result, err := client.Send(context.Background(), &Message{
		To:          "ann@example.com",
		ToName:      "Ann",
		Subject:     "New contest",
		HTMLContent: "<p>Hi Ann</p>",
		TextContent: "Hi Ann",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.MessageID != "msg-42" {
		t.Errorf("Expected message id msg-42, got %q", result.MessageID)
	}
	if apiKey != "test-key" {
		t.Errorf("Expected api-key header, got %q", apiKey)
	}
	if received.Sender.Email != "hello@colorcompete.test" {
		t.Errorf("Unexpected sender: %+v", received.Sender)
	}
	if len(received.To) != 1 || received.To[0].Email != "ann@example.com" {
		t.Errorf("Unexpected recipients: %+v", received.To)
	}
	if received.Subject != "New contest" {
		t.Errorf("Unexpected subject: %q", received.Subject)
	}
}

func TestSend_ProviderErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid key"}`))
	}))
	defer server.Close()

	client := testClient(server.URL, true)
	_, err := client.Send(context.Background(), &Message{To: "ann@example.com", Subject: "s"})
	if err == nil {
		t.Fatal("Expected error for non-2xx response")
	}
}

func TestSend_DisabledSkipsProvider(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := testClient(server.URL, false)
	result, err := client.Send(context.Background(), &Message{To: "ann@example.com", Subject: "s"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if called {
		t.Error("Expected no provider call while disabled")
	}
	if result.MessageID != "disabled" {
		t.Errorf("Expected synthetic message id, got %q", result.MessageID)
	}
}
