package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/victor-igor/wacrm-backend/internal/model"
)

// Receipt is the gateway's acknowledgement of an accepted message.
type Receipt struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// WhatsAppClient talks to the WhatsApp gateway HTTP API. One client serves
// all instances; the per-instance token travels with each call.
type WhatsAppClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewWhatsAppClient(baseURL, apiKey string) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *WhatsAppClient) SendText(ctx context.Context, instanceToken, phone, body string) (*Receipt, error) {
	payload := map[string]any{
		"phone": phone,
		"body":  body,
	}
	return c.post(ctx, "/message/send-text", instanceToken, payload)
}

func (c *WhatsAppClient) SendMedia(ctx context.Context, instanceToken, phone, mediaURL, caption string, kind model.MessageType) (*Receipt, error) {
	payload := map[string]any{
		"phone":     phone,
		"media_url": mediaURL,
		"caption":   caption,
		"kind":      string(kind),
	}
	return c.post(ctx, "/message/send-media", instanceToken, payload)
}

func (c *WhatsAppClient) SendTemplate(ctx context.Context, instanceToken, phone, templateName, language string) (*Receipt, error) {
	payload := map[string]any{
		"phone":    phone,
		"template": templateName,
		"language": language,
	}
	return c.post(ctx, "/message/send-template", instanceToken, payload)
}

func (c *WhatsAppClient) post(ctx context.Context, path, instanceToken string, payload any) (*Receipt, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Instance-Token", instanceToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return nil, fmt.Errorf("gateway %s: %s", path, apiErr.Error)
		}
		return nil, fmt.Errorf("gateway %s: http status %d", path, resp.StatusCode)
	}

	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, fmt.Errorf("gateway %s: decoding receipt: %w", path, err)
	}
	return &receipt, nil
}
