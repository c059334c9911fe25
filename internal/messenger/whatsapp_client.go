package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vastra-munim/internal/config"
)

// WhatsAppClient implements Sender against the WhatsApp Cloud API
type WhatsAppClient struct {
	cfg        *config.WhatsAppConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWhatsAppClient creates a new WhatsApp Cloud API client
func NewWhatsAppClient(logger *slog.Logger, cfg *config.WhatsAppConfig) *WhatsAppClient {
	return &WhatsAppClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// SendText sends a plain text message
func (c *WhatsAppClient) SendText(ctx context.Context, recipient, text string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                recipient,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	return c.post(ctx, payload, recipient)
}

// SendButtons sends an interactive message with up to three quick-reply
// buttons (the provider's limit)
func (c *WhatsAppClient) SendButtons(ctx context.Context, recipient, text string, buttons []Button) error {
	if len(buttons) > 3 {
		buttons = buttons[:3]
	}

	wireButtons := make([]map[string]interface{}, 0, len(buttons))
	for _, b := range buttons {
		wireButtons = append(wireButtons, map[string]interface{}{
			"type": "reply",
			"reply": map[string]string{
				"id":    b.Payload,
				"title": b.Title,
			},
		})
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                recipient,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type":   "button",
			"body":   map[string]string{"text": text},
			"action": map[string]interface{}{"buttons": wireButtons},
		},
	}
	return c.post(ctx, payload, recipient)
}

// DownloadMedia resolves a media id to its URL, then fetches the bytes
func (c *WhatsAppClient) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	metaURL := fmt.Sprintf("%s/%s", c.cfg.BaseURL, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create media metadata request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get media metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media metadata request returned status %d", resp.StatusCode)
	}

	var meta struct {
		URL      string `json:"url"`
		MimeType string `json:"mime_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, "", fmt.Errorf("failed to decode media metadata: %w", err)
	}

	mediaReq, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create media download request: %w", err)
	}
	mediaReq.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	mediaResp, err := c.httpClient.Do(mediaReq)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download media: %w", err)
	}
	defer mediaResp.Body.Close()

	if mediaResp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media download returned status %d", mediaResp.StatusCode)
	}

	data, err := io.ReadAll(mediaResp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media body: %w", err)
	}

	return data, meta.MimeType, nil
}

func (c *WhatsAppClient) post(ctx context.Context, payload interface{}, recipient string) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.cfg.BaseURL, c.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("WhatsApp send failed", "recipient", recipient, "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("whatsapp send returned status %d", resp.StatusCode)
	}

	c.logger.Debug("Sent WhatsApp message", "recipient", recipient)
	return nil
}

// Verify interface implementation
var _ Sender = (*WhatsAppClient)(nil)
