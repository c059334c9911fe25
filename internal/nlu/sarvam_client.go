package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"

	"github.com/vastra-munim/internal/config"
	"github.com/vastra-munim/internal/domain/shared"
)

const systemPrompt = `You are an intent classifier for a textile shop assistant.
Classify the user's message (Hindi, English or Hinglish) and extract slots.
Known intents: generate_invoice, check_inventory, check_udhaar, process_payment,
send_reminder, add_customer, add_inventory, bulk_order, low_stock_alert, unknown.
Known slots: customer_name, amount, quantity, fabric_type, color, width,
payment_method, phone.
Respond ONLY with a JSON array of hypotheses, each:
{"intent": "...", "slots": {"slot": "value"}, "confidence": 0.0-1.0}
Order by descending confidence. Amounts are rupees as plain numbers.`

// SarvamClient implements Interpreter against the Sarvam AI HTTP API
type SarvamClient struct {
	cfg        *config.NLUConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSarvamClient creates a new Sarvam NLU client
func NewSarvamClient(logger *slog.Logger, cfg *config.NLUConfig) *SarvamClient {
	return &SarvamClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Interpret classifies the utterance into ranked intent hypotheses. A single
// attempt only; callers map an error to the unrecognized path.
func (c *SarvamClient) Interpret(ctx context.Context, text string) ([]shared.Hypothesis, error) {
	reqBody := chatRequest{
		Model: c.cfg.ChatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal interpret request: %w", err)
	}

	url := c.cfg.BaseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create interpret request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call NLU provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("NLU provider returned error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("NLU provider returned status %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode NLU response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("NLU provider returned no choices")
	}

	hypotheses, err := ParseHypotheses(chatResp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Interpreted utterance", "hypotheses", len(hypotheses))
	return hypotheses, nil
}

// Transcribe converts a voice note to text via the speech-to-text endpoint
func (c *SarvamClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio")
	if err != nil {
		return "", fmt.Errorf("failed to create transcription form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write transcription audio: %w", err)
	}
	_ = writer.WriteField("model", c.cfg.TranscriptionModel)
	_ = writer.WriteField("language_code", c.cfg.LanguageCode)
	_ = mimeType // Provider sniffs the container format itself
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize transcription form: %w", err)
	}

	url := c.cfg.BaseURL + "/speech-to-text"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call transcription provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("Transcription provider returned error", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("transcription provider returned status %d", resp.StatusCode)
	}

	var transcriptResp struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&transcriptResp); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}

	return transcriptResp.Transcript, nil
}

// ParseHypotheses extracts the hypothesis array from model output. Models
// wrap JSON in markdown fences or prose often enough that we cut out the
// outermost array before decoding.
func ParseHypotheses(content string) ([]shared.Hypothesis, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("NLU response contains no hypothesis array")
	}

	var hypotheses []shared.Hypothesis
	if err := json.Unmarshal([]byte(content[start:end+1]), &hypotheses); err != nil {
		return nil, fmt.Errorf("failed to parse NLU hypotheses: %w", err)
	}

	for i := range hypotheses {
		if hypotheses[i].Confidence < 0 {
			hypotheses[i].Confidence = 0
		}
		if hypotheses[i].Confidence > 1 {
			hypotheses[i].Confidence = 1
		}
		if hypotheses[i].Slots == nil {
			hypotheses[i].Slots = map[string]string{}
		}
	}

	sort.SliceStable(hypotheses, func(i, j int) bool {
		return hypotheses[i].Confidence > hypotheses[j].Confidence
	})

	return hypotheses, nil
}

// Verify interface implementation
var _ Interpreter = (*SarvamClient)(nil)
