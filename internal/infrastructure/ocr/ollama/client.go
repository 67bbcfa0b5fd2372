package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
	"github.com/kirillkom/vehicle-checker/internal/infrastructure/resilience"
)

type Client struct {
	baseURL     string
	visionModel string
	httpClient  *http.Client
	executor    *resilience.Executor
}

func New(baseURL, visionModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		visionModel: strings.TrimSpace(visionModel),
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		executor:    executor,
	}
}

// Recognizer reads plate text with a local vision model.
type Recognizer struct {
	client *Client
}

func NewRecognizer(client *Client) *Recognizer {
	return &Recognizer{client: client}
}

func (r *Recognizer) CheckConfigured() error {
	if r.client == nil || r.client.baseURL == "" || r.client.visionModel == "" {
		return domain.NewError(domain.KindConfiguration, domain.MsgRecognitionNotConfigured, nil)
	}
	return nil
}

type visionReply struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
}

func (r *Recognizer) Recognize(ctx context.Context, img domain.Image) (domain.RecognizedText, error) {
	if err := r.CheckConfigured(); err != nil {
		return domain.RecognizedText{}, err
	}

	respText, err := r.client.generateVision(ctx, buildPlatePrompt(), img.Data)
	if err != nil {
		return domain.RecognizedText{}, err
	}

	var reply visionReply
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &reply); err != nil {
		// Model ignored the format; keep the raw text but claim nothing about it.
		return domain.RecognizedText{Text: respText, Confidence: 0}, nil
	}
	confidence := 0.0
	if reply.Confidence != nil {
		confidence = *reply.Confidence
		if confidence <= 1 {
			confidence *= 100
		}
	}
	return domain.RecognizedText{Text: strings.TrimSpace(reply.Text), Confidence: confidence}, nil
}

func (c *Client) generateVision(ctx context.Context, prompt string, image []byte) (string, error) {
	reqBody := map[string]any{
		"model":  c.visionModel,
		"prompt": prompt,
		"images": []string{base64.StdEncoding.EncodeToString(image)},
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response string `json:"response"`
	}
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, "generate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.generate", call, resilience.ClassifyHTTP)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("vision recognition: %w", err)
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
