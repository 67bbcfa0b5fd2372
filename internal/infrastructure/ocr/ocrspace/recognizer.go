package ocrspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
	"github.com/kirillkom/vehicle-checker/internal/infrastructure/resilience"
)

const DefaultEndpoint = "https://api.ocr.space/parse/image"

const (
	exitParsed        = 1
	exitPartialParsed = 2

	fullConfidence    = 100
	partialConfidence = 50
)

type Options struct {
	Timeout  time.Duration
	Language string
	Executor *resilience.Executor
}

// Recognizer sends images to the OCR.space parse endpoint. The service does
// not score its output, so confidence is derived from the exit code.
type Recognizer struct {
	endpoint   string
	apiKey     string
	language   string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(endpoint, apiKey string, options Options) *Recognizer {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	language := options.Language
	if language == "" {
		language = "eng"
	}
	return &Recognizer{
		endpoint:   endpoint,
		apiKey:     strings.TrimSpace(apiKey),
		language:   language,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
	}
}

func (r *Recognizer) CheckConfigured() error {
	if r.apiKey == "" {
		return domain.NewError(domain.KindConfiguration, domain.MsgRecognitionNotConfigured, nil)
	}
	return nil
}

type parseResponse struct {
	ParsedResults []struct {
		ParsedText        string `json:"ParsedText"`
		FileParseExitCode int    `json:"FileParseExitCode"`
	} `json:"ParsedResults"`
	OCRExitCode           int             `json:"OCRExitCode"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

func (r *Recognizer) Recognize(ctx context.Context, img domain.Image) (domain.RecognizedText, error) {
	if err := r.CheckConfigured(); err != nil {
		return domain.RecognizedText{}, err
	}
	body, contentType, err := r.buildForm(img)
	if err != nil {
		return domain.RecognizedText{}, err
	}

	var parsed parseResponse
	call := func(ctx context.Context) error {
		parsed = parseResponse{}
		return r.post(ctx, body, contentType, &parsed)
	}
	if r.executor != nil {
		err = r.executor.Execute(ctx, "ocrspace.parse", call, resilience.ClassifyHTTP)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.RecognizedText{}, err
	}

	if parsed.IsErroredOnProcessing || (parsed.OCRExitCode != exitParsed && parsed.OCRExitCode != exitPartialParsed) {
		return domain.RecognizedText{}, fmt.Errorf("ocrspace exit code %d: %s", parsed.OCRExitCode, errorMessage(parsed.ErrorMessage))
	}

	texts := make([]string, 0, len(parsed.ParsedResults))
	for _, result := range parsed.ParsedResults {
		if text := strings.TrimSpace(result.ParsedText); text != "" {
			texts = append(texts, text)
		}
	}
	confidence := float64(fullConfidence)
	if parsed.OCRExitCode == exitPartialParsed {
		confidence = partialConfidence
	}
	return domain.RecognizedText{Text: strings.Join(texts, "\n"), Confidence: confidence}, nil
}

func (r *Recognizer) buildForm(img domain.Image) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"apikey", r.apiKey},
		{"language", r.language},
		{"OCREngine", "2"},
		{"scale", "true"},
		{"isOverlayRequired", "false"},
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", field[0], err)
		}
	}

	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="plate%s"`, extensionFor(mimeType)))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func (r *Recognizer) post(ctx context.Context, body []byte, contentType string, out *parseResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create ocrspace request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ocrspace request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &resilience.StatusError{Service: "ocrspace", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode ocrspace response: %w", err)
	}
	return nil
}

// errorMessage flattens ErrorMessage, which the service sends either as a
// string or as an array of strings.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	return string(raw)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	default:
		return ".jpg"
	}
}
