package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"brand-dna-studio/internal/capability"
)

const (
	defaultTextModel  = "gemini-2.0-flash"
	defaultImageModel = "gemini-2.5-flash-image"
)

const systemInstruction = `Eres un analista de marca. Respondes únicamente con el JSON solicitado, sin texto adicional.`

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	TextModel  string
	ImageModel string
	// GenerationInterval is the minimum spacing between image requests.
	GenerationInterval time.Duration
	HTTPClient         *http.Client
	Logger             *slog.Logger
}

// Client implements the analysis, vision and image generation capabilities
// over the generateContent REST endpoint. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	textModel  string
	imageModel string
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	textModel := strings.TrimSpace(opts.TextModel)
	if textModel == "" {
		textModel = defaultTextModel
	}
	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = defaultImageModel
	}

	limit := rate.Inf
	if opts.GenerationInterval > 0 {
		limit = rate.Every(opts.GenerationInterval)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		textModel:  textModel,
		imageModel: imageModel,
		limiter:    rate.NewLimiter(limit, 1),
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

func (c *Client) Analyze(ctx context.Context, prompt string) (string, error) {
	return c.AnalyzeImages(ctx, prompt, nil)
}

func (c *Client) AnalyzeImages(ctx context.Context, prompt string, images []capability.InlineImage) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt is empty", capability.ErrCapabilityUnavailable)
	}

	parts := []part{{Text: prompt}}
	for _, img := range images {
		if len(img.Data) == 0 {
			continue
		}
		mime := img.MimeType
		if mime == "" {
			mime = http.DetectContentType(img.Data)
		}
		parts = append(parts, part{InlineData: &blob{
			Data:     base64.StdEncoding.EncodeToString(img.Data),
			MimeType: mime,
		}})
	}

	req := generateContentRequest{
		Contents:          []content{{Role: "user", Parts: parts}},
		SystemInstruction: &content{Role: "user", Parts: []part{{Text: systemInstruction}}},
		GenerationConfig:  generationConfig{Temperature: 0.4},
	}

	resp, err := c.generateContent(ctx, c.textModel, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", capability.ErrCapabilityUnavailable, err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("%w: empty response", capability.ErrCapabilityUnavailable)
	}
	return resp.Text, nil
}

// GenerateImage returns the first image of the response as raw bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is empty", capability.ErrGenerationUnavailable)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", capability.ErrGenerationUnavailable, err)
	}

	req := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: fmt.Sprintf("Generate a high quality image: %s", prompt)}}},
		},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig:        &imageConfig{AspectRatio: "1:1"},
		},
	}

	resp, err := c.generateContent(ctx, c.imageModel, req)
	if err != nil && isUnknownFieldError(err, "imageConfig") {
		c.logger.Debug("image model rejected imageConfig, retrying without it", "model", c.imageModel)
		req.GenerationConfig.ImageConfig = nil
		resp, err = c.generateContent(ctx, c.imageModel, req)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", capability.ErrGenerationUnavailable, err)
	}
	if len(resp.Images) == 0 {
		return nil, fmt.Errorf("%w: response carried no image", capability.ErrGenerationUnavailable)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Images[0].Data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %w", capability.ErrGenerationUnavailable, err)
	}
	return data, nil
}

func (c *Client) generateContent(ctx context.Context, model string, payload generateContentRequest) (response, error) {
	if c.httpClient == nil {
		return response{}, errors.New("http client is nil")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return response{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return response{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return response{}, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("gemini call", "model", model, "status", httpResp.StatusCode, "elapsed", time.Since(start).String())

	if httpResp.StatusCode >= 400 {
		return response{}, fmt.Errorf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody)))
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return response{}, fmt.Errorf("decode response: %w", err)
	}
	if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
		return response{}, fmt.Errorf("prompt blocked: %s", decoded.PromptFeedback.BlockReason)
	}

	return extractParts(decoded), nil
}

func extractParts(resp generateContentResponse) response {
	if len(resp.Candidates) == 0 {
		return response{}
	}

	var out response
	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			text.WriteString(p.Text)
		}
		if p.InlineData != nil && p.InlineData.Data != "" {
			out.Images = append(out.Images, *p.InlineData)
		}
	}
	out.Text = text.String()
	return out
}

func isUnknownFieldError(err error, field string) bool {
	message := err.Error()
	return strings.Contains(message, "Unknown name") && strings.Contains(message, field)
}
