// Package translate provides the translation gateway: a single opaque
// call mapping a text or page-image payload to translated text through
// an OpenAI-compatible chat completions API.
package translate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

const (
	// DefaultModel is the default chat model used for translation
	DefaultModel = "gpt-4o"
	// DefaultTimeout is the default HTTP client timeout for API calls
	DefaultTimeout = 120 * time.Second
	// MaxRetries is the maximum number of attempts for API errors
	MaxRetries = 3
	// BaseRetryDelay is the base delay between retries
	BaseRetryDelay = 2 * time.Second
	// OpenAIAPIURL is the chat completions API endpoint
	OpenAIAPIURL = "https://api.openai.com/v1/chat/completions"
)

// Gateway translates page text through an OpenAI-compatible API. The
// caller treats Translate as one opaque call; retries and error
// classification live here.
type Gateway struct {
	apiKey string
	client *http.Client
	model  string
	apiURL string
	cache  *Cache
}

// NewGateway creates a Gateway with the specified API key and defaults.
func NewGateway(apiKey string) *Gateway {
	return &Gateway{
		apiKey: apiKey,
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		model:  DefaultModel,
		apiURL: OpenAIAPIURL,
	}
}

// NewGatewayWithConfig creates a Gateway with full configuration.
func NewGatewayWithConfig(apiKey, model, apiURL string, timeout time.Duration) *Gateway {
	if model == "" {
		model = DefaultModel
	}
	if apiURL == "" {
		apiURL = OpenAIAPIURL
	} else {
		apiURL = normalizeAPIURL(apiURL)
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		apiKey: apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
		model:  model,
		apiURL: apiURL,
	}
}

// normalizeAPIURL ensures the API URL ends with /chat/completions
func normalizeAPIURL(url string) string {
	url = strings.TrimSuffix(url, "/")

	if strings.HasSuffix(url, "/chat/completions") {
		logger.Debug("API URL already complete", logger.String("url", url))
		return url
	}

	result := url + "/chat/completions"
	logger.Debug("API URL normalized", logger.String("original", url), logger.String("normalized", result))
	return result
}

// GetModel returns the model used by the gateway.
func (g *Gateway) GetModel() string {
	return g.model
}

// SetModel sets the model to use for translation.
func (g *Gateway) SetModel(model string) {
	g.model = model
}

// SetAPIURL sets the API URL (useful for testing with mock servers).
func (g *Gateway) SetAPIURL(url string) {
	g.apiURL = url
}

// SetCache attaches a translation cache. Nil disables caching.
func (g *Gateway) SetCache(cache *Cache) {
	g.cache = cache
}

// TestConnection sends a minimal request to verify credentials and
// reachability.
func (g *Gateway) TestConnection(ctx context.Context) error {
	logger.Info("testing API connection", logger.String("apiURL", g.apiURL), logger.String("model", g.model))

	if g.apiKey == "" {
		return types.NewAppError(types.ErrConfig, "API key is not configured", nil)
	}

	reqBody := ChatCompletionRequest{
		Model: g.model,
		Messages: []Message{
			{Role: "user", Content: "Reply with only the word 'ok', nothing else."},
		},
	}

	content, err := g.send(ctx, reqBody)
	if err != nil {
		return err
	}
	if !strings.Contains(strings.ToLower(strings.TrimSpace(content)), "ok") {
		return types.NewAppErrorWithDetails(types.ErrAPICall, "unexpected test response",
			fmt.Sprintf("expected 'ok', got: %s", content), nil)
	}

	logger.Info("API connection test successful")
	return nil
}

// Translate translates text into the target language. A present but
// empty API result is a valid empty translation (the page renders no
// text); only a response with the content field missing is an error.
// An empty INPUT short-circuits to an empty output without a call.
func (g *Gateway) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if g.apiKey == "" {
		return "", types.NewAppError(types.ErrConfig, "API key is not configured", nil)
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	if g.cache != nil {
		if cached, ok := g.cache.Get(text, targetLanguage, g.model); ok {
			logger.Debug("translation cache hit", logger.Int("textLength", len(text)))
			return cached, nil
		}
	}

	reqBody := ChatCompletionRequest{
		Model: g.model,
		Messages: []Message{
			{Role: "system", Content: buildSystemPrompt(targetLanguage)},
			{Role: "user", Content: text},
		},
	}

	translated, err := g.sendWithRetry(ctx, reqBody)
	if err != nil {
		return "", err
	}

	if g.cache != nil {
		g.cache.Set(text, targetLanguage, g.model, translated)
	}
	return translated, nil
}

// TranslateImage translates the text visible in a rasterized page image.
// The PNG bytes are sent as a data URL to a vision-capable model.
func (g *Gateway) TranslateImage(ctx context.Context, pngData []byte, targetLanguage string) (string, error) {
	if g.apiKey == "" {
		return "", types.NewAppError(types.ErrConfig, "API key is not configured", nil)
	}
	if len(pngData) == 0 {
		return "", types.NewAppError(types.ErrInvalidInput, "empty page image", nil)
	}

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
	reqBody := ChatCompletionRequest{
		Model: g.model,
		Messages: []Message{
			{Role: "system", Content: buildSystemPrompt(targetLanguage)},
			{Role: "user", Content: []ContentPart{
				{Type: "text", Text: "Translate all text in this page image. Keep paragraphs separated by blank lines."},
				{Type: "image_url", ImageURL: &ImageURL{URL: dataURL}},
			}},
		},
	}

	return g.sendWithRetry(ctx, reqBody)
}

// buildSystemPrompt names the target language for the model.
func buildSystemPrompt(targetLanguage string) string {
	name := LanguageName(targetLanguage)
	return fmt.Sprintf("You are a professional translator. Translate the user's text into %s. "+
		"Preserve the paragraph structure: keep paragraphs separated by blank lines. "+
		"Do not add commentary, notes, or formatting of your own. Output only the translation.", name)
}

// sendWithRetry sends a request, retrying transient failures with a
// linear backoff.
func (g *Gateway) sendWithRetry(ctx context.Context, reqBody ChatCompletionRequest) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= MaxRetries; attempt++ {
		logger.Debug("translation attempt", logger.Int("attempt", attempt))
		content, err := g.send(ctx, reqBody)
		if err == nil {
			return content, nil
		}

		lastErr = err
		logger.Warn("translation attempt failed", logger.Int("attempt", attempt), logger.Err(err))

		if !isRetryableAPIError(err) {
			logger.Error("non-retryable translation error", err)
			return "", err
		}

		if attempt < MaxRetries {
			delay := BaseRetryDelay * time.Duration(attempt)
			logger.Debug("retrying after delay", logger.String("delay", delay.String()))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", types.NewAppError(types.ErrNetwork, "translation cancelled", ctx.Err())
			}
		}
	}

	logger.Error("translation failed after all retries", lastErr, logger.Int("maxRetries", MaxRetries))
	return "", types.NewAppErrorWithDetails(
		types.ErrAPICall,
		"translation failed after multiple retries",
		fmt.Sprintf("attempted %d times", MaxRetries),
		lastErr,
	)
}

// send performs one API call and extracts the assistant message.
func (g *Gateway) send(ctx context.Context, reqBody ChatCompletionRequest) (string, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		logger.Error("failed to marshal request body", err)
		return "", types.NewAppError(types.ErrInternal, "failed to marshal request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		logger.Error("failed to create HTTP request", err)
		return "", types.NewAppError(types.ErrInternal, "failed to create HTTP request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		logger.Error("API request failed", err)
		return "", types.NewAppError(types.ErrNetwork, "API request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("failed to read API response", err)
		return "", types.NewAppError(types.ErrNetwork, "failed to read API response", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.Error("API returned error status", nil, logger.Int("statusCode", resp.StatusCode))
		return "", handleAPIHTTPError(resp.StatusCode, body)
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		logger.Error("failed to parse API response", err)
		return "", types.NewAppError(types.ErrAPICall, "failed to parse API response", err)
	}

	if chatResp.Error != nil {
		logger.Error("API returned error in response", nil, logger.String("errorMessage", chatResp.Error.Message))
		return "", types.NewAppErrorWithDetails(
			types.ErrAPICall,
			"API returned error",
			chatResp.Error.Message,
			nil,
		)
	}

	if len(chatResp.Choices) == 0 {
		logger.Error("API returned no choices", nil)
		return "", types.NewAppError(types.ErrAPICall, "API returned no choices", nil)
	}

	finishReason := chatResp.Choices[0].FinishReason
	if finishReason == "length" {
		logger.Warn("translation output was truncated due to length limit",
			logger.Int("completionTokens", chatResp.Usage.CompletionTokens))
	}

	content := chatResp.Choices[0].Message.Content
	if content == nil {
		logger.Error("API response has no message content", nil)
		return "", types.NewAppError(types.ErrAPICall, "API response has no message content", nil)
	}

	logger.Debug("API call successful",
		logger.Int("tokensUsed", chatResp.Usage.TotalTokens),
		logger.String("finishReason", finishReason))
	return *content, nil
}

// ChatCompletionRequest represents the request body for the chat
// completions API.
type ChatCompletionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// Message represents a message in the chat completion request. Content
// is a string for text messages or []ContentPart for multimodal ones.
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// ContentPart is one part of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an image payload as a URL or data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// ChatCompletionResponse represents the response from the API.
type ChatCompletionResponse struct {
	ID      string    `json:"id"`
	Object  string    `json:"object"`
	Created int64     `json:"created"`
	Model   string    `json:"model"`
	Choices []Choice  `json:"choices"`
	Usage   Usage     `json:"usage"`
	Error   *APIError `json:"error,omitempty"`
}

// Choice represents a choice in the chat completion response.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// ResponseMessage is the assistant message in a response; content is
// always a plain string there. A pointer distinguishes an absent field
// from a present empty translation.
type ResponseMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// APIError represents an error response from the API.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// handleAPIHTTPError maps HTTP error statuses to app errors.
func handleAPIHTTPError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	errorDetails := ""
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		errorDetails = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return types.NewAppErrorWithDetails(
			types.ErrAPICall,
			"API authentication failed",
			"invalid API key or unauthorized access",
			nil,
		)
	case http.StatusTooManyRequests:
		return types.NewAppErrorWithDetails(
			types.ErrAPIRateLimit,
			"API rate limit exceeded",
			errorDetails,
			nil,
		)
	case http.StatusBadRequest:
		return types.NewAppErrorWithDetails(
			types.ErrAPICall,
			"invalid API request",
			errorDetails,
			nil,
		)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return types.NewAppErrorWithDetails(
			types.ErrAPICall,
			"API server error",
			fmt.Sprintf("status %d: %s", statusCode, errorDetails),
			nil,
		)
	default:
		return types.NewAppErrorWithDetails(
			types.ErrAPICall,
			"API request failed",
			fmt.Sprintf("status %d: %s", statusCode, errorDetails),
			nil,
		)
	}
}

// isRetryableAPIError determines if an error should trigger a retry.
func isRetryableAPIError(err error) bool {
	if err == nil {
		return false
	}

	if appErr, ok := err.(*types.AppError); ok {
		switch appErr.Code {
		case types.ErrNetwork:
			return true
		case types.ErrAPIRateLimit:
			return true
		case types.ErrAPICall:
			// Retry on server errors, but not on client errors
			if strings.Contains(appErr.Details, "status 5") {
				return true
			}
			return false
		default:
			return false
		}
	}

	return false
}
