// Package chat rewrites text through the provider's chat completions endpoint.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/gatienc/transcribe-cli/internal/config"
	"github.com/gatienc/transcribe-cli/internal/logging"
)

// TranslationPrompt builds the user message for a translation request.
func TranslationPrompt(text, targetLanguage string) string {
	return fmt.Sprintf("Translate the following text to %s:\n\n%s", targetLanguage, text)
}

// TonePrompt builds the user message for a tone change request.
func TonePrompt(text, tonePrompt string) string {
	return tonePrompt + "\n\n" + text
}

// Client sends single-message chat completions to the Mistral chat endpoint.
type Client struct {
	api   openai.Client
	model string
}

// New creates a chat client for cfg. The API key must already be set.
func New(cfg config.Config, httpClient *http.Client) (*Client, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	baseURL := cfg.ChatBaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	retries := cfg.MaxRetry - 1
	if retries < 0 {
		retries = 0
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(retries),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &Client{api: openai.NewClient(opts...), model: cfg.ChatModelName()}, nil
}

// Translate translates text into targetLanguage.
func (c *Client) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("text to translate is empty")
	}
	if strings.TrimSpace(targetLanguage) == "" {
		return "", errors.New("target language is empty")
	}
	log := logging.NewLogger(ctx).WithField("component", "chat")
	log.Infof("Translating text to %s...", targetLanguage)

	out, err := c.complete(ctx, TranslationPrompt(text, targetLanguage))
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	log.Infof("Translation received.")
	return out, nil
}

// ChangeTone rephrases text following tonePrompt.
func (c *Client) ChangeTone(ctx context.Context, text, tonePrompt string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("text to rephrase is empty")
	}
	if strings.TrimSpace(tonePrompt) == "" {
		return "", errors.New("custom tone prompt is empty")
	}
	log := logging.NewLogger(ctx).WithField("component", "chat")
	log.Infof("Changing tone with custom prompt: %q...", tonePrompt)

	out, err := c.complete(ctx, TonePrompt(text, tonePrompt))
	if err != nil {
		return "", fmt.Errorf("change tone: %w", err)
	}
	log.Infof("Tone change received.")
	return out, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	log := logging.NewLogger(ctx).WithField("component", "chat")
	log.Debugf("chat_request model=%q prompt_chars=%d", c.model, len(prompt))

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			log.Errorf("API error: HTTP %d", apiErr.StatusCode)
			log.Errorf("Response body: %s", apiErr.RawJSON())
		}
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
