package asr

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/gatienc/transcribe-cli/internal/config"
	"github.com/gatienc/transcribe-cli/internal/jsonpath"
	"github.com/gatienc/transcribe-cli/internal/logging"
)

// NoTranscription is returned as text when the API answers without one.
const NoTranscription = "No transcription data returned."

const userAgent = "transcribe-cli/1.0"

// RetryExhaustedError is returned once every upload attempt has failed.
type RetryExhaustedError struct {
	Attempts   int
	MaxRetry   int
	StatusCode int
	Body       []byte
	Err        error
}

func (e *RetryExhaustedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription failed after %d attempt(s): %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("transcription failed after %d attempt(s): HTTP %d: %s", e.Attempts, e.StatusCode, formatResponse(e.Body))
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// Client performs transcription uploads.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	sleep      func(time.Duration)
}

// New creates a new transcription client. The API key must already be set.
func New(cfg config.Config, httpClient *http.Client) (*Client, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	if cfg.TranscriptionEndpoint == "" {
		return nil, fmt.Errorf("transcription endpoint is empty")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.RequestTimeout) * time.Second}
	}
	return &Client{cfg: cfg, httpClient: httpClient, sleep: time.Sleep}, nil
}

// Transcribe uploads the audio and returns extracted text and raw JSON.
func (c *Client) Transcribe(ctx context.Context, name string, audio []byte) (string, []byte, error) {
	log := logging.NewLogger(ctx).WithField("component", "upload")
	log.Infof("Sending audio to %s for transcription (model %s)...", c.cfg.TranscriptionEndpoint, c.cfg.TranscriptionModelName())

	maxRetry := c.cfg.MaxRetry
	if maxRetry < 1 {
		maxRetry = 1
	}
	delay := c.cfg.RetryBaseDelay

	for attempt := 1; ; attempt++ {
		status, body, err := c.doUpload(ctx, name, audio)
		if err == nil && status == http.StatusOK {
			log.Infof("Transcription received.")
			text, ok := jsonpath.Lookup(body, c.cfg.TEXTPath)
			if !ok {
				text = NoTranscription
			}
			return text, body, nil
		}

		if err != nil {
			log.Errorf("attempt %d failed: %v", attempt, err)
		} else {
			log.Errorf("attempt %d failed: HTTP %d", attempt, status)
			log.Errorf("Response body: %s", formatResponse(body))
		}
		if attempt >= maxRetry || ctx.Err() != nil {
			return "", body, &RetryExhaustedError{
				Attempts:   attempt,
				MaxRetry:   maxRetry,
				StatusCode: status,
				Body:       body,
				Err:        err,
			}
		}
		c.sleep(time.Duration(delay * float64(time.Second)))
		delay *= 2
	}
}

func (c *Client) doUpload(ctx context.Context, name string, audio []byte) (int, []byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(name)))
	header.Set("Content-Type", contentType(name))
	part, err := writer.CreatePart(header)
	if err != nil {
		return 0, nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return 0, nil, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.WriteField("model", c.cfg.TranscriptionModelName()); err != nil {
		return 0, nil, err
	}
	if c.cfg.Language != "" {
		if err := writer.WriteField("language", c.cfg.Language); err != nil {
			return 0, nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TranscriptionEndpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	logging.NewLogger(ctx).WithField("component", "upload").Debugf("request duration: %v", time.Since(start))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody := &bytes.Buffer{}
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return resp.StatusCode, respBody.Bytes(), fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody.Bytes(), nil
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".m4a":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	}
	return "audio/wav"
}

func formatResponse(b []byte) string {
	if len(b) == 0 {
		return "<empty>"
	}
	const maxText = 1000
	const maxBin = 256

	if utf8.Valid(b) {
		if len(b) > maxText {
			return fmt.Sprintf("%s... (truncated, total %d bytes)", b[:maxText], len(b))
		}
		return string(b)
	}
	if len(b) > maxBin {
		return fmt.Sprintf("<binary %d bytes, prefix hex: %s...>", len(b), hex.EncodeToString(b[:maxBin]))
	}
	return fmt.Sprintf("<binary %d bytes, hex: %s>", len(b), hex.EncodeToString(b))
}
