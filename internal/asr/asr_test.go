package asr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatienc/transcribe-cli/internal/config"
)

func testConfig(endpoint string) config.Config {
	cfg := config.DefaultConfig()
	cfg.APIKey = "sk-test"
	cfg.TranscriptionEndpoint = endpoint
	cfg.RetryBaseDelay = 0
	return cfg
}

func TestNewRequiresAPIKey(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := New(cfg, nil)
	require.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestTranscribeSendsMultipartRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, config.LargeTranscriptionModel, r.FormValue("model"))
		assert.Equal(t, "fr", r.FormValue("language"))

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		assert.Equal(t, "RecordTemp_abc.wav", hdr.Filename)
		assert.Equal(t, "audio/wav", hdr.Header.Get("Content-Type"))
		data, _ := io.ReadAll(f)
		assert.Equal(t, "RIFFdata", string(data))

		_, _ = w.Write([]byte(`{"model":"voxtral","text":"bonjour tout le monde"}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.LargeModel = true
	cfg.Language = "fr"

	client, err := New(cfg, server.Client())
	require.NoError(t, err)

	text, raw, err := client.Transcribe(context.Background(), "/tmp/RecordTemp_abc.wav", []byte("RIFFdata"))
	require.NoError(t, err)
	assert.Equal(t, "bonjour tout le monde", text)
	assert.Contains(t, string(raw), "bonjour")
}

func TestTranscribeWithoutTextField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"voxtral"}`))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL), server.Client())
	require.NoError(t, err)

	text, _, err := client.Transcribe(context.Background(), "a.wav", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, NoTranscription, text)
}

func TestTranscribeRetryExhaustedError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("fail"))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetry = 2

	client, err := New(cfg, &http.Client{Timeout: time.Second})
	require.NoError(t, err)
	var slept []time.Duration
	client.sleep = func(d time.Duration) { slept = append(slept, d) }

	_, _, err = client.Transcribe(context.Background(), "a.wav", []byte("test"))
	require.Error(t, err)

	var re *RetryExhaustedError
	require.True(t, errors.As(err, &re), "expected RetryExhaustedError, got %T", err)
	assert.Equal(t, cfg.MaxRetry, re.Attempts)
	assert.Equal(t, cfg.MaxRetry, re.MaxRetry)
	assert.Equal(t, http.StatusInternalServerError, re.StatusCode)
	assert.Equal(t, "fail", string(re.Body))
	assert.Equal(t, 2, calls)
	assert.Len(t, slept, 1)
}

func TestTranscribeDefaultIsSingleAttempt(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL), server.Client())
	require.NoError(t, err)

	_, _, err = client.Transcribe(context.Background(), "a.wav", []byte("test"))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestFormatResponse(t *testing.T) {
	assert.Equal(t, "<empty>", formatResponse(nil))
	assert.Equal(t, "ok", formatResponse([]byte("ok")))
	assert.Contains(t, formatResponse([]byte{0xff, 0xfe}), "<binary 2 bytes")
}
