package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/gatienc/transcribe-cli/internal/config"
)

type capturedRequest struct {
	Path   string
	Auth   string
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
	Msgs   []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type ChatClientSuite struct {
	suite.Suite
	server   *httptest.Server
	requests []capturedRequest
	status   int
	reply    string
}

func TestChatClientSuite(t *testing.T) {
	suite.Run(t, new(ChatClientSuite))
}

func (s *ChatClientSuite) SetupTest() {
	s.requests = nil
	s.status = http.StatusOK
	s.reply = "Bonjour"
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req capturedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		req.Path = r.URL.Path
		req.Auth = r.Header.Get("Authorization")
		s.requests = append(s.requests, req)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.status)
		if s.status != http.StatusOK {
			_, _ = w.Write([]byte(`{"object":"error","message":"invalid model","type":"invalid_request_error","code":"1500"}`))
			return
		}
		resp := map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": s.reply},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func (s *ChatClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ChatClientSuite) newClient(large bool) *Client {
	cfg := config.DefaultConfig()
	cfg.APIKey = "sk-test"
	cfg.ChatBaseURL = s.server.URL
	cfg.LargeModel = large
	c, err := New(cfg, s.server.Client())
	s.Require().NoError(err)
	return c
}

func (s *ChatClientSuite) TestNewRequiresAPIKey() {
	_, err := New(config.DefaultConfig(), nil)
	s.Require().ErrorIs(err, config.ErrMissingAPIKey)
}

func (s *ChatClientSuite) TestTranslateSendsWellFormedRequest() {
	out, err := s.newClient(false).Translate(context.Background(), "Hello world", "French")
	s.Require().NoError(err)
	s.Equal("Bonjour", out)

	s.Require().Len(s.requests, 1)
	req := s.requests[0]
	s.Equal("/chat/completions", req.Path)
	s.Equal("Bearer sk-test", req.Auth)
	s.Equal(config.DefaultChatModel, req.Model)
	s.False(req.Stream)
	s.Require().Len(req.Msgs, 1)
	s.Equal("user", req.Msgs[0].Role)
	s.Equal("Translate the following text to French:\n\nHello world", req.Msgs[0].Content)
}

func (s *ChatClientSuite) TestChangeToneUsesLargeModel() {
	s.reply = "WHERE IS MY REPORT"
	out, err := s.newClient(true).ChangeTone(context.Background(), "Could you send the report?", "Rephrase this as an angry email")
	s.Require().NoError(err)
	s.Equal("WHERE IS MY REPORT", out)

	s.Require().Len(s.requests, 1)
	req := s.requests[0]
	s.Equal(config.LargeChatModel, req.Model)
	s.Require().Len(req.Msgs, 1)
	s.Equal("Rephrase this as an angry email\n\nCould you send the report?", req.Msgs[0].Content)
}

func (s *ChatClientSuite) TestEmptyInputsNeverReachTheAPI() {
	c := s.newClient(false)
	_, err := c.Translate(context.Background(), "  ", "French")
	s.Error(err)
	_, err = c.Translate(context.Background(), "hi", "")
	s.Error(err)
	_, err = c.ChangeTone(context.Background(), "", "be nice")
	s.Error(err)
	_, err = c.ChangeTone(context.Background(), "hi", " ")
	s.Error(err)
	s.Empty(s.requests)
}

func (s *ChatClientSuite) TestAPIErrorIsReturned() {
	s.status = http.StatusBadRequest
	_, err := s.newClient(false).Translate(context.Background(), "Hello", "German")
	s.Require().Error(err)
	s.Contains(err.Error(), "translate")
	s.Len(s.requests, 1)
}

func (s *ChatClientSuite) TestPromptBuilders() {
	s.Equal("Translate the following text to Spanish:\n\nhola", TranslationPrompt("hola", "Spanish"))
	s.Equal("Be formal\n\nyo", TonePrompt("yo", "Be formal"))
}
