package backend

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ducks/llmux/core"
)

// HTTP invokes an OpenAI-compatible Chat Completions endpoint.
type HTTP struct {
	BackendName string
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Client      *http.Client
	Logger      core.Logger
}

var _ Executor = (*HTTP)(nil)

func (h *HTTP) Name() string { return h.BackendName }

func (h *HTTP) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return http.DefaultClient
}

func (h *HTTP) model() string {
	if h.Model != "" {
		return h.Model
	}
	return "gpt-4"
}

func (h *HTTP) logger() core.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return core.NoOpLogger{}
}

// IsAvailable GETs <base>/models with a 5-second timeout.
func (h *HTTP) IsAvailable() bool {
	req, err := http.NewRequest(http.MethodGet, h.BaseURL+"/models", nil)
	if err != nil {
		return false
	}
	if h.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.APIKey)
	}
	probe := &http.Client{Timeout: 5 * time.Second}
	resp, err := probe.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

// Execute POSTs a Chat Completions body to <base>/chat/completions,
// with req.SystemPrompt (when present) as a leading system message.
func (h *HTTP) Execute(req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = h.Timeout
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	var messages []chatMessage
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{Model: h.model(), Messages: messages})
	if err != nil {
		return nil, newError(core.KindConfig, "marshaling request: %v", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, h.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, newError(core.KindConfig, "building request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.APIKey)
	}

	client := h.client()
	if client.Timeout == 0 {
		client = &http.Client{Timeout: timeout, Transport: client.Transport}
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		h.logger().Error("http backend call failed", map[string]interface{}{
			"backend": h.BackendName, "url": h.BaseURL, "error": err.Error(),
		})
		return nil, newError(core.KindNetwork, "calling %s: %v", h.BaseURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(core.KindNetwork, "reading response: %v", err)
	}
	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		h.logger().Warn("http backend returned non-200", map[string]interface{}{
			"backend": h.BackendName, "status": resp.StatusCode,
		})
		return nil, h.statusError(resp.StatusCode, respBody)
	}
	h.logger().Debug("http backend call completed", map[string]interface{}{
		"backend": h.BackendName, "duration": duration.String(),
	})

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, newError(core.KindParse, "parsing response: %v", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, newError(core.KindParse, "no choices in response")
	}

	out := &Response{
		Text:     parsed.Choices[0].Message.Content,
		Backend:  h.BackendName,
		Model:    parsed.Model,
		Duration: duration,
	}
	if parsed.Usage != nil {
		out.Usage = TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}
	return out, nil
}

// statusError maps an HTTP status code to the taxonomy in spec §4.F,
// parsing a 429 body's retry_after seconds when present.
func (h *HTTP) statusError(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return newError(core.KindAuth, "status %d: %s", status, body)

	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return newError(core.KindTimeout, "status %d: %s", status, body)

	case status == http.StatusTooManyRequests:
		err := newError(core.KindRateLimit, "status %d: %s", status, body)
		if d, ok := parseRetryAfter(body); ok {
			err.HasRetryAfter = true
			err.RetryAfter = d
		}
		return err

	case status >= 500:
		return newError(core.KindNetwork, "status %d: %s", status, body)

	default:
		return newError(core.KindConfig, "status %d: %s", status, body)
	}
}

func parseRetryAfter(body []byte) (time.Duration, bool) {
	var parsed struct {
		RetryAfter json.Number `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.RetryAfter == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(parsed.RetryAfter.String(), 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}
