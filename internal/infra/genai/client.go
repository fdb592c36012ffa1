// Package genai adapts an OpenAI-compatible completion endpoint into the
// question generation capability.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"trivia-room-service/internal/domain"
)

const systemPrompt = `You generate multiple-choice trivia questions from study material.
Respond with a JSON array only, no prose. Each element must be an object with
fields "text" (string), "options" (array of exactly 4 strings),
"correctIndex" (integer 0-3), and "explanation" (string).`

// Client calls the generation service over HTTP. Every failure mode (network,
// non-2xx, non-JSON, wrong shape) is reported as domain.ErrUpstreamFailure so
// the session service can leave room state untouched.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	model      string
}

func NewClient(url, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		apiKey:     apiKey,
		model:      model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type generatedQuestion struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// GenerateQuestions implements quizgen.Generator.
func (c *Client) GenerateQuestions(ctx context.Context, content string, count int) ([]domain.Question, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Generate %d questions from the following material:\n\n%s", count, content)},
		},
		Temperature: 0.7,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrUpstreamFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrUpstreamFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrUpstreamFailure, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstreamFailure, resp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrUpstreamFailure, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", domain.ErrUpstreamFailure)
	}

	return ParseQuestions(chat.Choices[0].Message.Content)
}

// ParseQuestions validates the model output against the prompt contract.
// Models wrap JSON in markdown fences often enough that stripping them is
// part of the contract.
func ParseQuestions(content string) ([]domain.Question, error) {
	content = stripFences(content)

	var generated []generatedQuestion
	if err := json.Unmarshal([]byte(content), &generated); err != nil {
		return nil, fmt.Errorf("%w: output is not a JSON question array: %v", domain.ErrUpstreamFailure, err)
	}
	if len(generated) == 0 {
		return nil, fmt.Errorf("%w: output contained no questions", domain.ErrUpstreamFailure)
	}

	questions := make([]domain.Question, 0, len(generated))
	for i, g := range generated {
		q, err := domain.NewQuestion(g.Text, g.Options, g.CorrectIndex, g.Explanation)
		if err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", domain.ErrUpstreamFailure, i, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
