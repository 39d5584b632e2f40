package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	ClaudeAPIBaseURL = "https://api.anthropic.com/v1"
	ClaudeVersion    = "2023-06-01"
	MaxTokens        = 1000
	Temperature      = 0.0 // SQL generation should be deterministic
)

// ClaudeClient implements the Client interface using Anthropic's Claude API
type ClaudeClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// Claude API request structures
type ClaudeRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Claude API response structures
type ClaudeResponse struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
	Model   string         `json:"model"`
	Usage   Usage          `json:"usage"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Error response structure
type ClaudeError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ClaudeErrorResponse struct {
	Error ClaudeError `json:"error"`
}

// NewClaudeClient creates a new Claude client
func NewClaudeClient(apiKey, model string) (*ClaudeClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}

	return &ClaudeClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: ClaudeAPIBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// GenerateSQL sends a prompt to Claude and returns a candidate SQL query
func (c *ClaudeClient) GenerateSQL(ctx context.Context, prompt string) (*Response, error) {
	request := ClaudeRequest{
		Model:       c.model,
		MaxTokens:   MaxTokens,
		Temperature: Temperature,
		Messages: []Message{
			{
				Role:    "user",
				Content: prompt,
			},
		},
	}

	response, err := c.sendClaudeRequest(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Claude: %w", err)
	}

	if len(response.Content) == 0 {
		return nil, fmt.Errorf("Claude returned an empty response")
	}

	sql := ExtractSQL(response.Content[0].Text)
	if sql == "" {
		return nil, fmt.Errorf("Claude did not return a usable SQL query")
	}

	return &Response{
		SQL:          sql,
		Model:        response.Model,
		InputTokens:  response.Usage.InputTokens,
		OutputTokens: response.Usage.OutputTokens,
	}, nil
}

// GetEmbedding returns a lightweight text embedding for similarity matching.
// Claude has no embedding endpoint, so this derives a fixed-dimension vector
// from text features. Good enough to surface similar past questions as
// prompt examples; not a substitute for a real embedding model.
func (c *ClaudeClient) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return createSimpleEmbedding(text), nil
}

// sendClaudeRequest handles the HTTP communication with Claude API
func (c *ClaudeClient) sendClaudeRequest(ctx context.Context, request ClaudeRequest) (*ClaudeResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", ClaudeVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleAPIError(resp.StatusCode, body)
	}

	var claudeResponse ClaudeResponse
	if err := json.Unmarshal(body, &claudeResponse); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &claudeResponse, nil
}

// ExtractSQL normalizes a model response into a bare SQL statement: markdown
// fences stripped, surrounding prose dropped, trailing semicolon guaranteed.
// The result is still untrusted text; the safety validator decides whether
// it runs.
func ExtractSQL(text string) string {
	sql := strings.TrimSpace(text)

	// Strip markdown code fences if present
	if strings.HasPrefix(sql, "```sql") {
		sql = sql[6:]
	} else if strings.HasPrefix(sql, "```") {
		sql = sql[3:]
	}
	if idx := strings.Index(sql, "```"); idx >= 0 {
		sql = sql[:idx]
	}
	sql = strings.TrimSpace(sql)

	// Models sometimes preface the query with prose. The statement itself
	// starts at the first SELECT, case-insensitively.
	if idx := strings.Index(strings.ToUpper(sql), "SELECT"); idx > 0 {
		sql = sql[idx:]
	}

	if sql == "" {
		return ""
	}

	if !strings.HasSuffix(sql, ";") {
		sql += ";"
	}

	return sql
}

// handleAPIError processes Claude API errors
func (c *ClaudeClient) handleAPIError(statusCode int, body []byte) error {
	var errorResponse ClaudeErrorResponse
	if err := json.Unmarshal(body, &errorResponse); err != nil {
		return fmt.Errorf("API error %d: %s", statusCode, string(body))
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("invalid API key: %s", errorResponse.Error.Message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limit exceeded: %s", errorResponse.Error.Message)
	case http.StatusBadRequest:
		return fmt.Errorf("bad request: %s", errorResponse.Error.Message)
	case http.StatusInternalServerError:
		return fmt.Errorf("Claude API internal error: %s", errorResponse.Error.Message)
	default:
		return fmt.Errorf("Claude API error %d: %s", statusCode, errorResponse.Error.Message)
	}
}

// EmbeddingDim matches the vector(...) column in the query example store
const EmbeddingDim = 256

// createSimpleEmbedding derives a fixed-dimension feature vector from text
func createSimpleEmbedding(text string) []float32 {
	embedding := make([]float32, EmbeddingDim)

	text = strings.ToLower(text)
	if len(text) == 0 {
		return embedding
	}

	// Features 0-36: character frequencies
	charCounts := make(map[rune]int)
	for _, char := range text {
		charCounts[char]++
	}
	chars := "abcdefghijklmnopqrstuvwxyz0123456789 "
	for i, char := range chars {
		if count, exists := charCounts[char]; exists {
			embedding[i] = float32(count) / float32(len(text))
		}
	}

	// Features 50+: lab domain vocabulary
	keywords := []string{
		"test", "report", "parameter", "abnormal", "normal", "lab",
		"center", "org", "organization", "patient", "age", "gender",
		"male", "female", "bill", "package", "count", "how many",
		"list", "show", "average", "sum", "min", "max", "range",
		"yesterday", "today", "week", "month", "year", "date",
		"impression", "unit", "value", "result", "top", "recent",
		"trend", "compare", "total", "per", "group", "between",
	}
	for i, keyword := range keywords {
		if i+50 < EmbeddingDim && strings.Contains(text, keyword) {
			embedding[i+50] = 1.0
		}
	}

	// Structural features
	embedding[200] = float32(len(text)) / 1000.0
	embedding[201] = float32(strings.Count(text, " ")) / float32(len(text))
	embedding[202] = float32(strings.Count(text, "?"))

	// Normalize
	var magnitude float32
	for _, val := range embedding {
		magnitude += val * val
	}
	if magnitude > 0 {
		magnitude = float32(1.0 / (magnitude + 0.001))
		for i := range embedding {
			embedding[i] *= magnitude
		}
	}

	return embedding
}
