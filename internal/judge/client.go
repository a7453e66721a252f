package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const defaultTimeout = 10 * time.Second

// Config configures the code-execution service client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ExecutionRequest is one program run against one stdin.
type ExecutionRequest struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

// ExecutionResult is what the execution service reports back.
type ExecutionResult struct {
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	CompileOutput string `json:"compile_output,omitempty"`
}

// Client talks to a Judge0-compatible execution service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewClient(cfg Config, httpClient *http.Client, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "judge_client").Logger(),
	}
}

// Execute runs the program synchronously and returns its output.
func (c *Client) Execute(ctx context.Context, reqBody ExecutionRequest) (*ExecutionResult, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal execution request: %w", err)
	}

	values := url.Values{}
	values.Set("base64_encoded", "false")
	values.Set("wait", "true")
	endpoint := fmt.Sprintf("%s/submissions?%s", c.baseURL, values.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Auth-Token", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execution service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("execution service non-2xx: %d", resp.StatusCode)
	}

	var result ExecutionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode execution result: %w", err)
	}
	c.logger.Debug().
		Int("language_id", reqBody.LanguageID).
		Dur("latency", time.Since(start)).
		Msg("execution finished")
	return &result, nil
}
