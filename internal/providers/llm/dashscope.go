package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const defaultGenerationURL = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"

// DashScope calls the Alibaba DashScope text-generation endpoint (qwen).
type DashScope struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type DashScopeConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewDashScope(cfg DashScopeConfig) (*DashScope, error) {
	key := os.Getenv("DASHSCOPE_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("DASHSCOPE_API_KEY is not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGenerationURL
	}
	if cfg.Model == "" {
		cfg.Model = "qwen-plus"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	return &DashScope{
		baseURL: cfg.BaseURL,
		apiKey:  key,
		model:   cfg.Model,
		client:  &http.Client{Timeout: t},
	}, nil
}

func (d *DashScope) Close() error { return nil }

type dsGenerateRequest struct {
	Model string `json:"model"`
	Input struct {
		Prompt string `json:"prompt"`
	} `json:"input"`
}

type dsGenerateResponse struct {
	Output struct {
		Text string `json:"text"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (d *DashScope) Generate(ctx context.Context, prompt string) (string, error) {
	body := dsGenerateRequest{Model: d.model}
	body.Input.Prompt = prompt

	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dashscope generation failed: %s: %s", resp.Status, payload)
	}

	var out dsGenerateResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", err
	}
	if out.Code != "" {
		return "", fmt.Errorf("dashscope generation failed: %s: %s", out.Code, out.Message)
	}
	return out.Output.Text, nil
}
