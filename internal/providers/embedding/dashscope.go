package embedding

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

const (
	defaultTextEmbeddingURL       = "https://dashscope.aliyuncs.com/api/v1/services/embeddings/text-embedding/text-embedding"
	defaultMultimodalEmbeddingURL = "https://dashscope.aliyuncs.com/api/v1/services/embeddings/multimodal-embedding/multimodal-embedding"
)

// DashScope embeds text with text-embedding-v3 (1024-d) and images with
// multimodal-embedding-v1, matching the vectors the catalog was loaded with.
type DashScope struct {
	textURL       string
	multimodalURL string
	apiKey        string
	textModel     string
	imageModel    string
	dimension     int
	client        *http.Client
}

type DashScopeConfig struct {
	TextURL       string
	MultimodalURL string
	TextModel     string
	ImageModel    string
	Dimension     int
	Timeout       time.Duration
}

func NewDashScope(cfg DashScopeConfig) (*DashScope, error) {
	key := os.Getenv("DASHSCOPE_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("DASHSCOPE_API_KEY is not set")
	}
	if cfg.TextURL == "" {
		cfg.TextURL = defaultTextEmbeddingURL
	}
	if cfg.MultimodalURL == "" {
		cfg.MultimodalURL = defaultMultimodalEmbeddingURL
	}
	if cfg.TextModel == "" {
		cfg.TextModel = "text-embedding-v3"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "multimodal-embedding-v1"
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = 1024
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &DashScope{
		textURL:       cfg.TextURL,
		multimodalURL: cfg.MultimodalURL,
		apiKey:        key,
		textModel:     cfg.TextModel,
		imageModel:    cfg.ImageModel,
		dimension:     cfg.Dimension,
		client:        &http.Client{Timeout: t},
	}, nil
}

func (d *DashScope) Dimension() int { return d.dimension }

type dsTextEmbeddingRequest struct {
	Model string `json:"model"`
	Input struct {
		Texts []string `json:"texts"`
	} `json:"input"`
}

type dsMultimodalRequest struct {
	Model string `json:"model"`
	Input struct {
		Contents []map[string]string `json:"contents"`
	} `json:"input"`
}

type dsEmbeddingResponse struct {
	Output struct {
		Embeddings []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"embeddings"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (d *DashScope) EmbedText(ctx context.Context, text string) ([]float32, error) {
	body := dsTextEmbeddingRequest{Model: d.textModel}
	body.Input.Texts = []string{text}
	return d.call(ctx, d.textURL, body)
}

func (d *DashScope) EmbedImage(ctx context.Context, imageRef string) ([]float32, error) {
	body := dsMultimodalRequest{Model: d.imageModel}
	body.Input.Contents = []map[string]string{{"image": imageRef}}
	return d.call(ctx, d.multimodalURL, body)
}

func (d *DashScope) call(ctx context.Context, url string, body any) ([]float32, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dashscope embedding failed: %s: %s", resp.Status, payload)
	}

	var out dsEmbeddingResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	if out.Code != "" {
		return nil, fmt.Errorf("dashscope embedding failed: %s: %s", out.Code, out.Message)
	}
	if len(out.Output.Embeddings) == 0 {
		return nil, fmt.Errorf("dashscope embedding returned no vectors")
	}

	vec := out.Output.Embeddings[0].Embedding
	if len(vec) != d.dimension {
		return nil, fmt.Errorf("dashscope embedding dimension mismatch: got %d, want %d", len(vec), d.dimension)
	}
	return vec, nil
}
