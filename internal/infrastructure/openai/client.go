// Package openai is the DALL-E image adapter over the OpenAI images REST API.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
)

const (
	ProviderID = "dalle"

	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "dall-e-3"
	DefaultSize    = "1024x1024"
	defaultLabel   = "DALL-E 3"

	maxImageBytes = 20 << 20
)

// Options configures the DALL-E adapter.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Size       string
	Label      string
	HTTPClient *http.Client
}

// Client calls /v1/images/generations.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	size    string
	label   string
	http    *http.Client
}

// NewClient validates opts and fills in defaults.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai api key is empty")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Size == "" {
		opts.Size = DefaultSize
	}
	if opts.Label == "" {
		opts.Label = defaultLabel
	}
	if opts.HTTPClient == nil {
		// ctx deadline from the workflow bounds each call; this is a backstop
		opts.HTTPClient = &http.Client{Timeout: 3 * time.Minute}
	}

	return &Client{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		model:   opts.Model,
		size:    opts.Size,
		label:   opts.Label,
		http:    opts.HTTPClient,
	}, nil
}

func (c *Client) ID() string    { return ProviderID }
func (c *Client) Label() string { return c.label }

type generationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type generationResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL           string `json:"url,omitempty"`
		B64JSON       string `json:"b64_json,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Generate requests one image.
func (c *Client) Generate(ctx context.Context, prompt entity.Prompt) entity.ImageResult {
	parts, err := c.generate(ctx, prompt.Text)
	return entity.ResultFromParts(ProviderID, parts, err)
}

func (c *Client) generate(ctx context.Context, text string) ([]entity.Part, error) {
	payload, err := json.Marshal(generationRequest{
		Model:          c.model,
		Prompt:         text,
		N:              1,
		Size:           c.size,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/generations", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dalle request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, statusError(resp)
	}

	var body generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode dalle response: %w", err)
	}

	var parts []entity.Part
	for _, d := range body.Data {
		if d.RevisedPrompt != "" {
			parts = append(parts, entity.TextPart(d.RevisedPrompt))
		}
		switch {
		case d.B64JSON != "":
			data, err := base64.StdEncoding.DecodeString(d.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("failed to decode image data: %w", err)
			}
			parts = append(parts, entity.ImagePart(data, "image/png"))
		case d.URL != "":
			img, err := c.download(ctx, d.URL)
			if err != nil {
				return nil, err
			}
			parts = append(parts, entity.ImagePart(img.Data, img.MIMEType))
		}
	}
	return parts, nil
}

func (c *Client) download(ctx context.Context, url string) (entity.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return entity.Image{}, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return entity.Image{}, fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entity.Image{}, fmt.Errorf("image download failed: status=%d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return entity.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	return entity.Image{Data: data, MIMEType: resp.Header.Get("Content-Type")}, nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body errorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		return fmt.Errorf("dalle error: status=%d: %s", resp.StatusCode, body.Error.Message)
	}
	return fmt.Errorf("dalle error: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
