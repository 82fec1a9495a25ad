package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
	"google.golang.org/api/option"
)

const (
	// ProviderID first generation multimodal content API
	ProviderID = "gemini-legacy"

	DefaultModel = "gemini-2.0-flash-exp"
	defaultLabel = "Gemini 2.0 Flash (exp)"
)

// Options configures the legacy Gemini adapter.
type Options struct {
	APIKey string
	Model  string
	Label  string
}

// Client is the image adapter over the generative-ai-go SDK.
type Client struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	label     string
}

// NewClient creates the Gemini client and binds the model
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	modelName := opts.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	model := client.GenerativeModel(modelName)
	model.SetCandidateCount(1)
	model.SetTemperature(1)

	label := opts.Label
	if label == "" {
		label = defaultLabel
	}

	return &Client{
		client:    client,
		model:     model,
		modelName: modelName,
		label:     label,
	}, nil
}

func (c *Client) ID() string    { return ProviderID }
func (c *Client) Label() string { return c.label }

// Generate sends the prompt as a single text part and keeps the image blobs.
func (c *Client) Generate(ctx context.Context, prompt entity.Prompt) entity.ImageResult {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt.Text))
	if err != nil {
		return entity.Failure(ProviderID, fmt.Errorf("%s: %w", c.modelName, err))
	}

	parts, err := extractParts(resp)
	return entity.ResultFromParts(ProviderID, parts, err)
}

// extractParts maps SDK parts onto the text|image union.
func extractParts(resp *genai.GenerateContentResponse) ([]entity.Part, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errors.New("no response candidates")
	}

	var parts []entity.Part
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch p := part.(type) {
			case genai.Text:
				parts = append(parts, entity.TextPart(string(p)))
			case genai.Blob:
				if isImageMIME(p.MIMEType) {
					parts = append(parts, entity.ImagePart(p.Data, p.MIMEType))
				}
			}
		}
	}
	return parts, nil
}

func isImageMIME(mime string) bool {
	return mime == "" || strings.HasPrefix(mime, "image/")
}

// Close releases the SDK client
func (c *Client) Close() error {
	return c.client.Close()
}
