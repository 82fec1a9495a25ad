package googleai

import (
	"context"
	"errors"
	"strings"

	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
	"google.golang.org/genai"
)

const (
	// ContentProviderID second generation multimodal content API
	ContentProviderID = "gemini"

	DefaultContentModel = "gemini-2.0-flash-preview-image-generation"
	defaultContentLabel = "Gemini"
)

// ContentGenerator asks a multimodal model for TEXT and IMAGE output.
type ContentGenerator struct {
	client *genai.Client
	model  string
	label  string
}

// NewContentGenerator binds model (or the default) to client
func NewContentGenerator(client *genai.Client, model, label string) *ContentGenerator {
	if model == "" {
		model = DefaultContentModel
	}
	if label == "" {
		label = defaultContentLabel
	}
	return &ContentGenerator{client: client, model: model, label: label}
}

func (g *ContentGenerator) ID() string    { return ContentProviderID }
func (g *ContentGenerator) Label() string { return g.label }

// Generate issues one GenerateContent call.
func (g *ContentGenerator) Generate(ctx context.Context, prompt entity.Prompt) entity.ImageResult {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt.Text), &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return entity.Failure(ContentProviderID, describeAPIError(g.model, err))
	}

	parts, err := contentParts(resp)
	return entity.ResultFromParts(ContentProviderID, parts, err)
}

func contentParts(resp *genai.GenerateContentResponse) ([]entity.Part, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errors.New("empty response from model")
	}

	var parts []entity.Part
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				if mime := part.InlineData.MIMEType; mime == "" || strings.HasPrefix(mime, "image/") {
					parts = append(parts, entity.ImagePart(part.InlineData.Data, mime))
				}
				continue
			}
			if part.Text != "" {
				parts = append(parts, entity.TextPart(part.Text))
			}
		}
	}
	return parts, nil
}
