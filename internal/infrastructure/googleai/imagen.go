package googleai

import (
	"context"
	"errors"

	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
	"google.golang.org/genai"
)

const (
	// ImagenProviderID dedicated text-to-image API
	ImagenProviderID = "imagen"

	DefaultImagenModel = "imagen-3.0-generate-002"
	defaultImagenLabel = "Imagen 3"
)

// ImagenGenerator is a batch text-to-image adapter. Every image of one
// call belongs to the same result.
type ImagenGenerator struct {
	client *genai.Client
	model  string
	count  int32
	label  string
}

// NewImagenGenerator binds model and batch size to client
func NewImagenGenerator(client *genai.Client, model string, count int, label string) *ImagenGenerator {
	if model == "" {
		model = DefaultImagenModel
	}
	if count <= 0 {
		count = 1
	}
	if label == "" {
		label = defaultImagenLabel
	}
	return &ImagenGenerator{client: client, model: model, count: int32(count), label: label}
}

func (g *ImagenGenerator) ID() string    { return ImagenProviderID }
func (g *ImagenGenerator) Label() string { return g.label }

// Generate issues one GenerateImages call.
func (g *ImagenGenerator) Generate(ctx context.Context, prompt entity.Prompt) entity.ImageResult {
	resp, err := g.client.Models.GenerateImages(ctx, g.model, prompt.Text, &genai.GenerateImagesConfig{
		NumberOfImages:   g.count,
		OutputMIMEType:   "image/png",
		IncludeRAIReason: true,
	})
	if err != nil {
		return entity.Failure(ImagenProviderID, describeAPIError(g.model, err))
	}

	parts, err := imagenParts(resp)
	return entity.ResultFromParts(ImagenProviderID, parts, err)
}

// imagenParts drops entries the safety filter emptied; their reason is
// kept as a text part.
func imagenParts(resp *genai.GenerateImagesResponse) ([]entity.Part, error) {
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, errors.New("no images returned")
	}

	var (
		parts   []entity.Part
		reasons []string
	)
	for _, gi := range resp.GeneratedImages {
		if gi == nil {
			continue
		}
		if gi.Image != nil && len(gi.Image.ImageBytes) > 0 {
			parts = append(parts, entity.ImagePart(gi.Image.ImageBytes, gi.Image.MIMEType))
			continue
		}
		if gi.RAIFilteredReason != "" {
			reasons = append(reasons, gi.RAIFilteredReason)
			parts = append(parts, entity.TextPart(gi.RAIFilteredReason))
		}
	}

	if len(parts) == len(reasons) && len(reasons) > 0 {
		return nil, errors.New("filtered by safety policy: " + reasons[0])
	}
	return parts, nil
}
