// Package googleai holds adapters over the google.golang.org/genai SDK:
// the multimodal content API and the dedicated Imagen text-to-image API.
package googleai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// NewClient creates a Gemini API client shared by both adapters.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}

// describeAPIError turns quota errors into a clearer cause.
func describeAPIError(model string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED") {
		return fmt.Errorf("%s: quota exhausted: %w", model, err)
	}
	return fmt.Errorf("%s: %w", model, err)
}
