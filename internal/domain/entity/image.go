package entity

// Image is a generated picture held in memory
type Image struct {
	Data     []byte
	MIMEType string
}

// PartKind tags a response part.
type PartKind int

const (
	PartText PartKind = iota
	PartImage
)

// Part is one element of a provider response: text or inline image.
type Part struct {
	Kind  PartKind
	Text  string
	Image Image
}

// TextPart builds a textual part
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// ImagePart builds an inline image part
func ImagePart(data []byte, mimeType string) Part {
	return Part{Kind: PartImage, Image: Image{Data: data, MIMEType: mimeType}}
}

// ImageResult is the outcome of one adapter call. Exactly one of Images
// (non-empty) or Err is set.
type ImageResult struct {
	Provider string
	Images   []Image
	Err      *GenerationError
}

// OK reports whether the result is a Success
func (r ImageResult) OK() bool {
	return r.Err == nil && len(r.Images) > 0
}

// Success builds a successful result. Zero images collapse to Failure.
func Success(provider string, images []Image) ImageResult {
	if len(images) == 0 {
		return Failure(provider, ErrNoImage)
	}
	return ImageResult{Provider: provider, Images: images}
}

// Failure builds a failed result
func Failure(provider string, cause error) ImageResult {
	return ImageResult{
		Provider: provider,
		Err:      &GenerationError{Provider: provider, Cause: cause},
	}
}

// ResultFromParts normalizes a provider response. Text parts are dropped,
// image parts with data are kept in order; err short-circuits to Failure.
func ResultFromParts(provider string, parts []Part, err error) ImageResult {
	if err != nil {
		return Failure(provider, err)
	}

	var images []Image
	for _, p := range parts {
		if p.Kind != PartImage || len(p.Image.Data) == 0 {
			continue
		}
		img := p.Image
		if img.MIMEType == "" {
			img.MIMEType = "image/png"
		}
		images = append(images, img)
	}
	return Success(provider, images)
}
