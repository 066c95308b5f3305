package embedding

import "context"

// Provider maps text or image input to a fixed-length vector. Both modalities
// must produce the same dimensionality as the catalog's stored vectors.
type Provider interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	// EmbedImage accepts a URL or a file path resolvable by the backend.
	EmbedImage(ctx context.Context, imageRef string) ([]float32, error)
	Dimension() int
}
