package storage

import (
	"context"
	"io"
)

// Uploader stores an uploaded sofa image and returns a reference the
// multimodal embedding backend can fetch (a public URL).
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedURL string, err error)
}
