// Package assets turns generated binary content into references a block can
// point at.
package assets

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
)

// Store persists an asset and returns the URL a block's Src should carry.
type Store interface {
	Put(ctx context.Context, mimeType string, data []byte) (string, error)
}

// DataURIStore inlines assets into the document as data: URIs.
type DataURIStore struct{}

func (DataURIStore) Put(_ context.Context, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("asset is empty")
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// objectKey names a new object under the generated/ prefix.
func objectKey(mimeType string) string {
	ext := ".bin"
	switch mimeType {
	case "image/png":
		ext = ".png"
	case "image/jpeg":
		ext = ".jpg"
	default:
		if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return "generated/" + uuid.NewString() + ext
}

func objectURL(publicURL, bucket, key string) string {
	return strings.TrimRight(publicURL, "/") + "/" + bucket + "/" + key
}
