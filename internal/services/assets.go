package services

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// assetURLDelimiter splits a public display URL from the internal storage
// path. Everything after it is the path inside the private store.
const assetURLDelimiter = "/ad-assets/"

// AssetStore resolves opaque image references to bytes plus a MIME type. It
// is the only component that touches raw image bytes; everything else passes
// storage-path identifiers around.
type AssetStore struct {
	storageDir string
}

// NewAssetStore creates the store over a private on-disk bucket.
func NewAssetStore() *AssetStore {
	storageDir := os.Getenv("AD_IMAGES_DIR")
	if storageDir == "" {
		storageDir = "./data/ad_images"
	}

	// Ensure the storage directory exists
	if err := os.MkdirAll(storageDir, 0755); err != nil {
		// Log error but don't fail - will fail on actual reads/writes
		fmt.Printf("Warning: could not create ad images directory: %v\n", err)
	}

	return &AssetStore{storageDir: storageDir}
}

// Dir exposes the on-disk bucket root, for serving blobs back out.
func (s *AssetStore) Dir() string {
	return s.storageDir
}

// ResolvePath derives the internal storage path from a public display URL.
// Fails when the fixed delimiter is absent or the remainder is unusable.
func (s *AssetStore) ResolvePath(displayURL string) (string, error) {
	idx := strings.Index(displayURL, assetURLDelimiter)
	if idx < 0 {
		return "", fmt.Errorf("no storage path in %q: %w", displayURL, ErrAssetNotFound)
	}

	path := displayURL[idx+len(assetURLDelimiter):]
	if path == "" || strings.Contains(path, "..") {
		return "", fmt.Errorf("unusable storage path %q: %w", path, ErrAssetNotFound)
	}

	return path, nil
}

// Fetch downloads the bytes and content type for a storage path.
func (s *AssetStore) Fetch(path string) ([]byte, string, error) {
	data, err := os.ReadFile(filepath.Join(s.storageDir, filepath.FromSlash(path)))
	if err != nil {
		return nil, "", fmt.Errorf("read %q: %v: %w", path, err, ErrAssetNotFound)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty blob at %q: %w", path, ErrAssetNotFound)
	}

	return data, detectImageMIME(path, data), nil
}

// FetchDisplayURL resolves a display URL and fetches its bytes in one step.
func (s *AssetStore) FetchDisplayURL(displayURL string) ([]byte, string, string, error) {
	path, err := s.ResolvePath(displayURL)
	if err != nil {
		return nil, "", "", err
	}
	data, mime, err := s.Fetch(path)
	if err != nil {
		return nil, "", "", err
	}
	return data, mime, path, nil
}

// Save stores image bytes under a caller-scoped prefix and returns the
// storage path. Filenames are opaque uuids, like every stored blob here.
func (s *AssetStore) Save(userID string, data []byte, ext string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty image data")
	}

	if ext == "" {
		ext = extensionForMIME(http.DetectContentType(data))
	}

	path := userID + "/" + uuid.New().String() + ext
	fullPath := filepath.Join(s.storageDir, filepath.FromSlash(path))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create user directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	return path, nil
}

// DisplayURL builds the public display URL for a storage path.
func DisplayURL(publicBase, path string) string {
	return strings.TrimSuffix(publicBase, "/") + assetURLDelimiter + path
}

// detectImageMIME prefers the extension for the common image types and falls
// back to sniffing the bytes when the extension says nothing. Unknown types
// are reported as jpeg, which is what the model treats unknown ads as anyway.
func detectImageMIME(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}

	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return "image/jpeg"
}

func extensionForMIME(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
