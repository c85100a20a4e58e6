package handlers

import (
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qufrids/ad-analyzer-sub000/internal/middleware"
	"github.com/qufrids/ad-analyzer-sub000/internal/services"
)

// Upload size cap. Ad creatives are a few hundred KB; 10MB leaves room for
// uncompressed PNG exports.
const maxUploadBytes = 10 << 20

var allowedUploadExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// AssetHandler accepts ad image uploads and hands back display URLs the
// pipeline endpoints accept.
type AssetHandler struct {
	assets     *services.AssetStore
	publicBase string
}

func NewAssetHandler(assets *services.AssetStore, publicBase string) *AssetHandler {
	return &AssetHandler{assets: assets, publicBase: publicBase}
}

// Upload stores a multipart image under the caller's prefix.
// POST /api/assets
func (h *AssetHandler) Upload(c *gin.Context) {
	profile, ok := middleware.ProfileFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "code": "AUTH_REQUIRED"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "An image file is required", "code": "VALIDATION"})
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image exceeds 10MB limit", "code": "TOO_LARGE"})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedUploadExts[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only jpg, png and webp images are accepted", "code": "UNSUPPORTED_TYPE"})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read upload", "code": "UPLOAD_FAILED"})
		return
	}
	if len(data) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image exceeds 10MB limit", "code": "TOO_LARGE"})
		return
	}

	path, err := h.assets.Save(profile.ID, data, ext)
	if err != nil {
		log.Printf("[API] asset save failed for %s: %v", profile.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not store image", "code": "STORAGE_FAILED"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"path":      path,
		"image_url": services.DisplayURL(h.publicBase, path),
	})
}
