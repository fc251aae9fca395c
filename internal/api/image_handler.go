package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/article-generation-api/internal/config"
	"github.com/article-generation-api/internal/images"
	"github.com/article-generation-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ImageHandler handles image endpoints
type ImageHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImageHandler creates a new ImageHandler
func NewImageHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImageHandler {
	return &ImageHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "image").Logger(),
	}
}

// UploadImages handles POST /v1/images
// Accepts one or more multipart files under the "files" field.
func (h *ImageHandler) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form with files is required"})
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		respondError(c, h.log, images.ErrNoFiles)
		return
	}

	maxSize := h.cfg.Images.MaxUploadSize
	uploads := make([]images.Upload, 0, len(headers))
	for _, header := range headers {
		if maxSize > 0 && header.Size > maxSize {
			respondError(c, h.log, fmt.Errorf("%s: %w (max %d bytes)", header.Filename, images.ErrFileTooLarge, maxSize))
			return
		}

		file, err := header.Open()
		if err != nil {
			h.log.Error().Err(err).Str("filename", header.Filename).Msg("Failed to open uploaded file")
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read " + header.Filename})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			h.log.Error().Err(err).Str("filename", header.Filename).Msg("Failed to read uploaded file")
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read " + header.Filename})
			return
		}

		uploads = append(uploads, images.Upload{Name: header.Filename, Data: data})
	}

	refs, err := h.services.Image.Upload(c.Request.Context(), uploads)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"images": refs,
		"count":  len(refs),
	})
}

// ListImages handles GET /v1/images
func (h *ImageHandler) ListImages(c *gin.Context) {
	refs := h.services.Image.List()
	c.JSON(http.StatusOK, gin.H{
		"images": refs,
		"count":  len(refs),
	})
}
