package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/article-generation-api/internal/images"
	"github.com/article-generation-api/internal/service"
	"github.com/article-generation-api/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// respondError maps domain errors onto HTTP status codes
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var vErr *service.ValidationFailedError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": vErr.Errors})
	case errors.Is(err, store.ErrEmptyTopic):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, images.ErrNoFiles), errors.Is(err, images.ErrNotAnImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, images.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case store.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
	case errors.Is(err, store.ErrGenerationActive), store.IsInvalidTransition(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrShuttingDown):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// articleID parses the :id path parameter, writing a 400 when invalid
func articleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return id, true
}
