package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/article-generation-api/internal/models"
	"github.com/article-generation-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ArticleHandler handles article endpoints
type ArticleHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(services *service.Services, log zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		services: services,
		log:      log.With().Str("handler", "article").Logger(),
	}
}

// ListArticles handles GET /v1/articles
// ?published=true restricts the list to published articles
func (h *ArticleHandler) ListArticles(c *gin.Context) {
	publishedOnly := false
	if raw := c.Query("published"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "published must be true or false"})
			return
		}
		publishedOnly = v
	}

	articles := h.services.Article.List(c.Request.Context(), publishedOnly)
	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"count":    len(articles),
	})
}

// CreateArticle handles POST /v1/articles
// Responds 202 with the PROCESSING article; generation continues in the background.
func (h *ArticleHandler) CreateArticle(c *gin.Context) {
	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}

	article, err := h.services.Generation.Submit(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Header("Location", "/v1/articles/"+strconv.FormatInt(article.ID, 10))
	c.JSON(http.StatusAccepted, article)
}

// GetArticle handles GET /v1/articles/:id
func (h *ArticleHandler) GetArticle(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	article, err := h.services.Article.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// UpdateArticle handles PUT /v1/articles/:id
func (h *ArticleHandler) UpdateArticle(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	var edit models.ArticleEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}

	article, err := h.services.Article.Update(c.Request.Context(), id, &edit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// DeleteArticle handles DELETE /v1/articles/:id
func (h *ArticleHandler) DeleteArticle(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	if err := h.services.Article.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TogglePublish handles POST /v1/articles/:id/publish
func (h *ArticleHandler) TogglePublish(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	article, err := h.services.Article.TogglePublish(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// RegenerateArticle handles POST /v1/articles/:id/regenerate
// An empty body reuses the article's previous topic, context URL and images.
func (h *ArticleHandler) RegenerateArticle(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	req := &models.GenerationRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		if !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
			return
		}
		req = nil
	}

	article, err := h.services.Generation.Regenerate(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusAccepted, article)
}

// PreviewArticle handles GET /v1/articles/:id/preview
// Returns sanitized HTML as JSON, or text/html when requested with ?format=html.
func (h *ArticleHandler) PreviewArticle(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	preview, err := h.services.Article.Preview(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if c.Query("format") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(preview.HTML))
		return
	}
	c.JSON(http.StatusOK, preview)
}
