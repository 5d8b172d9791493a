package handler

import (
	"net/http"

	"gamecontent-server/internal/models"
	"gamecontent-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContentHandler обрабатывает HTTP запросы генерации и чтения контента.
type ContentHandler struct {
	content *service.ContentService
	batch   *service.BatchService
	ws      http.HandlerFunc
	logger  *zap.Logger
}

// NewContentHandler создает обработчик. ws может быть nil, тогда /ws не регистрируется.
func NewContentHandler(content *service.ContentService, batch *service.BatchService, ws http.HandlerFunc, logger *zap.Logger) *ContentHandler {
	registerValidators()
	return &ContentHandler{
		content: content,
		batch:   batch,
		ws:      ws,
		logger:  logger.Named("ContentHandler"),
	}
}

// RegisterRoutes регистрирует маршруты под basePath.
func (h *ContentHandler) RegisterRoutes(router gin.IRouter, basePath string) {
	api := router.Group(basePath)
	{
		api.POST("/prompt", h.generate)
		for _, t := range models.StructuredTypes {
			api.POST("/"+string(t), h.generateTyped(t))
		}
		api.POST("/image", h.generateImage)
		api.POST("/image-to-image", h.generateImageFromImage)

		api.GET("/content", h.listContent)
		api.GET("/content/:id", h.getContent)
		api.DELETE("/content/:id", h.deleteContent)
		api.GET("/stats", h.stats)
	}

	batch := api.Group("/batch")
	{
		batch.POST("/generate", h.generateBatch)
		batch.POST("/world", h.generateWorld)
		batch.POST("/variations", h.generateVariations)
		batch.POST("/images", h.generateImages)
	}

	if h.ws != nil {
		api.GET("/ws", gin.WrapF(h.ws))
	}
}

func (h *ContentHandler) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, bindingOrBodyError(err))
		return
	}
	contentType, err := models.ParseContentType(req.Type)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.runGenerate(c, req.Prompt, contentType)
}

func (h *ContentHandler) generateTyped(contentType models.ContentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req typedGenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			handleServiceError(c, bindingOrBodyError(err))
			return
		}
		h.runGenerate(c, req.Prompt, contentType)
	}
}

func (h *ContentHandler) runGenerate(c *gin.Context, prompt string, contentType models.ContentType) {
	res, err := h.content.Generate(c.Request.Context(), service.GenerateRequest{Prompt: prompt, Type: contentType})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, generateResponse(res))
}

func (h *ContentHandler) generateImage(c *gin.Context) {
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, bindingOrBodyError(err))
		return
	}
	res, err := h.content.GenerateImage(c.Request.Context(), service.ImageRequest{
		Prompt: req.Prompt,
		Width:  req.Width,
		Height: req.Height,
		Model:  req.Model,
		Seed:   req.Seed,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newImageResponse(res))
}

func (h *ContentHandler) generateImageFromImage(c *gin.Context) {
	var req imageToImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, bindingOrBodyError(err))
		return
	}
	res, err := h.content.GenerateImageFromImage(c.Request.Context(), service.ImageToImageRequest{
		Prompt:      req.Prompt,
		SourceImage: req.SourceImage,
		Width:       req.Width,
		Height:      req.Height,
		Model:       req.Model,
		Strength:    req.Strength,
		ArtStyle:    req.ArtStyle,
		Seed:        req.Seed,
		AssetType:   req.AssetType,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newImageResponse(res))
}

func newImageResponse(res *service.ImageGenerationResult) imageResponse {
	return imageResponse{
		Success:        true,
		ImageURL:       res.Image.ImageURL,
		ImageData:      res.Image,
		SavedID:        res.SavedID,
		UsedAutoPrompt: res.UsedAutoPrompt,
		EnhancedPrompt: res.EnhancedPrompt,
	}
}

func (h *ContentHandler) listContent(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handleServiceError(c, bindingError(err))
		return
	}
	filter := models.ContentFilter{Category: q.Category, Limit: q.Limit}
	if q.Type != "" {
		t, err := models.ParseContentType(q.Type)
		if err != nil {
			handleServiceError(c, err)
			return
		}
		filter.Type = t
	}

	items, err := h.content.List(c.Request.Context(), filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "content": items})
}

func (h *ContentHandler) getContent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	item, err := h.content.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "content": item})
}

func (h *ContentHandler) deleteContent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.content.Delete(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Content deleted"})
}

func (h *ContentHandler) stats(c *gin.Context) {
	res, err := h.content.Stats(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, statsResponse{Success: true, StatsResult: res})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handleServiceError(c, models.NewValidationError("invalid content id"))
		return uuid.Nil, false
	}
	return id, true
}

// bindingOrBodyError оставляет ошибку MaxBytesReader как есть, остальное - ValidationError.
func bindingOrBodyError(err error) error {
	if isBodyTooLarge(err) {
		return err
	}
	return bindingError(err)
}
