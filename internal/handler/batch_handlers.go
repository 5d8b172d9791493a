package handler

import (
	"errors"
	"net/http"
	"strings"

	"gamecontent-server/internal/models"
	"gamecontent-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (h *ContentHandler) generateBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, bindingOrBodyError(err))
		return
	}
	contentType, err := models.ParseContentType(req.Type)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	res, err := h.batch.GenerateBatch(c.Request.Context(), service.BatchRequest{
		Type:       contentType,
		Count:      req.Count,
		BasePrompt: req.BasePrompt,
		Variations: req.Variations,
		SaveToDB:   req.SaveToDB,
		BatchID:    req.BatchID,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, batchResponse{Success: true, BatchResult: res})
}

func (h *ContentHandler) generateWorld(c *gin.Context) {
	var req worldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, bindingOrBodyError(err))
		return
	}

	res, err := h.batch.GenerateWorld(c.Request.Context(), service.WorldRequest{
		Theme:      req.Theme,
		Characters: req.Characters,
		Quests:     req.Quests,
		Enemies:    req.Enemies,
		Items:      req.Items,
		Locations:  req.Locations,
		BatchID:    req.BatchID,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, worldResponse{Success: true, WorldResult: res})
}

func (h *ContentHandler) generateVariations(c *gin.Context) {
	var req variationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, bindingOrBodyError(err))
		return
	}
	id, err := uuid.Parse(req.ContentID)
	if err != nil {
		handleServiceError(c, models.NewValidationError("contentId must be a valid UUID"))
		return
	}

	res, err := h.batch.GenerateVariations(c.Request.Context(), service.VariationRequest{
		ContentID:     id,
		Count:         req.Count,
		VariationType: strings.ToLower(req.VariationType),
		BatchID:       req.BatchID,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, variationResponse{Success: true, VariationResult: res})
}

func (h *ContentHandler) generateImages(c *gin.Context) {
	var req imageBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, bindingOrBodyError(err))
		return
	}

	res, err := h.batch.GenerateImages(c.Request.Context(), service.ImageBatchRequest{
		Prompts:  req.Prompts,
		ArtStyle: req.ArtStyle,
		Width:    req.Width,
		Height:   req.Height,
		Model:    req.Model,
		BatchID:  req.BatchID,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.logger.Info("Image batch finished",
		zap.String("batchID", res.BatchID),
		zap.Int("successful", res.Stats.Successful),
		zap.Int("failed", res.Stats.Failed),
	)
	c.JSON(http.StatusOK, batchResponse{Success: true, BatchResult: res})
}

func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}
