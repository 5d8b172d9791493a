package handler

import (
	"gamecontent-server/internal/ai"
	"gamecontent-server/internal/schemas"
	"gamecontent-server/internal/service"

	"github.com/google/uuid"
)

// --- Requests ---

type generateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Type   string `json:"type" binding:"omitempty,contenttype"`
}

type typedGenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

type imageRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Width  int    `json:"width" binding:"omitempty,min=1"`
	Height int    `json:"height" binding:"omitempty,min=1"`
	Model  string `json:"model"`
	Seed   *int64 `json:"seed" binding:"omitempty,min=0"`
}

type imageToImageRequest struct {
	Prompt      string   `json:"prompt"`
	SourceImage string   `json:"sourceImage" binding:"required"`
	Width       int      `json:"width" binding:"omitempty,min=1"`
	Height      int      `json:"height" binding:"omitempty,min=1"`
	Model       string   `json:"model"`
	Strength    *float64 `json:"strength" binding:"omitempty,gte=0,lte=1"`
	ArtStyle    string   `json:"artStyle"`
	Seed        *int64   `json:"seed" binding:"omitempty,min=0"`
	AssetType   string   `json:"assetType"`
}

// Границы count проверяет сервис: лимиты настраиваются.
type batchRequest struct {
	Type       string `json:"type" binding:"required,contenttype"`
	Count      int    `json:"count"`
	BasePrompt string `json:"basePrompt" binding:"required"`
	Variations bool   `json:"variations"`
	SaveToDB   *bool  `json:"saveToDb"`
	BatchID    string `json:"batchId" binding:"omitempty,max=64"`
}

type worldRequest struct {
	Theme      string `json:"theme" binding:"required"`
	Characters int    `json:"characters" binding:"min=0"`
	Quests     int    `json:"quests" binding:"min=0"`
	Enemies    int    `json:"enemies" binding:"min=0"`
	Items      int    `json:"items" binding:"min=0"`
	Locations  int    `json:"locations" binding:"min=0"`
	BatchID    string `json:"batchId" binding:"omitempty,max=64"`
}

type variationRequest struct {
	ContentID     string `json:"contentId" binding:"required,uuid"`
	Count         int    `json:"count"`
	VariationType string `json:"variationType"`
	BatchID       string `json:"batchId" binding:"omitempty,max=64"`
}

type imageBatchRequest struct {
	Prompts  []string `json:"prompts" binding:"required"`
	ArtStyle string   `json:"artStyle"`
	Width    int      `json:"width" binding:"omitempty,min=1"`
	Height   int      `json:"height" binding:"omitempty,min=1"`
	Model    string   `json:"model"`
	BatchID  string   `json:"batchId" binding:"omitempty,max=64"`
}

type listQuery struct {
	Type     string `form:"type" binding:"omitempty,contenttype"`
	Category string `form:"category"`
	Limit    int    `form:"limit" binding:"omitempty,min=1"`
}

// --- Responses ---

type imageResponse struct {
	Success        bool            `json:"success"`
	ImageURL       string          `json:"imageUrl"`
	ImageData      *ai.ImageResult `json:"imageData"`
	SavedID        uuid.UUID       `json:"savedId"`
	UsedAutoPrompt bool            `json:"usedAutoPrompt,omitempty"`
	EnhancedPrompt string          `json:"enhancedPrompt,omitempty"`
}

type batchResponse struct {
	Success bool `json:"success"`
	*service.BatchResult
}

type worldResponse struct {
	Success bool `json:"success"`
	*service.WorldResult
}

type variationResponse struct {
	Success bool `json:"success"`
	*service.VariationResult
}

type statsResponse struct {
	Success bool `json:"success"`
	*service.StatsResult
}

// generateResponse собирается как map: ключ с контентом совпадает с типом.
func generateResponse(res *service.GenerateResult) map[string]any {
	body := map[string]any{
		"success":        true,
		"type":           res.Type,
		string(res.Type): res.Content,
		"savedId":        res.SavedID,
	}
	if res.Validation != nil {
		body["validation"] = validationView(res.Validation)
	}
	return body
}

func validationView(v *schemas.Validation) schemas.Validation {
	out := *v
	if out.Missing == nil {
		out.Missing = []string{}
	}
	return out
}
