package service

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"gamecontent-server/internal/ai"
	"gamecontent-server/internal/messaging"
	"gamecontent-server/internal/models"
	"gamecontent-server/internal/prompts"
	"gamecontent-server/internal/repository"
	"gamecontent-server/internal/schemas"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const imageCategory = "image"

// GenerateRequest - запрос одиночной генерации текста.
type GenerateRequest struct {
	Prompt string
	Type   models.ContentType
}

// GenerateResult - результат одиночной генерации.
type GenerateResult struct {
	Type    models.ContentType
	Payload schemas.Payload
	// Content - то, что отдаётся клиенту и лежит в колонке response.
	Content any
	// Validation пустой для текстовых ответов.
	Validation *schemas.Validation
	SavedID    uuid.UUID
	Record     *models.GeneratedContent
}

// ImageRequest - запрос text-to-image.
type ImageRequest struct {
	Prompt string
	Width  int
	Height int
	Model  string
	Seed   *int64
}

// ImageToImageRequest - запрос image-to-image. Prompt можно не передавать:
// тогда он строится из AssetType и ArtStyle.
type ImageToImageRequest struct {
	Prompt      string
	SourceImage string
	Width       int
	Height      int
	Model       string
	Strength    *float64
	ArtStyle    string
	Seed        *int64
	AssetType   string
}

// ImageGenerationResult - результат генерации изображения.
type ImageGenerationResult struct {
	Image          *ai.ImageResult
	SavedID        uuid.UUID
	Record         *models.GeneratedContent
	UsedAutoPrompt bool
	EnhancedPrompt string
}

// StatsResult - агрегат по сохранённому контенту.
type StatsResult struct {
	Total      int64                  `json:"total"`
	ByCategory []models.CategoryCount `json:"byCategory"`
}

// imageDocument - содержимое колонки response для изображений.
type imageDocument struct {
	ImageURL string `json:"imageUrl"`
	*ai.ImageResult
}

// textJob описывает одну генерацию текста; используется и батчами.
type textJob struct {
	prompt      string
	contentType models.ContentType
	// category пустая - берётся из типа
	category string
	metadata map[string]any
	save     bool
}

// ContentService выполняет одиночные генерации и операции чтения.
type ContentService struct {
	text    ai.TextGenerator
	images  ai.ImageGenerator
	engine  *prompts.Engine
	catalog *prompts.Catalog
	repo    repository.ContentRepository
	events  messaging.EventPublisher
	logger  *zap.Logger
}

func NewContentService(
	text ai.TextGenerator,
	images ai.ImageGenerator,
	engine *prompts.Engine,
	catalog *prompts.Catalog,
	repo repository.ContentRepository,
	events messaging.EventPublisher,
	logger *zap.Logger,
) *ContentService {
	if events == nil {
		events = messaging.NopPublisher{}
	}
	return &ContentService{
		text:    text,
		images:  images,
		engine:  engine,
		catalog: catalog,
		repo:    repo,
		events:  events,
		logger:  logger.Named("ContentService"),
	}
}

// Generate строит промт по типу, вызывает вендора, нормализует, валидирует и сохраняет результат.
func (s *ContentService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, models.NewValidationError("prompt is required")
	}
	contentType := req.Type
	if contentType == "" {
		contentType = models.ContentTypeGeneral
	}
	if contentType.IsImage() {
		return nil, models.NewValidationError("image content is generated by the image endpoints")
	}

	return s.generateText(ctx, textJob{prompt: prompt, contentType: contentType, save: true})
}

func (s *ContentService) generateText(ctx context.Context, job textJob) (*GenerateResult, error) {
	log := s.logger.With(zap.String("contentType", string(job.contentType)))

	instruction := s.engine.Build(job.contentType, job.prompt)
	raw, err := s.text.GenerateText(ctx, instruction, job.contentType)
	if err != nil {
		return nil, err
	}

	payload := schemas.Normalize(raw, job.contentType, s.engine.Mode())
	validation := schemas.Validate(payload)
	if failure, ok := payload.(*schemas.ParseFailure); ok {
		log.Warn("Vendor response could not be parsed as JSON", zap.String("reason", failure.Reason))
	}

	result := &GenerateResult{
		Type:    job.contentType,
		Payload: payload,
		Content: schemas.Render(payload),
	}
	if _, isText := payload.(*schemas.Text); !isText {
		result.Validation = &validation
	}
	if !job.save {
		return result, nil
	}

	response, err := schemas.RenderJSON(payload)
	if err != nil {
		return nil, models.NewUnknownError("failed to encode generated content", err)
	}

	metadata := schemas.DeriveMetadata(payload)
	maps.Copy(metadata, job.metadata)
	metadata["validated"] = validation.IsValid
	metadata["outputMode"] = string(s.engine.Mode())

	record := &models.GeneratedContent{
		Prompt:   job.prompt,
		Response: response,
		Type:     job.contentType,
		Category: job.category,
		Metadata: metadata,
	}
	if err := s.save(ctx, record); err != nil {
		return nil, err
	}

	result.SavedID = record.ID
	result.Record = record
	log.Info("Content generated", zap.String("contentID", record.ID.String()), zap.Bool("valid", validation.IsValid))
	return result, nil
}

// GenerateImage создаёт изображение по тексту и сохраняет его.
func (s *ContentService) GenerateImage(ctx context.Context, req ImageRequest) (*ImageGenerationResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, models.NewValidationError("prompt is required")
	}

	image, err := s.images.GenerateImage(ctx, prompt, ai.ImageOptions{
		Width:  req.Width,
		Height: req.Height,
		Model:  req.Model,
		Seed:   req.Seed,
	})
	if err != nil {
		return nil, err
	}

	record, err := s.saveImage(ctx, prompt, models.ContentTypeImage, image, nil)
	if err != nil {
		return nil, err
	}
	return &ImageGenerationResult{Image: image, SavedID: record.ID, Record: record}, nil
}

// GenerateImageFromImage преобразует исходное изображение. При сбое вендора клиент
// сам откатывается на text-to-image и помечает результат.
func (s *ContentService) GenerateImageFromImage(ctx context.Context, req ImageToImageRequest) (*ImageGenerationResult, error) {
	if strings.TrimSpace(req.SourceImage) == "" {
		return nil, models.NewValidationError("sourceImage is required")
	}
	artStyle := req.ArtStyle
	if artStyle == "" {
		artStyle = prompts.DefaultArtStyle
	}

	prompt := strings.TrimSpace(req.Prompt)
	usedAutoPrompt := false
	if prompt == "" {
		prompt = s.catalog.AssetPrompt(req.AssetType, "", artStyle)
		usedAutoPrompt = true
	}

	image, err := s.images.GenerateImageFromImage(ctx, req.SourceImage, prompt, ai.ImageToImageOptions{
		ImageOptions: ai.ImageOptions{
			Width:  req.Width,
			Height: req.Height,
			Model:  req.Model,
			Seed:   req.Seed,
		},
		Strength: req.Strength,
		ArtStyle: artStyle,
	})
	if err != nil {
		return nil, err
	}

	extra := map[string]any{"usedAutoPrompt": usedAutoPrompt}
	if req.AssetType != "" {
		extra["assetType"] = req.AssetType
	}
	record, err := s.saveImage(ctx, prompt, models.ContentTypeImageToImage, image, extra)
	if err != nil {
		return nil, err
	}

	result := &ImageGenerationResult{Image: image, SavedID: record.ID, Record: record, UsedAutoPrompt: usedAutoPrompt}
	if usedAutoPrompt {
		result.EnhancedPrompt = image.Prompt
	}
	return result, nil
}

func (s *ContentService) saveImage(ctx context.Context, prompt string, contentType models.ContentType, image *ai.ImageResult, extra map[string]any) (*models.GeneratedContent, error) {
	response, err := json.Marshal(imageDocument{ImageURL: image.ImageURL, ImageResult: image})
	if err != nil {
		return nil, models.NewUnknownError("failed to encode generated image", err)
	}

	metadata := imageMetadata(image)
	maps.Copy(metadata, extra)
	metadata["validated"] = true

	record := &models.GeneratedContent{
		Prompt:   prompt,
		Response: response,
		Type:     contentType,
		Category: imageCategory,
		Metadata: metadata,
	}
	if err := s.save(ctx, record); err != nil {
		return nil, err
	}
	s.logger.Info("Image generated",
		zap.String("contentID", record.ID.String()),
		zap.String("model", image.Model),
		zap.String("transformationType", image.TransformationType),
	)
	return record, nil
}

func imageMetadata(image *ai.ImageResult) map[string]any {
	meta := map[string]any{
		"model":      image.Model,
		"seed":       image.Seed,
		"width":      image.Width,
		"height":     image.Height,
		"dimensions": fmt.Sprintf("%dx%d", image.Width, image.Height),
	}
	if image.ArtStyle != "" {
		meta["artStyle"] = image.ArtStyle
	}
	if image.Strength != nil {
		meta["strength"] = *image.Strength
	}
	if image.TransformationType != "" {
		meta["transformationType"] = image.TransformationType
	}
	if image.FallbackReason != "" {
		meta["fallbackReason"] = image.FallbackReason
	}
	return meta
}

// save сохраняет запись и публикует событие. Ошибка публикации не влияет на результат.
func (s *ContentService) save(ctx context.Context, record *models.GeneratedContent) error {
	record.Normalize()
	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("Failed to save generated content", zap.String("type", string(record.Type)), zap.Error(err))
		return fmt.Errorf("failed to save generated content: %w", err)
	}
	s.publish(ctx, messaging.ContentCreated, record)
	return nil
}

func (s *ContentService) publish(ctx context.Context, event messaging.ContentEventType, record *models.GeneratedContent) {
	if err := s.events.PublishContentEvent(ctx, messaging.NewContentEvent(event, record)); err != nil {
		s.logger.Warn("Failed to publish content event",
			zap.String("event", string(event)),
			zap.String("contentID", record.ID.String()),
			zap.Error(err),
		)
	}
}

// List возвращает сохранённый контент от новых к старым.
func (s *ContentService) List(ctx context.Context, filter models.ContentFilter) ([]*models.GeneratedContent, error) {
	filter.Limit = repository.ClampLimit(filter.Limit)
	return s.repo.List(ctx, filter)
}

// Get возвращает запись по id или NotFoundError.
func (s *ContentService) Get(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error) {
	return s.repo.GetByID(ctx, id)
}

// Delete удаляет запись по id. NotFoundError, если записи нет.
func (s *ContentService) Delete(ctx context.Context, id uuid.UUID) error {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, messaging.ContentDeleted, record)
	return nil
}

// Stats возвращает общее число записей и разбивку по категориям (по убыванию).
func (s *ContentService) Stats(ctx context.Context) (*StatsResult, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.repo.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsResult{Total: total, ByCategory: byCategory}, nil
}
