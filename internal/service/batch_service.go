package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"gamecontent-server/internal/ai"
	"gamecontent-server/internal/models"
	"gamecontent-server/internal/prompts"
	"gamecontent-server/internal/schemas"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	OperationGenerate   = "generate"
	OperationWorld      = "world"
	OperationVariations = "variations"
	OperationImages     = "images"

	batchImageMaxDimension = 512
)

// BatchLimits - статические ограничения размеров батчей.
type BatchLimits struct {
	MaxCount          int
	WorldMaxTotal     int
	VariationMaxCount int
	ImageMaxCount     int
}

func DefaultBatchLimits() BatchLimits {
	return BatchLimits{MaxCount: 20, WorldMaxTotal: 30, VariationMaxCount: 10, ImageMaxCount: 10}
}

// BatchRequest - однотипный батч.
type BatchRequest struct {
	Type       models.ContentType
	Count      int
	BasePrompt string
	// Variations включает ротацию модификаторов промта по индексу.
	Variations bool
	// SaveToDB nil означает true.
	SaveToDB *bool
	BatchID  string
}

// WorldRequest - тематический набор по пяти категориям.
type WorldRequest struct {
	Theme      string
	Characters int
	Quests     int
	Enemies    int
	Items      int
	Locations  int
	BatchID    string
}

func (r WorldRequest) total() int {
	return r.Characters + r.Quests + r.Enemies + r.Items + r.Locations
}

// VariationRequest - вариации существующей записи.
type VariationRequest struct {
	ContentID     uuid.UUID
	Count         int
	VariationType string
	BatchID       string
}

// ImageBatchRequest - набор изображений по списку промтов.
type ImageBatchRequest struct {
	Prompts  []string
	ArtStyle string
	Width    int
	Height   int
	Model    string
	BatchID  string
}

// BatchItem - элемент результата батча. Неудачный элемент остаётся на своём месте.
type BatchItem struct {
	Index         int                 `json:"index"`
	ID            *uuid.UUID          `json:"id,omitempty"`
	Type          models.ContentType  `json:"type"`
	Category      string              `json:"category,omitempty"`
	Prompt        string              `json:"prompt"`
	Content       any                 `json:"content,omitempty"`
	Validation    *schemas.Validation `json:"validation,omitempty"`
	VariationType string              `json:"variationType,omitempty"`
	ImageURL      string              `json:"imageUrl,omitempty"`
	ImageData     *ai.ImageResult     `json:"imageData,omitempty"`
	Success       bool                `json:"success"`
	Error         string              `json:"error,omitempty"`
	ErrorKind     models.ErrorKind    `json:"errorKind,omitempty"`
	GeneratedAt   *time.Time          `json:"generatedAt,omitempty"`
}

// BatchError - запись в отдельном массиве ошибок.
type BatchError struct {
	Index    int              `json:"index"`
	Error    string           `json:"error"`
	Kind     models.ErrorKind `json:"kind"`
	Type     string           `json:"type,omitempty"`
	Category string           `json:"category,omitempty"`
	Prompt   string           `json:"prompt,omitempty"`
}

// BatchStats - итоги батча. Duration и AverageTime в секундах, два знака.
type BatchStats struct {
	Total       int     `json:"total"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	Duration    float64 `json:"duration"`
	AverageTime float64 `json:"averageTime"`
}

type BatchResult struct {
	BatchID string       `json:"batchId"`
	Type    string       `json:"type"`
	Stats   BatchStats   `json:"stats"`
	Results []BatchItem  `json:"results"`
	Errors  []BatchError `json:"errors,omitempty"`
}

type WorldStats struct {
	BatchStats
	TotalPieces int            `json:"totalPieces"`
	Counts      map[string]int `json:"counts"`
}

type WorldResults struct {
	Characters []BatchItem `json:"characters"`
	Quests     []BatchItem `json:"quests"`
	Enemies    []BatchItem `json:"enemies"`
	Items      []BatchItem `json:"items"`
	Locations  []BatchItem `json:"locations"`
}

type WorldResult struct {
	BatchID string       `json:"batchId"`
	Theme   string       `json:"theme"`
	Stats   WorldStats   `json:"stats"`
	Results WorldResults `json:"results"`
	Errors  []BatchError `json:"errors,omitempty"`
}

// VariationSource - исходная запись, от которой строятся вариации.
type VariationSource struct {
	ID       uuid.UUID          `json:"id"`
	Type     models.ContentType `json:"type"`
	Prompt   string             `json:"prompt"`
	Content  json.RawMessage    `json:"content"`
	Category string             `json:"category"`
}

type VariationResult struct {
	BatchID       string          `json:"batchId"`
	VariationType string          `json:"variationType"`
	Original      VariationSource `json:"original"`
	Stats         BatchStats      `json:"stats"`
	Variations    []BatchItem     `json:"variations"`
	Errors        []BatchError    `json:"errors,omitempty"`
}

type worldCategory struct {
	name        string
	contentType models.ContentType
	count       func(WorldRequest) int
	slot        func(*WorldResults) *[]BatchItem
}

// Порядок категорий фиксирован и определяет глобальную нумерацию элементов.
var worldCategories = []worldCategory{
	{"characters", models.ContentTypeCharacter, func(r WorldRequest) int { return r.Characters }, func(w *WorldResults) *[]BatchItem { return &w.Characters }},
	{"quests", models.ContentTypeQuest, func(r WorldRequest) int { return r.Quests }, func(w *WorldResults) *[]BatchItem { return &w.Quests }},
	{"enemies", models.ContentTypeEnemy, func(r WorldRequest) int { return r.Enemies }, func(w *WorldResults) *[]BatchItem { return &w.Enemies }},
	{"items", models.ContentTypeItem, func(r WorldRequest) int { return r.Items }, func(w *WorldResults) *[]BatchItem { return &w.Items }},
	{"locations", models.ContentTypeWorld, func(r WorldRequest) int { return r.Locations }, func(w *WorldResults) *[]BatchItem { return &w.Locations }},
}

// BatchOption настраивает BatchService.
type BatchOption func(*BatchService)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) BatchOption {
	return func(s *BatchService) { s.now = now }
}

// WithProgressReporter подключает получателя событий хода батча.
func WithProgressReporter(r ProgressReporter) BatchOption {
	return func(s *BatchService) {
		if r != nil {
			s.progress = r
		}
	}
}

// BatchService выполняет батчи строго последовательно: следующий вызов вендора
// начинается только после завершения предыдущего.
type BatchService struct {
	content  *ContentService
	catalog  *prompts.Catalog
	limits   BatchLimits
	progress ProgressReporter
	now      func() time.Time
	logger   *zap.Logger
}

func NewBatchService(content *ContentService, catalog *prompts.Catalog, limits BatchLimits, logger *zap.Logger, opts ...BatchOption) *BatchService {
	s := &BatchService{
		content:  content,
		catalog:  catalog,
		limits:   limits,
		progress: nopProgressReporter{},
		now:      time.Now,
		logger:   logger.Named("BatchService"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateBatch генерирует Count элементов одного типа.
func (s *BatchService) GenerateBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	basePrompt := strings.TrimSpace(req.BasePrompt)
	if basePrompt == "" {
		return nil, models.NewValidationError("basePrompt is required")
	}
	if req.Count < 1 || req.Count > s.limits.MaxCount {
		return nil, models.NewValidationError(fmt.Sprintf("count must be between 1 and %d", s.limits.MaxCount))
	}
	contentType := req.Type
	if contentType == "" {
		return nil, models.NewValidationError("type is required")
	}
	if contentType.IsImage() {
		return nil, models.NewValidationError("use the image batch for image content")
	}
	save := req.SaveToDB == nil || *req.SaveToDB

	run := s.begin(ctx, req.BatchID, OperationGenerate, req.Count)
	results := make([]BatchItem, 0, req.Count)
	for i := range req.Count {
		prompt := basePrompt
		if req.Variations {
			prompt = s.catalog.BatchPrompt(basePrompt, string(contentType), i)
		}
		job := textJob{
			prompt:      prompt,
			contentType: contentType,
			save:        save,
			metadata: map[string]any{
				"batchGeneration": true,
				"batchId":         run.id,
				"batchIndex":      i + 1,
				"batchSize":       req.Count,
			},
		}
		item := run.text(job, i+1, "")
		results = append(results, item)
	}

	return &BatchResult{
		BatchID: run.id,
		Type:    string(contentType),
		Stats:   run.finish(),
		Results: results,
		Errors:  run.errors,
	}, nil
}

// GenerateWorld генерирует набор по категориям в фиксированном порядке.
func (s *BatchService) GenerateWorld(ctx context.Context, req WorldRequest) (*WorldResult, error) {
	theme := strings.TrimSpace(req.Theme)
	if theme == "" {
		return nil, models.NewValidationError("theme is required")
	}
	for _, cat := range worldCategories {
		if cat.count(req) < 0 {
			return nil, models.NewValidationError(fmt.Sprintf("%s must not be negative", cat.name))
		}
	}
	total := req.total()
	if total < 1 {
		return nil, models.NewValidationError("at least one piece of content must be requested")
	}
	if total > s.limits.WorldMaxTotal {
		return nil, models.NewValidationError(fmt.Sprintf("total pieces must not exceed %d", s.limits.WorldMaxTotal))
	}

	run := s.begin(ctx, req.BatchID, OperationWorld, total)
	results := WorldResults{
		Characters: []BatchItem{},
		Quests:     []BatchItem{},
		Enemies:    []BatchItem{},
		Items:      []BatchItem{},
		Locations:  []BatchItem{},
	}
	counts := make(map[string]int, len(worldCategories))

	index := 0
	for _, cat := range worldCategories {
		counts[cat.name] = 0
		slot := cat.slot(&results)
		prompt := s.catalog.WorldCategoryPrompt(cat.name, theme)
		for range cat.count(req) {
			index++
			job := textJob{
				prompt:      prompt,
				contentType: cat.contentType,
				save:        true,
				metadata: map[string]any{
					"batchGeneration": true,
					"batchId":         run.id,
					"worldTheme":      theme,
					"worldCategory":   cat.name,
				},
			}
			item := run.text(job, index, cat.name)
			if item.Success {
				counts[cat.name]++
			}
			*slot = append(*slot, item)
		}
	}

	return &WorldResult{
		BatchID: run.id,
		Theme:   theme,
		Stats: WorldStats{
			BatchStats:  run.finish(),
			TotalPieces: total,
			Counts:      counts,
		},
		Results: results,
		Errors:  run.errors,
	}, nil
}

// GenerateVariations строит вариации существующей записи. NotFoundError, если записи нет.
func (s *BatchService) GenerateVariations(ctx context.Context, req VariationRequest) (*VariationResult, error) {
	if req.ContentID == uuid.Nil {
		return nil, models.NewValidationError("contentId is required")
	}
	if req.Count < 1 || req.Count > s.limits.VariationMaxCount {
		return nil, models.NewValidationError(fmt.Sprintf("count must be between 1 and %d", s.limits.VariationMaxCount))
	}
	axis := strings.TrimSpace(req.VariationType)
	if !s.catalog.HasVariationAxis(axis) {
		axis = prompts.DefaultVariationAxis
	}

	original, err := s.content.Get(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	if original.Type.IsImage() {
		return nil, models.NewValidationError("variations are only supported for text content")
	}

	run := s.begin(ctx, req.BatchID, OperationVariations, req.Count)
	variations := make([]BatchItem, 0, req.Count)
	for i := range req.Count {
		job := textJob{
			prompt:      s.catalog.VariationPrompt(original.Prompt, axis, i),
			contentType: original.Type,
			category:    original.Category,
			save:        true,
			metadata: map[string]any{
				"batchId":        run.id,
				"isVariation":    true,
				"originalId":     original.ID.String(),
				"variationType":  axis,
				"variationIndex": i + 1,
			},
		}
		item := run.text(job, i+1, "")
		item.VariationType = axis
		variations = append(variations, item)
	}

	return &VariationResult{
		BatchID:       run.id,
		VariationType: axis,
		Original: VariationSource{
			ID:       original.ID,
			Type:     original.Type,
			Prompt:   original.Prompt,
			Content:  original.Response,
			Category: original.Category,
		},
		Stats:      run.finish(),
		Variations: variations,
		Errors:     run.errors,
	}, nil
}

// GenerateImages создаёт изображения по списку промтов.
func (s *BatchService) GenerateImages(ctx context.Context, req ImageBatchRequest) (*BatchResult, error) {
	if len(req.Prompts) < 1 || len(req.Prompts) > s.limits.ImageMaxCount {
		return nil, models.NewValidationError(fmt.Sprintf("prompts must contain between 1 and %d entries", s.limits.ImageMaxCount))
	}
	for i, p := range req.Prompts {
		if strings.TrimSpace(p) == "" {
			return nil, models.NewValidationError(fmt.Sprintf("prompt %d is empty", i+1))
		}
	}
	artStyle := req.ArtStyle
	if artStyle == "" {
		artStyle = prompts.DefaultArtStyle
	}
	opts := ai.ImageOptions{
		Width:  capDimension(req.Width),
		Height: capDimension(req.Height),
		Model:  req.Model,
	}

	run := s.begin(ctx, req.BatchID, OperationImages, len(req.Prompts))
	results := make([]BatchItem, 0, len(req.Prompts))
	for i, raw := range req.Prompts {
		prompt := strings.TrimSpace(raw)
		item := BatchItem{Index: i + 1, Type: models.ContentTypeImage, Prompt: prompt}

		if err := ctx.Err(); err != nil {
			run.fail(&item, models.NewUnknownError("request cancelled", err), "")
			results = append(results, item)
			continue
		}

		image, err := s.content.images.GenerateImage(ctx, prompt, opts)
		if err == nil {
			var record *models.GeneratedContent
			record, err = s.content.saveImage(ctx, prompt, models.ContentTypeImage, image, map[string]any{
				"batchGeneration": true,
				"batchId":         run.id,
				"batchIndex":      i + 1,
				"imageModel":      image.Model,
				"artStyle":        artStyle,
			})
			if err == nil {
				item.ID = &record.ID
				item.Category = record.Category
			}
		}
		if err != nil {
			run.fail(&item, err, "")
		} else {
			item.ImageURL = image.ImageURL
			item.ImageData = image
			run.succeed(&item)
		}
		results = append(results, item)
	}

	return &BatchResult{
		BatchID: run.id,
		Type:    string(models.ContentTypeImage),
		Stats:   run.finish(),
		Results: results,
		Errors:  run.errors,
	}, nil
}

// capDimension ограничивает размер изображений в батче.
func capDimension(v int) int {
	if v <= 0 || v > batchImageMaxDimension {
		return batchImageMaxDimension
	}
	return v
}

// batchRun накапливает статистику одного батча и рассылает прогресс.
type batchRun struct {
	s         *BatchService
	ctx       context.Context
	id        string
	operation string
	total     int
	started   time.Time
	stats     BatchStats
	errors    []BatchError
	log       *zap.Logger
}

func (s *BatchService) begin(ctx context.Context, batchID, operation string, total int) *batchRun {
	if batchID == "" {
		batchID = uuid.NewString()
	}
	run := &batchRun{
		s:         s,
		ctx:       ctx,
		id:        batchID,
		operation: operation,
		total:     total,
		started:   s.now(),
		stats:     BatchStats{Total: total},
		log:       s.logger.With(zap.String("batchID", batchID), zap.String("operation", operation)),
	}
	run.log.Info("Batch started", zap.Int("total", total))
	s.progress.ReportProgress(ctx, ProgressEvent{
		Stage:     ProgressStarted,
		BatchID:   batchID,
		Operation: operation,
		Total:     total,
	})
	return run
}

// text выполняет одну текстовую генерацию и превращает результат в элемент батча.
func (r *batchRun) text(job textJob, index int, category string) BatchItem {
	item := BatchItem{Index: index, Type: job.contentType, Category: category, Prompt: job.prompt}

	if err := r.ctx.Err(); err != nil {
		r.fail(&item, models.NewUnknownError("request cancelled", err), category)
		return item
	}

	res, err := r.s.content.generateText(r.ctx, job)
	if err != nil {
		r.fail(&item, err, category)
		return item
	}

	item.Content = res.Content
	item.Validation = res.Validation
	if res.Record != nil {
		id := res.SavedID
		item.ID = &id
		if item.Category == "" {
			item.Category = res.Record.Category
		}
	}
	r.succeed(&item)
	return item
}

func (r *batchRun) succeed(item *BatchItem) {
	now := r.s.now()
	item.Success = true
	item.GeneratedAt = &now
	r.stats.Successful++
	batchItemsTotal.With(prometheus.Labels{"operation": r.operation, "status": "success"}).Inc()
	r.report(item)
}

// fail помечает элемент неудачным. Клиенту уходит только безопасное сообщение AppError.
func (r *batchRun) fail(item *BatchItem, err error, category string) {
	appErr := models.AsAppError(err)
	item.Success = false
	item.Error = appErr.Message
	item.ErrorKind = appErr.Kind
	r.stats.Failed++
	r.errors = append(r.errors, BatchError{
		Index:    item.Index,
		Error:    appErr.Message,
		Kind:     appErr.Kind,
		Type:     string(item.Type),
		Category: category,
		Prompt:   item.Prompt,
	})
	batchItemsTotal.With(prometheus.Labels{"operation": r.operation, "status": string(appErr.Kind)}).Inc()
	r.log.Warn("Batch item failed", zap.Int("index", item.Index), zap.String("kind", string(appErr.Kind)), zap.Error(err))
	r.report(item)
}

func (r *batchRun) report(item *BatchItem) {
	success := item.Success
	r.s.progress.ReportProgress(r.ctx, ProgressEvent{
		Stage:      ProgressItem,
		BatchID:    r.id,
		Operation:  r.operation,
		Index:      item.Index,
		Total:      r.total,
		Success:    &success,
		ErrorKind:  string(item.ErrorKind),
		Successful: r.stats.Successful,
		Failed:     r.stats.Failed,
	})
}

func (r *batchRun) finish() BatchStats {
	elapsed := r.s.now().Sub(r.started).Seconds()
	r.stats.Duration = round2(elapsed)
	if r.total > 0 {
		r.stats.AverageTime = round2(elapsed / float64(r.total))
	}
	batchDuration.With(prometheus.Labels{"operation": r.operation}).Observe(elapsed)

	r.log.Info("Batch completed",
		zap.Int("successful", r.stats.Successful),
		zap.Int("failed", r.stats.Failed),
		zap.Float64("durationSeconds", r.stats.Duration),
	)
	r.s.progress.ReportProgress(r.ctx, ProgressEvent{
		Stage:      ProgressCompleted,
		BatchID:    r.id,
		Operation:  r.operation,
		Total:      r.total,
		Successful: r.stats.Successful,
		Failed:     r.stats.Failed,
	})
	return r.stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
