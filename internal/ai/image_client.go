package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"gamecontent-server/internal/models"
	"gamecontent-server/internal/prompts"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	ProviderHuggingFace = "huggingface"

	TransformationImageToImage = "image-to-image"
	TransformationFallback     = "text-to-image-fallback"

	defaultDimension  = 512
	minDimension      = 64
	defaultStrength   = 0.75
	imageToImageModel = "timbrooks/instruct-pix2pix"
	negativePrompt    = "blurry, low quality, distorted, ugly, bad anatomy"
	fallbackNote      = "Used text-to-image as fallback due to image-to-image limitations"
	maxImageBytes     = 20 << 20
)

// Псевдонимы моделей и порядок перебора при сбоях.
var (
	imageModelAliases = map[string]string{
		"turbo": "stabilityai/sdxl-turbo",
		"flux":  "black-forest-labs/FLUX.1-schnell",
		"sd":    "runwayml/stable-diffusion-v1-5",
	}
	imageFallbackOrder = []string{"turbo", "flux", "sd"}
)

// ImageGenerator - клиент вендора изображений.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (*ImageResult, error)
	GenerateImageFromImage(ctx context.Context, sourceImage string, prompt string, opts ImageToImageOptions) (*ImageResult, error)
}

// ImageOptions - параметры text-to-image. Нулевые значения заменяются значениями по умолчанию.
type ImageOptions struct {
	Width  int
	Height int
	Model  string
	Seed   *int64
}

// ImageToImageOptions - параметры image-to-image.
type ImageToImageOptions struct {
	ImageOptions
	Strength *float64
	ArtStyle string
}

// ImageResult описывает сгенерированное изображение. Сама картинка лежит в ImageURL (data URL).
type ImageResult struct {
	ImageURL           string   `json:"-"`
	Prompt             string   `json:"prompt"`
	OriginalPrompt     string   `json:"originalPrompt,omitempty"`
	Model              string   `json:"model"`
	Seed               int64    `json:"seed"`
	Width              int      `json:"width"`
	Height             int      `json:"height"`
	MimeType           string   `json:"mimeType"`
	Source             string   `json:"source"`
	Format             string   `json:"format"`
	AttemptedModels    []string `json:"attemptedModels,omitempty"`
	TransformationType string   `json:"transformationType,omitempty"`
	FallbackReason     string   `json:"fallbackReason,omitempty"`
	Note               string   `json:"note,omitempty"`
	ArtStyle           string   `json:"artStyle,omitempty"`
	Strength           *float64 `json:"strength,omitempty"`
}

// ImageConfig - настройки клиента Hugging Face Inference.
type ImageConfig struct {
	BaseURL             string
	APIKey              string
	DefaultModel        string
	Timeout             time.Duration
	ImageToImageTimeout time.Duration
	MaxDimension        int
	HTTPClient          *http.Client
}

type hfImageClient struct {
	cfg        ImageConfig
	httpClient *http.Client
	catalog    *prompts.Catalog
	seeds      SeedSource
	logger     *zap.Logger
}

// NewImageGenerator создает клиент Hugging Face. Без ключа возвращает клиент,
// который отвечает ошибкой конфигурации.
func NewImageGenerator(cfg ImageConfig, catalog *prompts.Catalog, seeds SeedSource, logger *zap.Logger) ImageGenerator {
	log := logger.Named("ImageGenerator")
	if cfg.APIKey == "" {
		log.Warn("Image API key is not configured, image generation will fail with configuration errors")
		return &unconfiguredClient{message: "image generation API key is not configured (IMAGE_API_KEY)"}
	}
	if cfg.MaxDimension < minDimension {
		cfg.MaxDimension = 768
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = imageFallbackOrder[0]
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if seeds == nil {
		seeds = NewRandomSeedSource()
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &hfImageClient{cfg: cfg, httpClient: httpClient, catalog: catalog, seeds: seeds, logger: log}
}

// ResolveImageModel возвращает полный идентификатор модели по псевдониму.
// Полный идентификатор (owner/name) принимается как есть, неизвестный псевдоним заменяется на turbo.
func ResolveImageModel(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	if id, ok := imageModelAliases[strings.ToLower(name)]; ok {
		return id
	}
	return imageModelAliases[imageFallbackOrder[0]]
}

// modelChain - основная модель, затем остальные псевдонимы в фиксированном порядке.
func modelChain(primary string) []string {
	primaryID := ResolveImageModel(primary)
	chain := []string{primaryID}
	for _, alias := range imageFallbackOrder {
		if id := imageModelAliases[alias]; id != primaryID {
			chain = append(chain, id)
		}
	}
	return chain
}

func diffusionParams(modelID string) (steps int, guidance float64) {
	if modelID == imageModelAliases["turbo"] {
		return 4, 0.0
	}
	return 25, 7.5
}

func clampDimension(v, limit int) int {
	switch {
	case v <= 0:
		v = defaultDimension
	case v < minDimension:
		v = minDimension
	}
	if v > limit {
		v = limit
	}
	return v
}

func clampStrength(s *float64) float64 {
	if s == nil {
		return defaultStrength
	}
	switch {
	case *s < 0:
		return 0
	case *s > 1:
		return 1
	default:
		return *s
	}
}

func (c *hfImageClient) seed(s *int64) int64 {
	if s != nil {
		return *s
	}
	return c.seeds.NextSeed()
}

type textToImageRequest struct {
	Inputs     string                `json:"inputs"`
	Parameters textToImageParameters `json:"parameters"`
}

type textToImageParameters struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Seed              int64   `json:"seed"`
}

// GenerateImage перебирает модели: при таймауте, холодном старте или перегрузке
// переходит к следующей, при ошибке ключа или запроса останавливается сразу.
func (c *hfImageClient) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (*ImageResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, models.NewValidationError("prompt is required")
	}
	primary := opts.Model
	if primary == "" {
		primary = c.cfg.DefaultModel
	}
	width := clampDimension(opts.Width, c.cfg.MaxDimension)
	height := clampDimension(opts.Height, c.cfg.MaxDimension)
	seed := c.seed(opts.Seed)

	log := c.logger.With(zap.Int64("seed", seed), zap.Int("width", width), zap.Int("height", height))

	var lastErr *models.AppError
	attempted := make([]string, 0, len(imageFallbackOrder))
	for _, modelID := range modelChain(primary) {
		attempted = append(attempted, modelID)
		steps, guidance := diffusionParams(modelID)
		payload := textToImageRequest{
			Inputs: prompt,
			Parameters: textToImageParameters{
				Width:             width,
				Height:            height,
				NumInferenceSteps: steps,
				GuidanceScale:     guidance,
				Seed:              seed,
			},
		}

		data, mime, err := c.infer(ctx, modelID, payload, c.cfg.Timeout)
		if err == nil {
			log.Info("Image generated", zap.String("model", modelID), zap.Int("bytes", len(data)))
			return &ImageResult{
				ImageURL:        dataURL(mime, data),
				Prompt:          prompt,
				Model:           modelID,
				Seed:            seed,
				Width:           width,
				Height:          height,
				MimeType:        mime,
				Source:          ProviderHuggingFace,
				Format:          "base64",
				AttemptedModels: attempted,
			}, nil
		}

		lastErr = models.AsAppError(err)
		if !lastErr.Retryable() || ctx.Err() != nil {
			log.Warn("Image generation stopped", zap.String("model", modelID), zap.String("kind", string(lastErr.Kind)), zap.Error(err))
			return nil, lastErr
		}
		imageFallbacksTotal.WithLabelValues(modelID, string(lastErr.Kind)).Inc()
		log.Warn("Image model failed, trying next", zap.String("model", modelID), zap.String("kind", string(lastErr.Kind)), zap.Error(err))
	}
	return nil, lastErr
}

type imageToImageRequest struct {
	Inputs     string                 `json:"inputs"`
	Parameters imageToImageParameters `json:"parameters"`
}

type imageToImageParameters struct {
	Prompt             string     `json:"prompt"`
	NegativePrompt     string     `json:"negative_prompt"`
	NumInferenceSteps  int        `json:"num_inference_steps"`
	GuidanceScale      float64    `json:"guidance_scale"`
	ImageGuidanceScale float64    `json:"image_guidance_scale"`
	Strength           float64    `json:"strength"`
	Seed               int64      `json:"seed"`
	TargetSize         targetSize `json:"target_size"`
}

type targetSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GenerateImageFromImage пробует настоящую трансформацию, а при сбое
// откатывается на text-to-image с тем же промтом и помечает результат.
func (c *hfImageClient) GenerateImageFromImage(ctx context.Context, sourceImage string, prompt string, opts ImageToImageOptions) (*ImageResult, error) {
	source, err := DecodeSourceImage(sourceImage)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, models.NewValidationError("prompt is required")
	}

	artStyle := opts.ArtStyle
	if artStyle == "" {
		artStyle = prompts.DefaultArtStyle
	}
	enhanced := c.catalog.EnhanceImagePrompt(prompt, artStyle)
	strength := clampStrength(opts.Strength)
	width := clampDimension(opts.Width, c.cfg.MaxDimension)
	height := clampDimension(opts.Height, c.cfg.MaxDimension)
	seed := c.seed(opts.Seed)
	modelID := imageToImageModel
	if strings.Contains(opts.Model, "/") {
		modelID = opts.Model
	}

	log := c.logger.With(zap.String("model", modelID), zap.Int64("seed", seed), zap.String("artStyle", artStyle))

	payload := imageToImageRequest{
		Inputs: base64.StdEncoding.EncodeToString(source),
		Parameters: imageToImageParameters{
			Prompt:             enhanced,
			NegativePrompt:     negativePrompt,
			NumInferenceSteps:  30,
			GuidanceScale:      7.5,
			ImageGuidanceScale: 1.5,
			Strength:           strength,
			Seed:               seed,
			TargetSize:         targetSize{Width: width, Height: height},
		},
	}

	data, mime, err := c.infer(ctx, modelID, payload, c.cfg.ImageToImageTimeout)
	if err == nil {
		log.Info("Image transformed", zap.Int("bytes", len(data)))
		return &ImageResult{
			ImageURL:           dataURL(mime, data),
			Prompt:             enhanced,
			OriginalPrompt:     prompt,
			Model:              modelID,
			Seed:               seed,
			Width:              width,
			Height:             height,
			MimeType:           mime,
			Source:             ProviderHuggingFace,
			Format:             "base64",
			AttemptedModels:    []string{modelID},
			TransformationType: TransformationImageToImage,
			ArtStyle:           artStyle,
			Strength:           &strength,
		}, nil
	}
	if ctx.Err() != nil {
		return nil, models.AsAppError(err)
	}

	reason := models.AsAppError(err)
	imageFallbacksTotal.WithLabelValues(modelID, string(reason.Kind)).Inc()
	log.Warn("Image-to-image failed, falling back to text-to-image", zap.String("kind", string(reason.Kind)), zap.Error(err))

	fallback, ferr := c.GenerateImage(ctx, enhanced, ImageOptions{
		Width:  width,
		Height: height,
		Model:  imageFallbackOrder[0],
		Seed:   &seed,
	})
	if ferr != nil {
		return nil, ferr
	}
	fallback.OriginalPrompt = prompt
	fallback.ArtStyle = artStyle
	fallback.Strength = &strength
	fallback.TransformationType = TransformationFallback
	fallback.FallbackReason = reason.Message
	fallback.Note = fallbackNote
	fallback.AttemptedModels = append([]string{modelID}, fallback.AttemptedModels...)
	return fallback, nil
}

// infer отправляет запрос в HF Inference и возвращает байты изображения и их MIME-тип.
func (c *hfImageClient) infer(ctx context.Context, modelID string, payload any, timeout time.Duration) ([]byte, string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/"+modelID, bytes.NewReader(body))
	if err != nil {
		return nil, "", models.NewUnknownError("failed to build inference request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")
	req.Header.Set("X-Use-Cache", "false")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		appErr := classifyError(err)
		observeRequest(ProviderHuggingFace, modelID, string(appErr.Kind), time.Since(startTime).Seconds())
		return nil, "", appErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	duration := time.Since(startTime).Seconds()
	if err != nil {
		appErr := classifyError(err)
		observeRequest(ProviderHuggingFace, modelID, string(appErr.Kind), duration)
		return nil, "", appErr
	}

	if resp.StatusCode != http.StatusOK {
		appErr := classifyHFResponse(resp.StatusCode, resp.Header, data,
			fmt.Errorf("inference API returned status %d for %s", resp.StatusCode, modelID))
		observeRequest(ProviderHuggingFace, modelID, string(appErr.Kind), duration)
		return nil, "", appErr
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		observeRequest(ProviderHuggingFace, modelID, "non_image_response", duration)
		return nil, "", models.NewUnknownError("vendor returned a non-image payload",
			fmt.Errorf("unexpected content type %s from %s", mime.String(), modelID))
	}
	observeRequest(ProviderHuggingFace, modelID, "success", duration)
	return data, mime.String(), nil
}

// DecodeSourceImage принимает base64 или data URL и проверяет, что внутри изображение.
func DecodeSourceImage(source string) ([]byte, error) {
	s := strings.TrimSpace(source)
	if s == "" {
		return nil, models.NewValidationError("sourceImage is required")
	}
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, models.NewValidationError("invalid source image: malformed data URL")
		}
		s = s[comma+1:]
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil || len(data) == 0 {
		return nil, models.NewValidationError("invalid source image: not valid base64")
	}
	if mime := mimetype.Detect(data); !strings.HasPrefix(mime.String(), "image/") {
		return nil, models.NewValidationError("invalid source image: unsupported format " + mime.String())
	}
	return data, nil
}

func dataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
