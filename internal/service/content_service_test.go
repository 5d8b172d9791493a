package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gamecontent-server/internal/ai"
	"gamecontent-server/internal/messaging"
	"gamecontent-server/internal/mocks"
	"gamecontent-server/internal/models"
	"gamecontent-server/internal/prompts"
	"gamecontent-server/internal/schemas"
	"gamecontent-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const emberJSON = "```json\n{\"name\":\"Ember\",\"class\":\"warrior\",\"backstory\":\"Born in the ashes of a fallen city.\"}\n```"

type fixture struct {
	text    *mocks.MockTextGenerator
	images  *mocks.MockImageGenerator
	repo    *mocks.MockContentRepository
	events  *mocks.MockEventPublisher
	catalog *prompts.Catalog
	content *service.ContentService
	saved   []*models.GeneratedContent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		text:    mocks.NewMockTextGenerator(t),
		images:  mocks.NewMockImageGenerator(t),
		repo:    mocks.NewMockContentRepository(t),
		events:  &mocks.MockEventPublisher{},
		catalog: prompts.DefaultCatalog(),
	}
	f.events.On("PublishContentEvent", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.content = service.NewContentService(
		f.text, f.images,
		prompts.NewEngine(models.OutputModeStructured),
		f.catalog, f.repo, f.events, zap.NewNop(),
	)
	return f
}

// expectSaves заставляет репозиторий принимать записи и запоминать их.
func (f *fixture) expectSaves() {
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*models.GeneratedContent")).
		Run(func(args mock.Arguments) {
			c := args.Get(1).(*models.GeneratedContent)
			c.ID = uuid.New()
			f.saved = append(f.saved, c)
		}).
		Return(nil)
}

func promptContaining(s string) any {
	return mock.MatchedBy(func(p string) bool { return strings.Contains(p, s) })
}

func TestGenerateCharacterEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.expectSaves()
	f.text.On("GenerateText", mock.Anything, promptContaining("a fire warrior"), models.ContentTypeCharacter).
		Return(emberJSON, nil).Once()

	res, err := f.content.Generate(context.Background(), service.GenerateRequest{
		Prompt: "a fire warrior",
		Type:   models.ContentTypeCharacter,
	})
	require.NoError(t, err)

	require.NotNil(t, res.Validation)
	assert.True(t, res.Validation.IsValid)
	assert.Empty(t, res.Validation.Missing)
	assert.NotEqual(t, uuid.Nil, res.SavedID)

	content, ok := res.Content.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ember", content["name"])

	require.Len(t, f.saved, 1)
	record := f.saved[0]
	assert.Equal(t, res.SavedID, record.ID)
	assert.Equal(t, "character", record.Category)
	assert.Equal(t, "a fire warrior", record.Prompt)
	assert.Equal(t, true, record.Metadata["validated"])
	assert.Equal(t, "structured", record.Metadata["outputMode"])
	assert.Equal(t, "warrior", record.Metadata["characterClass"])

	var stored map[string]any
	require.NoError(t, json.Unmarshal(record.Response, &stored))
	assert.Equal(t, "Ember", stored["name"])

	f.events.AssertCalled(t, "PublishContentEvent", mock.Anything, mock.MatchedBy(func(e messaging.ContentEvent) bool {
		return e.Event == messaging.ContentCreated && e.ContentID == record.ID
	}))
}

func TestGenerateRejectsBadInputBeforeVendorCall(t *testing.T) {
	tests := []struct {
		name string
		req  service.GenerateRequest
	}{
		{"empty prompt", service.GenerateRequest{Prompt: "  ", Type: models.ContentTypeQuest}},
		{"image type", service.GenerateRequest{Prompt: "a castle", Type: models.ContentTypeImage}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.content.Generate(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrValidation))
			f.text.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGenerateVendorErrorIsNotPersisted(t *testing.T) {
	f := newFixture(t)
	f.text.On("GenerateText", mock.Anything, mock.Anything, models.ContentTypeEnemy).
		Return("", models.NewRateLimitError(0, errors.New("429 from vendor"))).Once()

	_, err := f.content.Generate(context.Background(), service.GenerateRequest{Prompt: "a goblin", Type: models.ContentTypeEnemy})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRateLimited))
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGenerateParseFailureIsStillSaved(t *testing.T) {
	f := newFixture(t)
	f.expectSaves()
	f.text.On("GenerateText", mock.Anything, mock.Anything, models.ContentTypeItem).
		Return("Sorry, I cannot produce that item.", nil).Once()

	res, err := f.content.Generate(context.Background(), service.GenerateRequest{Prompt: "a sword", Type: models.ContentTypeItem})
	require.NoError(t, err)

	require.NotNil(t, res.Validation)
	assert.False(t, res.Validation.IsValid)
	assert.Equal(t, []string{schemas.ParseErrorMissing}, res.Validation.Missing)
	_, isFailure := res.Payload.(*schemas.ParseFailure)
	assert.True(t, isFailure)

	require.Len(t, f.saved, 1)
	assert.True(t, schemas.IsParseFailureDocument(f.saved[0].Response))
	assert.Equal(t, false, f.saved[0].Metadata["validated"])
}

func TestGenerateGeneralTextHasNoValidation(t *testing.T) {
	f := newFixture(t)
	f.expectSaves()
	f.text.On("GenerateText", mock.Anything, mock.Anything, models.ContentTypeGeneral).
		Return("  Tavern names: The Rusty Flagon.  ", nil).Once()

	res, err := f.content.Generate(context.Background(), service.GenerateRequest{Prompt: "tavern names"})
	require.NoError(t, err)

	assert.Equal(t, models.ContentTypeGeneral, res.Type)
	assert.Nil(t, res.Validation)
	assert.Equal(t, map[string]any{"text": "Tavern names: The Rusty Flagon."}, res.Content)
	assert.JSONEq(t, `{"text":"Tavern names: The Rusty Flagon."}`, string(f.saved[0].Response))
}

func TestGenerateIgnoresPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.events = &mocks.MockEventPublisher{}
	f.events.On("PublishContentEvent", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
	f.content = service.NewContentService(f.text, f.images, prompts.NewEngine(models.OutputModeStructured),
		f.catalog, f.repo, f.events, zap.NewNop())
	f.expectSaves()
	f.text.On("GenerateText", mock.Anything, mock.Anything, models.ContentTypeCharacter).Return(emberJSON, nil).Once()

	res, err := f.content.Generate(context.Background(), service.GenerateRequest{Prompt: "a fire warrior", Type: models.ContentTypeCharacter})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.SavedID)
	f.events.AssertExpectations(t)
}

func TestGenerateImagePersistsRecord(t *testing.T) {
	f := newFixture(t)
	f.expectSaves()
	seed := int64(42)
	f.images.On("GenerateImage", mock.Anything, "a red dragon", ai.ImageOptions{Width: 256, Height: 256, Seed: &seed}).
		Return(&ai.ImageResult{
			ImageURL: "data:image/png;base64,AAAA",
			Prompt:   "a red dragon",
			Model:    "stabilityai/sdxl-turbo",
			Seed:     42,
			Width:    256,
			Height:   256,
		}, nil).Once()

	res, err := f.content.GenerateImage(context.Background(), service.ImageRequest{Prompt: "a red dragon", Width: 256, Height: 256, Seed: &seed})
	require.NoError(t, err)

	assert.Equal(t, "data:image/png;base64,AAAA", res.Image.ImageURL)
	require.Len(t, f.saved, 1)
	record := f.saved[0]
	assert.Equal(t, models.ContentTypeImage, record.Type)
	assert.Equal(t, "image", record.Category)
	assert.Equal(t, "256x256", record.Metadata["dimensions"])
	assert.Equal(t, int64(42), record.Metadata["seed"])

	var doc map[string]any
	require.NoError(t, json.Unmarshal(record.Response, &doc))
	assert.Equal(t, "data:image/png;base64,AAAA", doc["imageUrl"])
	assert.Equal(t, "stabilityai/sdxl-turbo", doc["model"])
}

func TestGenerateImageFromImageAutoPrompt(t *testing.T) {
	f := newFixture(t)
	f.expectSaves()
	autoPrompt := f.catalog.AssetPrompt("character", "", "pixel")
	f.images.On("GenerateImageFromImage", mock.Anything, "aGVsbG8=", autoPrompt, mock.MatchedBy(func(o ai.ImageToImageOptions) bool {
		return o.ArtStyle == "pixel"
	})).Return(&ai.ImageResult{
		ImageURL:           "data:image/png;base64,BBBB",
		Prompt:             autoPrompt + ", pixel art game sprite",
		Model:              "stabilityai/sdxl-turbo",
		Width:              512,
		Height:             512,
		TransformationType: ai.TransformationFallback,
		FallbackReason:     "image-to-image model unavailable",
		ArtStyle:           "pixel",
	}, nil).Once()

	res, err := f.content.GenerateImageFromImage(context.Background(), service.ImageToImageRequest{
		SourceImage: "aGVsbG8=",
		ArtStyle:    "pixel",
		AssetType:   "character",
	})
	require.NoError(t, err)

	assert.True(t, res.UsedAutoPrompt)
	assert.Equal(t, autoPrompt+", pixel art game sprite", res.EnhancedPrompt)
	require.Len(t, f.saved, 1)
	record := f.saved[0]
	assert.Equal(t, models.ContentTypeImageToImage, record.Type)
	assert.Equal(t, "image", record.Category)
	assert.Equal(t, "character", record.Metadata["assetType"])
	assert.Equal(t, ai.TransformationFallback, record.Metadata["transformationType"])
	assert.NotEmpty(t, record.Metadata["fallbackReason"])
}

func TestGenerateImageFromImageRequiresSource(t *testing.T) {
	f := newFixture(t)
	_, err := f.content.GenerateImageFromImage(context.Background(), service.ImageToImageRequest{Prompt: "make it blue"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestListClampsLimit(t *testing.T) {
	f := newFixture(t)
	f.repo.On("List", mock.Anything, models.ContentFilter{Type: models.ContentTypeQuest, Limit: 100}).
		Return([]*models.GeneratedContent{}, nil).Once()

	items, err := f.content.List(context.Background(), models.ContentFilter{Type: models.ContentTypeQuest, Limit: 500})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDelete(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()
		f.repo.On("GetByID", mock.Anything, id).Return(nil, models.NewNotFoundError("content not found")).Once()

		err := f.content.Delete(context.Background(), id)
		assert.True(t, errors.Is(err, models.ErrNotFound))
		f.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		f.events.AssertNotCalled(t, "PublishContentEvent", mock.Anything, mock.Anything)
	})

	t.Run("publishes deleted event", func(t *testing.T) {
		f := newFixture(t)
		record := &models.GeneratedContent{ID: uuid.New(), Type: models.ContentTypeQuest, Category: "quest"}
		f.repo.On("GetByID", mock.Anything, record.ID).Return(record, nil).Once()
		f.repo.On("Delete", mock.Anything, record.ID).Return(nil).Once()

		require.NoError(t, f.content.Delete(context.Background(), record.ID))
		f.events.AssertCalled(t, "PublishContentEvent", mock.Anything, mock.MatchedBy(func(e messaging.ContentEvent) bool {
			return e.Event == messaging.ContentDeleted && e.ContentID == record.ID
		}))
	})
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Count", mock.Anything).Return(int64(5), nil).Once()
	f.repo.On("CountByCategory", mock.Anything).Return([]models.CategoryCount{
		{Category: "character", Count: 3},
		{Category: "quest", Count: 2},
	}, nil).Once()

	stats, err := f.content.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, "character", stats.ByCategory[0].Category)
}
