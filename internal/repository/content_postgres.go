package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gamecontent-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

const (
	contentColumns = `id, prompt, response, type, category, metadata, rating, tags, is_favorite, usage_count, created_at, updated_at`

	insertContentQuery = `
        INSERT INTO generated_content (id, prompt, response, type, category, metadata, rating, tags, is_favorite, usage_count)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING created_at, updated_at
    `
	getContentByIDQuery = `SELECT ` + contentColumns + ` FROM generated_content WHERE id = $1`
	deleteContentQuery  = `DELETE FROM generated_content WHERE id = $1`
	listContentQuery    = `
        SELECT ` + contentColumns + `
        FROM generated_content
        WHERE ($1 = '' OR type = $1) AND ($2 = '' OR category = $2)
        ORDER BY created_at DESC, id
        LIMIT $3
    `
	countByCategoryQuery = `
        SELECT category, COUNT(*) AS count
        FROM generated_content
        GROUP BY category
        ORDER BY count DESC, category
    `
	countContentQuery = `SELECT COUNT(*) FROM generated_content`
)

var _ ContentRepository = (*PgContentRepository)(nil)

// PgContentRepository - реализация ContentRepository поверх PostgreSQL.
type PgContentRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewPgContentRepository(db DBTX, logger *zap.Logger) *PgContentRepository {
	return &PgContentRepository{
		db:     db,
		logger: logger.Named("PgContentRepo"),
	}
}

func (r *PgContentRepository) Create(ctx context.Context, content *models.GeneratedContent) error {
	if content.ID == uuid.Nil {
		content.ID = uuid.New()
	}
	content.Normalize()
	log := r.logger.With(zap.String("contentID", content.ID.String()), zap.String("type", string(content.Type)))

	metadata, err := json.Marshal(content.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	response := []byte(content.Response)
	if len(response) == 0 {
		response = []byte("null")
	}

	err = r.db.QueryRow(ctx, insertContentQuery,
		content.ID,
		content.Prompt,
		response,
		string(content.Type),
		content.Category,
		metadata,
		content.Rating,
		content.Tags,
		content.IsFavorite,
		content.UsageCount,
	).Scan(&content.CreatedAt, &content.UpdatedAt)
	if err != nil {
		log.Error("Error inserting generated content", zap.Error(err))
		return fmt.Errorf("failed to insert generated content %s: %w", content.ID, err)
	}

	log.Debug("Generated content saved", zap.String("category", content.Category))
	return nil
}

func (r *PgContentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error) {
	var content models.GeneratedContent
	err := pgxscan.Get(ctx, r.db, &content, getContentByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NewNotFoundError(fmt.Sprintf("content %s not found", id))
		}
		r.logger.Error("Error getting generated content", zap.String("contentID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get generated content %s: %w", id, err)
	}
	content.Normalize()
	return &content, nil
}

func (r *PgContentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, deleteContentQuery, id)
	if err != nil {
		r.logger.Error("Error deleting generated content", zap.String("contentID", id.String()), zap.Error(err))
		return fmt.Errorf("failed to delete generated content %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewNotFoundError(fmt.Sprintf("content %s not found", id))
	}
	r.logger.Info("Generated content deleted", zap.String("contentID", id.String()))
	return nil
}

func (r *PgContentRepository) List(ctx context.Context, filter models.ContentFilter) ([]*models.GeneratedContent, error) {
	limit := ClampLimit(filter.Limit)

	var items []*models.GeneratedContent
	if err := pgxscan.Select(ctx, r.db, &items, listContentQuery, string(filter.Type), filter.Category, limit); err != nil {
		r.logger.Error("Error listing generated content",
			zap.String("type", string(filter.Type)),
			zap.String("category", filter.Category),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to list generated content: %w", err)
	}
	for _, item := range items {
		item.Normalize()
	}
	if items == nil {
		items = []*models.GeneratedContent{}
	}
	return items, nil
}

func (r *PgContentRepository) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	var counts []models.CategoryCount
	if err := pgxscan.Select(ctx, r.db, &counts, countByCategoryQuery); err != nil {
		r.logger.Error("Error counting content by category", zap.Error(err))
		return nil, fmt.Errorf("failed to count content by category: %w", err)
	}
	if counts == nil {
		counts = []models.CategoryCount{}
	}
	return counts, nil
}

func (r *PgContentRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, countContentQuery).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count generated content: %w", err)
	}
	return total, nil
}

// ClampLimit приводит limit к диапазону 1..MaxListLimit, 0 и меньше означают значение по умолчанию.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
