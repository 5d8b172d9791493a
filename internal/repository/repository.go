package repository

import (
	"context"

	"gamecontent-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX - общий интерфейс для *pgxpool.Pool и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ContentRepository хранит сгенерированный контент.
type ContentRepository interface {
	// Create сохраняет запись. ID генерируется, если не задан; CreatedAt/UpdatedAt заполняются из БД.
	Create(ctx context.Context, content *models.GeneratedContent) error
	// GetByID возвращает models.ErrNotFound, если записи нет.
	GetByID(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// List возвращает записи от новых к старым.
	List(ctx context.Context, filter models.ContentFilter) ([]*models.GeneratedContent, error)
	CountByCategory(ctx context.Context) ([]models.CategoryCount, error)
	Count(ctx context.Context) (int64, error)
}
