package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
)

// PgxPool is the subset of pgxpool.Pool the repositories need; pgxmock
// implements the same surface.
type PgxPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PersonRepositoryInterface defines operations for person data access
type PersonRepositoryInterface interface {
	Create(ctx context.Context, person *domain.Person) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Person, error)
	List(ctx context.Context) ([]domain.Person, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Person, error)
	Update(ctx context.Context, id int64, person *domain.Person) error
	UpdateField(ctx context.Context, id int64, field string, value any) error
	Delete(ctx context.Context, id int64) error
	AddEmbedding(ctx context.Context, personID int64, emb *domain.FaceEmbedding) error
	AddEmbeddings(ctx context.Context, personID int64, embs []domain.FaceEmbedding) error
}

// RecordingRepositoryInterface defines operations for recording metadata
type RecordingRepositoryInterface interface {
	Create(ctx context.Context, rec *domain.Recording) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Recording, error)
	List(ctx context.Context) ([]domain.Recording, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Recording, error)
	UpdateField(ctx context.Context, id int64, field string, value any) error
	Delete(ctx context.Context, id int64) error
}
