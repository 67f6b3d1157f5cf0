package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
)

// RecordingRepository implements recording metadata access using pgx
type RecordingRepository struct {
	db PgxPool
}

// NewRecordingRepository creates a new recording repository
func NewRecordingRepository(db PgxPool) *RecordingRepository {
	return &RecordingRepository{db: db}
}

// Create inserts a recording row, generating the ID when left zero
func (r *RecordingRepository) Create(ctx context.Context, rec *domain.Recording) (int64, error) {
	if rec.ID == 0 {
		id, err := domain.NewID(12)
		if err != nil {
			return 0, domain.ErrInternal.WithError(err)
		}
		rec.ID = id
	}
	if rec.ContentType == "" {
		rec.ContentType = "video/mp4"
	}
	if rec.Status == "" {
		rec.Status = domain.RecordingReady
	}

	query := `
		INSERT INTO recordings (id, user_id, camera_id, file_path, content_type, file_size, duration_ms, started_at, ended_at, status, movement_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		rec.ID, rec.UserID, rec.CameraID, rec.FilePath, rec.ContentType,
		rec.FileSize, rec.DurationMs, rec.StartedAt, rec.EndedAt,
		string(rec.Status), rec.MovementScore,
	).Scan(&rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrBadRequest.WithError(err)
		}
		return 0, domain.ErrInternal.WithError(err)
	}
	return rec.ID, nil
}

// Get retrieves a recording by ID
func (r *RecordingRepository) Get(ctx context.Context, id int64) (*domain.Recording, error) {
	rec, err := scanRecording(r.db.QueryRow(ctx, selectRecording+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordingNotFound
		}
		return nil, domain.ErrInternal.WithError(err)
	}
	return rec, nil
}

// List returns all recordings, newest first
func (r *RecordingRepository) List(ctx context.Context) ([]domain.Recording, error) {
	return r.listQuery(ctx, selectRecording+" ORDER BY created_at DESC")
}

// ListByUser returns a tenant's recordings, newest first
func (r *RecordingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Recording, error) {
	return r.listQuery(ctx, selectRecording+" WHERE user_id = $1 ORDER BY created_at DESC", userID)
}

// UpdateField writes a single recording column
func (r *RecordingRepository) UpdateField(ctx context.Context, id int64, field string, value any) error {
	clause, arg, err := buildFieldUpdate("recordings", recordingColumns, field, value)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE recordings SET %s WHERE id = $1", clause)
	tag, err := r.db.Exec(ctx, query, id, arg)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordingNotFound
	}
	return nil
}

// Delete removes a recording row. Callers own removal of the clip file.
func (r *RecordingRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM recordings WHERE id = $1", id)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordingNotFound
	}
	return nil
}

const selectRecording = `
	SELECT id, user_id, camera_id, file_path, content_type, file_size, duration_ms, started_at, ended_at, status, movement_score, created_at
	FROM recordings`

func (r *RecordingRepository) listQuery(ctx context.Context, query string, args ...any) ([]domain.Recording, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}
	defer rows.Close()

	var recs []domain.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, domain.ErrInternal.WithError(err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}
	return recs, nil
}

func scanRecording(row rowScanner) (*domain.Recording, error) {
	var rec domain.Recording
	var status string

	err := row.Scan(&rec.ID, &rec.UserID, &rec.CameraID, &rec.FilePath, &rec.ContentType,
		&rec.FileSize, &rec.DurationMs, &rec.StartedAt, &rec.EndedAt, &status,
		&rec.MovementScore, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	rec.Status = domain.RecordingStatus(status)
	return &rec, nil
}
