package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
)

// PersonRepository implements person data access using pgx
type PersonRepository struct {
	db PgxPool
}

// NewPersonRepository creates a new person repository
func NewPersonRepository(db PgxPool) *PersonRepository {
	return &PersonRepository{db: db}
}

// Create inserts a person and any seeded embeddings, generating IDs when
// the caller left them zero.
func (r *PersonRepository) Create(ctx context.Context, person *domain.Person) (int64, error) {
	if person.ID == 0 {
		id, err := domain.NewID(12)
		if err != nil {
			return 0, domain.ErrInternal.WithError(err)
		}
		person.ID = id
	}
	if person.DisplayName == "" {
		person.DisplayName = "unknown"
	}
	if person.RiskLevel == "" {
		person.RiskLevel = domain.RiskUnknown
	}
	if person.Tags == nil {
		person.Tags = []string{}
	}

	meta, err := marshalJSON(person.Metadata)
	if err != nil {
		return 0, domain.ErrInternal.WithError(err)
	}

	query := `
		INSERT INTO persons (id, user_id, display_name, tags, risk_level, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err = r.db.QueryRow(ctx, query,
		person.ID, person.UserID, person.DisplayName, person.Tags,
		string(person.RiskLevel), meta,
	).Scan(&person.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrBadRequest.WithError(err)
		}
		return 0, domain.ErrInternal.WithError(err)
	}

	for i := range person.Manual {
		if err := r.insertEmbedding(ctx, person.ID, &person.Manual[i]); err != nil {
			return 0, err
		}
	}
	for i := range person.Auto {
		if err := r.insertEmbedding(ctx, person.ID, &person.Auto[i]); err != nil {
			return 0, err
		}
	}

	return person.ID, nil
}

// Get retrieves a person with all embeddings
func (r *PersonRepository) Get(ctx context.Context, id int64) (*domain.Person, error) {
	query := `
		SELECT id, user_id, display_name, tags, risk_level, metadata, created_at
		FROM persons
		WHERE id = $1`

	person, err := scanPerson(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPersonNotFound
		}
		return nil, domain.ErrInternal.WithError(err)
	}

	if err := r.loadEmbeddings(ctx, []*domain.Person{person}); err != nil {
		return nil, err
	}
	return person, nil
}

// List returns all persons with embeddings
func (r *PersonRepository) List(ctx context.Context) ([]domain.Person, error) {
	query := `
		SELECT id, user_id, display_name, tags, risk_level, metadata, created_at
		FROM persons
		ORDER BY created_at DESC`

	return r.listQuery(ctx, query)
}

// ListByUser returns the persons belonging to a tenant with embeddings.
// The identification index hydrates from this call.
func (r *PersonRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Person, error) {
	query := `
		SELECT id, user_id, display_name, tags, risk_level, metadata, created_at
		FROM persons
		WHERE user_id = $1
		ORDER BY created_at DESC`

	return r.listQuery(ctx, query, userID)
}

func (r *PersonRepository) listQuery(ctx context.Context, query string, args ...any) ([]domain.Person, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}
	defer rows.Close()

	var persons []domain.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, domain.ErrInternal.WithError(err)
		}
		persons = append(persons, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}

	refs := make([]*domain.Person, len(persons))
	for i := range persons {
		refs[i] = &persons[i]
	}
	if err := r.loadEmbeddings(ctx, refs); err != nil {
		return nil, err
	}
	return persons, nil
}

// Update replaces the mutable person attributes
func (r *PersonRepository) Update(ctx context.Context, id int64, person *domain.Person) error {
	meta, err := marshalJSON(person.Metadata)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}

	query := `
		UPDATE persons
		SET display_name = $2, tags = $3, risk_level = $4, metadata = $5
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, person.DisplayName, person.Tags, string(person.RiskLevel), meta)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPersonNotFound
	}
	return nil
}

// UpdateField writes a single field. Dotted "metadata.*" paths update the
// nested key in place.
func (r *PersonRepository) UpdateField(ctx context.Context, id int64, field string, value any) error {
	clause, arg, err := buildFieldUpdate("persons", personColumns, field, value)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE persons SET %s WHERE id = $1", clause)
	tag, err := r.db.Exec(ctx, query, id, arg)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPersonNotFound
	}
	return nil
}

// Delete removes a person; embeddings cascade
func (r *PersonRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM persons WHERE id = $1", id)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPersonNotFound
	}
	return nil
}

// AddEmbedding appends one embedding. Camera-sourced embeddings are trimmed
// so only the most recent ones per person are kept.
func (r *PersonRepository) AddEmbedding(ctx context.Context, personID int64, emb *domain.FaceEmbedding) error {
	if err := r.insertEmbedding(ctx, personID, emb); err != nil {
		return err
	}
	if emb.Source != domain.SourceManualUpload {
		return r.trimAutoEmbeddings(ctx, personID)
	}
	return nil
}

// AddEmbeddings appends a batch of embeddings, trimming once at the end if
// any were camera-sourced.
func (r *PersonRepository) AddEmbeddings(ctx context.Context, personID int64, embs []domain.FaceEmbedding) error {
	trim := false
	for i := range embs {
		if err := r.insertEmbedding(ctx, personID, &embs[i]); err != nil {
			return err
		}
		if embs[i].Source != domain.SourceManualUpload {
			trim = true
		}
	}
	if trim {
		return r.trimAutoEmbeddings(ctx, personID)
	}
	return nil
}

func (r *PersonRepository) insertEmbedding(ctx context.Context, personID int64, emb *domain.FaceEmbedding) error {
	if emb.ID == 0 {
		id, err := domain.NewID(12)
		if err != nil {
			return domain.ErrInternal.WithError(err)
		}
		emb.ID = id
	}
	if emb.Source == "" {
		emb.Source = domain.SourceCamera
	}
	emb.PersonID = personID

	pose, err := json.Marshal(emb.Pose)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	meta, err := marshalJSON(emb.Metadata)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}

	query := `
		INSERT INTO face_embeddings (id, person_id, embedding, source, camera_id, quality_score, pose, thumbnail, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err = r.db.QueryRow(ctx, query,
		emb.ID, personID, pgvector.NewVector(emb.Embedding), string(emb.Source),
		emb.CameraID, emb.QualityScore, pose, emb.Thumbnail, meta,
	).Scan(&emb.CreatedAt)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	return nil
}

// trimAutoEmbeddings keeps the newest camera-sourced embeddings per person,
// deleting everything beyond the retention limit.
func (r *PersonRepository) trimAutoEmbeddings(ctx context.Context, personID int64) error {
	query := `
		DELETE FROM face_embeddings
		WHERE person_id = $1 AND source != $2 AND id NOT IN (
			SELECT id FROM face_embeddings
			WHERE person_id = $1 AND source != $2
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		)`

	_, err := r.db.Exec(ctx, query, personID, string(domain.SourceManualUpload), domain.AutoEmbeddingLimit)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	return nil
}

// loadEmbeddings hydrates Manual and Auto embedding lists for the given
// persons in a single query.
func (r *PersonRepository) loadEmbeddings(ctx context.Context, persons []*domain.Person) error {
	if len(persons) == 0 {
		return nil
	}

	ids := make([]int64, len(persons))
	byID := make(map[int64]*domain.Person, len(persons))
	for i, p := range persons {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	query := `
		SELECT id, person_id, embedding, source, camera_id, quality_score, pose, thumbnail, metadata, created_at
		FROM face_embeddings
		WHERE person_id = ANY($1)
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var emb domain.FaceEmbedding
		var vec pgvector.Vector
		var source string
		var poseRaw, metaRaw []byte

		err := rows.Scan(&emb.ID, &emb.PersonID, &vec, &source, &emb.CameraID,
			&emb.QualityScore, &poseRaw, &emb.Thumbnail, &metaRaw, &emb.CreatedAt)
		if err != nil {
			return domain.ErrInternal.WithError(err)
		}

		emb.Embedding = vec.Slice()
		emb.Source = domain.FaceSource(source)
		if len(poseRaw) > 0 {
			if err := json.Unmarshal(poseRaw, &emb.Pose); err != nil {
				return domain.ErrInternal.WithError(err)
			}
		}
		if len(metaRaw) > 0 {
			if err := json.Unmarshal(metaRaw, &emb.Metadata); err != nil {
				return domain.ErrInternal.WithError(err)
			}
		}

		p := byID[emb.PersonID]
		if p == nil {
			continue
		}
		if emb.Source == domain.SourceManualUpload {
			p.Manual = append(p.Manual, emb)
		} else {
			p.Auto = append(p.Auto, emb)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*domain.Person, error) {
	var p domain.Person
	var risk string
	var metaRaw []byte

	err := row.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.Tags, &risk, &metaRaw, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	p.RiskLevel = domain.RiskLevel(risk)
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &p.Metadata); err != nil {
			return nil, err
		}
	}
	return &p, nil
}
