package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
)

// isUniqueViolation checks if error is a PostgreSQL unique constraint violation
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// updatableColumns are the plain columns UpdateField may touch directly.
// Everything else must address the metadata document via a dotted path.
var personColumns = map[string]bool{
	"display_name": true,
	"risk_level":   true,
	"tags":         true,
}

var recordingColumns = map[string]bool{
	"status":         true,
	"file_path":      true,
	"file_size":      true,
	"duration_ms":    true,
	"ended_at":       true,
	"movement_score": true,
}

// buildFieldUpdate translates a field reference into a SET clause and its
// argument. Dotted paths ("metadata.seenCount") become jsonb_set calls so
// nested keys can be written without replacing the whole document.
func buildFieldUpdate(table string, allowed map[string]bool, field string, value any) (string, any, error) {
	if strings.HasPrefix(field, "metadata.") {
		path := strings.Split(strings.TrimPrefix(field, "metadata."), ".")
		for _, seg := range path {
			if seg == "" {
				return "", nil, domain.ErrValidationFailed.WithError(fmt.Errorf("empty segment in field path %q", field))
			}
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return "", nil, domain.ErrValidationFailed.WithError(err)
		}
		clause := fmt.Sprintf("metadata = jsonb_set(metadata, '{%s}', $2::jsonb, true)", strings.Join(path, ","))
		return clause, string(raw), nil
	}

	if !allowed[field] {
		return "", nil, domain.ErrValidationFailed.WithError(fmt.Errorf("field %q is not updatable on %s", field, table))
	}
	return fmt.Sprintf("%s = $2", field), value, nil
}

// marshalJSON encodes a value for a jsonb column, mapping nil to the empty
// document so NOT NULL defaults stay intact.
func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}
