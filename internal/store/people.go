package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/skelid/internal/biometric"
)

// segmentColumns lists the people columns in Segment order.
var segmentColumns = func() []string {
	cols := make([]string, 0, biometric.NumSegments)
	for _, s := range biometric.Segments() {
		cols = append(cols, s.String())
	}
	return cols
}()

var (
	selectPeople = "SELECT id, name, " + strings.Join(segmentColumns, ", ") + ", created_at FROM people"

	insertPeople = "INSERT INTO people (id, name, " + strings.Join(segmentColumns, ", ") + ", created_at) VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(segmentColumns)+3), ", ") + ")"

	// bandClause matches a row when any segment column lies in its band.
	bandClause = func() string {
		parts := make([]string, len(segmentColumns))
		for i, c := range segmentColumns {
			parts[i] = c + " BETWEEN ? AND ?"
		}
		return strings.Join(parts, " OR ")
	}()
)

// TemplateRepository stores enrolled templates, one row per enrolment, in the
// people table.
type TemplateRepository struct {
	db *sql.DB
}

// Templates returns the template repository for this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

// Insert appends a template under name. Names are not unique: enrolling the
// same person twice adds a second row. The template's ID and CreatedAt are
// filled in when empty.
func (r *TemplateRepository) Insert(ctx context.Context, name string, t *biometric.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.Name = name

	args := make([]any, 0, len(segmentColumns)+3)
	args = append(args, t.ID, name)
	for _, s := range biometric.Segments() {
		if v, ok := t.Value(s); ok {
			args = append(args, v)
		} else {
			args = append(args, nil)
		}
	}
	args = append(args, t.CreatedAt)

	if _, err := r.db.ExecContext(ctx, insertPeople, args...); err != nil {
		return fmt.Errorf("insert template %q: %w", name, err)
	}
	return nil
}

// Query lazily yields every template with at least one segment inside
// [lower, upper], bounds inclusive. Rows are returned in insertion order.
// Iteration stops after the first error, which is yielded once.
func (r *TemplateRepository) Query(ctx context.Context, lower, upper biometric.Fingerprint) iter.Seq2[biometric.Template, error] {
	return func(yield func(biometric.Template, error) bool) {
		args := make([]any, 0, 2*len(segmentColumns))
		for i := range segmentColumns {
			args = append(args, lower[i], upper[i])
		}

		rows, err := r.db.QueryContext(ctx, selectPeople+" WHERE "+bandClause+" ORDER BY rowid", args...)
		if err != nil {
			yield(biometric.Template{}, fmt.Errorf("query templates: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTemplate(rows)
			if err != nil {
				yield(biometric.Template{}, err)
				return
			}
			if !yield(t, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(biometric.Template{}, fmt.Errorf("query templates: %w", err))
		}
	}
}

// GetByID retrieves a template by its ID.
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (biometric.Template, error) {
	row := r.db.QueryRowContext(ctx, selectPeople+" WHERE id = ?", id)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return biometric.Template{}, ErrNotFound
		}
		return biometric.Template{}, err
	}
	return t, nil
}

// List retrieves all templates, newest first.
func (r *TemplateRepository) List(ctx context.Context) ([]biometric.Template, error) {
	rows, err := r.db.QueryContext(ctx, selectPeople+" ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []biometric.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}

// CountByName returns how many templates are enrolled under each name.
func (r *TemplateRepository) CountByName(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name, COUNT(*) FROM people GROUP BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

// Delete removes a template by its ID.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM people WHERE id = ?", id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(sc scanner) (biometric.Template, error) {
	var (
		t      biometric.Template
		values [biometric.NumSegments]sql.NullFloat64
	)

	dest := make([]any, 0, len(values)+3)
	dest = append(dest, &t.ID, &t.Name)
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &t.CreatedAt)

	if err := sc.Scan(dest...); err != nil {
		return biometric.Template{}, err
	}

	for i, v := range values {
		t.Values[i] = v.Float64
		t.Present[i] = v.Valid
	}
	return t, nil
}
