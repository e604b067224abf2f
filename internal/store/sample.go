package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/skelid/internal/biometric"
)

// Sample represents one raw fingerprint recorded during an enrolment session.
type Sample struct {
	ID          int64                 `json:"id"`
	SessionID   string                `json:"session_id"`
	PersonID    string                `json:"person_id,omitempty"`
	Name        string                `json:"name"`
	SampleIndex int                   `json:"sample_index"`
	Fingerprint biometric.Fingerprint `json:"-"`
	Data        map[string]float64    `json:"data"`
	CreatedAt   time.Time             `json:"created_at"`
}

// SampleRepository stores the raw samples behind each enrolled template.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create inserts every sample of a finished session in a single transaction.
// personID links the samples to the template they produced and may be empty.
func (r *SampleRepository) Create(ctx context.Context, session *biometric.Session, personID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO enrolment_samples (session_id, person_id, name, sample_index, data) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var person any
	if personID != "" {
		person = personID
	}

	for i, fp := range session.Samples {
		data, err := json.Marshal(fp.Map())
		if err != nil {
			return fmt.Errorf("encode sample %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, session.ID, person, session.Name, i, string(data)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetBySessionID retrieves all samples of a session in recording order.
func (r *SampleRepository) GetBySessionID(ctx context.Context, sessionID string) ([]Sample, error) {
	return r.query(ctx,
		`SELECT id, session_id, person_id, name, sample_index, data, created_at
		 FROM enrolment_samples
		 WHERE session_id = ?
		 ORDER BY sample_index`,
		sessionID,
	)
}

// GetByPersonID retrieves the samples that produced a template.
func (r *SampleRepository) GetByPersonID(ctx context.Context, personID string) ([]Sample, error) {
	return r.query(ctx,
		`SELECT id, session_id, person_id, name, sample_index, data, created_at
		 FROM enrolment_samples
		 WHERE person_id = ?
		 ORDER BY sample_index`,
		personID,
	)
}

// DeleteBySessionID removes all samples of a session.
func (r *SampleRepository) DeleteBySessionID(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM enrolment_samples WHERE session_id = ?`, sessionID)
	return err
}

func (r *SampleRepository) query(ctx context.Context, q string, args ...any) ([]Sample, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var (
			s      Sample
			person sql.NullString
			data   string
		)
		if err := rows.Scan(&s.ID, &s.SessionID, &person, &s.Name, &s.SampleIndex, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.PersonID = person.String
		if err := json.Unmarshal([]byte(data), &s.Data); err != nil {
			return nil, fmt.Errorf("decode sample %d: %w", s.ID, err)
		}
		s.Fingerprint = fingerprintFromMap(s.Data)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// fingerprintFromMap rebuilds a fingerprint; segments missing from m are
// Unavailable.
func fingerprintFromMap(m map[string]float64) biometric.Fingerprint {
	var fp biometric.Fingerprint
	for _, s := range biometric.Segments() {
		v, ok := m[s.String()]
		if !ok {
			v = biometric.Unavailable
		}
		fp[s] = v
	}
	return fp
}
