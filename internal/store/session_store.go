package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/model"
)

// ErrNotFound is returned when a session document, or a requested projection
// field on it, is absent. The two cases carry different messages but the
// same kind.
var ErrNotFound = errors.New("not found")

// listLimit bounds the summary listing.
const listLimit = 100

// SessionStore defines read and write access to accumulated session
// documents. Upsert is the only mutation path: it replaces the whole
// document for a job id, so redeliveries and re-runs converge to exactly
// one record per job (last writer wins).
type SessionStore interface {
	Upsert(ctx context.Context, doc *model.SessionDocument) error
	Get(ctx context.Context, jobID string) (*model.SessionDocument, error)
	List(ctx context.Context) ([]model.SessionSummary, error)
	GetEmotionalProfile(ctx context.Context, jobID string) ([]model.PhaseEmotion, error)
	GetInterventions(ctx context.Context, jobID string) ([]model.Intervention, error)
}

// PostgresStore implements SessionStore on a Postgres sessions table with
// the full document held as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			job_id       TEXT PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			document     JSONB NOT NULL
		)`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

// Upsert replaces the stored document for the job id in full.
func (s *PostgresStore) Upsert(ctx context.Context, doc *model.SessionDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	query := `
		INSERT INTO sessions (job_id, display_name, created_at, document)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			created_at   = EXCLUDED.created_at,
			document     = EXCLUDED.document`
	if _, err := s.pool.Exec(ctx, query, doc.JobID, doc.DisplayName, doc.CreatedAt, data); err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", doc.JobID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, jobID string) (*model.SessionDocument, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, "SELECT document FROM sessions WHERE job_id = $1", jobID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: analysis not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read session %s: %w", jobID, err)
	}

	var doc model.SessionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", jobID, err)
	}
	return &doc, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]model.SessionSummary, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT job_id, display_name, created_at FROM sessions ORDER BY created_at DESC LIMIT $1", listLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	summaries := []model.SessionSummary{}
	for rows.Next() {
		var sum model.SessionSummary
		if err := rows.Scan(&sum.JobID, &sum.DisplayName, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return summaries, nil
}

func (s *PostgresStore) GetEmotionalProfile(ctx context.Context, jobID string) ([]model.PhaseEmotion, error) {
	data, err := s.projection(ctx, jobID, "emotional_profile")
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: emotional data not found (try re-analyzing the session)", ErrNotFound)
	}

	var profile []model.PhaseEmotion
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal emotional profile: %w", err)
	}
	return profile, nil
}

func (s *PostgresStore) GetInterventions(ctx context.Context, jobID string) ([]model.Intervention, error) {
	data, err := s.projection(ctx, jobID, "key_interventions")
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: intervention data not found", ErrNotFound)
	}

	var interventions []model.Intervention
	if err := json.Unmarshal(data, &interventions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal interventions: %w", err)
	}
	return interventions, nil
}

// projection reads a single top-level field out of the stored document.
// Returns nil bytes when the document exists but the field is absent.
func (s *PostgresStore) projection(ctx context.Context, jobID, field string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		"SELECT document -> $2 FROM sessions WHERE job_id = $1", jobID, field).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: analysis not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read session %s: %w", jobID, err)
	}
	return data, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
