package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresmejia3/faceguard/internal/biometric"
	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Store manages the PostgreSQL pool holding face templates and the audit trail.
// Descriptors are kept in a pgvector column of float32, so a loaded descriptor
// differs from the enrolled one by float32 rounding (well under 1e-6 in
// Euclidean distance for face embeddings), far below any usable threshold.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a connection pool and ensures the schema is initialized.
func New(ctx context.Context, connString string, maxConns int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	cfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// initSchema creates the tables and vector extension if they don't exist (Auto-Migration).
// The embedding column has no fixed dimension so a calibration profile can
// switch extractors; dim records the length of each row.
func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS face_templates (
			owner_id TEXT PRIMARY KEY,
			template_id TEXT NOT NULL UNIQUE,
			embedding VECTOR NOT NULL,
			dim INT NOT NULL,
			sample_count INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS face_auth_events (
			id UUID PRIMARY KEY,
			owner_id TEXT NOT NULL,
			template_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			outcome TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			confidence INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS face_auth_events_owner_idx ON face_auth_events (owner_id, created_at DESC);
	`
	_, err := pool.Exec(ctx, query)
	return err
}

// Close releases every pooled connection.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// toVector converts a descriptor into the pgvector representation.
func toVector(d types.Descriptor) pgvector.Vector {
	vec := make([]float32, len(d))
	for i, v := range d {
		vec[i] = float32(v)
	}
	return pgvector.NewVector(vec)
}

func fromVector(v pgvector.Vector) types.Descriptor {
	s := v.Slice()
	d := make(types.Descriptor, len(s))
	for i, f := range s {
		d[i] = float64(f)
	}
	return d
}

// CreateTemplate inserts tpl only when the owner has no template yet.
// Returns biometric.ErrAlreadyEnrolled otherwise.
func (s *Store) CreateTemplate(ctx context.Context, tpl *types.EnrollmentTemplate) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO face_templates (owner_id, template_id, embedding, dim, sample_count, created_at, updated_at)
		VALUES ($1, $2, $3::vector, $4, $5, $6, $6)
		ON CONFLICT (owner_id) DO NOTHING
	`, tpl.OwnerID, tpl.TemplateID, toVector(tpl.Descriptor), len(tpl.Descriptor), tpl.SampleCount, tpl.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return biometric.ErrAlreadyEnrolled
	}
	return nil
}

// ReplaceTemplate swaps the owner's template for tpl in a single statement.
// Returns biometric.ErrNotEnrolled when there is nothing to replace.
func (s *Store) ReplaceTemplate(ctx context.Context, tpl *types.EnrollmentTemplate) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE face_templates
		SET template_id = $2, embedding = $3::vector, dim = $4, sample_count = $5, created_at = $6, updated_at = NOW()
		WHERE owner_id = $1
	`, tpl.OwnerID, tpl.TemplateID, toVector(tpl.Descriptor), len(tpl.Descriptor), tpl.SampleCount, tpl.CreatedAt)
	if err != nil {
		return fmt.Errorf("replace template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return biometric.ErrNotEnrolled
	}
	return nil
}

// DeleteTemplate removes the owner's template. Deleting a missing template is
// not an error; the boolean reports whether a row was removed.
func (s *Store) DeleteTemplate(ctx context.Context, ownerID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM face_templates WHERE owner_id = $1", ownerID)
	if err != nil {
		return false, fmt.Errorf("delete template: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetTemplate loads the owner's template or returns biometric.ErrNotEnrolled.
func (s *Store) GetTemplate(ctx context.Context, ownerID string) (*types.EnrollmentTemplate, error) {
	var tpl types.EnrollmentTemplate
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx, `
		SELECT owner_id, template_id, embedding::text, sample_count, created_at
		FROM face_templates WHERE owner_id = $1
	`, ownerID).Scan(&tpl.OwnerID, &tpl.TemplateID, &vec, &tpl.SampleCount, &tpl.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, biometric.ErrNotEnrolled
	}
	if err != nil {
		return nil, fmt.Errorf("query template: %w", err)
	}
	tpl.Descriptor = fromVector(vec)
	return &tpl, nil
}

// ListTemplates returns metadata for every enrolled owner, without descriptors.
func (s *Store) ListTemplates(ctx context.Context) ([]types.TemplateInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT owner_id, template_id, dim, sample_count, created_at, updated_at
		FROM face_templates ORDER BY owner_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var out []types.TemplateInfo
	for rows.Next() {
		var info types.TemplateInfo
		if err := rows.Scan(&info.OwnerID, &info.TemplateID, &info.Dimension, &info.SampleCount, &info.CreatedAt, &info.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// RecordAttempt appends an audit record. A missing ID or timestamp is filled in.
func (s *Store) RecordAttempt(ctx context.Context, a *types.AuthAttempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return fmt.Errorf("invalid audit id %q: %w", a.ID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO face_auth_events (id, owner_id, template_id, kind, outcome, reason, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id.String(), a.OwnerID, a.TemplateID, string(a.Kind), string(a.Outcome), a.Reason, a.ConfidencePercent, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListAttempts returns the owner's most recent audit records, newest first.
func (s *Store) ListAttempts(ctx context.Context, ownerID string, limit int) ([]types.AuthAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, owner_id, template_id, kind, outcome, reason, confidence, created_at
		FROM face_auth_events
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []types.AuthAttempt
	for rows.Next() {
		var a types.AuthAttempt
		var kind, outcome string
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.TemplateID, &kind, &outcome, &a.Reason, &a.ConfidencePercent, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Kind = types.EventKind(kind)
		a.Outcome = types.Outcome(outcome)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		DROP TABLE IF EXISTS face_auth_events CASCADE;
		DROP TABLE IF EXISTS face_templates CASCADE;
	`)
	return err
}
