package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/swing-coach/internal/model"
)

// PgxPool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if minConns <= 0 {
		minConns = 2
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS swings (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	images             JSONB NOT NULL,
	analysis           TEXT NOT NULL,
	summary            TEXT,
	rating             INTEGER,
	positions_analyzed TEXT NOT NULL,
	club               TEXT,
	shot_outcome       TEXT,
	focus_area         TEXT,
	notes              TEXT
);

CREATE INDEX IF NOT EXISTS idx_swings_created_at ON swings(created_at DESC);
`

const postgresSelectColumns = `id, created_at, images, analysis, summary, rating, positions_analyzed, club, shot_outcome, focus_area, notes`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, rec model.NewRecord) (*model.AnalysisRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	imagesJSON, err := json.Marshal(rec.Images)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal images")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO swings (`+postgresSelectColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, now, imagesJSON, rec.Analysis,
		nullIfEmpty(rec.Summary), rec.Rating, model.PositionsCSV(rec.Positions),
		nullIfEmpty(rec.Annotation.Club), nullIfEmpty(rec.Annotation.ShotOutcome),
		nullIfEmpty(rec.Annotation.FocusArea), nullIfEmpty(rec.Annotation.Notes),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert swing")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit insert")
	}

	return &model.AnalysisRecord{
		ID:         id,
		CreatedAt:  now,
		Images:     rec.Images,
		Analysis:   rec.Analysis,
		Summary:    rec.Summary,
		Rating:     rec.Rating,
		Positions:  rec.Positions,
		Annotation: rec.Annotation,
	}, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresSelectColumns+` FROM swings WHERE id = $1`, id)

	rec, err := scanSwing(row.Scan)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: swing %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get swing %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]model.AnalysisRecord, error) {
	limit, offset = clampPage(limit, offset)

	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresSelectColumns+` FROM swings ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list swings")
	}
	defer rows.Close()

	var recs []model.AnalysisRecord
	for rows.Next() {
		rec, err := scanSwing(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan swing")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list swings iterate")
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM swings`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count swings")
	}
	return n, nil
}

func (s *PostgresStore) Recent(ctx context.Context, n int) []model.AnalysisRecord {
	recs, err := s.List(ctx, n, 0)
	if err != nil {
		zap.L().Warn("postgres: recent swings lookup failed, continuing without history", zap.Error(err))
		return nil
	}
	return recs
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM swings WHERE id = $1`, id)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: delete swing %s", id)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, eris.Wrap(err, "postgres: commit delete")
	}
	return tag.RowsAffected() > 0, nil
}
