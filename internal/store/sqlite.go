package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/swing-coach/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS swings (
	id                 TEXT PRIMARY KEY,
	created_at         DATETIME NOT NULL,
	images             TEXT NOT NULL,
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

const sqliteSelectColumns = `id, created_at, images, analysis, summary, rating, positions_analyzed, club, shot_outcome, focus_area, notes`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, rec model.NewRecord) (*model.AnalysisRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	imagesJSON, err := json.Marshal(rec.Images)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal images")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO swings (`+sqliteSelectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, now, string(imagesJSON), rec.Analysis,
		nullIfEmpty(rec.Summary), rec.Rating, model.PositionsCSV(rec.Positions),
		nullIfEmpty(rec.Annotation.Club), nullIfEmpty(rec.Annotation.ShotOutcome),
		nullIfEmpty(rec.Annotation.FocusArea), nullIfEmpty(rec.Annotation.Notes),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert swing")
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit insert")
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

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteSelectColumns+` FROM swings WHERE id = ?`, id)

	rec, err := scanSwing(row.Scan)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: swing %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get swing %s", id)
	}
	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]model.AnalysisRecord, error) {
	limit, offset = clampPage(limit, offset)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSelectColumns+` FROM swings ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list swings")
	}
	defer rows.Close()

	var recs []model.AnalysisRecord
	for rows.Next() {
		rec, err := scanSwing(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan swing")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list swings iterate")
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM swings`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count swings")
	}
	return n, nil
}

func (s *SQLiteStore) Recent(ctx context.Context, n int) []model.AnalysisRecord {
	recs, err := s.List(ctx, n, 0)
	if err != nil {
		zap.L().Warn("sqlite: recent swings lookup failed, continuing without history", zap.Error(err))
		return nil
	}
	return recs
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM swings WHERE id = ?`, id)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: delete swing %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	if err := tx.Commit(); err != nil {
		return false, eris.Wrap(err, "sqlite: commit delete")
	}
	return n > 0, nil
}

// scanSwing reads one swings row through any Scan-shaped function.
func scanSwing(scan func(dest ...any) error) (*model.AnalysisRecord, error) {
	var rec model.AnalysisRecord
	var imagesJSON string
	var positionsCSV string
	var summary, club, shotOutcome, focusArea, notes sql.NullString
	var rating sql.NullInt64

	err := scan(&rec.ID, &rec.CreatedAt, &imagesJSON, &rec.Analysis,
		&summary, &rating, &positionsCSV, &club, &shotOutcome, &focusArea, &notes)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(imagesJSON), &rec.Images); err != nil {
		return nil, eris.Wrap(err, "unmarshal images")
	}
	rec.Positions = model.PositionsFromCSV(positionsCSV)
	rec.Summary = summary.String
	if rating.Valid {
		r := int(rating.Int64)
		rec.Rating = &r
	}
	rec.Club = club.String
	rec.ShotOutcome = shotOutcome.String
	rec.FocusArea = focusArea.String
	rec.Notes = notes.String

	return &rec, nil
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
