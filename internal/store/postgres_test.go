package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/swing-coach/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func swingColumns() []string {
	return []string{"id", "created_at", "images", "analysis", "summary", "rating",
		"positions_analyzed", "club", "shot_outcome", "focus_area", "notes"}
}

func TestPostgres_Create(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO swings`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "the analysis",
			"a summary", intPtr(8), "address,top", "Driver", nil, nil, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	rec, err := s.Create(context.Background(), model.NewRecord{
		Images: map[model.Position]model.EncodedImage{
			model.PositionAddress: {Data: "YQ==", MediaType: "image/jpeg"},
			model.PositionTop:     {Data: "Yg==", MediaType: "image/png"},
		},
		Analysis:   "the analysis",
		Summary:    "a summary",
		Rating:     intPtr(8),
		Positions:  []model.Position{model.PositionAddress, model.PositionTop},
		Annotation: model.Annotation{Club: "Driver"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateRollsBackOnFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO swings`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(eris.New("disk full"))
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), testRecord("doomed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert swing")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM swings WHERE id = \$1`).
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), "missing-id")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Get(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM swings WHERE id = \$1`).
		WithArgs("swing-1").
		WillReturnRows(pgxmock.NewRows(swingColumns()).AddRow(
			"swing-1", now, `{"impact":{"data":"aW1n","media_type":"image/jpeg"}}`,
			"analysis text", "sum", int64(6), "impact", nil, nil, nil, nil,
		))

	rec, err := s.Get(context.Background(), "swing-1")
	require.NoError(t, err)
	assert.Equal(t, "swing-1", rec.ID)
	assert.Equal(t, "analysis text", rec.Analysis)
	require.NotNil(t, rec.Rating)
	assert.Equal(t, 6, *rec.Rating)
	assert.Equal(t, []model.Position{model.PositionImpact}, rec.Positions)
	assert.Equal(t, "aW1n", rec.Images[model.PositionImpact].Data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListClampsArgs(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM swings ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(100, 0).
		WillReturnRows(pgxmock.NewRows(swingColumns()))

	recs, err := s.List(context.Background(), 5000, -3)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Count(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM swings`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(12))

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestPostgres_RecentDegradesOnError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM swings ORDER BY created_at DESC`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(eris.New("connection refused"))

	recs := s.Recent(context.Background(), 3)
	assert.Empty(t, recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Delete(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM swings WHERE id = \$1`).
		WithArgs("swing-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	removed, err := s.Delete(context.Background(), "swing-1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteNonexistent(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM swings WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	removed, err := s.Delete(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
