package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractionRepo_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := NewExtractionRepo(db)
	r.Now = fixedNow
	mock.ExpectExec(`insert into extractions`).
		WithArgs("req-1", int64(9), "4342866055", "neet_style,questions_only", 180, OutcomeOK, "", int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = r.Record(context.Background(), ExtractionRow{
		ID:        "req-1",
		ChatID:    9,
		NID:       "4342866055",
		Variants:  []string{"neet_style", "questions_only"},
		Questions: 180,
		Outcome:   OutcomeOK,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtractionRepo_Recent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "chat_id", "nid", "variants", "questions", "outcome", "error", "created_at"}
	mock.ExpectQuery(`from extractions where chat_id = \$1 order by created_at desc limit \$2`).
		WithArgs(int64(9), 5).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("b", int64(9), "2", "questions_only", 3, OutcomeOK, "", int64(1700000100)).
			AddRow("a", int64(9), "1", "", 0, OutcomeFailed, "no questions", int64(1700000000)))
	mock.ExpectQuery(`from extractions order by created_at desc limit \$1`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(cols))

	r := NewExtractionRepo(db)
	rows, err := r.Recent(context.Background(), 9, 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].ID)
	assert.Equal(t, []string{"questions_only"}, rows[0].Variants)
	assert.Nil(t, rows[1].Variants)
	assert.Equal(t, "no questions", rows[1].Error)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), rows[1].CreatedAt)

	rows, err = r.Recent(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtractionRepo_PurgeOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := NewExtractionRepo(db)
	r.Now = fixedNow
	mock.ExpectExec(`delete from extractions where created_at < \$1`).
		WithArgs(int64(1700000000 - 3600)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := r.PurgeOlderThan(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
