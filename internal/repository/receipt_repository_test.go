package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReceiptRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReceiptRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newReceiptRepoMock(t)
	defer cleanup()
	repo := NewReceiptRepository(db)

	mock.ExpectExec("INSERT INTO read_receipts").
		WithArgs("a1", "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := repo.Insert(context.Background(), "a1", "s1")
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiptRepositoryInsertConflictIsNoop(t *testing.T) {
	db, mock, cleanup := newReceiptRepoMock(t)
	defer cleanup()
	repo := NewReceiptRepository(db)

	// ON CONFLICT DO NOTHING reports zero affected rows for the duplicate.
	mock.ExpectExec("INSERT INTO read_receipts").
		WithArgs("a1", "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.Insert(context.Background(), "a1", "s1")
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiptRepositoryReadSet(t *testing.T) {
	db, mock, cleanup := newReceiptRepoMock(t)
	defer cleanup()
	repo := NewReceiptRepository(db)

	rows := sqlmock.NewRows([]string{"announcement_id"}).AddRow("a1").AddRow("a2")
	mock.ExpectQuery(`SELECT announcement_id FROM read_receipts WHERE viewer_id = \$1`).
		WithArgs("s1").
		WillReturnRows(rows)

	ids, err := repo.ReadSet(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiptRepositoryListByAnnouncement(t *testing.T) {
	db, mock, cleanup := newReceiptRepoMock(t)
	defer cleanup()
	repo := NewReceiptRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"announcement_id", "viewer_id", "read_at"}).
		AddRow("a1", "s1", now).
		AddRow("a1", "s2", now.Add(time.Minute))
	mock.ExpectQuery(`SELECT announcement_id, viewer_id, read_at FROM read_receipts`).
		WithArgs("a1").
		WillReturnRows(rows)

	receipts, err := repo.ListByAnnouncement(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.Equal(t, "s1", receipts[0].ViewerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
