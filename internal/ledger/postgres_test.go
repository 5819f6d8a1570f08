package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// newMockPostgres creates a Postgres ledger backed by pgxmock.
func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgres_EnsureHeader(t *testing.T) {
	l, mock := newMockPostgres(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS records`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, l.EnsureHeader(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListExistingKeys(t *testing.T) {
	l, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT url FROM records`).
		WillReturnRows(pgxmock.NewRows([]string{"url"}).
			AddRow("https://a.example").
			AddRow("https://b.example"))

	keys, err := l.ListExistingKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.NewKeySet("https://a.example", "https://b.example"), keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AppendRecords(t *testing.T) {
	l, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`LOCK TABLE records`).WillReturnResult(pgxmock.NewResult("LOCK TABLE", 0))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(row_key\), 0\) FROM records`).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(7))
	mock.ExpectCopyFrom(pgx.Identifier{"records"}, insertColumns()).WillReturnResult(2)
	mock.ExpectCommit()

	err := l.AppendRecords(context.Background(), sampleRecords("https://a.example", "https://b.example"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AppendRecords_CopyFailsRollsBack(t *testing.T) {
	l, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`LOCK TABLE records`).WillReturnResult(pgxmock.NewResult("LOCK TABLE", 0))
	mock.ExpectQuery(`SELECT COALESCE`).WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectCopyFrom(pgx.Identifier{"records"}, insertColumns()).
		WillReturnError(fmt.Errorf("duplicate key value violates unique constraint"))
	mock.ExpectRollback()

	err := l.AppendRecords(context.Background(), sampleRecords("https://a.example"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres ledger: append")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func recordRow(rowKey int, url string, flag int) []any {
	return []any{rowKey, "2025-01-02T03:04:05Z", "q", "t", url, "s", "Acme", "", "", "", flag}
}

func TestPostgres_ReadRange_ClampsToCount(t *testing.T) {
	l, mock := newMockPostgres(t)

	cols := append([]string{"row_key"}, recordColumns[:]...)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM records`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT row_key, timestamp, .* FROM records WHERE row_key BETWEEN \$1 AND \$2`).
		WithArgs(2, 3).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(recordRow(2, "https://b.example", 1)...).
			AddRow(recordRow(3, "https://c.example", 0)...))

	recs, err := l.ReadRange(context.Background(), 2, 50)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[0].RowKey)
	assert.True(t, recs[0].Attempted())
	assert.Equal(t, "Acme", recs[0].CompanyName)
	assert.False(t, recs[1].Attempted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReadRange_StartPastEnd(t *testing.T) {
	l, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM records`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	recs, err := l.ReadRange(context.Background(), 5, 9)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateFields_SingleStatement(t *testing.T) {
	l, mock := newMockPostgres(t)

	fields := model.ContactFields(model.Contact{CompanyName: "Acme", ContactEmail: "hi@acme.example"})
	mock.ExpectExec(`UPDATE records SET company_name = \$1, telephone = \$2, contact_email = \$3, extraction_attempted = \$4 WHERE row_key = \$5`).
		WithArgs("Acme", "", "hi@acme.example", 1, 4).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, l.UpdateFields(context.Background(), 4, fields))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateFields_RowNotFound(t *testing.T) {
	l, mock := newMockPostgres(t)

	mock.ExpectExec(`UPDATE records SET sales_email = \$1 WHERE row_key = \$2`).
		WithArgs("hello", 9).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := l.UpdateFields(context.Background(), 9, model.Fields{model.ColSalesEmail: "hello"})
	assert.ErrorIs(t, err, ErrRowNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Count_Error(t *testing.T) {
	l, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(fmt.Errorf("connection refused"))

	_, err := l.Count(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres ledger: count")
}
