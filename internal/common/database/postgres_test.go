// internal/common/database/postgres_test.go
package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresClient, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresFromDB(db), mock
}

func TestSaveAnalysis(t *testing.T) {
	client, mock := newMockPostgres(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	rec := AnalysisRecord{
		ID:               "5f0c3a9e-4a8f-4f61-9d1e-0d6f5f0b1c11",
		DealName:         "Suite 400",
		InputHash:        "9a3c",
		Convention:       "monthly_effective/advance",
		NER:              10.1429,
		GER:              13.1857,
		NERWithFixturing: 8.9055,
		Payload:          []byte(`{"ner":10.1429}`),
		CreatedAt:        created,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lease_analyses")).
		WithArgs(rec.ID, rec.DealName, rec.InputHash, rec.Convention,
			rec.NER, rec.GER, rec.NERWithFixturing, rec.Payload, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, client.SaveAnalysis(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAnalysis_DefaultsCreatedAt(t *testing.T) {
	client, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lease_analyses")).
		WithArgs("id-1", "deal", "h", "c", 1.0, 2.0, 0.5, []byte(`{}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := client.SaveAnalysis(context.Background(), AnalysisRecord{
		ID: "id-1", DealName: "deal", InputHash: "h", Convention: "c",
		NER: 1, GER: 2, NERWithFixturing: 0.5, Payload: []byte(`{}`),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAnalysis_Error(t *testing.T) {
	client, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lease_analyses")).
		WillReturnError(errors.New("relation does not exist"))

	err := client.SaveAnalysis(context.Background(), AnalysisRecord{ID: "id-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert analysis id-2")
	assert.Contains(t, err.Error(), "relation does not exist")
}

func TestEnsureSchema(t *testing.T) {
	client, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS lease_analyses")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, client.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
