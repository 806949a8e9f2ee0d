package costs

import (
	"context"
	"errors"
	"testing"

	"idv-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestRecorder(t *testing.T) (*Recorder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRecorder(db, "idv-workers", logger.NewTestLogger(t)), mock
}

// ==========================
// Cost Recording Tests
// ==========================

func TestRecorder_AddSPCost(t *testing.T) {
	recorder, mock := newTestRecorder(t)

	mock.ExpectExec("INSERT INTO sp_costs").
		WithArgs("urn:example:sp", 1, "address").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := recorder.AddSPCost(context.Background(), "urn:example:sp", 1, "address")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorder_AddSPCost_QueryError(t *testing.T) {
	recorder, mock := newTestRecorder(t)

	mock.ExpectExec("INSERT INTO sp_costs").
		WillReturnError(errors.New("connection refused"))

	err := recorder.AddSPCost(context.Background(), "urn:example:sp", 1, "address")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert sp cost")
}

func TestRecorder_AddUserProofingCost_Upsert(t *testing.T) {
	recorder, mock := newTestRecorder(t)

	mock.ExpectExec("INSERT INTO proofing_costs").
		WithArgs("user-1", "address").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := recorder.AddUserProofingCost(context.Background(), "user-1", "address")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorder_AddProofingComponent_Upsert(t *testing.T) {
	recorder, mock := newTestRecorder(t)

	mock.ExpectExec("INSERT INTO proofing_components").
		WithArgs("user-1", "address_check", "instant_verify").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := recorder.AddProofingComponent(context.Background(), "user-1", "address_check", "instant_verify")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Agent Hook Tests
// ==========================

func TestRecorder_AddStageCost_WritesTokenizedRow(t *testing.T) {
	recorder, mock := newTestRecorder(t)

	mock.ExpectExec("INSERT INTO sp_costs").
		WithArgs("idv-workers", 1, "address:instant_verify").
		WillReturnResult(sqlmock.NewResult(1, 1))

	recorder.AddStageCost(context.Background(), "address", "instant_verify")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorder_AddStageCost_SwallowsFailures(t *testing.T) {
	recorder, mock := newTestRecorder(t)

	mock.ExpectExec("INSERT INTO sp_costs").
		WillReturnError(errors.New("connection refused"))

	// Must not panic or propagate; the workflow never sees cost failures.
	recorder.AddStageCost(context.Background(), "resolution", "mock")

	assert.NoError(t, mock.ExpectationsWereMet())
}
