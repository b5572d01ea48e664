package attendance

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "captured_at", "driver_rut", "driver_name", "driver_role", "present_crew", "absent_crew", "plate",
	"aux_present", "aux_rut", "aux_first_name", "aux_second_name", "aux_first_surname", "aux_second_surname",
	"status", "created_at",
}

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func TestRepository_Save(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := sampleRecord()
	rec.Status = ""
	rec.CreatedAt = nil
	rec.Auxiliary = &AuxiliaryWorker{RUT: "9-9", FirstName: "Rosa"}
	created := time.Date(2024, 10, 12, 11, 20, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WithArgs("rec-1", "2024-10-12 08:15:00", "11129781-9", "Luis Cardenas Bahamonde", "Conductor",
			"Pedro Guerrero Barria\nOsvaldo Ojeda",
			"Daniel Alvaro Delgado\nCludio Sanhueza Millatureo\nLuis Gonzalez Talma\nHermi Vargas Garriel",
			"GHJK12", true, "9-9", "Rosa", "", "", "", StatusPending).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	saved, err := repo.Save(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, saved.Status)
	require.NotNil(t, saved.CreatedAt)
	assert.Equal(t, created, *saved.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetRecord(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 10, 12, 11, 20, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records WHERE id = $1")).
		WithArgs("rec-1").
		WillReturnRows(pgxmock.NewRows(columns).AddRow(
			"rec-1", "2024-10-12 08:15:00", "11129781-9", "Luis Cardenas Bahamonde", "Conductor",
			"Osvaldo Ojeda", "", "GHJK12",
			false, "", "", "", "", "", StatusProcessed, created,
		))

	rec, err := repo.GetRecord(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Osvaldo Ojeda"}, rec.PresentCrew)
	assert.Equal(t, []string{}, rec.AbsentCrew)
	assert.Nil(t, rec.Auxiliary)
	assert.Equal(t, StatusProcessed, rec.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetRecordNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetRecord(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_records SET status = $2 WHERE id = $1")).
		WithArgs("rec-1", StatusProcessed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_records SET status = $2 WHERE id = $1")).
		WithArgs("gone", StatusRejected).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), "rec-1", StatusProcessed))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), "gone", StatusRejected), ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListRecordsFilters(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 10, 12, 11, 20, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE driver_rut = $1 AND plate = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4")).
		WithArgs("11129781-9", "GHJK12", 50, 0).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("rec-2", "2024-10-12 08:15:00", "11129781-9", "Luis Cardenas Bahamonde", "Conductor",
				"Osvaldo Ojeda\nPedro Guerrero Barria", "Daniel Alvaro Delgado", "GHJK12",
				true, "9-9", "Rosa", "", "Diaz", "", StatusPending, created).
			AddRow("rec-1", "2024-10-11 08:15:00", "11129781-9", "Luis Cardenas Bahamonde", "Conductor",
				"Osvaldo Ojeda", "", "GHJK12",
				false, "", "", "", "", "", StatusProcessed, created.Add(-24*time.Hour)))

	recs, err := repo.ListRecords(context.Background(), Filter{DriverRUT: "11129781-9", Plate: " ghjk12"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "rec-2", recs[0].ID)
	assert.Equal(t, []string{"Osvaldo Ojeda", "Pedro Guerrero Barria"}, recs[0].PresentCrew)
	require.NotNil(t, recs[0].Auxiliary)
	assert.Equal(t, "Rosa Diaz", recs[0].Auxiliary.FullName())
	assert.Nil(t, recs[1].Auxiliary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListRecordsPaging(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records ORDER BY created_at DESC LIMIT $1 OFFSET $2")).
		WithArgs(10, 20).
		WillReturnRows(pgxmock.NewRows(columns))

	recs, err := repo.ListRecords(context.Background(), Filter{Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NotNil(t, recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
