package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/mindelo-dev/registo-api/internal/models"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
)

func newClosureRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func closureRows(status models.ClosureStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "institution_id", "year", "period_token", "status", "closed_by", "closed_at", "reopened_by", "reopened_at", "justification", "created_at", "updated_at"}).
		AddRow("closure-1", "inst-1", 2026, "TRIMESTER_1", status, nil, nil, nil, nil, nil, now, now)
}

func TestClosureRepositoryFindByKey(t *testing.T) {
	db, mock, cleanup := newClosureRepoMock(t)
	defer cleanup()

	repo := NewClosureRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, institution_id, year, period_token, status")).
		WithArgs("inst-1", 2026, models.TokenTrimester1).
		WillReturnRows(closureRows(models.ClosureClosing))

	record, err := repo.FindByKey(context.Background(), "inst-1", 2026, models.TokenTrimester1)
	require.NoError(t, err)
	require.Equal(t, models.ClosureClosing, record.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClosureRepositoryCloseAtomicCascadesPeriod(t *testing.T) {
	db, mock, cleanup := newClosureRepoMock(t)
	defer cleanup()

	repo := NewClosureRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO closure_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE periods SET status = 'CLOSED'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, institution_id, year, period_token, status")).
		WithArgs("inst-1", 2026, models.TokenTrimester1).
		WillReturnRows(closureRows(models.ClosureClosed))

	record, err := repo.CloseAtomic(context.Background(), models.ClosureCloseParams{
		InstitutionID:  "inst-1",
		Year:           2026,
		AcademicYearID: "year-1",
		PeriodToken:    models.TokenTrimester1,
		ActorUserID:    "admin-1",
		PeriodNumber:   1,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, models.ClosureClosed, record.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClosureRepositoryCloseAtomicValidatesOnTheTransaction(t *testing.T) {
	db, mock, cleanup := newClosureRepoMock(t)
	defer cleanup()

	repo := NewClosureRepository(db)
	// Ordered expectations: the validation read happens after Begin and
	// before the compare-and-swap write.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM assessments WHERE lesson_plan_id = $1 AND closed = FALSE")).
		WithArgs("plan-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO closure_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE periods SET status = 'CLOSED'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, institution_id, year, period_token, status")).
		WillReturnRows(closureRows(models.ClosureClosed))

	period := 1
	validate := func(ctx context.Context, reads ClosureReads) error {
		open, err := reads.ListOpenAssessments(ctx, "plan-1", &period)
		require.NoError(t, err)
		require.Empty(t, open)
		return nil
	}

	_, err := repo.CloseAtomic(context.Background(), models.ClosureCloseParams{
		InstitutionID:  "inst-1",
		Year:           2026,
		AcademicYearID: "year-1",
		PeriodToken:    models.TokenTrimester1,
		ActorUserID:    "admin-1",
		PeriodNumber:   1,
	}, validate)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClosureRepositoryCloseAtomicRollsBackOnValidationFailure(t *testing.T) {
	db, mock, cleanup := newClosureRepoMock(t)
	defer cleanup()

	repo := NewClosureRepository(db)
	mock.ExpectBegin()
	mock.ExpectRollback()

	validate := func(ctx context.Context, reads ClosureReads) error {
		return appErrors.Prerequisites([]string{`plan plan-1: assessment "Teste 2" in trimester 1 is still open`})
	}

	_, err := repo.CloseAtomic(context.Background(), models.ClosureCloseParams{
		InstitutionID:  "inst-1",
		Year:           2026,
		AcademicYearID: "year-1",
		PeriodToken:    models.TokenTrimester1,
		ActorUserID:    "admin-1",
		PeriodNumber:   1,
	}, validate)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrPrerequisite.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClosureRepositoryCloseAtomicYearCascadesPlans(t *testing.T) {
	db, mock, cleanup := newClosureRepoMock(t)
	defer cleanup()

	repo := NewClosureRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO closure_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE periods SET status = 'CLOSED'")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lesson_plans SET state = 'CLOSED'")).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET status = 'CLOSED'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, institution_id, year, period_token, status")).
		WillReturnRows(closureRows(models.ClosureClosed))

	_, err := repo.CloseAtomic(context.Background(), models.ClosureCloseParams{
		InstitutionID:   "inst-1",
		Year:            2026,
		AcademicYearID:  "year-1",
		PeriodToken:     models.TokenYear,
		ActorUserID:     "admin-1",
		CloseAllPeriods: true,
		ClosePlans:      true,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClosureRepositoryCloseAtomicLostRace(t *testing.T) {
	db, mock, cleanup := newClosureRepoMock(t)
	defer cleanup()

	repo := NewClosureRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO closure_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.CloseAtomic(context.Background(), models.ClosureCloseParams{
		InstitutionID:  "inst-1",
		Year:           2026,
		AcademicYearID: "year-1",
		PeriodToken:    models.TokenTrimester1,
		ActorUserID:    "admin-1",
		PeriodNumber:   1,
	}, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClosureRepositoryReopenAtomicRequiresClosedRecord(t *testing.T) {
	db, mock, cleanup := newClosureRepoMock(t)
	defer cleanup()

	repo := NewClosureRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE closure_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.ReopenAtomic(context.Background(), models.ClosureReopenParams{
		InstitutionID:  "inst-1",
		Year:           2026,
		AcademicYearID: "year-1",
		PeriodToken:    models.TokenTrimester1,
		ActorUserID:    "admin-1",
		Justification:  "correction",
		PeriodNumber:   1,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClosureRepositoryReopenAtomicCascade(t *testing.T) {
	db, mock, cleanup := newClosureRepoMock(t)
	defer cleanup()

	repo := NewClosureRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE closure_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE periods SET status = 'ACTIVE'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, institution_id, year, period_token, status")).
		WillReturnRows(closureRows(models.ClosureReopened))

	record, err := repo.ReopenAtomic(context.Background(), models.ClosureReopenParams{
		InstitutionID:  "inst-1",
		Year:           2026,
		AcademicYearID: "year-1",
		PeriodToken:    models.TokenTrimester1,
		ActorUserID:    "admin-1",
		Justification:  "correction",
		PeriodNumber:   1,
	})
	require.NoError(t, err)
	require.Equal(t, models.ClosureReopened, record.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
