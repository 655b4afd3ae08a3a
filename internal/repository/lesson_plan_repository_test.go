package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/mindelo-dev/registo-api/internal/models"
)

func newLessonPlanRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func lessonPlanRows(state models.PlanState) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "institution_id", "teacher_id", "subject_id", "academic_year_id", "class_id", "state", "locked", "created_at", "updated_at"}).
		AddRow("plan-1", "inst-1", "teacher-1", "subject-1", "year-1", nil, state, false, now, now)
}

func TestLessonPlanRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newLessonPlanRepoMock(t)
	defer cleanup()

	repo := NewLessonPlanRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, institution_id, teacher_id, subject_id")).
		WithArgs("plan-1").
		WillReturnRows(lessonPlanRows(models.PlanDraft))

	plan, err := repo.FindByID(context.Background(), "plan-1")
	require.NoError(t, err)
	require.Equal(t, models.PlanDraft, plan.State)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonPlanRepositoryFindByIDPassesThroughNoRows(t *testing.T) {
	db, mock, cleanup := newLessonPlanRepoMock(t)
	defer cleanup()

	repo := NewLessonPlanRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, institution_id, teacher_id, subject_id")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonPlanRepositoryListBuildsFilter(t *testing.T) {
	db, mock, cleanup := newLessonPlanRepoMock(t)
	defer cleanup()

	repo := NewLessonPlanRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("academic_year_id = $2 AND teacher_id = $3 AND state = $4")).
		WithArgs("inst-1", "year-1", "teacher-1", models.PlanApproved).
		WillReturnRows(lessonPlanRows(models.PlanApproved))

	plans, err := repo.List(context.Background(), models.LessonPlanFilter{
		InstitutionID:  "inst-1",
		AcademicYearID: "year-1",
		TeacherID:      "teacher-1",
		State:          models.PlanApproved,
	})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonPlanRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newLessonPlanRepoMock(t)
	defer cleanup()

	repo := NewLessonPlanRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lesson_plans")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	plan := &models.LessonPlan{
		InstitutionID:  "inst-1",
		TeacherID:      "teacher-1",
		SubjectID:      "subject-1",
		AcademicYearID: "year-1",
		State:          models.PlanDraft,
	}
	require.NoError(t, repo.Create(context.Background(), plan))
	require.NotEmpty(t, plan.ID)
	require.False(t, plan.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonPlanRepositoryUpdateState(t *testing.T) {
	db, mock, cleanup := newLessonPlanRepoMock(t)
	defer cleanup()

	repo := NewLessonPlanRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lesson_plans SET state = $2")).
		WithArgs("plan-1", models.PlanInReview).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateState(context.Background(), "plan-1", models.PlanInReview))
	require.NoError(t, mock.ExpectationsWereMet())
}
