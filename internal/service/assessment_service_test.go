package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindelo-dev/registo-api/internal/models"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
)

type mockAssessmentRepo struct {
	assessments     map[string]models.Assessment
	grades          map[string][]models.Grade
	authored        map[string]bool
	created         *models.Assessment
	upsertedGrade   *models.Grade
	closedIDs       []string
	authoredQueries []string
}

func (m *mockAssessmentRepo) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	if a, ok := m.assessments[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssessmentRepo) ListByPlan(ctx context.Context, lessonPlanID string) ([]models.Assessment, error) {
	var out []models.Assessment
	for _, a := range m.assessments {
		if a.LessonPlanID == lessonPlanID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAssessmentRepo) Create(ctx context.Context, assessment *models.Assessment) error {
	assessment.ID = "assessment-new"
	m.created = assessment
	return nil
}

func (m *mockAssessmentRepo) SetClosed(ctx context.Context, id string, closed bool) error {
	m.closedIDs = append(m.closedIDs, id)
	return nil
}

func (m *mockAssessmentRepo) UpsertGrade(ctx context.Context, grade *models.Grade) error {
	m.upsertedGrade = grade
	return nil
}

func (m *mockAssessmentRepo) ListGrades(ctx context.Context, assessmentID string) ([]models.Grade, error) {
	return m.grades[assessmentID], nil
}

func (m *mockAssessmentRepo) TeacherAuthoredExists(ctx context.Context, lessonPlanID, kind string) (bool, error) {
	m.authoredQueries = append(m.authoredQueries, kind)
	return m.authored[kind], nil
}

type mockAssessmentPlanReader struct {
	plans map[string]models.LessonPlan
}

func (m *mockAssessmentPlanReader) FindByID(ctx context.Context, id string) (*models.LessonPlan, error) {
	if p, ok := m.plans[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

type mockInvalidator struct {
	patterns []string
}

func (m *mockInvalidator) Invalidate(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

type assessmentFixture struct {
	repo    *mockAssessmentRepo
	cache   *mockInvalidator
	audit   *mockAuditWriter
	service *AssessmentService
}

func newAssessmentFixture(calendar models.CalendarType) *assessmentFixture {
	f := &assessmentFixture{
		repo: &mockAssessmentRepo{
			assessments: map[string]models.Assessment{},
			authored:    map[string]bool{},
		},
		cache: &mockInvalidator{},
		audit: &mockAuditWriter{},
	}
	plans := &mockAssessmentPlanReader{plans: map[string]models.LessonPlan{
		"plan-1": {ID: "plan-1", InstitutionID: "inst-1", TeacherID: "teacher-1", State: models.PlanApproved},
	}}
	institutions := &mockInstitutionReader{institutions: map[string]models.Institution{
		"inst-1": {ID: "inst-1", CalendarType: calendar},
	}}
	gate := newTestGate(
		map[string]models.Teacher{"user-t1": {ID: "teacher-1", InstitutionID: "inst-1"}},
		map[string]models.Institution{"inst-1": {ID: "inst-1", CalendarType: calendar}},
	)
	f.service = NewAssessmentService(f.repo, plans, institutions, f.audit, f.cache, gate, nil, zap.NewNop())
	return f
}

func planTeacherActor() models.ActorContext {
	return models.ActorContext{
		UserID:        "user-t1",
		InstitutionID: "inst-1",
		Role:          models.RoleTeacher,
		TeacherID:     strPtr("teacher-1"),
	}
}

func TestCreateAssessmentRequiresPeriodForPeriodScopedKinds(t *testing.T) {
	f := newAssessmentFixture(models.CalendarSecondary)

	_, err := f.service.Create(context.Background(), planTeacherActor(), CreateAssessmentRequest{
		LessonPlanID: "plan-1",
		Kind:         models.AssessmentTest,
		Name:         "Teste 1",
		Weight:       0.4,
		Date:         time.Now(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a period number")
}

func TestCreateAssessmentRejectsPeriodOnYearScopedKinds(t *testing.T) {
	f := newAssessmentFixture(models.CalendarSecondary)
	period := 2

	_, err := f.service.Create(context.Background(), planTeacherActor(), CreateAssessmentRequest{
		LessonPlanID: "plan-1",
		Kind:         models.AssessmentRetake,
		Name:         "Recurso",
		PeriodNumber: &period,
		Weight:       1,
		Date:         time.Now(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "year-scoped")
}

func TestCreateAssessmentRejectsPeriodBeyondCalendar(t *testing.T) {
	f := newAssessmentFixture(models.CalendarHigher)
	period := 3

	_, err := f.service.Create(context.Background(), planTeacherActor(), CreateAssessmentRequest{
		LessonPlanID: "plan-1",
		Kind:         models.AssessmentExam,
		Name:         "Exame",
		PeriodNumber: &period,
		Weight:       0.5,
		Date:         time.Now(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestCreateAssessmentStampsTeacherAuthor(t *testing.T) {
	f := newAssessmentFixture(models.CalendarSecondary)
	period := 1

	assessment, err := f.service.Create(context.Background(), planTeacherActor(), CreateAssessmentRequest{
		LessonPlanID: "plan-1",
		Kind:         models.AssessmentTest,
		Name:         "Teste 1",
		PeriodNumber: &period,
		Weight:       0.4,
		Date:         time.Now(),
	})
	require.NoError(t, err)
	require.NotNil(t, assessment.AuthorTeacherID)
	assert.Equal(t, "teacher-1", *assessment.AuthorTeacherID)
}

func TestCreateAssessmentStaffBlockedAfterTeacherAuthored(t *testing.T) {
	f := newAssessmentFixture(models.CalendarSecondary)
	f.repo.authored["assessment"] = true
	period := 1

	_, err := f.service.Create(context.Background(), secretaryActor(), CreateAssessmentRequest{
		LessonPlanID: "plan-1",
		Kind:         models.AssessmentTest,
		Name:         "Teste 1",
		PeriodNumber: &period,
		Weight:       0.4,
		Date:         time.Now(),
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestEnterGradeRejectsOutOfScaleValue(t *testing.T) {
	f := newAssessmentFixture(models.CalendarSecondary)
	value := 21.5

	_, err := f.service.EnterGrade(context.Background(), planTeacherActor(), EnterGradeRequest{
		AssessmentID: "as-1",
		StudentID:    "student-1",
		Value:        &value,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0-20 scale")
}

func TestEnterGradeRejectsClosedAssessment(t *testing.T) {
	f := newAssessmentFixture(models.CalendarSecondary)
	f.repo.assessments["as-1"] = models.Assessment{
		ID: "as-1", LessonPlanID: "plan-1", Name: "Teste 1", Closed: true,
	}
	value := 14.0

	_, err := f.service.EnterGrade(context.Background(), planTeacherActor(), EnterGradeRequest{
		AssessmentID: "as-1",
		StudentID:    "student-1",
		Value:        &value,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErr.Code)
	assert.Nil(t, f.repo.upsertedGrade)
}

func TestEnterGradeInvalidatesReportCards(t *testing.T) {
	f := newAssessmentFixture(models.CalendarSecondary)
	f.repo.assessments["as-1"] = models.Assessment{
		ID: "as-1", LessonPlanID: "plan-1", Name: "Teste 1",
	}
	value := 14.0

	grade, err := f.service.EnterGrade(context.Background(), planTeacherActor(), EnterGradeRequest{
		AssessmentID: "as-1",
		StudentID:    "student-1",
		Value:        &value,
	})
	require.NoError(t, err)
	require.NotNil(t, grade.Value)
	assert.Equal(t, 14.0, *grade.Value)
	require.Len(t, f.cache.patterns, 1)
	assert.Equal(t, "reportcard:plan-1:student-1:*", f.cache.patterns[0])
}

func TestEnterGradeNilValueClearsScore(t *testing.T) {
	f := newAssessmentFixture(models.CalendarSecondary)
	f.repo.assessments["as-1"] = models.Assessment{
		ID: "as-1", LessonPlanID: "plan-1", Name: "Teste 1",
	}

	grade, err := f.service.EnterGrade(context.Background(), planTeacherActor(), EnterGradeRequest{
		AssessmentID: "as-1",
		StudentID:    "student-1",
	})
	require.NoError(t, err)
	assert.Nil(t, grade.Value)
	require.NotNil(t, f.repo.upsertedGrade)
}

func TestCloseAssessmentIsIdempotentAndAudited(t *testing.T) {
	f := newAssessmentFixture(models.CalendarSecondary)
	f.repo.assessments["as-1"] = models.Assessment{
		ID: "as-1", LessonPlanID: "plan-1", Name: "Teste 1",
	}

	first, err := f.service.Close(context.Background(), planTeacherActor(), "as-1")
	require.NoError(t, err)
	assert.True(t, first.Closed)
	require.Len(t, f.repo.closedIDs, 1)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionAssessmentEnd, f.audit.logs[0].Action)

	f.repo.assessments["as-1"] = *first
	second, err := f.service.Close(context.Background(), planTeacherActor(), "as-1")
	require.NoError(t, err)
	assert.True(t, second.Closed)
	assert.Len(t, f.repo.closedIDs, 1, "already closed assessment must not be re-closed")
	assert.Len(t, f.audit.logs, 1)
}
