package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindelo-dev/registo-api/internal/models"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
)

type mockScoreReader struct {
	scores []models.ScoreRecord
	calls  int
}

func (m *mockScoreReader) ScoresForStudent(ctx context.Context, lessonPlanID, studentID string) ([]models.ScoreRecord, error) {
	m.calls++
	return m.scores, nil
}

type memoryCacheRepo struct {
	entries map[string][]byte
	sets    []string
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = raw
	m.sets = append(m.sets, key)
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return nil
}

type mockGradePlanReader struct {
	plans map[string]models.LessonPlan
}

func (m *mockGradePlanReader) FindByID(ctx context.Context, id string) (*models.LessonPlan, error) {
	if p, ok := m.plans[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

type gradeFixture struct {
	scores    *mockScoreReader
	cacheRepo *memoryCacheRepo
	service   *GradeService
}

func newGradeFixture(institution models.Institution) *gradeFixture {
	f := &gradeFixture{
		scores:    &mockScoreReader{},
		cacheRepo: &memoryCacheRepo{},
	}
	plans := &mockGradePlanReader{plans: map[string]models.LessonPlan{
		"plan-1": {
			ID: "plan-1", InstitutionID: institution.ID, TeacherID: "teacher-1",
			SubjectID: "subject-1", AcademicYearID: "year-1", State: models.PlanApproved,
		},
	}}
	institutions := &mockInstitutionReader{institutions: map[string]models.Institution{
		institution.ID: institution,
	}}
	gate := newTestGate(
		map[string]models.Teacher{"user-t1": {ID: "teacher-1", InstitutionID: institution.ID}},
		map[string]models.Institution{institution.ID: institution},
	)
	cache := NewCacheService(f.cacheRepo, nil, time.Minute, zap.NewNop(), true)
	f.service = NewGradeService(f.scores, plans, institutions, gate, cache, time.Minute, zap.NewNop())
	return f
}

func secondaryInstitution() models.Institution {
	return models.Institution{ID: "inst-1", CalendarType: models.CalendarSecondary}
}

func trimesterScores() []models.ScoreRecord {
	one, two, three := 1, 2, 3
	return []models.ScoreRecord{
		{AssessmentID: "as-1", Kind: models.AssessmentTest, Name: "Teste 1", PeriodNumber: &one, Value: ptrFloat64(14)},
		{AssessmentID: "as-2", Kind: models.AssessmentTest, Name: "Teste 2", PeriodNumber: &two, Value: ptrFloat64(12)},
		{AssessmentID: "as-3", Kind: models.AssessmentTest, Name: "Teste 3", PeriodNumber: &three, Value: ptrFloat64(13)},
	}
}

func ptrFloat64(v float64) *float64 { return &v }

func TestReportCardComputesAndCaches(t *testing.T) {
	f := newGradeFixture(secondaryInstitution())
	f.scores.scores = trimesterScores()
	actor := models.ActorContext{UserID: "admin-1", InstitutionID: "inst-1", Role: models.RoleAdmin}

	card, err := f.service.ReportCard(context.Background(), actor, "student-1", "plan-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "student-1", card.StudentID)
	assert.Equal(t, "subject-1", card.SubjectID)
	assert.Equal(t, models.GradePassed, card.Result.Status)
	assert.InDelta(t, 13.0, card.Result.FinalGrade, 0.001)
	require.Len(t, f.cacheRepo.sets, 1)
	assert.Equal(t, "reportcard:plan-1:student-1:year", f.cacheRepo.sets[0])

	again, err := f.service.ReportCard(context.Background(), actor, "student-1", "plan-1", nil)
	require.NoError(t, err)
	assert.Equal(t, card.Result.FinalGrade, again.Result.FinalGrade)
	assert.Equal(t, 1, f.scores.calls, "second read must be served from cache")
}

func TestReportCardPeriodScopeUsesDistinctCacheKey(t *testing.T) {
	f := newGradeFixture(secondaryInstitution())
	f.scores.scores = trimesterScores()
	actor := models.ActorContext{UserID: "admin-1", InstitutionID: "inst-1", Role: models.RoleAdmin}
	period := 2

	_, err := f.service.ReportCard(context.Background(), actor, "student-1", "plan-1", &period)
	require.NoError(t, err)
	require.Len(t, f.cacheRepo.sets, 1)
	assert.Equal(t, "reportcard:plan-1:student-1:p2", f.cacheRepo.sets[0])
}

func TestReportCardRejectsPeriodOnSemesterCalendar(t *testing.T) {
	f := newGradeFixture(models.Institution{ID: "inst-1", CalendarType: models.CalendarHigher})
	actor := models.ActorContext{UserID: "admin-1", InstitutionID: "inst-1", Role: models.RoleAdmin}
	period := 1

	_, err := f.service.ReportCard(context.Background(), actor, "student-1", "plan-1", &period)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trimester calendars")
}

func TestReportCardStudentOnlyReadsOwnCard(t *testing.T) {
	f := newGradeFixture(secondaryInstitution())
	f.scores.scores = trimesterScores()
	actor := models.ActorContext{
		UserID:        "user-s1",
		InstitutionID: "inst-1",
		Role:          models.RoleStudent,
		StudentID:     strPtr("student-1"),
	}

	_, err := f.service.ReportCard(context.Background(), actor, "student-1", "plan-1", nil)
	require.NoError(t, err)

	_, err = f.service.ReportCard(context.Background(), actor, "student-2", "plan-1", nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestPreviewRejectsStudents(t *testing.T) {
	f := newGradeFixture(secondaryInstitution())
	actor := models.ActorContext{UserID: "user-s1", InstitutionID: "inst-1", Role: models.RoleStudent}

	_, err := f.service.Preview(context.Background(), actor, nil, models.GradeComputationConfig{
		CalendarType: models.CalendarSecondary,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestPreviewDefaultsPassThreshold(t *testing.T) {
	f := newGradeFixture(secondaryInstitution())
	actor := models.ActorContext{UserID: "coord-1", InstitutionID: "inst-1", Role: models.RoleCoordinator}

	result, err := f.service.Preview(context.Background(), actor, trimesterScores(), models.GradeComputationConfig{
		CalendarType: models.CalendarSecondary,
	})
	require.NoError(t, err)
	assert.Equal(t, models.GradePassed, result.Status)
}
