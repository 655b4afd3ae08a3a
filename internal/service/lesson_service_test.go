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

type mockLessonRepo struct {
	planned          map[string]models.PlannedLesson
	delivered        map[string]models.DeliveredLesson
	attendance       map[string][]models.Attendance
	authored         map[string]bool
	createdPlanned   *models.PlannedLesson
	createdDelivered *models.DeliveredLesson
	upserted         []models.Attendance
}

func (m *mockLessonRepo) FindPlannedByID(ctx context.Context, id string) (*models.PlannedLesson, error) {
	if l, ok := m.planned[id]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLessonRepo) ListPlannedByPlan(ctx context.Context, lessonPlanID string) ([]models.PlannedLesson, error) {
	var out []models.PlannedLesson
	for _, l := range m.planned {
		if l.LessonPlanID == lessonPlanID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLessonRepo) CreatePlanned(ctx context.Context, lesson *models.PlannedLesson) error {
	lesson.ID = "planned-new"
	m.createdPlanned = lesson
	return nil
}

func (m *mockLessonRepo) FindDeliveredByID(ctx context.Context, id string) (*models.DeliveredLesson, error) {
	if l, ok := m.delivered[id]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLessonRepo) ListDeliveredByPlanned(ctx context.Context, plannedLessonID string) ([]models.DeliveredLesson, error) {
	var out []models.DeliveredLesson
	for _, l := range m.delivered {
		if l.PlannedLessonID == plannedLessonID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLessonRepo) CreateDelivered(ctx context.Context, delivered *models.DeliveredLesson) error {
	delivered.ID = "delivered-new"
	m.createdDelivered = delivered
	return nil
}

func (m *mockLessonRepo) UpsertAttendance(ctx context.Context, records []models.Attendance) error {
	m.upserted = records
	return nil
}

func (m *mockLessonRepo) ListAttendance(ctx context.Context, deliveredLessonID string) ([]models.Attendance, error) {
	return m.attendance[deliveredLessonID], nil
}

func (m *mockLessonRepo) TeacherAuthoredExists(ctx context.Context, lessonPlanID, kind string) (bool, error) {
	return m.authored[kind], nil
}

type lessonFixture struct {
	repo    *mockLessonRepo
	plans   *mockAssessmentPlanReader
	service *LessonService
}

func newLessonFixture(planState models.PlanState, locked bool) *lessonFixture {
	f := &lessonFixture{
		repo: &mockLessonRepo{
			planned:   map[string]models.PlannedLesson{},
			delivered: map[string]models.DeliveredLesson{},
			authored:  map[string]bool{},
		},
	}
	f.plans = &mockAssessmentPlanReader{plans: map[string]models.LessonPlan{
		"plan-1": {ID: "plan-1", InstitutionID: "inst-1", TeacherID: "teacher-1", State: planState, Locked: locked},
	}}
	institutions := &mockInstitutionReader{institutions: map[string]models.Institution{
		"inst-1": {ID: "inst-1", CalendarType: models.CalendarSecondary},
	}}
	gate := newTestGate(
		map[string]models.Teacher{"user-t1": {ID: "teacher-1", InstitutionID: "inst-1"}},
		map[string]models.Institution{"inst-1": {ID: "inst-1", CalendarType: models.CalendarSecondary}},
	)
	f.service = NewLessonService(f.repo, f.plans, institutions, gate, nil, zap.NewNop())
	return f
}

func TestCreatePlannedStampsTeacherAuthor(t *testing.T) {
	f := newLessonFixture(models.PlanApproved, false)

	lesson, err := f.service.CreatePlanned(context.Background(), planTeacherActor(), CreatePlannedLessonRequest{
		LessonPlanID: "plan-1",
		Title:        "Equações do 2º grau",
		PeriodNumber: 1,
		Quantity:     4,
	})
	require.NoError(t, err)
	require.NotNil(t, lesson.AuthorTeacherID)
	assert.Equal(t, "teacher-1", *lesson.AuthorTeacherID)
}

func TestCreatePlannedRejectsPeriodBeyondCalendar(t *testing.T) {
	f := newLessonFixture(models.PlanApproved, false)

	_, err := f.service.CreatePlanned(context.Background(), planTeacherActor(), CreatePlannedLessonRequest{
		LessonPlanID: "plan-1",
		Title:        "Equações",
		PeriodNumber: 4,
		Quantity:     2,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestCreatePlannedRejectsUnapprovedPlan(t *testing.T) {
	f := newLessonFixture(models.PlanDraft, false)

	_, err := f.service.CreatePlanned(context.Background(), planTeacherActor(), CreatePlannedLessonRequest{
		LessonPlanID: "plan-1",
		Title:        "Equações",
		PeriodNumber: 1,
		Quantity:     2,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestCreatePlannedRejectsLockedPlan(t *testing.T) {
	f := newLessonFixture(models.PlanApproved, true)

	_, err := f.service.CreatePlanned(context.Background(), planTeacherActor(), CreatePlannedLessonRequest{
		LessonPlanID: "plan-1",
		Title:        "Equações",
		PeriodNumber: 1,
		Quantity:     2,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestCreatePlannedStaffAllowedUntilTeacherAuthored(t *testing.T) {
	f := newLessonFixture(models.PlanApproved, false)

	lesson, err := f.service.CreatePlanned(context.Background(), secretaryActor(), CreatePlannedLessonRequest{
		LessonPlanID: "plan-1",
		Title:        "Equações",
		PeriodNumber: 1,
		Quantity:     2,
	})
	require.NoError(t, err)
	assert.Nil(t, lesson.AuthorTeacherID, "staff rows carry no teacher author")

	f.repo.authored[authoredPlannedLesson] = true
	_, err = f.service.CreatePlanned(context.Background(), secretaryActor(), CreatePlannedLessonRequest{
		LessonPlanID: "plan-1",
		Title:        "Inequações",
		PeriodNumber: 1,
		Quantity:     2,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestDeliverRecordsOccurrence(t *testing.T) {
	f := newLessonFixture(models.PlanApproved, false)
	f.repo.planned["planned-1"] = models.PlannedLesson{ID: "planned-1", LessonPlanID: "plan-1", Title: "Equações", PeriodNumber: 1, Quantity: 4}

	delivered, err := f.service.Deliver(context.Background(), planTeacherActor(), DeliverLessonRequest{
		PlannedLessonID: "planned-1",
		Date:            time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "planned-1", delivered.PlannedLessonID)
	require.NotNil(t, delivered.AuthorTeacherID)
}

func TestRecordAttendanceRejectsInvalidStatus(t *testing.T) {
	f := newLessonFixture(models.PlanApproved, false)

	err := f.service.RecordAttendance(context.Background(), planTeacherActor(), RecordAttendanceRequest{
		DeliveredLessonID: "delivered-1",
		Entries: []AttendanceEntry{
			{StudentID: "student-1", Status: "SLEEPING"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid attendance status")
}

func TestRecordAttendanceUpsertsAllEntries(t *testing.T) {
	f := newLessonFixture(models.PlanApproved, false)
	f.repo.planned["planned-1"] = models.PlannedLesson{ID: "planned-1", LessonPlanID: "plan-1", Title: "Equações", PeriodNumber: 1, Quantity: 4}
	f.repo.delivered["delivered-1"] = models.DeliveredLesson{ID: "delivered-1", PlannedLessonID: "planned-1"}

	err := f.service.RecordAttendance(context.Background(), planTeacherActor(), RecordAttendanceRequest{
		DeliveredLessonID: "delivered-1",
		Entries: []AttendanceEntry{
			{StudentID: "student-1", Status: models.AttendancePresent},
			{StudentID: "student-2", Status: models.AttendanceAbsent},
			{StudentID: "student-3", Status: models.AttendanceJustified},
		},
	})
	require.NoError(t, err)
	require.Len(t, f.repo.upserted, 3)
	for _, record := range f.repo.upserted {
		assert.Equal(t, "delivered-1", record.DeliveredLessonID)
		require.NotNil(t, record.AuthorTeacherID)
		assert.Equal(t, "teacher-1", *record.AuthorTeacherID)
	}
}
