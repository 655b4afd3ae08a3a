package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindelo-dev/registo-api/internal/models"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
)

type mockLessonPlanRepo struct {
	plans        map[string]models.LessonPlan
	created      *models.LessonPlan
	stateChanges map[string]models.PlanState
	lockChanges  map[string]bool
}

func (m *mockLessonPlanRepo) FindByID(ctx context.Context, id string) (*models.LessonPlan, error) {
	if p, ok := m.plans[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLessonPlanRepo) List(ctx context.Context, filter models.LessonPlanFilter) ([]models.LessonPlan, error) {
	var out []models.LessonPlan
	for _, p := range m.plans {
		if p.InstitutionID == filter.InstitutionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockLessonPlanRepo) Create(ctx context.Context, plan *models.LessonPlan) error {
	plan.ID = "plan-new"
	m.created = plan
	return nil
}

func (m *mockLessonPlanRepo) UpdateState(ctx context.Context, id string, state models.PlanState) error {
	if m.stateChanges == nil {
		m.stateChanges = make(map[string]models.PlanState)
	}
	m.stateChanges[id] = state
	return nil
}

func (m *mockLessonPlanRepo) SetLocked(ctx context.Context, id string, locked bool) error {
	if m.lockChanges == nil {
		m.lockChanges = make(map[string]bool)
	}
	m.lockChanges[id] = locked
	return nil
}

type mockPlanTeacherReader struct {
	teachers map[string]models.Teacher
}

func (m *mockPlanTeacherReader) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := m.teachers[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func newPlanServiceFixture(plans map[string]models.LessonPlan) (*LessonPlanService, *mockLessonPlanRepo) {
	repo := &mockLessonPlanRepo{plans: plans}
	teachers := &mockPlanTeacherReader{teachers: map[string]models.Teacher{
		"teacher-1": {ID: "teacher-1", InstitutionID: "inst-1"},
		"teacher-2": {ID: "teacher-2", InstitutionID: "inst-2"},
	}}
	gate := newTestGate(
		map[string]models.Teacher{"user-t1": {ID: "teacher-1", InstitutionID: "inst-1"}},
		map[string]models.Institution{"inst-1": {ID: "inst-1"}},
	)
	return NewLessonPlanService(repo, teachers, gate, nil, zap.NewNop()), repo
}

func secretaryActor() models.ActorContext {
	return models.ActorContext{UserID: "sec-1", InstitutionID: "inst-1", Role: models.RoleSecretary}
}

func TestCreatePlanStartsInDraft(t *testing.T) {
	svc, repo := newPlanServiceFixture(nil)

	plan, err := svc.Create(context.Background(), secretaryActor(), CreateLessonPlanRequest{
		TeacherID:      "teacher-1",
		SubjectID:      "subject-1",
		AcademicYearID: "year-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PlanDraft, plan.State)
	assert.Equal(t, "teacher-1", plan.TeacherID)
	assert.Equal(t, "inst-1", plan.InstitutionID)
	require.NotNil(t, repo.created)
}

func TestCreatePlanRejectsTeacherRole(t *testing.T) {
	svc, _ := newPlanServiceFixture(nil)
	actor := secretaryActor()
	actor.Role = models.RoleTeacher

	_, err := svc.Create(context.Background(), actor, CreateLessonPlanRequest{
		TeacherID:      "teacher-1",
		SubjectID:      "subject-1",
		AcademicYearID: "year-1",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestCreatePlanRejectsForeignTeacher(t *testing.T) {
	svc, _ := newPlanServiceFixture(nil)

	_, err := svc.Create(context.Background(), secretaryActor(), CreateLessonPlanRequest{
		TeacherID:      "teacher-2",
		SubjectID:      "subject-1",
		AcademicYearID: "year-1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another institution")
}

func TestSubmitMovesDraftToInReview(t *testing.T) {
	svc, repo := newPlanServiceFixture(map[string]models.LessonPlan{
		"plan-1": {ID: "plan-1", InstitutionID: "inst-1", TeacherID: "teacher-1", State: models.PlanDraft},
	})

	plan, err := svc.Submit(context.Background(), secretaryActor(), "plan-1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanInReview, plan.State)
	assert.Equal(t, models.PlanInReview, repo.stateChanges["plan-1"])
}

func TestSubmitIsIdempotentInReview(t *testing.T) {
	svc, _ := newPlanServiceFixture(map[string]models.LessonPlan{
		"plan-1": {ID: "plan-1", InstitutionID: "inst-1", TeacherID: "teacher-1", State: models.PlanInReview},
	})

	plan, err := svc.Submit(context.Background(), secretaryActor(), "plan-1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanInReview, plan.State)
}

func TestSubmitRejectsApprovedPlan(t *testing.T) {
	svc, _ := newPlanServiceFixture(map[string]models.LessonPlan{
		"plan-1": {ID: "plan-1", InstitutionID: "inst-1", TeacherID: "teacher-1", State: models.PlanApproved},
	})
	actor := secretaryActor()
	actor.Role = models.RoleAdmin

	_, err := svc.Submit(context.Background(), actor, "plan-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "APPROVED")
}

func TestApproveRequiresInReview(t *testing.T) {
	svc, _ := newPlanServiceFixture(map[string]models.LessonPlan{
		"plan-1": {ID: "plan-1", InstitutionID: "inst-1", TeacherID: "teacher-1", State: models.PlanDraft},
	})
	actor := secretaryActor()
	actor.Role = models.RoleDirector

	_, err := svc.Approve(context.Background(), actor, "plan-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestApproveRejectsStaffEditors(t *testing.T) {
	svc, _ := newPlanServiceFixture(map[string]models.LessonPlan{
		"plan-1": {ID: "plan-1", InstitutionID: "inst-1", TeacherID: "teacher-1", State: models.PlanInReview},
	})
	actor := secretaryActor()
	actor.Role = models.RoleCoordinator

	_, err := svc.Approve(context.Background(), actor, "plan-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin-tier")
}

func TestApproveMovesInReviewToApproved(t *testing.T) {
	svc, repo := newPlanServiceFixture(map[string]models.LessonPlan{
		"plan-1": {ID: "plan-1", InstitutionID: "inst-1", TeacherID: "teacher-1", State: models.PlanInReview},
	})
	actor := secretaryActor()
	actor.Role = models.RoleAdmin

	plan, err := svc.Approve(context.Background(), actor, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanApproved, plan.State)
	assert.Equal(t, models.PlanApproved, repo.stateChanges["plan-1"])
}

func TestSetLockedKeepsWorkflowState(t *testing.T) {
	svc, repo := newPlanServiceFixture(map[string]models.LessonPlan{
		"plan-1": {ID: "plan-1", InstitutionID: "inst-1", TeacherID: "teacher-1", State: models.PlanApproved},
	})
	actor := secretaryActor()
	actor.Role = models.RoleAdmin

	plan, err := svc.SetLocked(context.Background(), actor, "plan-1", true)
	require.NoError(t, err)
	assert.Equal(t, models.PlanApproved, plan.State)
	assert.True(t, plan.Locked)
	assert.True(t, repo.lockChanges["plan-1"])
}

func TestGetUnknownPlanReturnsNotFound(t *testing.T) {
	svc, _ := newPlanServiceFixture(nil)
	actor := secretaryActor()
	actor.Role = models.RoleAdmin

	_, err := svc.Get(context.Background(), actor, "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
