package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mindelo-dev/registo-api/internal/models"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
)

// Action classifies the operations the permission gate evaluates.
type Action string

const (
	ActionPlanRead        Action = "PLAN_READ"
	ActionPlanEdit        Action = "PLAN_EDIT"
	ActionPlanSubmit      Action = "PLAN_SUBMIT"
	ActionPlanApprove     Action = "PLAN_APPROVE"
	ActionLessonLaunch    Action = "LESSON_LAUNCH"
	ActionAttendanceEntry Action = "ATTENDANCE_ENTRY"
	ActionAssessmentEdit  Action = "ASSESSMENT_EDIT"
	ActionGradeEntry      Action = "GRADE_ENTRY"
	ActionGradeClose      Action = "GRADE_CLOSE"
)

// capability is the outcome class of a (role, action) cell.
type capability int

const (
	capDeny capability = iota
	capAllow
	// capOwner requires the actor to resolve to the owning teacher identity
	// and the target plan to be active (approved and unlocked).
	capOwner
	// capFirstWrite lets secretarial staff create/correct an entity only
	// until a teacher has authored one of that kind; afterwards read-only.
	capFirstWrite
	// capDraftOnly permits mutation only while the plan is DRAFT/IN_REVIEW.
	capDraftOnly
)

// capabilityTable is the closed role × action matrix. Admin-tier roles are
// resolved before the table is consulted, so they never appear here.
var capabilityTable = map[Action]map[models.UserRole]capability{
	ActionPlanRead: {
		models.RoleCoordinator: capAllow,
		models.RoleSecretary:   capAllow,
		models.RoleTeacher:     capAllow, // narrowed to owned APPROVED/CLOSED plans below
	},
	ActionPlanEdit: {
		models.RoleCoordinator: capDraftOnly,
		models.RoleSecretary:   capDraftOnly,
	},
	ActionPlanSubmit: {
		models.RoleCoordinator: capDraftOnly,
		models.RoleSecretary:   capDraftOnly,
	},
	ActionPlanApprove: {},
	ActionLessonLaunch: {
		models.RoleTeacher:     capOwner,
		models.RoleCoordinator: capFirstWrite,
		models.RoleSecretary:   capFirstWrite,
	},
	ActionAttendanceEntry: {
		models.RoleTeacher:     capOwner,
		models.RoleCoordinator: capFirstWrite,
		models.RoleSecretary:   capFirstWrite,
	},
	ActionAssessmentEdit: {
		models.RoleTeacher:     capOwner,
		models.RoleCoordinator: capFirstWrite,
		models.RoleSecretary:   capFirstWrite,
	},
	ActionGradeEntry: {
		models.RoleTeacher:     capOwner,
		models.RoleCoordinator: capFirstWrite,
		models.RoleSecretary:   capFirstWrite,
	},
	ActionGradeClose: {
		models.RoleTeacher: capOwner,
	},
}

type teacherResolver interface {
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
}

type institutionReader interface {
	FindByID(ctx context.Context, id string) (*models.Institution, error)
}

// PermissionGate authorizes actions from the actor role, the ownership
// relation and the target plan's workflow state. It is consulted before any
// mutation; denials carry a reason naming the exact cause.
type PermissionGate struct {
	teachers     teacherResolver
	institutions institutionReader
	logger       *zap.Logger
}

// NewPermissionGate constructs the gate.
func NewPermissionGate(teachers teacherResolver, institutions institutionReader, logger *zap.Logger) *PermissionGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionGate{teachers: teachers, institutions: institutions, logger: logger}
}

// ResolveOwnerIdentity maps an actor to its teacher-profile identity using
// one canonical order: the teacher id carried in the context first, then a
// profile lookup by user id. Every ownership comparison goes through here so
// call sites cannot diverge.
func (g *PermissionGate) ResolveOwnerIdentity(ctx context.Context, actor models.ActorContext) (string, error) {
	if actor.TeacherID != nil && *actor.TeacherID != "" {
		return *actor.TeacherID, nil
	}
	teacher, err := g.teachers.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "no teacher profile for user")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher identity")
	}
	return teacher.ID, nil
}

// AuthorizePlanRead checks read access to a lesson plan. Teachers may only
// read plans they own once approved or closed.
func (g *PermissionGate) AuthorizePlanRead(ctx context.Context, actor models.ActorContext, plan *models.LessonPlan) error {
	if err := g.sameInstitution(actor, plan.InstitutionID); err != nil {
		return err
	}
	if actor.Role.AdminTier() {
		return nil
	}
	rule, ok := capabilityTable[ActionPlanRead][actor.Role]
	if !ok || rule == capDeny {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not read lesson plans", actor.Role))
	}
	if actor.Role != models.RoleTeacher {
		return nil
	}
	if plan.State != models.PlanApproved && plan.State != models.PlanClosed {
		return appErrors.Clone(appErrors.ErrForbidden, "teachers may only read approved or closed plans")
	}
	ownerID, err := g.ResolveOwnerIdentity(ctx, actor)
	if err != nil {
		return err
	}
	if ownerID != plan.TeacherID {
		return appErrors.Clone(appErrors.ErrForbidden, "not the owning teacher of this plan")
	}
	return nil
}

// AuthorizePlanMutation gates plan edit and submit. Teachers never mutate
// plans; staff editors may only while the plan is still DRAFT or IN_REVIEW.
func (g *PermissionGate) AuthorizePlanMutation(ctx context.Context, actor models.ActorContext, action Action, plan *models.LessonPlan) error {
	if err := g.sameInstitution(actor, plan.InstitutionID); err != nil {
		return err
	}
	if actor.Role.AdminTier() {
		return nil
	}
	rule, ok := capabilityTable[action][actor.Role]
	if !ok || rule == capDeny {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not modify lesson plans", actor.Role))
	}
	if rule == capDraftOnly && plan.State != models.PlanDraft && plan.State != models.PlanInReview {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("plan is %s and may no longer be modified", plan.State))
	}
	return nil
}

// AuthorizePlanApproval restricts plan approval to the admin tier.
func (g *PermissionGate) AuthorizePlanApproval(actor models.ActorContext, plan *models.LessonPlan) error {
	if err := g.sameInstitution(actor, plan.InstitutionID); err != nil {
		return err
	}
	if !actor.Role.AdminTier() {
		return appErrors.Clone(appErrors.ErrForbidden, "only admin-tier roles may approve lesson plans")
	}
	return nil
}

// AuthorizePlanScoped gates actions on entities living under a lesson plan:
// lesson launch, attendance entry, assessment edit, grade entry and grade
// closing. teacherAuthoredExists reports whether a teacher has already
// authored an entity of the target kind (the staff first-write rule).
func (g *PermissionGate) AuthorizePlanScoped(ctx context.Context, actor models.ActorContext, action Action, plan *models.LessonPlan, teacherAuthoredExists bool) error {
	if err := g.sameInstitution(actor, plan.InstitutionID); err != nil {
		return err
	}
	if actor.Role.AdminTier() {
		return nil
	}

	if action == ActionGradeEntry {
		if err := g.checkGradeEntryWhitelist(ctx, actor); err != nil {
			return err
		}
	}

	rule, ok := capabilityTable[action][actor.Role]
	if !ok || rule == capDeny {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not perform %s", actor.Role, action))
	}

	switch rule {
	case capOwner:
		ownerID, err := g.ResolveOwnerIdentity(ctx, actor)
		if err != nil {
			return err
		}
		if ownerID != plan.TeacherID {
			return appErrors.Clone(appErrors.ErrForbidden, "not the owning teacher of this plan")
		}
		return g.requireActivePlan(plan)
	case capFirstWrite:
		if teacherAuthoredExists {
			return appErrors.Clone(appErrors.ErrForbidden, "staff is read-only once a teacher has authored this record kind")
		}
		return g.requireActivePlan(plan)
	default:
		return nil
	}
}

// AuthorizeReportCard checks access to one student's computed grades.
// Staff and admin tiers read freely within the institution, a teacher only
// for plans they own, a student only their own card.
func (g *PermissionGate) AuthorizeReportCard(ctx context.Context, actor models.ActorContext, plan *models.LessonPlan, studentID string) error {
	if err := g.sameInstitution(actor, plan.InstitutionID); err != nil {
		return err
	}
	switch {
	case actor.Role.AdminTier(), actor.Role.StaffEditor():
		return nil
	case actor.Role == models.RoleTeacher:
		ownerID, err := g.ResolveOwnerIdentity(ctx, actor)
		if err != nil {
			return err
		}
		if ownerID != plan.TeacherID {
			return appErrors.Clone(appErrors.ErrForbidden, "not the owning teacher of this plan")
		}
		return nil
	case actor.Role == models.RoleStudent:
		if actor.StudentID == nil || *actor.StudentID != studentID {
			return appErrors.Clone(appErrors.ErrForbidden, "students may only read their own report card")
		}
		return nil
	default:
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not read report cards", actor.Role))
	}
}

// requireActivePlan distinguishes the two inactive causes so the denial
// message tells the caller what to fix.
func (g *PermissionGate) requireActivePlan(plan *models.LessonPlan) error {
	if plan.State != models.PlanApproved {
		return appErrors.Clone(appErrors.ErrForbidden, "lesson plan is not approved")
	}
	if plan.Locked {
		return appErrors.Clone(appErrors.ErrForbidden, "lesson plan is locked")
	}
	return nil
}

func (g *PermissionGate) checkGradeEntryWhitelist(ctx context.Context, actor models.ActorContext) error {
	institution, err := g.institutions.FindByID(ctx, actor.InstitutionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution settings")
	}
	if !institution.MayEnterGrades(actor.Role) {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s is not allowed to alter grades at this institution", actor.Role))
	}
	return nil
}

func (g *PermissionGate) sameInstitution(actor models.ActorContext, institutionID string) error {
	if actor.InstitutionID != institutionID {
		return appErrors.Clone(appErrors.ErrForbidden, "entity belongs to another institution")
	}
	return nil
}
