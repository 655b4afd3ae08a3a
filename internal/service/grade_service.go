package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mindelo-dev/registo-api/internal/models"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
)

type gradeScoreReader interface {
	ScoresForStudent(ctx context.Context, lessonPlanID, studentID string) ([]models.ScoreRecord, error)
}

type gradePlanReader interface {
	FindByID(ctx context.Context, id string) (*models.LessonPlan, error)
}

type gradeInstitutionReader interface {
	FindByID(ctx context.Context, id string) (*models.Institution, error)
}

// GradeService computes report cards from recorded scores and institution
// settings, with Redis-backed caching of the computed result. Computation
// itself is pure; everything stateful lives here.
type GradeService struct {
	scores       gradeScoreReader
	plans        gradePlanReader
	institutions gradeInstitutionReader
	gate         *PermissionGate
	cache        *CacheService
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewGradeService constructs the service. cache may be nil.
func NewGradeService(scores gradeScoreReader, plans gradePlanReader, institutions gradeInstitutionReader, gate *PermissionGate, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		scores:       scores,
		plans:        plans,
		institutions: institutions,
		gate:         gate,
		cache:        cache,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

// ReportCard computes (or serves from cache) one student's grades for a
// lesson plan. periodNumber restricts a secondary-calendar computation to a
// single trimester; nil computes the whole-year result.
func (s *GradeService) ReportCard(ctx context.Context, actor models.ActorContext, studentID, lessonPlanID string, periodNumber *int) (*models.ReportCard, error) {
	plan, err := s.loadPlan(ctx, lessonPlanID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizeReportCard(ctx, actor, plan, studentID); err != nil {
		return nil, err
	}
	institution, err := s.loadInstitution(ctx, plan.InstitutionID)
	if err != nil {
		return nil, err
	}
	if periodNumber != nil {
		if institution.CalendarType != models.CalendarSecondary {
			return nil, appErrors.Clone(appErrors.ErrValidation, "per-period computation only applies to trimester calendars")
		}
		if limit := institution.CalendarType.PeriodsPerYear(); *periodNumber < 1 || *periodNumber > limit {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period number %d is outside 1-%d", *periodNumber, limit))
		}
	}

	key := reportCardKey(lessonPlanID, studentID, periodNumber)
	if s.cache != nil {
		var cached models.ReportCard
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			cached.FromCache = true
			return &cached, nil
		}
	}

	scores, err := s.scores.ScoresForStudent(ctx, plan.ID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
	}
	cfg := models.GradeComputationConfig{
		CalendarType:   institution.CalendarType,
		PassThreshold:  institution.EffectivePassThreshold(),
		RetakesAllowed: institution.RetakesAllowed,
		PeriodNumber:   periodNumber,
	}
	result, err := ComputeGrade(scores, cfg)
	if err != nil {
		return nil, err
	}

	card := &models.ReportCard{
		StudentID:      studentID,
		LessonPlanID:   plan.ID,
		SubjectID:      plan.SubjectID,
		AcademicYearID: plan.AcademicYearID,
		Result:         *result,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, card, s.cacheTTL); err != nil {
			s.logger.Warn("report card cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return card, nil
}

// Preview computes a result from ad-hoc scores without touching storage.
// It serves the what-if surface: staff simulating outcomes before entering
// real grades.
func (s *GradeService) Preview(ctx context.Context, actor models.ActorContext, scores []models.ScoreRecord, cfg models.GradeComputationConfig) (*models.GradeResult, error) {
	if !actor.Role.AdminTier() && !actor.Role.StaffEditor() && actor.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not preview grade computations", actor.Role))
	}
	if !cfg.CalendarType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid calendar type %q", cfg.CalendarType))
	}
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = models.DefaultPassThreshold
	}
	return ComputeGrade(scores, cfg)
}

func reportCardKey(lessonPlanID, studentID string, periodNumber *int) string {
	scope := "year"
	if periodNumber != nil {
		scope = fmt.Sprintf("p%d", *periodNumber)
	}
	return fmt.Sprintf("reportcard:%s:%s:%s", lessonPlanID, studentID, scope)
}

func (s *GradeService) loadPlan(ctx context.Context, id string) (*models.LessonPlan, error) {
	plan, err := s.plans.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson plan")
	}
	return plan, nil
}

func (s *GradeService) loadInstitution(ctx context.Context, id string) (*models.Institution, error) {
	institution, err := s.institutions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution")
	}
	return institution, nil
}
