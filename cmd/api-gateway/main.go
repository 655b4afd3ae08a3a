package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/mindelo-dev/registo-api/api/swagger"
	"github.com/mindelo-dev/registo-api/internal/handler"
	"github.com/mindelo-dev/registo-api/internal/middleware"
	"github.com/mindelo-dev/registo-api/internal/models"
	"github.com/mindelo-dev/registo-api/internal/repository"
	"github.com/mindelo-dev/registo-api/internal/service"
	"github.com/mindelo-dev/registo-api/pkg/cache"
	"github.com/mindelo-dev/registo-api/pkg/config"
	"github.com/mindelo-dev/registo-api/pkg/database"
	"github.com/mindelo-dev/registo-api/pkg/logger"
	corsmiddleware "github.com/mindelo-dev/registo-api/pkg/middleware/cors"
	reqidmiddleware "github.com/mindelo-dev/registo-api/pkg/middleware/requestid"
)

// @title Registo Académico API
// @version 1.0.0
// @description Academic record keeping: lesson plan workflow, period closure and grade computation.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	// Repositories.
	users := repository.NewUserRepository(db)
	teachers := repository.NewTeacherRepository(db)
	students := repository.NewStudentRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	institutions := repository.NewInstitutionRepository(db)
	academicYears := repository.NewAcademicYearRepository(db)
	lessonPlans := repository.NewLessonPlanRepository(db)
	lessons := repository.NewLessonRepository(db)
	assessments := repository.NewAssessmentRepository(db)
	closures := repository.NewClosureRepository(db)

	// Observability and caching.
	metricsService := service.NewMetricsService()
	var cacheService *service.CacheService
	if cfg.Academics.ReportCardCache {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Academics.ReportCardCacheTTL, logr, true)
	}

	// Services.
	gate := service.NewPermissionGate(teachers, institutions, logr)
	authService := service.NewAuthService(users, teachers, students, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	yearService := service.NewAcademicYearService(academicYears, institutions, nil, logr)
	planService := service.NewLessonPlanService(lessonPlans, teachers, gate, nil, logr)
	lessonService := service.NewLessonService(lessons, lessonPlans, institutions, gate, nil, logr)
	assessmentService := service.NewAssessmentService(assessments, lessonPlans, institutions, users, cacheService, gate, nil, logr)
	gradeService := service.NewGradeService(assessments, lessonPlans, institutions, gate, cacheService, cfg.Academics.ReportCardCacheTTL, logr)
	closureService := service.NewClosureService(closures, academicYears, institutions, users, nil, logr)
	enrollmentService := service.NewEnrollmentService(enrollments, students, nil, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	yearHandler := handler.NewAcademicYearHandler(yearService)
	planHandler := handler.NewLessonPlanHandler(planService)
	lessonHandler := handler.NewLessonHandler(lessonService)
	assessmentHandler := handler.NewAssessmentHandler(assessmentService)
	gradeHandler := handler.NewGradeHandler(gradeService)
	closureHandler := handler.NewClosureHandler(closureService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))
	authed.GET("/auth/me", authHandler.Me)

	authed.GET("/academic-years", yearHandler.List)
	authed.POST("/academic-years", yearHandler.Create)
	authed.GET("/academic-years/:year", yearHandler.Get)
	authed.GET("/academic-years/:year/periods", yearHandler.ListPeriods)

	authed.GET("/lesson-plans", planHandler.List)
	authed.POST("/lesson-plans", planHandler.Create)
	authed.GET("/lesson-plans/:id", planHandler.Get)
	authed.POST("/lesson-plans/:id/submit", planHandler.Submit)
	authed.POST("/lesson-plans/:id/approve", planHandler.Approve)
	authed.PUT("/lesson-plans/:id/lock", planHandler.SetLocked)
	authed.GET("/lesson-plans/:id/lessons", lessonHandler.ListPlanned)
	authed.GET("/lesson-plans/:id/assessments", assessmentHandler.List)
	authed.GET("/lesson-plans/:id/students/:studentId/report-card", gradeHandler.ReportCard)

	authed.POST("/lessons/planned", lessonHandler.CreatePlanned)
	authed.POST("/lessons/delivered", lessonHandler.Deliver)
	authed.PUT("/lessons/attendance", lessonHandler.RecordAttendance)
	authed.GET("/lessons/delivered/:id/attendance", lessonHandler.ListAttendance)

	authed.POST("/assessments", assessmentHandler.Create)
	authed.PUT("/assessments/grades", assessmentHandler.EnterGrade)
	authed.GET("/assessments/:id/grades", assessmentHandler.ListGrades)
	authed.POST("/assessments/:id/close", assessmentHandler.Close)

	authed.POST("/grades/preview", gradeHandler.Preview)

	authed.POST("/enrollments", middleware.Audit(users, "ENROLLMENT_CREATE", "enrollments"), enrollmentHandler.Create)
	authed.GET("/enrollments", enrollmentHandler.List)
	authed.PUT("/enrollments/:id/status", middleware.Audit(users, "ENROLLMENT_STATUS", "enrollments"), enrollmentHandler.UpdateStatus)

	adminOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleDirector)
	closuresGroup := authed.Group("/closures", adminOnly)
	closuresGroup.GET("", closureHandler.List)
	closuresGroup.POST("/begin", closureHandler.Begin)
	closuresGroup.POST("/close", closureHandler.Close)
	closuresGroup.POST("/reopen", closureHandler.Reopen)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}
