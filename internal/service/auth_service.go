package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mindelo-dev/registo-api/internal/models"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type authTeacherReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
}

type authStudentReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService authenticates users and issues access tokens whose claims
// carry the profile identities (teacher, student) the permission gate and
// report-card checks key on.
type AuthService struct {
	users     authUserRepository
	teachers  authTeacherReader
	students  authStudentReader
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, teachers authTeacherReader, students authStudentReader, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{users: users, teachers: teachers, students: students, validator: validate, logger: logger, config: config}
}

// Login authenticates a user and returns an issued access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	teacherID, studentID := s.profileIdentities(ctx, user)

	accessToken, err := s.generateAccessToken(user, teacherID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"status":"success"}`),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record login audit log", zap.Error(err))
	}

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    time.Now().UTC(),
		User: models.UserInfo{
			ID:            user.ID,
			Email:         user.Email,
			FullName:      user.FullName,
			Role:          user.Role,
			InstitutionID: user.InstitutionID,
			TeacherID:     teacherID,
			StudentID:     studentID,
		},
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// profileIdentities resolves the teacher or student profile linked to the
// account, depending on the role. Missing profiles are tolerated: the claim
// simply stays empty and ownership checks fall back to lookups.
func (s *AuthService) profileIdentities(ctx context.Context, user *models.User) (teacherID, studentID *string) {
	switch user.Role {
	case models.RoleTeacher:
		if s.teachers == nil {
			return nil, nil
		}
		teacher, err := s.teachers.FindByUserID(ctx, user.ID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				s.logger.Warn("failed to resolve teacher profile", zap.String("user_id", user.ID), zap.Error(err))
			}
			return nil, nil
		}
		return &teacher.ID, nil
	case models.RoleStudent:
		if s.students == nil {
			return nil, nil
		}
		student, err := s.students.FindByUserID(ctx, user.ID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				s.logger.Warn("failed to resolve student profile", zap.String("user_id", user.ID), zap.Error(err))
			}
			return nil, nil
		}
		return nil, &student.ID
	default:
		return nil, nil
	}
}

func (s *AuthService) generateAccessToken(user *models.User, teacherID, studentID *string) (string, error) {
	now := time.Now().UTC()
	claims := models.JWTClaims{
		UserID:        user.ID,
		InstitutionID: user.InstitutionID,
		Role:          user.Role,
		Email:         user.Email,
		TeacherID:     teacherID,
		StudentID:     studentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}
