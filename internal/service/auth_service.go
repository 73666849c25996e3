package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ieab-app/escala-api/internal/models"
	appErrors "github.com/ieab-app/escala-api/pkg/errors"
)

type authVolunteerRepository interface {
	FindByPhone(ctx context.Context, phone string) (*models.Volunteer, error)
	FindByID(ctx context.Context, id string) (*models.Volunteer, error)
	UpdatePINHash(ctx context.Context, id, pinHash string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
	Issuer      string
}

// AuthService authenticates volunteers by phone and PIN. A PIN is a short
// numeric secret, so the login surface stays behind rate limiting upstream.
type AuthService struct {
	repo      authVolunteerRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authVolunteerRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, validator: validate, logger: logger, config: config}
}

// Login authenticates a volunteer and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	volunteer, err := s.repo.FindByPhone(ctx, req.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid phone or PIN")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to fetch volunteer")
	}

	if !volunteer.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(volunteer.PINHash), []byte(req.PIN)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid phone or PIN")
	}

	accessToken, err := s.generateAccessToken(volunteer)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("volunteer logged in", zap.String("volunteer_id", volunteer.ID))

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.TokenExpiry.Seconds()),
		IssuedAt:    time.Now().UTC(),
		User: models.VolunteerInfo{
			ID:    volunteer.ID,
			Name:  volunteer.Name,
			Phone: volunteer.Phone,
			Role:  volunteer.Role,
			Room:  volunteer.Room,
		},
	}, nil
}

// ChangePIN changes the PIN for the given volunteer ID.
func (s *AuthService) ChangePIN(ctx context.Context, volunteerID string, req models.ChangePINRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change PIN payload")
	}

	volunteer, err := s.repo.FindByID(ctx, volunteerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load volunteer")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(volunteer.PINHash), []byte(req.CurrentPIN)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "current PIN does not match")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPIN), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash PIN")
	}

	if err := s.repo.UpdatePINHash(ctx, volunteerID, string(newHash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update PIN")
	}
	return nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
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

func (s *AuthService) generateAccessToken(volunteer *models.Volunteer) (string, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	claims := &models.JWTClaims{
		VolunteerID: volunteer.ID,
		Name:        volunteer.Name,
		Role:        volunteer.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   volunteer.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.TokenSecret))
}
