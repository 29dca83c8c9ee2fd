package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog/internal/models"
	"catalog/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService registers catalog operators and issues the JWTs that guard
// catalog changes.
type AuthService struct {
	userRepo      repositories.UserRepository
	jwtSecret     []byte
	tokenDuration time.Duration
	log           *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, log *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour,
		log:           log,
	}
}

// RegisterUser hashes the user's password and stores the user.
func (s *AuthService) RegisterUser(ctx context.Context, user *models.User) error {
	if err := s.ensureFree(ctx, s.userRepo.GetByUsername, user.Username, "username '%s' already taken"); err != nil {
		return err
	}
	if err := s.ensureFree(ctx, s.userRepo.GetByEmail, user.Email, "email '%s' already registered"); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateUser) {
			return fmt.Errorf("%w: %s", ErrUserAlreadyExists, user.Username)
		}
		return fmt.Errorf("failed to register user: %w", err)
	}

	s.log.Info("User registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return nil
}

func (s *AuthService) ensureFree(
	ctx context.Context,
	get func(context.Context, string) (*models.User, error),
	value, format string,
) error {
	_, err := get(ctx, value)
	switch {
	case err == nil:
		return fmt.Errorf("%w: "+format, ErrUserAlreadyExists, value)
	case errors.Is(err, repositories.ErrUserNotFound):
		return nil
	default:
		return fmt.Errorf("failed to look up user: %w", err)
	}
}

// LoginUser authenticates a user and returns a signed JWT.
func (s *AuthService) LoginUser(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		// Don't reveal whether the username exists.
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      now.Add(s.tokenDuration).Unix(),
		"iat":      now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken parses and validates a JWT, returning its claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		s.log.Debug("Token validation failed", zap.Error(err))
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
