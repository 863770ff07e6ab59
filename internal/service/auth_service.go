package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-erp/internal/model"
	"storefront-erp/internal/repository"
	"storefront-erp/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TokenTTL is how long an access token stays valid
const TokenTTL = 7 * 24 * time.Hour

// DTOs for Request validation
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=admin store_handler"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        UserResponse `json:"user"`
}

// DTO for returning User without exposing the password hash
type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (TokenResponse, error)
	Me(ctx context.Context, userID string) (UserResponse, error)
}

type authService struct {
	repo   repository.UserRepository
	secret []byte
	now    func() time.Time
}

func NewAuthService(repo repository.UserRepository, secret []byte) AuthService {
	return &authService{repo: repo, secret: secret, now: time.Now}
}

func mapUser(user *model.User) UserResponse {
	return UserResponse{
		ID:        user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(timeLayout),
	}
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return UserResponse{}, apperror.Conflict("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return UserResponse{}, lookupErr(err, "user")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserResponse{}, errors.New("failed to hash password")
	}

	role := req.Role
	if role == "" {
		role = model.RoleStoreHandler
	}
	// self-service admin sign-up only bootstraps the first admin
	if role == model.RoleAdmin {
		admins, err := s.repo.CountByRole(ctx, model.RoleAdmin)
		if err != nil {
			return UserResponse{}, fmt.Errorf("database error: %w", err)
		}
		if admins > 0 {
			return UserResponse{}, apperror.Forbidden("an admin account already exists")
		}
	}
	user := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hashed),
		Role:     role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return UserResponse{}, err
	}
	return mapUser(user), nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (TokenResponse, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return TokenResponse{}, apperror.Unauthorized("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return TokenResponse{}, apperror.Unauthorized("invalid email or password")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"exp":  s.now().Add(TokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return TokenResponse{}, errors.New("failed to generate token")
	}

	return TokenResponse{AccessToken: signed, TokenType: "bearer", User: mapUser(user)}, nil
}

func (s *authService) Me(ctx context.Context, userID string) (UserResponse, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return UserResponse{}, apperror.Unauthorized("invalid session")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return UserResponse{}, lookupErr(err, "user")
	}
	return mapUser(user), nil
}
