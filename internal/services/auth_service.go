package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"grocerly/internal/config"
	"grocerly/internal/domain/user"
	"grocerly/internal/repository"
	grocerly_errors "grocerly/pkg/errors"
)

// AuthService issues and validates the tokens the gateway stamps onto every
// proxied request. Tokens carry the family claim; backend services trust it
// as the tenant partition key.
type AuthService struct {
	users     repository.UserRepository
	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthService(users repository.UserRepository, cfg config.AuthConfig) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: cfg.AccessTokenTTL,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Family      string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   int64    `json:"expires_in"`
	User        UserInfo `json:"user"`
}

type UserInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Family      string `json:"family"`
}

type AccessClaims struct {
	UserID string `json:"sub"`
	Family string `json:"fam"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Register creates an account. An empty Family starts a new household; a
// non-empty one joins an existing household.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResponse, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateRegister(in); err != nil {
		return AuthResponse{}, err
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return AuthResponse{}, grocerly_errors.ErrAlreadyExists
	} else if !errors.Is(err, grocerly_errors.ErrNotFound) {
		return AuthResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResponse{}, err
	}

	family := in.Family
	if family == "" {
		family = uuid.NewString()
	}

	u := &user.User{
		ID:           uuid.New(),
		Email:        in.Email,
		DisplayName:  in.DisplayName,
		Family:       family,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return AuthResponse{}, err
	}

	return s.authResponse(*u)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResponse, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" {
		return AuthResponse{}, grocerly_errors.ErrInvalidInput
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, grocerly_errors.ErrNotFound) {
			return AuthResponse{}, grocerly_errors.ErrUnauthorized
		}
		return AuthResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return AuthResponse{}, grocerly_errors.ErrUnauthorized
	}

	return s.authResponse(u)
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, grocerly_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, grocerly_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return AccessClaims{}, grocerly_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || claims.Family == "" {
		return AccessClaims{}, grocerly_errors.ErrUnauthorized
	}
	return *claims, nil
}

func (s *AuthService) authResponse(u user.User) (AuthResponse, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID: u.ID.String(),
		Family: u.Family,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.accessTTL.Seconds()),
		User: UserInfo{
			ID:          u.ID.String(),
			Email:       u.Email,
			DisplayName: u.DisplayName,
			Family:      u.Family,
		},
	}, nil
}

func validateRegister(in RegisterInput) error {
	if in.Email == "" || in.DisplayName == "" {
		return grocerly_errors.ErrInvalidInput
	}
	if !strings.Contains(in.Email, "@") {
		return grocerly_errors.ErrInvalidInput
	}
	if len(in.Password) < 8 {
		return grocerly_errors.ErrInvalidInput
	}
	return nil
}

// HTTPStatus maps sentinel errors onto response codes.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, grocerly_errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, grocerly_errors.ErrUnauthorized), errors.Is(err, grocerly_errors.ErrExpired):
		return http.StatusUnauthorized
	case errors.Is(err, grocerly_errors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, grocerly_errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, grocerly_errors.ErrAlreadyExists), errors.Is(err, grocerly_errors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, grocerly_errors.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
