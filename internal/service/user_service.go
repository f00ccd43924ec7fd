package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"regexp"
	"time"

	"backend/internal/config"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/tokenstore"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type RegisterUserRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name" binding:"required"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type UpdateUserRequest struct {
	Email       string `json:"email" binding:"omitempty,email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Department  string `json:"department"`
	PhotoURL    string `json:"photo_url"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	Department  string    `json:"department,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Register(ctx context.Context, req RegisterUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, id string) error
}

type userService struct {
	repo      repository.UserRepository
	tokens    repository.RefreshTokenRepository
	store     *tokenstore.Store
	txManager repository.TransactionManager
	jwtCfg    config.JWTConfig
	resetTTL  time.Duration
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, tokens repository.RefreshTokenRepository, store *tokenstore.Store, txManager repository.TransactionManager, jwtCfg config.JWTConfig, resetTTL time.Duration) UserService {
	return &userService{
		repo:      repo,
		tokens:    tokens,
		store:     store,
		txManager: txManager,
		jwtCfg:    jwtCfg,
		resetTTL:  resetTTL,
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		Department:  user.Department,
		PhotoURL:    user.PhotoURL,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   user.UpdatedAt.Format(time.RFC3339),
	}
}

// Register creates an application user. The first account ever created
// becomes the administrator; everyone after that starts as a requester
// until an administrator changes their role.
func (s *userService) Register(ctx context.Context, req RegisterUserRequest) (*UserResponse, error) {
	if !emailRegex.MatchString(req.Email) {
		return nil, errors.New("invalid email format")
	}

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &model.User{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    string(hashedPassword),
	}

	// Count and create in one transaction so two concurrent first
	// registrations cannot both become administrator.
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		total, countErr := s.repo.Count(txCtx)
		if countErr != nil {
			return countErr
		}
		if total == 0 {
			user.Role = model.RoleAdministrator
		} else {
			user.Role = model.RoleRequester
		}
		return s.repo.Create(txCtx, user)
	})
	if err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	stored, err := s.tokens.GetByToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}

	if time.Now().After(stored.ExpiresAt) {
		_ = s.tokens.DeleteByToken(ctx, req.RefreshToken)
		return nil, errors.New("refresh token expired")
	}

	user, err := s.repo.GetByID(ctx, stored.UserID.String())
	if err != nil {
		return nil, errors.New("user not found")
	}

	// Rotate: the presented refresh token is spent
	if err := s.tokens.DeleteByToken(ctx, req.RefreshToken); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

// Logout voids the presented access token until it would have expired
// and revokes the refresh token, then relies on the caller to clear
// cookies. A token that does not parse is treated as already dead.
func (s *userService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if remaining := s.tokenRemaining(accessToken); remaining > 0 {
		if err := s.store.BlacklistToken(ctx, accessToken, remaining); err != nil {
			return err
		}
	}
	if refreshToken != "" {
		if err := s.tokens.DeleteByToken(ctx, refreshToken); err != nil {
			log.Warn("Failed to revoke refresh token on logout: ", err)
		}
	}
	return nil
}

// ForgotPassword stores a one-shot reset code for the account. The
// response is identical whether or not the email exists, and the code
// is only logged. Delivery is out of scope.
func (s *userService) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		log.Info("Password reset requested for unknown email")
		return nil
	}

	code, err := randomToken()
	if err != nil {
		return err
	}

	if err := s.store.SaveResetCode(ctx, code, user.ID.String(), s.resetTTL); err != nil {
		return err
	}

	log.WithField("user", user.ID).Info("Password reset code issued: ", code)
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	userID, err := s.store.ConsumeResetCode(ctx, req.Code)
	if err != nil {
		return errors.New("invalid or expired reset code")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return errors.New("user not found")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.New("failed to hash password")
	}
	user.Password = string(hashedPassword)

	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}

	// Any outstanding sessions keep their access tokens; refresh
	// tokens are revoked so they expire within the access TTL.
	return s.tokens.DeleteByUser(ctx, user.ID)
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.New("user not found")
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	var responses []UserResponse
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}

	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.New("user not found")
	}

	if req.Role != "" {
		if !model.ValidRole(req.Role) {
			return nil, errors.New("invalid role: must be requester, superior, accountant, or administrator")
		}
		user.Role = req.Role
	}

	if req.Email != "" && req.Email != user.Email {
		if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
			return nil, errors.New("email already exists")
		}
		user.Email = req.Email
	}

	if req.DisplayName != "" {
		user.DisplayName = req.DisplayName
	}
	if req.Department != "" {
		user.Department = req.Department
	}
	if req.PhotoURL != "" {
		user.PhotoURL = req.PhotoURL
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return errors.New("user not found")
	}
	if err := s.tokens.DeleteByUser(ctx, user.ID); err != nil {
		log.Warn("Failed to revoke refresh tokens for deleted user: ", err)
	}
	return s.repo.Delete(ctx, id)
}

// --- Helpers ---

func (s *userService) tokenRemaining(accessToken string) time.Duration {
	if accessToken == "" {
		return 0
	}
	token, err := jwt.Parse(accessToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return 0
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return time.Until(exp.Time)
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.jwtCfg.AccessTTL).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	refreshValue, err := randomToken()
	if err != nil {
		return nil, err
	}
	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     refreshValue,
		ExpiresAt: now.Add(s.jwtCfg.RefreshTTL),
	}
	if err := s.tokens.Create(ctx, refresh); err != nil {
		return nil, err
	}

	return &TokenResponse{Token: tokenString, RefreshToken: refreshValue}, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
