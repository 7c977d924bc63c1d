package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/auth"
	"github.com/bsg-enterprise/ticketing/internal/config"
	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/mail"
	"github.com/bsg-enterprise/ticketing/internal/ratelimit"
	"github.com/bsg-enterprise/ticketing/internal/repository"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

const minPasswordLength = 8

// AuthService coordinates registration and login flows.
type AuthService struct {
	users       repository.UserRepository
	resets      repository.PasswordResetRepository
	tokenMgr    *auth.TokenManager
	limiter     ratelimit.Limiter
	loginLimits ratelimit.Limits
	revocations auth.Revocations
	mailer      mail.Mailer
	logger      *zap.Logger
	bcryptCost  int
	resetTTL    time.Duration
	frontendURL string
}

// AuthDependencies encapsulates collaborators for the auth service. Limiter, Revocations and Mailer are optional.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	TokenManager      *auth.TokenManager
	Limiter           ratelimit.Limiter
	Revocations       auth.Revocations
	Mailer            mail.Mailer
	Logger            *zap.Logger
}

// RegisterInput carries self-service sign up data.
type RegisterInput struct {
	Name         string
	Username     string
	Email        string
	Password     string
	DepartmentID *string
	UnitID       *string
}

// LoginResult is an issued access token with its owner.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tokens := deps.TokenManager
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, cfg.App.Name)
	}
	return &AuthService{
		users:       deps.UserRepo,
		resets:      deps.PasswordResetRepo,
		tokenMgr:    tokens,
		limiter:     deps.Limiter,
		loginLimits: ratelimit.Limits{PerMinute: cfg.Auth.LoginPerMinute, PerHour: cfg.Auth.LoginPerHour},
		revocations: deps.Revocations,
		mailer:      deps.Mailer,
		logger:      logger,
		bcryptCost:  cfg.Auth.BcryptCost,
		resetTTL:    time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
		frontendURL: strings.TrimRight(cfg.App.FrontendURL, "/"),
	}
}

// Register creates a requester account and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*LoginResult, error) {
	email := normalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.NewValidationError("password too short", map[string]any{"password": fmt.Sprintf("must be at least %d characters", minPasswordLength)})
	}
	if err := checkUniqueUser(ctx, s.users, email, username, ""); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleRequester,
		DepartmentID: trimmedPtr(input.DepartmentID),
		UnitID:       trimmedPtr(input.UnitID),
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.issue(user)
}

// Login authenticates by email or username. Attempts are throttled per identifier and client IP.
func (s *AuthService) Login(ctx context.Context, identifier, password, clientIP string) (*LoginResult, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	limiterKey := "login:" + identifier + ":" + clientIP
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, limiterKey, s.loginLimits)
		if err != nil {
			s.logger.Warn("login rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			return nil, apperrors.NewTooManyRequests("too many login attempts, try again later")
		}
	}

	var (
		user *domain.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(ctx, identifier)
	} else {
		user, err = s.users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.Active() {
		return nil, apperrors.NewForbidden("account suspended")
	}
	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, limiterKey); err != nil {
			s.logger.Warn("failed to reset login limiter", zap.Error(err))
		}
	}
	return s.issue(user)
}

// Logout revokes the presented token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || s.revocations == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAtTime()); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.User, currentPassword, newPassword string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if len(newPassword) < minPasswordLength {
		return apperrors.NewValidationError("password too short", map[string]any{"new_password": fmt.Sprintf("must be at least %d characters", minPasswordLength)})
	}
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return apperrors.NotFoundOr(err, "user", map[string]any{"user_id": actor.ID})
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	return apperrors.MapError(s.users.Update(ctx, user))
}

// RequestPasswordReset emails a one-time reset token. Unknown addresses succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return apperrors.MapError(err)
	}
	if !user.Active() {
		return nil
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     strings.ReplaceAll(uuid.NewString(), "-", ""),
		ExpiresAt: time.Now().UTC().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return apperrors.MapError(err)
	}
	if s.mailer == nil {
		return nil
	}
	link := s.frontendURL + "/reset-password?token=" + url.QueryEscape(token.Token)
	msg := mail.Message{
		To:      []string{user.Email},
		Subject: "Password reset request",
		PlainBody: fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password. It expires at %s.\n\n%s\n",
			user.Name, token.ExpiresAt.Format(time.RFC1123), link),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send password reset email", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

// ConfirmPasswordReset validates the reset token and updates password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperrors.NewValidationError("password too short", map[string]any{"new_password": fmt.Sprintf("must be at least %d characters", minPasswordLength)})
	}
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if isNotFound(err) {
			return apperrors.NewValidationError("invalid or expired reset token", nil)
		}
		return apperrors.MapError(err)
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("invalid or expired reset token", nil)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return apperrors.NotFoundOr(err, "user", map[string]any{"user_id": token.UserID})
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		if isNotFound(err) {
			return apperrors.NewValidationError("invalid or expired reset token", nil)
		}
		return apperrors.MapError(err)
	}
	user.PasswordHash = hash
	return apperrors.MapError(s.users.Update(ctx, user))
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*LoginResult, error) {
	token, claims, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAtTime(), User: user}, nil
}

// checkUniqueUser rejects an email or username already held by an account other than exceptID.
func checkUniqueUser(ctx context.Context, users repository.UserRepository, email, username, exceptID string) error {
	if existing, err := users.GetByEmail(ctx, email); err == nil && existing.ID != exceptID {
		return apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if err != nil && !isNotFound(err) {
		return apperrors.MapError(err)
	}
	if username == "" {
		return nil
	}
	if existing, err := users.GetByUsername(ctx, username); err == nil && existing.ID != exceptID {
		return apperrors.NewConflict("username already taken", map[string]any{"username": username})
	} else if err != nil && !isNotFound(err) {
		return apperrors.MapError(err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
