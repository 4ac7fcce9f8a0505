package auth

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/audit"
	"github.com/frahmantamala/company-authz/internal/core/catalog"
	"github.com/frahmantamala/company-authz/internal/core/user"
)

const resourceSession = "session"

// Service is the main auth service with dependencies
type Service struct {
	repo       RepositoryAPI
	tokens     TokenGenerator
	audit      audit.Recorder
	bcryptCost int
	logger     *slog.Logger
}

// NewService creates a new auth service
func NewService(repo RepositoryAPI, tokens TokenGenerator, recorder audit.Recorder, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		tokens:     tokens,
		audit:      recorder,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Authenticate validates credentials and returns tokens. Failed attempts
// are recorded as security events without an actor.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	creds, err := s.repo.GetCredentialsByEmail(ctx, dto.Email)
	if err != nil {
		s.logger.Error("failed to load credentials", "error", err)
		return AuthTokens{}, internal.NewStorageError("user store unavailable", err)
	}
	if creds == nil || VerifyPassword(creds.PasswordHash, dto.Password) != nil {
		s.loginFailed(ctx, dto.Email, "invalid_credentials")
		return AuthTokens{}, internal.ErrInvalidCredentials
	}
	if !creds.IsActive {
		s.loginFailed(ctx, dto.Email, "inactive")
		return AuthTokens{}, internal.ErrUserInactive
	}

	tokens, err := s.issue(strconv.FormatInt(creds.UserID, 10), creds.Email)
	if err != nil {
		return AuthTokens{}, err
	}

	s.record(ctx, audit.Record{
		ActorID:      audit.ID(creds.UserID),
		Action:       catalog.ActionLogin,
		ResourceType: resourceSession,
		ResourceID:   strconv.FormatInt(creds.UserID, 10),
	})
	return tokens, nil
}

// RefreshTokens validates refresh token and returns new tokens
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	u, err := s.CurrentUser(ctx, claims)
	if err != nil {
		return AuthTokens{}, err
	}
	return s.issue(claims.UserID, u.Email)
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokens.ValidateAccessToken(tokenString)
}

// CurrentUser loads the active user named by the token.
func (s *Service) CurrentUser(ctx context.Context, claims *Claims) (*user.User, error) {
	id, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil || id <= 0 {
		return nil, internal.ErrInvalidToken
	}

	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load user", "user_id", id, "error", err)
		return nil, internal.NewStorageError("user store unavailable", err)
	}
	if u == nil {
		return nil, internal.ErrInvalidToken
	}
	if !u.IsActive {
		return nil, internal.ErrUserInactive
	}
	return u, nil
}

func (s *Service) Logout(ctx context.Context, u *user.User) {
	s.record(ctx, audit.Record{
		ActorID:      audit.ID(u.ID),
		Action:       catalog.ActionLogout,
		ResourceType: resourceSession,
		ResourceID:   strconv.FormatInt(u.ID, 10),
	})
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	return HashPassword(password, s.bcryptCost)
}

func (s *Service) issue(userID, email string) (AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(userID, email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to sign token", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(userID, email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to sign token", err)
	}

	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *Service) loginFailed(ctx context.Context, email, reason string) {
	s.logger.Warn("login failed", "reason", reason)
	s.record(ctx, audit.Record{
		Action:          catalog.ActionLogin,
		ResourceType:    resourceSession,
		Details:         map[string]any{"email": email, "reason": reason},
		IsSecurityEvent: true,
	})
}

func (s *Service) record(ctx context.Context, rec audit.Record) {
	if _, err := s.audit.LogAction(ctx, rec); err != nil {
		s.logger.Warn("audit entry not recorded", "action", rec.Action, "error", err)
	}
}
