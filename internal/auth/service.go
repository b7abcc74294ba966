package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ninekrua/pos-backend/internal/users"
	"github.com/ninekrua/pos-backend/pkg/auth"
	"github.com/ninekrua/pos-backend/pkg/auth/session"
	"github.com/ninekrua/pos-backend/pkg/config"
	"github.com/ninekrua/pos-backend/pkg/db/models"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
	"github.com/ninekrua/pos-backend/pkg/security"
)

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type loginLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type userDirectory interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	TouchLastLogin(ctx context.Context, user *models.User) error
}

// TokenPair is an issued access/refresh credential pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// LoginResult bundles the issued tokens with the authenticated user.
type LoginResult struct {
	Tokens TokenPair   `json:"tokens"`
	User   models.User `json:"user"`
}

// Service handles staff authentication.
type Service interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

type service struct {
	users     userDirectory
	sessions  sessionManager
	limiter   loginLimiter
	jwt       config.JWTConfig
	rateLimit config.AuthRateLimitConfig
	now       func() time.Time
}

// NewService wires the auth service.
func NewService(directory userDirectory, sessions sessionManager, limiter loginLimiter, jwt config.JWTConfig, rateLimit config.AuthRateLimitConfig) (Service, error) {
	if directory == nil || sessions == nil || limiter == nil {
		return nil, errors.New("auth: missing dependency")
	}
	return &service{
		users:     directory,
		sessions:  sessions,
		limiter:   limiter,
		jwt:       jwt,
		rateLimit: rateLimit,
		now:       time.Now,
	}, nil
}

// Login verifies credentials and issues a token pair. Failures are uniformly
// unauthorized so usernames cannot be probed.
func (s *service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and password are required")
	}

	allowed, _, err := s.limiter.FixedWindowAllow(ctx,
		"login:"+strings.ToLower(username),
		int64(s.rateLimit.LoginUsernameLimit),
		s.rateLimit.LoginWindow)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking login rate limit")
	}
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts, try again later")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil, invalidCredentials()
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, invalidCredentials()
	}
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, invalidCredentials()
	}

	tokens, err := s.issueTokens(ctx, user, session.NewAccessID())
	if err != nil {
		return nil, err
	}
	if err := s.users.TouchLastLogin(ctx, user); err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return &LoginResult{Tokens: *tokens, User: *user}, nil
}

// Refresh rotates the refresh token and mints a fresh access token. The
// presented access token may already be expired; only its signature and
// session binding are checked.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access and refresh tokens are required")
	}
	claims, err := auth.ParseAccessTokenAllowExpired(s.jwt, accessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotating session")
	}

	minted, err := auth.MintAccessToken(s.jwt, s.now(), auth.AccessTokenPayload{
		UserID: claims.UserID,
		Role:   claims.Role,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}
	return &TokenPair{
		AccessToken:  minted,
		RefreshToken: newRefresh,
		ExpiresIn:    s.jwt.ExpirationMinutes * 60,
	}, nil
}

// Logout revokes the session bound to the access token. An expired token is
// still accepted so users can always log out.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access token is required")
	}
	claims, err := auth.ParseAccessTokenAllowExpired(s.jwt, accessToken)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoking session")
	}
	return nil
}

func (s *service) issueTokens(ctx context.Context, user *models.User, accessID string) (*TokenPair, error) {
	minted, err := auth.MintAccessToken(s.jwt, s.now(), auth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}
	refresh, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating session")
	}
	return &TokenPair{
		AccessToken:  minted,
		RefreshToken: refresh,
		ExpiresIn:    s.jwt.ExpirationMinutes * 60,
	}, nil
}

func invalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid username or password")
}

// Directory adapts the users service to the auth service's needs.
type Directory struct {
	Users users.Service
	Repo  users.Repository
}

// FindByUsername implements userDirectory.
func (d Directory) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return d.Users.FindByUsername(ctx, username)
}

// TouchLastLogin implements userDirectory.
func (d Directory) TouchLastLogin(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.LastLoginAt = &now
	return d.Repo.Update(ctx, user.ID, map[string]any{"last_login_at": now})
}
