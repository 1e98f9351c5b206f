package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/parceldrop/parceldrop-backend/pkg/auth"
	"github.com/parceldrop/parceldrop-backend/pkg/config"
	"github.com/parceldrop/parceldrop-backend/pkg/db/models"
	pkgerrors "github.com/parceldrop/parceldrop-backend/pkg/errors"
	"github.com/parceldrop/parceldrop-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// authCache is the auth view of the cache layer. A miss or outage falls back
// to the repository inside the loader.
type authCache interface {
	AuthUserByEmail(ctx context.Context, email string, load func(context.Context) (*models.User, error)) (*models.User, error)
	InvalidateAuthUser(ctx context.Context, email string)
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// ServiceParams bundles the dependencies required to build the identity service.
type ServiceParams struct {
	UserRepo  userRepository
	AuthCache authCache
	Limiter   rateLimiter
	JWTConfig config.JWTConfig
	RateLimit config.AuthRateLimitConfig
}

type service struct {
	users     userRepository
	authCache authCache
	limiter   rateLimiter
	jwtCfg    config.JWTConfig
	rateCfg   config.AuthRateLimitConfig
	now       func() time.Time
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &service{
		users:     params.UserRepo,
		authCache: params.AuthCache,
		limiter:   params.Limiter,
		jwtCfg:    params.JWTConfig,
		rateCfg:   params.RateLimit,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	if err := s.enforceRateLimits(ctx, email, req.ClientIP); err != nil {
		return nil, err
	}

	user, err := s.authenticate(ctx, email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	// The login stamp just changed the row; drop the cached auth entry so the
	// next lookup reloads it.
	if s.authCache != nil {
		s.authCache.InvalidateAuthUser(ctx, email)
	}

	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		Role:     user.Role,
		Verified: user.Verified,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResponse{
		AccessToken: accessToken,
		User:        FromModel(user),
	}, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.lookupUser(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

// lookupUser goes through the auth cache when one is wired. A stale entry is
// bounded by the auth TTL plus the explicit invalidation on profile changes.
func (s *service) lookupUser(ctx context.Context, email string) (*models.User, error) {
	load := func(ctx context.Context) (*models.User, error) {
		return s.users.FindByEmail(ctx, email)
	}
	if s.authCache == nil {
		return load(ctx)
	}
	return s.authCache.AuthUserByEmail(ctx, email, load)
}

// enforceRateLimits applies fixed windows per email and per source IP. A
// limiter outage fails open; locking every login out is worse than letting a
// burst through.
func (s *service) enforceRateLimits(ctx context.Context, email, clientIP string) error {
	if s.limiter == nil {
		return nil
	}

	if s.rateCfg.LoginEmailLimit > 0 {
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, "login:email:"+email, int64(s.rateCfg.LoginEmailLimit), s.rateCfg.LoginWindow)
		if err == nil && !allowed {
			return pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts")
		}
	}
	if clientIP != "" && s.rateCfg.LoginIPLimit > 0 {
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, "login:ip:"+clientIP, int64(s.rateCfg.LoginIPLimit), s.rateCfg.LoginWindow)
		if err == nil && !allowed {
			return pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts")
		}
	}
	return nil
}
