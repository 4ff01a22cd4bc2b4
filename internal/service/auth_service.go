package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"gptcatalog/internal/auth"
	apperrors "gptcatalog/internal/errors"
	"gptcatalog/internal/logger"
	"gptcatalog/internal/model"
	"gptcatalog/internal/repository"
)

// AuthRecorder observes authentication attempts.
type AuthRecorder interface {
	ObserveAuth(operation, result string)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token  string
	UserID uint
	Role   model.Role
}

// SignupResult is returned by a successful signup.
type SignupResult struct {
	UserID uint
	Role   model.Role
}

// AuthService handles authentication operations.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// Signup creates an account. An empty inviteCode means no invite.
	Signup(ctx context.Context, email, password, inviteCode string) (*SignupResult, error)
}

type authService struct {
	users    repository.UserRepository
	invites  repository.InviteRepository
	tokens   *auth.TokenCodec
	hasher   *auth.PasswordHasher
	validate *validator.Validate
	log      logger.Logger
	recorder AuthRecorder
	now      func() time.Time
}

// AuthOption customizes the auth service.
type AuthOption func(*authService)

// WithAuthRecorder sets the metrics recorder.
func WithAuthRecorder(r AuthRecorder) AuthOption {
	return func(s *authService) { s.recorder = r }
}

// WithAuthClock overrides the clock used for invite expiry.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *authService) { s.now = now }
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	invites repository.InviteRepository,
	tokens *auth.TokenCodec,
	hasher *auth.PasswordHasher,
	log logger.Logger,
	opts ...AuthOption,
) AuthService {
	if log == nil {
		log = logger.Nop()
	}
	s := &authService{
		users:    users,
		invites:  invites,
		tokens:   tokens,
		hasher:   hasher,
		validate: NewValidator(),
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates a user and issues a session token. Unknown email and
// wrong password return the same error.
func (s *authService) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	defer func() { s.observe("login", err) }()

	if err := s.validate.Struct(loginInput{Email: email, Password: password}); err != nil {
		return nil, translateValidation(err)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		s.hasher.CompareDummy(ctx, password)
		s.log.Info("login failed", "reason", "unknown_email")
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(ctx, user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrMismatchedHashAndPassword) {
			return nil, fmt.Errorf("compare password: %w", err)
		}
		s.log.Info("login failed", "reason", "wrong_password", "user_id", user.ID)
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.log.Info("login succeeded", "user_id", user.ID, "role", user.Role)
	return &LoginResult{Token: token, UserID: user.ID, Role: user.Role}, nil
}

// Signup validates input, checks the invite code and creates the user. The
// user insert and invite redemption commit together, and redemption is a
// compare-and-swap so a code can only be consumed once.
func (s *authService) Signup(ctx context.Context, email, password, inviteCode string) (res *SignupResult, err error) {
	defer func() { s.observe("signup", err) }()

	if err := s.validate.Struct(signupInput{Email: email, Password: password}); err != nil {
		return nil, translateValidation(err)
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrDuplicateUser
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	role := model.RoleGuest
	var invite *model.InviteCode
	if inviteCode != "" {
		invite, err = s.invites.FindByCode(ctx, inviteCode)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.ErrInvalidInvite
			}
			return nil, fmt.Errorf("find invite: %w", err)
		}
		if invite.IsExpired(s.now()) {
			return nil, apperrors.ErrInvalidInvite
		}
		if invite.IsUsed {
			return nil, apperrors.ErrInviteAlreadyUsed
		}
		role = model.RoleInvited
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Email: email, PasswordHash: hash, Role: role}
	if invite != nil {
		code := invite.Code
		user.InviteCodeUsed = &code
	}

	err = s.users.WithTransaction(ctx, func(ctx context.Context, users repository.UserRepository, invites repository.InviteRepository) error {
		if err := users.Create(ctx, user); err != nil {
			return err
		}
		if invite == nil {
			return nil
		}
		return invites.MarkUsed(ctx, invite.ID, user.ID)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateUser) || errors.Is(err, apperrors.ErrInviteAlreadyUsed) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user signed up", "user_id", user.ID, "role", role, "invited", invite != nil)
	return &SignupResult{UserID: user.ID, Role: role}, nil
}

func (s *authService) observe(operation string, err error) {
	if s.recorder == nil {
		return
	}
	result := "success"
	if err != nil {
		result = string(apperrors.KindOf(err))
	}
	s.recorder.ObserveAuth(operation, result)
}
