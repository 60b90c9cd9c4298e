package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/merigaumata/authplatform/internal/auth/domain"
	"github.com/merigaumata/authplatform/internal/auth/store"
	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/cryptox"
	"github.com/merigaumata/authplatform/pkg/idx"
	"github.com/merigaumata/authplatform/pkg/slogx"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,50}$`)

type UserService struct {
	Store  store.Store
	Policy PasswordPolicy
	Now    func() time.Time

	dummyMu   sync.Mutex
	dummyHash string
}

// NewUserService prepares the hash verified for unknown usernames so a
// login for a missing user costs the same as a wrong password. The pepper
// must be initialised first.
func NewUserService(st store.Store) (*UserService, error) {
	s := &UserService{Store: st}
	if _, err := s.dummy(); err != nil {
		return nil, fmt.Errorf("prepare dummy password hash: %w", err)
	}
	return s, nil
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *UserService) policy() PasswordPolicy {
	if s.Policy.MinLength == 0 {
		return DefaultPasswordPolicy
	}
	return s.Policy
}

// GetByID fetches a user by id.
func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	return u, lookupError(err)
}

// GetByUsername fetches a user case-insensitively. ErrUserNotFound is
// returned only when no such user exists.
func (s *UserService) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	return u, lookupError(err)
}

func lookupError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrUserNotFound
	default:
		return internal(err, "load user")
	}
}

// RegisterInput is a self-registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// validate collects every field problem into one VALIDATION_ERROR.
func (in RegisterInput) validate(p PasswordPolicy) error {
	fields := map[string][]string{}
	if !usernamePattern.MatchString(in.Username) {
		fields["username"] = append(fields["username"], "must be 3-50 characters of letters, digits, '.', '_' or '-'")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		fields["email"] = append(fields["email"], "must be a valid email address")
	}
	if msgs := p.Check(in.Password); len(msgs) > 0 {
		fields["password"] = msgs
	}
	if len(fields) == 0 {
		return nil
	}
	return apperr.ErrValidation.WithMetadata("fieldErrors", fields)
}

// Register creates a user with the default roles and scopes.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := in.validate(s.policy()); err != nil {
		return domain.User{}, err
	}
	return s.create(ctx, in, domain.DefaultRoles, domain.DefaultScopes)
}

func (s *UserService) create(ctx context.Context, in RegisterInput, roles, scopes []string) (domain.User, error) {
	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, internal(err, "hash password")
	}

	now := s.now()
	u := domain.User{
		ID:           idx.NewAt(now).String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Roles:        slices.Clone(roles),
		Scopes:       slices.Clone(scopes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, internal(err, "create user")
	}

	slogx.FromContext(ctx).Info("user registered", slog.String("user_id", u.ID), slog.String("username", u.Username))
	return u, nil
}

// EnsureAdmin creates the bootstrap administrator if the username is free.
// It reports whether a user was created. The password policy is not applied
// to operator supplied credentials.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	_, err := s.GetByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}

	_, err = s.create(ctx,
		RegisterInput{Username: username, Email: username + "@localhost", Password: password},
		[]string{domain.RoleAdmin, domain.RoleUser},
		[]string{"read", "write", "admin"},
	)
	if errors.Is(err, ErrUsernameTaken) {
		return false, nil
	}
	return err == nil, err
}

// Authenticate checks username and password. A missing user and a wrong
// password both yield ErrInvalidCredentials and cost one hash verification.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			dummy, derr := s.dummy()
			if derr != nil {
				return domain.User{}, internal(derr, "hash password")
			}
			_ = cryptox.VerifyPassword(password, dummy)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, internal(err, "verify password")
	}
	return u, nil
}

// dummy is a throwaway hash verified when the user does not exist. A failed
// hash is retried on the next call rather than cached as empty.
func (s *UserService) dummy() (string, error) {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash != "" {
		return s.dummyHash, nil
	}
	h, err := cryptox.HashPassword("not-a-real-password")
	if err != nil {
		return "", err
	}
	s.dummyHash = h
	return h, nil
}

// RecordLogin stamps last_login_at.
func (s *UserService) RecordLogin(ctx context.Context, userID string) error {
	if err := s.Store.Users().UpdateLastLogin(ctx, userID, s.now()); err != nil {
		return lookupError(err)
	}
	return nil
}
