// Package auth owns accounts and sessions: password and Google sign-in,
// profile updates and the HS256 bearer tokens the API accepts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"

	"mamaboss/internal/core"
	"mamaboss/internal/log"
	"mamaboss/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrWeakPassword       = errors.New("password must have at least 6 characters")
	ErrEmailTaken         = errors.New("email already registered")
)

const minPasswordLength = 6

// Demo account available when the server seeds it.
const (
	DemoName     = "Rafaela"
	DemoEmail    = "rafaela@mamaboss.com.br"
	DemoPassword = "123456"
)

type RegisterForm struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is returned by every successful sign-in.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      core.User `json:"user"`
}

// account is the credential record kept in the global scope.
type account struct {
	UserID        string    `json:"userId"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"passwordHash,omitempty"`
	GoogleSubject string    `json:"googleSubject,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Config struct {
	Store  storage.Store
	Tokens *Tokens
	// Google may be nil when Google sign-in is disabled.
	Google GoogleVerifier
	Logger *log.Logger
	Now    func() time.Time
	// HashParams defaults to argon2id.DefaultParams.
	HashParams *argon2id.Params
}

type Service struct {
	store  storage.Store
	tokens *Tokens
	google GoogleVerifier
	logger *log.Logger
	now    func() time.Time
	params *argon2id.Params

	// mu guards the accounts document.
	mu sync.Mutex
}

func NewService(cfg Config) *Service {
	s := &Service{
		store:  cfg.Store,
		tokens: cfg.Tokens,
		google: cfg.Google,
		logger: cfg.Logger,
		now:    cfg.Now,
		params: cfg.HashParams,
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentAuth)
	if s.now == nil {
		s.now = time.Now
	}
	if s.params == nil {
		s.params = argon2id.DefaultParams
	}
	return s
}

// Register creates an account with a password and signs it in.
func (s *Service) Register(ctx context.Context, form RegisterForm) (Session, error) {
	if form.Password != form.ConfirmPassword {
		return Session{}, ErrPasswordMismatch
	}
	if len(form.Password) < minPasswordLength {
		return Session{}, ErrWeakPassword
	}

	now := s.now()
	user := core.User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(form.Name),
		Email:     core.NormalizeEmail(form.Email),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.Validate(); err != nil {
		return Session{}, err
	}

	hash, err := argon2id.CreateHash(form.Password, s.params)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	if err := s.createAccount(ctx, user, account{
		UserID:       user.ID,
		Email:        user.Email,
		PasswordHash: hash,
		CreatedAt:    now,
	}); err != nil {
		return Session{}, err
	}

	s.logger.InfoContext(ctx, "Account registered", log.FieldUserID, user.ID)
	return s.session(user)
}

// Login checks email and password. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, form LoginForm) (Session, error) {
	email := core.NormalizeEmail(form.Email)

	s.mu.Lock()
	accounts, err := s.accounts(ctx)
	s.mu.Unlock()
	if err != nil {
		return Session{}, err
	}

	acc, ok := findBy(accounts, func(a account) bool { return a.Email == email })
	if !ok || acc.PasswordHash == "" {
		s.logger.WarnContext(ctx, "Login rejected", "reason", "unknown account")
		return Session{}, ErrInvalidCredentials
	}

	match, err := argon2id.ComparePasswordAndHash(form.Password, acc.PasswordHash)
	if err != nil {
		return Session{}, fmt.Errorf("compare password: %w", err)
	}
	if !match {
		s.logger.WarnContext(ctx, "Login rejected", log.FieldUserID, acc.UserID, "reason", "password mismatch")
		return Session{}, ErrInvalidCredentials
	}

	user, err := s.profile(ctx, acc)
	if err != nil {
		return Session{}, err
	}
	s.logger.InfoContext(ctx, "User logged in", log.FieldUserID, user.ID)
	return s.session(user)
}

// GoogleLogin signs in with a Google ID token, linking to the account with
// the same email or creating one.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (Session, error) {
	if s.google == nil {
		return Session{}, ErrGoogleDisabled
	}
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return Session{}, err
	}
	email := core.NormalizeEmail(identity.Email)
	if err := core.ValidateEmail(email); err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.accounts(ctx)
	if err != nil {
		return Session{}, err
	}

	i := indexBy(accounts, func(a account) bool {
		return (identity.Subject != "" && a.GoogleSubject == identity.Subject) || a.Email == email
	})
	if i >= 0 {
		if accounts[i].GoogleSubject == "" {
			accounts[i].GoogleSubject = identity.Subject
			if err := storage.Save(ctx, s.store, storage.GlobalScope, storage.KeyAccounts, accounts); err != nil {
				return Session{}, err
			}
		}
		user, err := s.profile(ctx, accounts[i])
		if err != nil {
			return Session{}, err
		}
		s.logger.InfoContext(ctx, "User logged in with Google", log.FieldUserID, user.ID)
		return s.session(user)
	}

	now := s.now()
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	user := core.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Avatar:    identity.Picture,
		CreatedAt: now,
		UpdatedAt: now,
	}
	accounts = append(accounts, account{
		UserID:        user.ID,
		Email:         email,
		GoogleSubject: identity.Subject,
		CreatedAt:     now,
	})
	if err := storage.Save(ctx, s.store, user.ID, storage.KeyUser, user); err != nil {
		return Session{}, err
	}
	if err := storage.Save(ctx, s.store, storage.GlobalScope, storage.KeyAccounts, accounts); err != nil {
		return Session{}, err
	}
	s.logger.InfoContext(ctx, "Account registered with Google", log.FieldUserID, user.ID)
	return s.session(user)
}

// Logout ends a session. Tokens are stateless, so this only records the
// event; clients drop the token.
func (s *Service) Logout(ctx context.Context, userID string) error {
	s.logger.InfoContext(ctx, "User logged out", log.FieldUserID, userID)
	return nil
}

// Authenticate resolves a bearer token to its user ID.
func (s *Service) Authenticate(token string) (string, error) {
	return s.tokens.Parse(token)
}

// User returns the stored profile.
func (s *Service) User(ctx context.Context, userID string) (core.User, error) {
	user, found, err := storage.Load[core.User](ctx, s.store, userID, storage.KeyUser)
	if err != nil {
		return core.User{}, err
	}
	if !found {
		return core.User{}, fmt.Errorf("%w: user %s", core.ErrNotFound, userID)
	}
	return user, nil
}

// UpdateUser merges name, email and avatar into the profile. A new email
// must not belong to another account.
func (s *Service) UpdateUser(ctx context.Context, userID string, patch core.UserPatch) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.User(ctx, userID)
	if err != nil {
		return core.User{}, err
	}
	previous := user.Email
	user.Apply(patch)
	if err := user.Validate(); err != nil {
		return core.User{}, err
	}
	user.UpdatedAt = s.now()

	if user.Email != previous {
		accounts, err := s.accounts(ctx)
		if err != nil {
			return core.User{}, err
		}
		if indexBy(accounts, func(a account) bool { return a.Email == user.Email && a.UserID != userID }) >= 0 {
			return core.User{}, ErrEmailTaken
		}
		if i := indexBy(accounts, func(a account) bool { return a.UserID == userID }); i >= 0 {
			accounts[i].Email = user.Email
			if err := storage.Save(ctx, s.store, storage.GlobalScope, storage.KeyAccounts, accounts); err != nil {
				return core.User{}, err
			}
		}
	}

	if err := storage.Save(ctx, s.store, userID, storage.KeyUser, user); err != nil {
		return core.User{}, err
	}
	s.logger.InfoContext(ctx, "Profile updated", log.FieldUserID, userID)
	return user, nil
}

// Users returns the profile of every registered account, oldest first.
func (s *Service) Users(ctx context.Context) ([]core.User, error) {
	accounts, err := s.accounts(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]core.User, 0, len(accounts))
	for _, acc := range accounts {
		user, err := s.profile(ctx, acc)
		if err != nil {
			return nil, fmt.Errorf("load profile %s: %w", acc.UserID, err)
		}
		users = append(users, user)
	}
	return users, nil
}

// SeedDemo registers the demo account unless its email is already taken.
func (s *Service) SeedDemo(ctx context.Context) error {
	_, err := s.Register(ctx, RegisterForm{
		Name:            DemoName,
		Email:           DemoEmail,
		Password:        DemoPassword,
		ConfirmPassword: DemoPassword,
	})
	if errors.Is(err, ErrEmailTaken) {
		return nil
	}
	return err
}

func (s *Service) createAccount(ctx context.Context, user core.User, acc account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.accounts(ctx)
	if err != nil {
		return err
	}
	if indexBy(accounts, func(a account) bool { return a.Email == acc.Email }) >= 0 {
		return ErrEmailTaken
	}

	if err := storage.Save(ctx, s.store, user.ID, storage.KeyUser, user); err != nil {
		return err
	}
	return storage.Save(ctx, s.store, storage.GlobalScope, storage.KeyAccounts, append(accounts, acc))
}

func (s *Service) accounts(ctx context.Context) ([]account, error) {
	accounts, _, err := storage.Load[[]account](ctx, s.store, storage.GlobalScope, storage.KeyAccounts)
	return accounts, err
}

// profile loads the user behind acc, rebuilding a minimal one if the
// profile document went missing.
func (s *Service) profile(ctx context.Context, acc account) (core.User, error) {
	user, found, err := storage.Load[core.User](ctx, s.store, acc.UserID, storage.KeyUser)
	if err != nil {
		return core.User{}, err
	}
	if found {
		return user, nil
	}
	name, _, _ := strings.Cut(acc.Email, "@")
	user = core.User{
		ID:        acc.UserID,
		Name:      name,
		Email:     acc.Email,
		CreatedAt: acc.CreatedAt,
		UpdatedAt: s.now(),
	}
	if err := storage.Save(ctx, s.store, acc.UserID, storage.KeyUser, user); err != nil {
		return core.User{}, err
	}
	return user, nil
}

func (s *Service) session(user core.User) (Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func indexBy(accounts []account, match func(account) bool) int {
	for i := range accounts {
		if match(accounts[i]) {
			return i
		}
	}
	return -1
}

func findBy(accounts []account, match func(account) bool) (account, bool) {
	if i := indexBy(accounts, match); i >= 0 {
		return accounts[i], true
	}
	return account{}, false
}
