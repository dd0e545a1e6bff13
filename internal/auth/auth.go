// Package auth implements the owner/consultant account layer on top of the store.
package auth

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pbaille/carnet/internal/domain"
	"github.com/pbaille/carnet/internal/store"
)

// Actions checked by Allowed
const (
	ActionRead       = "read"
	ActionView       = "view"
	ActionExport     = "export"
	ActionWrite      = "write"
	ActionCreateUser = "create_user"
)

// DefaultOwner is the account created on an empty database
const DefaultOwner = "admin"

var (
	// ErrBadCredentials is returned for an unknown user, a wrong password or an inactive account
	ErrBadCredentials = errors.New("invalid username or password")
	// ErrForbidden is returned when the acting user lacks the required role
	ErrForbidden = errors.New("permission denied")
)

// Service hashes passwords and checks roles
type Service struct {
	store *store.Store
	cost  int
	log   *zap.Logger
}

// New returns a Service over st. cost is the bcrypt cost; zero means bcrypt.DefaultCost.
func New(st *store.Store, cost int, log *zap.Logger) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, cost: cost, log: log}
}

// EnsureDefaultOwner creates the DefaultOwner account when no account exists.
// It reports whether one was created.
func (s *Service) EnsureDefaultOwner(password string) (bool, error) {
	n, err := s.store.CountUsers()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	hash, err := s.hash(password)
	if err != nil {
		return false, err
	}
	_, err = s.store.CreateUser(domain.Actor{}, store.UserInput{
		Username:     DefaultOwner,
		PasswordHash: hash,
		Role:         domain.RoleOwner,
	})
	if err != nil {
		return false, fmt.Errorf("create default owner: %w", err)
	}
	s.log.Info("default owner created", zap.String("username", DefaultOwner))
	return true, nil
}

// Authenticate checks the password of an active account and records the login
func (s *Service) Authenticate(username, password string) (*domain.User, error) {
	u, hash, err := s.store.UserCredentials(username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		s.log.Warn("failed login", zap.String("username", username))
		return nil, ErrBadCredentials
	}

	if err := s.store.RecordLogin(u.ID, u.Username); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser adds an account on behalf of by, which must be an owner
func (s *Service) CreateUser(by *domain.User, username, password, role string) (int64, error) {
	if !Allowed(by, ActionCreateUser) {
		return 0, ErrForbidden
	}
	if password == "" {
		return 0, fmt.Errorf("password is required: %w", store.ErrInvalid)
	}

	hash, err := s.hash(password)
	if err != nil {
		return 0, err
	}
	return s.store.CreateUser(by.Actor(), store.UserInput{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	})
}

// ChangePassword replaces the password of u after checking the old one
func (s *Service) ChangePassword(u *domain.User, oldPassword, newPassword string) error {
	_, hash, err := s.store.UserCredentials(u.Username)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(oldPassword)); err != nil {
		return ErrBadCredentials
	}
	if newPassword == "" {
		return fmt.Errorf("password is required: %w", store.ErrInvalid)
	}

	newHash, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	return s.store.SetPasswordHash(u.Actor(), u.ID, newHash)
}

// Allowed reports whether u may perform action. Owners may do everything,
// consultants only read, view and export. A nil user may do nothing.
func Allowed(u *domain.User, action string) bool {
	if u == nil || !u.Active {
		return false
	}
	switch u.Role {
	case domain.RoleOwner:
		return true
	case domain.RoleConsultant:
		return action == ActionRead || action == ActionView || action == ActionExport
	}
	return false
}

func (s *Service) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}
