// Package account implements sign-in, registration and profile
// management for the signed-in customer.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/logger"
)

// AuthClient is the backend auth API.
type AuthClient interface {
	Login(ctx context.Context, creds identity.Credentials) (*identity.AuthResult, error)
	Register(ctx context.Context, reg identity.Registration) (*identity.AuthResult, error)
	Me(ctx context.Context) (*identity.User, error)
	UpdateMe(ctx context.Context, update any) (*identity.User, error)
}

// PasswordChanger changes the account password.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, change identity.PasswordChange) error
}

// SessionStore holds the signed-in session.
type SessionStore interface {
	Login(ctx context.Context, token string, user *identity.User, rememberMe bool) error
	Logout(ctx context.Context) error
	UpdateUser(ctx context.Context, user *identity.User) error
	User() *identity.User
	IsAuthenticated() bool
}

// Service runs the account workflows.
type Service struct {
	auth     AuthClient
	security PasswordChanger
	session  SessionStore
	logger   *zap.Logger
}

// NewService creates an account service.
func NewService(auth AuthClient, security PasswordChanger, session SessionStore, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{auth: auth, security: security, session: session, logger: l}
}

// Login signs in and persists the session.
func (s *Service) Login(ctx context.Context, creds identity.Credentials) (*identity.User, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := shared.Validate(creds); err != nil {
		return nil, err
	}
	res, err := s.auth.Login(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return s.establish(ctx, res, creds.RememberMe)
}

// Register creates an account and signs in with it. When the register
// response carries no token a regular login follows.
func (s *Service) Register(ctx context.Context, reg identity.Registration) (*identity.User, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	if err := shared.Validate(reg); err != nil {
		return nil, err
	}
	res, err := s.auth.Register(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if res == nil || res.AccessToken == "" {
		res, err = s.auth.Login(ctx, identity.Credentials{Email: reg.Email, Password: reg.Password})
		if err != nil {
			return nil, fmt.Errorf("login after register: %w", err)
		}
	}
	return s.establish(ctx, res, false)
}

func (s *Service) establish(ctx context.Context, res *identity.AuthResult, remember bool) (*identity.User, error) {
	if res == nil || res.AccessToken == "" {
		return nil, errors.New("login response carried no token")
	}
	user := res.User
	if user != nil && user.Role == "" {
		user.Role = identity.RoleUser
	}
	if err := s.session.Login(ctx, res.AccessToken, user, remember); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	if user == nil {
		// Some backends only return the token; fetch the profile with it.
		me, err := s.auth.Me(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading profile: %w", err)
		}
		if err := s.session.UpdateUser(ctx, me); err != nil {
			return nil, fmt.Errorf("saving session: %w", err)
		}
		user = me
	}
	logger.WithLogger(ctx, s.logger).Info("Signed in", zap.String("user_id", user.ID.String()), zap.String("role", user.Role))
	return user, nil
}

// Logout clears the session.
func (s *Service) Logout(ctx context.Context) error {
	return s.session.Logout(ctx)
}

// Current refreshes the signed-in user from the backend so role changes
// take effect. It returns shared.ErrNotAuthenticated without a session.
func (s *Service) Current(ctx context.Context) (*identity.User, error) {
	if !s.session.IsAuthenticated() {
		return nil, shared.ErrNotAuthenticated
	}
	me, err := s.auth.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading current user: %w", err)
	}
	if prev := s.session.User(); prev != nil && prev.Role != me.Role {
		s.logger.Info("User role changed", zap.String("from", prev.Role), zap.String("to", me.Role))
	}
	if err := s.session.UpdateUser(ctx, me); err != nil {
		return nil, err
	}
	return me, nil
}

// ProfileUpdate holds the editable profile fields; nil fields are left
// unchanged.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=50"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=50"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,phone"`
}

// UpdateProfile saves profile changes.
func (s *Service) UpdateProfile(ctx context.Context, u ProfileUpdate) (*identity.User, error) {
	if err := shared.Validate(u); err != nil {
		return nil, err
	}
	return s.saveUser(ctx, u)
}

// ChangePassword validates and submits a password change.
func (s *Service) ChangePassword(ctx context.Context, change identity.PasswordChange) error {
	if !s.session.IsAuthenticated() {
		return shared.ErrNotAuthenticated
	}
	if err := shared.Validate(change); err != nil {
		return err
	}
	if err := s.security.ChangePassword(ctx, change); err != nil {
		return fmt.Errorf("changing password: %w", err)
	}
	return nil
}

// LastTab returns the remembered tab of page, or fallback.
func (s *Service) LastTab(page, fallback string) string {
	if u := s.session.User(); u != nil {
		if tab := u.Preferences.String(identity.LastTabKey(page)); tab != "" {
			return tab
		}
	}
	return fallback
}

// SetLastTab remembers tab as the active tab of page. The preference is
// merged into the existing ones and saved on the user record.
func (s *Service) SetLastTab(ctx context.Context, page, tab string) error {
	return s.SetPreference(ctx, identity.LastTabKey(page), tab)
}

// SetPreference stores one preference value on the user record.
func (s *Service) SetPreference(ctx context.Context, key string, value any) error {
	u := s.session.User()
	if u == nil {
		return shared.ErrNotAuthenticated
	}
	prefs := u.Preferences.Clone()
	prefs[key] = value
	_, err := s.saveUser(ctx, map[string]any{"preferences": prefs})
	return err
}

func (s *Service) saveUser(ctx context.Context, update any) (*identity.User, error) {
	if !s.session.IsAuthenticated() {
		return nil, shared.ErrNotAuthenticated
	}
	updated, err := s.auth.UpdateMe(ctx, update)
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	if err := s.session.UpdateUser(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}
