package storeapi

import (
	"context"
	"net/http"

	"github.com/storefront/client/internal/domain/identity"
)

// AuthAPI covers /auth.
type AuthAPI struct {
	r Requester
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// Login exchanges credentials for a token.
func (a *AuthAPI) Login(ctx context.Context, creds identity.Credentials) (*identity.AuthResult, error) {
	var out identity.AuthResult
	err := send(ctx, a.r, http.MethodPost, "/auth/login", loginRequest{
		Email:      creds.Email,
		Password:   creds.Password,
		RememberMe: creds.RememberMe,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. Backends may or may not sign the user in.
func (a *AuthAPI) Register(ctx context.Context, reg identity.Registration) (*identity.AuthResult, error) {
	var out identity.AuthResult
	if err := send(ctx, a.r, http.MethodPost, "/auth/register", reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the signed-in user.
func (a *AuthAPI) Me(ctx context.Context) (*identity.User, error) {
	var u identity.User
	if err := get(ctx, a.r, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateMe applies a partial update to the signed-in user.
func (a *AuthAPI) UpdateMe(ctx context.Context, update any) (*identity.User, error) {
	var u identity.User
	if err := send(ctx, a.r, http.MethodPut, "/auth/me", update, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// RefreshToken issues a fresh token for the current session.
func (a *AuthAPI) RefreshToken(ctx context.Context) (*identity.AuthResult, error) {
	var out identity.AuthResult
	if err := send(ctx, a.r, http.MethodPost, "/auth/refresh-token", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GoogleLogin returns the provider redirect, typically {"auth_url": ...}.
func (a *AuthAPI) GoogleLogin(ctx context.Context) (Stats, error) {
	var out Stats
	if err := get(ctx, a.r, "/auth/google/login", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GoogleSession resolves a completed OAuth session into a token.
func (a *AuthAPI) GoogleSession(ctx context.Context, sessionID string) (*identity.AuthResult, error) {
	var out identity.AuthResult
	if err := get(ctx, a.r, "/auth/google/session/"+sessionID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserAPI is the profile view of /auth/me.
type UserAPI struct {
	r Requester
}

// Profile returns the signed-in user's profile.
func (u *UserAPI) Profile(ctx context.Context) (*identity.User, error) {
	var out identity.User
	if err := get(ctx, u.r, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile saves profile fields.
func (u *UserAPI) UpdateProfile(ctx context.Context, update any) (*identity.User, error) {
	var out identity.User
	if err := send(ctx, u.r, http.MethodPut, "/auth/me", update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
