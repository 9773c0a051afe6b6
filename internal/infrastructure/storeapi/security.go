package storeapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/storefront/client/internal/domain/identity"
)

// SecurityAPI covers /security for the signed-in user.
type SecurityAPI struct {
	r Requester
}

// TwoFactorVerification confirms a two-factor setup.
type TwoFactorVerification struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// Deactivation is the account deactivation request.
type Deactivation struct {
	Password string `json:"password" validate:"required"`
	Reason   string `json:"reason,omitempty"`
}

// Settings returns the security settings.
func (s *SecurityAPI) Settings(ctx context.Context) (Stats, error) {
	var out Stats
	if err := get(ctx, s.r, "/security/settings/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSettings saves the security settings.
func (s *SecurityAPI) UpdateSettings(ctx context.Context, settings Stats) (Stats, error) {
	var out Stats
	if err := send(ctx, s.r, http.MethodPut, "/security/settings/", settings, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChangePassword changes the account password.
func (s *SecurityAPI) ChangePassword(ctx context.Context, change identity.PasswordChange) error {
	return send(ctx, s.r, http.MethodPut, "/security/password/", change, nil)
}

// EnableTwoFactor starts two-factor enrollment. The response carries the
// secret or QR code to show.
func (s *SecurityAPI) EnableTwoFactor(ctx context.Context) (Stats, error) {
	var out Stats
	if err := send(ctx, s.r, http.MethodPost, "/security/two-factor/enable/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyTwoFactor completes enrollment.
func (s *SecurityAPI) VerifyTwoFactor(ctx context.Context, v TwoFactorVerification) error {
	return send(ctx, s.r, http.MethodPost, "/security/two-factor/verify/", v, nil)
}

// DisableTwoFactor turns two-factor off.
func (s *SecurityAPI) DisableTwoFactor(ctx context.Context) error {
	return send(ctx, s.r, http.MethodDelete, "/security/two-factor/", nil, nil)
}

// LoginHistory returns recent sign-ins.
func (s *SecurityAPI) LoginHistory(ctx context.Context, limit int) ([]Stats, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []Stats
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := getList(ctx, s.r, "/security/login-history/", q, "login_history", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Devices returns the devices with an active session.
func (s *SecurityAPI) Devices(ctx context.Context) ([]Stats, error) {
	var out []Stats
	if err := getList(ctx, s.r, "/security/devices/", nil, "devices", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns security counters.
func (s *SecurityAPI) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	if err := get(ctx, s.r, "/security/stats/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeactivateAccount deactivates the account. The request body travels on
// a DELETE.
func (s *SecurityAPI) DeactivateAccount(ctx context.Context, d Deactivation) error {
	return send(ctx, s.r, http.MethodDelete, "/security/account/", d, nil)
}
