package identity

import (
	"encoding/json"
	"strings"

	"github.com/storefront/client/internal/domain/shared"
)

// Roles recognized by the storefront.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the signed-in account.
type User struct {
	ID          shared.ID   `json:"id" yaml:"id"`
	Email       string      `json:"email" yaml:"email"`
	FirstName   string      `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName    string      `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	Phone       string      `json:"phone,omitempty" yaml:"phone,omitempty"`
	Role        string      `json:"role,omitempty" yaml:"role,omitempty"`
	Status      string      `json:"status,omitempty" yaml:"status,omitempty"`
	Preferences Preferences `json:"preferences,omitempty" yaml:"preferences,omitempty"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Preferences is a free-form key-value store persisted on the user record.
type Preferences map[string]any

// String returns the string value stored at key.
func (p Preferences) String(key string) string {
	if p == nil {
		return ""
	}
	s, _ := p[key].(string)
	return s
}

// Pages whose last active section is remembered under a fixed key.
const (
	PageProfile = "profile"
	PageAdmin   = "admin"
)

// LastTabKey is the preference key remembering the active tab of a page.
// Other pages, such as "order_42", get a per-page key.
func LastTabKey(page string) string {
	switch page {
	case PageProfile:
		return "last_active_section"
	case PageAdmin:
		return "last_active_section_admin"
	}
	return "last_active_tab_" + page
}

// Clone returns a deep-enough copy for a read-modify-write cycle.
func (p Preferences) Clone() Preferences {
	out := make(Preferences, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// AuthResult is the login/register response.
type AuthResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	User        *User  `json:"user,omitempty"`
}

// UnmarshalJSON accepts both access_token and token.
func (a *AuthResult) UnmarshalJSON(data []byte) error {
	type alias AuthResult
	var raw struct {
		alias
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = AuthResult(raw.alias)
	if a.AccessToken == "" {
		a.AccessToken = raw.Token
	}
	return nil
}

// Credentials is the login form.
type Credentials struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

// Registration is the sign-up form.
type Registration struct {
	FirstName       string `json:"first_name" validate:"required,max=50"`
	LastName        string `json:"last_name" validate:"required,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone,omitempty" validate:"omitempty,phone"`
	Password        string `json:"password" validate:"required,password"`
	ConfirmPassword string `json:"-" validate:"eqfield=Password"`
}

// PasswordChange is the change-password form.
type PasswordChange struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password,nefield=CurrentPassword"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}
