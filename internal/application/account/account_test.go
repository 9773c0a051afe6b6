package account

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/session"
	"github.com/storefront/client/internal/infrastructure/storeapi"
)

type MockAuthClient struct{ mock.Mock }

func (m *MockAuthClient) Login(ctx context.Context, creds identity.Credentials) (*identity.AuthResult, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.AuthResult), args.Error(1)
}

func (m *MockAuthClient) Register(ctx context.Context, reg identity.Registration) (*identity.AuthResult, error) {
	args := m.Called(ctx, reg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.AuthResult), args.Error(1)
}

func (m *MockAuthClient) Me(ctx context.Context) (*identity.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockAuthClient) UpdateMe(ctx context.Context, update any) (*identity.User, error) {
	args := m.Called(ctx, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

type MockPasswordChanger struct{ mock.Mock }

func (m *MockPasswordChanger) ChangePassword(ctx context.Context, change identity.PasswordChange) error {
	return m.Called(ctx, change).Error(0)
}

func newService(t *testing.T) (*Service, *MockAuthClient, *MockPasswordChanger, *session.Manager) {
	t.Helper()
	auth := new(MockAuthClient)
	sec := new(MockPasswordChanger)
	mgr := session.NewManager(session.NewMemoryStore())
	return NewService(auth, sec, mgr, nil), auth, sec, mgr
}

func signIn(t *testing.T, auth *MockAuthClient, svc *Service, user *identity.User) {
	t.Helper()
	creds := identity.Credentials{Email: user.Email, Password: "secret"}
	auth.On("Login", mock.Anything, creds).Return(&identity.AuthResult{AccessToken: "tok", User: user}, nil).Once()
	_, err := svc.Login(context.Background(), creds)
	require.NoError(t, err)
}

func TestLogin_PersistsSession(t *testing.T) {
	svc, auth, _, mgr := newService(t)
	creds := identity.Credentials{Email: " ada@example.com ", Password: "secret", RememberMe: true}
	auth.On("Login", mock.Anything, identity.Credentials{Email: "ada@example.com", Password: "secret", RememberMe: true}).
		Return(&identity.AuthResult{AccessToken: "tok", User: &identity.User{ID: "1", Email: "ada@example.com", Role: "admin"}}, nil)

	u, err := svc.Login(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.True(t, mgr.IsAuthenticated())
	assert.Equal(t, "admin", mgr.Role())
	assert.Equal(t, "tok", mgr.Token(context.Background()))
	assert.True(t, mgr.Current().RememberMe)
}

func TestLogin_Validation(t *testing.T) {
	svc, auth, _, _ := newService(t)
	_, err := svc.Login(context.Background(), identity.Credentials{Email: "not-an-email"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
	auth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestLogin_TokenOnlyFetchesProfile(t *testing.T) {
	svc, auth, _, mgr := newService(t)
	creds := identity.Credentials{Email: "ada@example.com", Password: "secret"}
	auth.On("Login", mock.Anything, creds).Return(&identity.AuthResult{AccessToken: "tok"}, nil)
	auth.On("Me", mock.Anything).Return(&identity.User{ID: "1", Email: "ada@example.com", Role: "user"}, nil)

	u, err := svc.Login(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, shared.ID("1"), u.ID)
	assert.Equal(t, u, mgr.User())
}

func TestRegister_LogsInAfterwards(t *testing.T) {
	svc, auth, _, mgr := newService(t)
	reg := identity.Registration{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		Password: "Secret123", ConfirmPassword: "Secret123",
	}
	auth.On("Register", mock.Anything, reg).Return(&identity.AuthResult{User: &identity.User{ID: "1"}}, nil)
	auth.On("Login", mock.Anything, identity.Credentials{Email: "ada@example.com", Password: "Secret123"}).
		Return(&identity.AuthResult{AccessToken: "tok", User: &identity.User{ID: "1", Email: "ada@example.com"}}, nil)

	u, err := svc.Register(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, identity.RoleUser, u.Role)
	assert.True(t, mgr.IsAuthenticated())
	auth.AssertExpectations(t)
}

func TestRegister_WeakPassword(t *testing.T) {
	svc, _, _, _ := newService(t)
	_, err := svc.Register(context.Background(), identity.Registration{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		Password: "password", ConfirmPassword: "password",
	})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")
}

func TestLogout(t *testing.T) {
	svc, auth, _, mgr := newService(t)
	signIn(t, auth, svc, &identity.User{ID: "1", Email: "ada@example.com"})

	require.NoError(t, svc.Logout(context.Background()))
	assert.False(t, mgr.IsAuthenticated())
	assert.Nil(t, mgr.User())
}

func TestCurrent_SyncsRole(t *testing.T) {
	svc, auth, _, mgr := newService(t)
	_, err := svc.Current(context.Background())
	assert.ErrorIs(t, err, shared.ErrNotAuthenticated)

	signIn(t, auth, svc, &identity.User{ID: "1", Email: "ada@example.com", Role: "user"})
	auth.On("Me", mock.Anything).Return(&identity.User{ID: "1", Email: "ada@example.com", Role: "admin"}, nil)

	u, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
	assert.Equal(t, "admin", mgr.Role())
}

func TestLastTab(t *testing.T) {
	svc, auth, _, mgr := newService(t)
	assert.Equal(t, "profile", svc.LastTab(identity.PageProfile, "profile"))
	assert.ErrorIs(t, svc.SetLastTab(context.Background(), identity.PageProfile, "orders"), shared.ErrNotAuthenticated)

	signIn(t, auth, svc, &identity.User{ID: "1", Email: "ada@example.com", Preferences: identity.Preferences{"theme": "dark"}})
	auth.On("UpdateMe", mock.Anything, mock.MatchedBy(func(update any) bool {
		m, ok := update.(map[string]any)
		if !ok {
			return false
		}
		prefs := m["preferences"].(identity.Preferences)
		return prefs["theme"] == "dark" && prefs["last_active_section"] == "orders"
	})).Return(&identity.User{ID: "1", Email: "ada@example.com", Preferences: identity.Preferences{"theme": "dark", "last_active_section": "orders"}}, nil)

	require.NoError(t, svc.SetLastTab(context.Background(), identity.PageProfile, "orders"))
	assert.Equal(t, "orders", svc.LastTab(identity.PageProfile, "profile"))
	assert.Equal(t, "orders", mgr.User().Preferences.String("last_active_section"))
}

func TestUpdateProfile(t *testing.T) {
	svc, auth, _, _ := newService(t)
	signIn(t, auth, svc, &identity.User{ID: "1", Email: "ada@example.com"})

	bad := "12"
	_, err := svc.UpdateProfile(context.Background(), ProfileUpdate{Phone: &bad})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	name := "Augusta"
	auth.On("UpdateMe", mock.Anything, ProfileUpdate{FirstName: &name}).
		Return(&identity.User{ID: "1", FirstName: "Augusta"}, nil)
	u, err := svc.UpdateProfile(context.Background(), ProfileUpdate{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", u.FirstName)
}

func TestChangePassword(t *testing.T) {
	svc, auth, sec, _ := newService(t)
	change := identity.PasswordChange{CurrentPassword: "Old12345", NewPassword: "New12345", ConfirmPassword: "New12345"}
	assert.ErrorIs(t, svc.ChangePassword(context.Background(), change), shared.ErrNotAuthenticated)

	signIn(t, auth, svc, &identity.User{ID: "1", Email: "ada@example.com"})
	sec.On("ChangePassword", mock.Anything, change).Return(nil)
	require.NoError(t, svc.ChangePassword(context.Background(), change))

	mismatch := change
	mismatch.ConfirmPassword = "Other1234"
	assert.ErrorIs(t, svc.ChangePassword(context.Background(), mismatch), shared.ErrInvalidInput)
	sec.AssertNumberOfCalls(t, "ChangePassword", 1)
}

type MockAddressAPI struct{ mock.Mock }

func (m *MockAddressAPI) List(ctx context.Context) ([]identity.Address, error) {
	args := m.Called(ctx)
	return args.Get(0).([]identity.Address), args.Error(1)
}

func (m *MockAddressAPI) Create(ctx context.Context, addr identity.Address) (*identity.Address, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Address), args.Error(1)
}

func (m *MockAddressAPI) Update(ctx context.Context, id shared.ID, addr identity.Address) (*identity.Address, error) {
	args := m.Called(ctx, id, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Address), args.Error(1)
}

func (m *MockAddressAPI) Delete(ctx context.Context, id shared.ID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAddressAPI) SetDefault(ctx context.Context, id shared.ID) error {
	return m.Called(ctx, id).Error(0)
}

func validAddress() identity.Address {
	return identity.Address{
		FirstName: "Ada", LastName: "Lovelace", StreetAddress: "1 Main St",
		City: "Springfield", State: "IL", PostalCode: "62701", Country: "US",
	}
}

func TestAddresses_SaveDefault(t *testing.T) {
	api := new(MockAddressAPI)
	addr := validAddress()
	addr.IsDefault = true
	api.On("Create", mock.Anything, addr).Return(&identity.Address{ID: "9", IsDefault: false}, nil)
	api.On("SetDefault", mock.Anything, shared.ID("9")).Return(nil)

	saved, err := NewAddresses(api).Save(context.Background(), addr)
	require.NoError(t, err)
	assert.True(t, saved.IsDefault)
	api.AssertExpectations(t)
}

func TestAddresses_SaveUpdatesExisting(t *testing.T) {
	api := new(MockAddressAPI)
	addr := validAddress()
	addr.ID = "4"
	api.On("Update", mock.Anything, shared.ID("4"), addr).Return(&addr, nil)

	_, err := NewAddresses(api).Save(context.Background(), addr)
	require.NoError(t, err)
	api.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAddresses_SaveValidates(t *testing.T) {
	api := new(MockAddressAPI)
	_, err := NewAddresses(api).Save(context.Background(), identity.Address{FirstName: "Ada"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "street_address")
}

type MockPaymentAPI struct{ mock.Mock }

func (m *MockPaymentAPI) List(ctx context.Context) (*storeapi.PaymentList, error) {
	args := m.Called(ctx)
	return args.Get(0).(*storeapi.PaymentList), args.Error(1)
}

func (m *MockPaymentAPI) Create(ctx context.Context, pm identity.PaymentMethod) (*identity.PaymentMethod, error) {
	args := m.Called(ctx, pm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.PaymentMethod), args.Error(1)
}

func (m *MockPaymentAPI) Update(ctx context.Context, id shared.ID, pm identity.PaymentMethod) (*identity.PaymentMethod, error) {
	args := m.Called(ctx, id, pm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.PaymentMethod), args.Error(1)
}

func (m *MockPaymentAPI) Delete(ctx context.Context, id shared.ID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPaymentAPI) SetDefault(ctx context.Context, id shared.ID) error {
	return m.Called(ctx, id).Error(0)
}

func TestPayments_SaveFillsLastFour(t *testing.T) {
	api := new(MockPaymentAPI)
	api.On("Create", mock.Anything, mock.MatchedBy(func(pm identity.PaymentMethod) bool {
		return pm.CreditCard != nil && pm.CreditCard.LastFour == "4242"
	})).Return(&identity.PaymentMethod{ID: "3", Type: "credit_card"}, nil)

	saved, err := NewPayments(api).Save(context.Background(), identity.PaymentMethod{
		Type:       "credit_card",
		CreditCard: &identity.CreditCard{CardNumber: "4242424242424242", ExpiryMonth: 12, ExpiryYear: 2030, CVV: "123"},
	})
	require.NoError(t, err)
	assert.Equal(t, shared.ID("3"), saved.ID)
}

func TestPayments_SaveRejectsBadCard(t *testing.T) {
	api := new(MockPaymentAPI)
	_, err := NewPayments(api).Save(context.Background(), identity.PaymentMethod{
		Type:       "credit_card",
		CreditCard: &identity.CreditCard{CardNumber: "42ab", ExpiryMonth: 13},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestPayments_DeletePropagatesErrors(t *testing.T) {
	api := new(MockPaymentAPI)
	api.On("Delete", mock.Anything, shared.ID("3")).Return(errors.New("in use"))
	assert.EqualError(t, NewPayments(api).Delete(context.Background(), "3"), "in use")
}
