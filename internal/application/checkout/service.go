package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/storefront/client/internal/domain/cart"
	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/order"
	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/logger"
	"github.com/storefront/client/internal/infrastructure/storeapi"
	"github.com/storefront/client/internal/infrastructure/telemetry"
)

// DefaultDuplicateTTL is how long a submitted checkout blocks an
// identical resubmit.
const DefaultDuplicateTTL = 2 * time.Minute

// CartReader loads the server-side cart.
type CartReader interface {
	Get(ctx context.Context) (*cart.Cart, error)
}

// AddressLister loads the address book.
type AddressLister interface {
	List(ctx context.Context) ([]identity.Address, error)
}

// PaymentLister loads the saved payment methods.
type PaymentLister interface {
	List(ctx context.Context) (*storeapi.PaymentList, error)
}

// OrderCreator places orders.
type OrderCreator interface {
	Create(ctx context.Context, payload any, idempotencyKey string) (*order.Order, error)
}

// UserSource returns the signed-in user, or nil.
type UserSource interface {
	User() *identity.User
}

// Service runs the checkout workflow.
type Service struct {
	carts     CartReader
	addresses AddressLister
	payments  PaymentLister
	orders    OrderCreator
	users     UserSource
	guard     shared.SubmissionGuard
	ttl       time.Duration
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithUsers sets the source of the signed-in user.
func WithUsers(u UserSource) Option {
	return func(s *Service) { s.users = u }
}

// WithDuplicateTTL overrides DefaultDuplicateTTL.
func WithDuplicateTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// NewService creates a checkout service. guard may be nil, which disables
// duplicate submission detection.
func NewService(carts CartReader, addresses AddressLister, payments PaymentLister, orders OrderCreator, guard shared.SubmissionGuard, opts ...Option) *Service {
	s := &Service{
		carts:     carts,
		addresses: addresses,
		payments:  payments,
		orders:    orders,
		guard:     guard,
		ttl:       DefaultDuplicateTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceFromAPI wires a Service to the storefront API.
func NewServiceFromAPI(api *storeapi.API, guard shared.SubmissionGuard, opts ...Option) *Service {
	return NewService(api.Cart, api.Addresses, api.Payments, api.Orders, guard, opts...)
}

// Prepare loads the cart, address book and payment methods in parallel
// and pre-selects the defaults. Only a cart failure is fatal; the other
// sections start empty when they fail to load.
func (s *Service) Prepare(ctx context.Context) (*Flow, error) {
	ctx, span := telemetry.StartSpan(ctx, "checkout", "prepare")
	defer span.End()
	log := logger.WithLogger(ctx, s.logger)

	var (
		c         *cart.Cart
		addresses []identity.Address
		payments  []identity.PaymentMethod
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		c, err = s.carts.Get(gctx)
		if err != nil {
			return fmt.Errorf("loading cart: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		list, err := s.addresses.List(gctx)
		if err != nil {
			log.Warn("Failed to load addresses", zap.Error(err))
			return nil
		}
		addresses = list
		return nil
	})
	g.Go(func() error {
		list, err := s.payments.List(gctx)
		if err != nil {
			log.Warn("Failed to load payment methods", zap.Error(err))
			return nil
		}
		if list != nil {
			payments = list.Payments
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if c == nil {
		c = &cart.Cart{}
	}
	f := NewFlow(c)
	f.Addresses = addresses
	f.Payments = payments
	if a, ok := identity.DefaultAddress(addresses); ok {
		_ = f.SelectAddress(a.ID)
	} else if len(addresses) > 0 {
		_ = f.SelectAddress(addresses[0].ID)
	}
	if p, ok := identity.DefaultPaymentMethod(payments); ok {
		f.Selection.PaymentID = p.ID
	}
	if s.users != nil {
		if u := s.users.User(); u != nil {
			f.Selection.Contact = Contact{Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Phone: u.Phone}
		}
	}

	telemetry.SetAttributes(span, "cart.items", len(c.Items), "addresses", len(addresses), "payments", len(payments))
	return f, nil
}

// Submit places the order for f. An identical checkout submitted within
// the duplicate TTL is rejected with ErrDuplicateSubmission. On success
// the flow moves to StepComplete and f.Order holds the created order; on
// failure the flow stays on its current step.
func (s *Service) Submit(ctx context.Context, f *Flow) (*order.Order, error) {
	if f.IsComplete() {
		return nil, shared.ErrInvalidState
	}
	if f.Selection.Friend != nil {
		if err := shared.Validate(f.Selection.Friend); err != nil {
			return nil, err
		}
	}

	var user *identity.User
	if s.users != nil {
		user = s.users.User()
	}
	payload, err := BuildPayload(f.Cart, f.Selection, user)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "checkout", "submit", "items", len(payload.Items))
	defer span.End()

	fingerprint := f.Fingerprint()
	log := logger.WithLogger(ctx, s.logger).With(zap.String("fingerprint", fingerprint))

	guardKey := "checkout:" + fingerprint
	guarded := false
	if s.guard != nil {
		first, err := s.guard.Claim(ctx, guardKey, s.ttl)
		switch {
		case err != nil:
			log.Warn("Submission guard unavailable, continuing", zap.Error(err))
		case !first:
			log.Info("Duplicate checkout submission rejected")
			return nil, shared.ErrDuplicateSubmission
		default:
			guarded = true
		}
	}

	key := uuid.NewString()
	created, err := s.orders.Create(ctx, payload, key)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("Error creating order", zap.String("idempotency_key", key), zap.Error(err))
		if guarded {
			if rerr := s.guard.Release(context.WithoutCancel(ctx), guardKey); rerr != nil {
				log.Warn("Failed to release submission guard", zap.Error(rerr))
			}
		}
		return nil, fmt.Errorf("creating order: %w", err)
	}
	if created == nil {
		return nil, errors.New("creating order: empty response")
	}

	f.Order = created
	f.Active = StepComplete
	telemetry.SetAttributes(span, "order.number", created.OrderNumber)
	log.Info("Order created",
		zap.String("order_number", created.OrderNumber),
		zap.String("idempotency_key", key))
	return created, nil
}
