package checkout

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/storefront/client/internal/domain/cart"
	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/order"
	"github.com/storefront/client/internal/domain/shared"
)

// Step is a section of the checkout accordion.
type Step string

// Checkout steps in display order.
const (
	StepNone     Step = ""
	StepContact  Step = "contact"
	StepShipping Step = "shipping"
	StepMethod   Step = "method"
	StepPayment  Step = "payment"
	StepReview   Step = "review"
	StepComplete Step = "complete"
)

var stepOrder = []Step{StepContact, StepShipping, StepMethod, StepPayment, StepReview, StepComplete}

// Steps returns the checkout steps in order.
func Steps() []Step {
	out := make([]Step, len(stepOrder))
	copy(out, stepOrder)
	return out
}

// DefaultPaymentMethod is the raw payment method used when no stored
// method is selected.
const DefaultPaymentMethod = "creditCard"

// Contact is the buyer's contact section.
type Contact struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,phone"`
}

// Friend is the recipient contact when ordering on someone else's behalf.
type Friend struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone" validate:"required,phone"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
}

// Selection holds what the buyer picked in each step.
type Selection struct {
	Contact        Contact
	Address        *identity.Address
	PaymentID      shared.ID
	PaymentMethod  string
	ShippingMethod string
	Friend         *Friend
}

// Flow is the state of one checkout. Exactly one step is open at a time,
// or none when the buyer collapsed the open one. Steps do not gate each
// other; Missing reports what is still unset.
type Flow struct {
	Active    Step
	Selection Selection
	Cart      *cart.Cart
	Addresses []identity.Address
	Payments  []identity.PaymentMethod
	Order     *order.Order
}

// NewFlow starts a checkout for c on the contact step.
func NewFlow(c *cart.Cart) *Flow {
	return &Flow{
		Active: StepContact,
		Cart:   c,
		Selection: Selection{
			PaymentMethod:  DefaultPaymentMethod,
			ShippingMethod: cart.ShippingStandard,
		},
	}
}

// Toggle opens step, or collapses it when it is already open.
func (f *Flow) Toggle(step Step) {
	if f.IsComplete() {
		return
	}
	if f.Active == step {
		f.Active = StepNone
		return
	}
	f.Active = step
}

// Advance opens the step after the active one. It stops at review;
// only a successful submit completes the flow.
func (f *Flow) Advance() {
	if f.IsComplete() {
		return
	}
	if f.Active == StepNone {
		f.Active = StepContact
		return
	}
	for i, s := range stepOrder {
		if s == f.Active && i+1 < len(stepOrder) && stepOrder[i+1] != StepComplete {
			f.Active = stepOrder[i+1]
			return
		}
	}
}

// IsComplete reports whether the order was placed.
func (f *Flow) IsComplete() bool {
	return f.Active == StepComplete
}

// SelectAddress picks a saved address by id.
func (f *Flow) SelectAddress(id shared.ID) error {
	addr, ok := identity.FindAddress(f.Addresses, id)
	if !ok {
		return shared.ErrNotFound
	}
	cp := *addr
	f.Selection.Address = &cp
	return nil
}

// SelectPayment picks a saved payment method by id.
func (f *Flow) SelectPayment(id shared.ID) error {
	for _, p := range f.Payments {
		if p.ID == id {
			f.Selection.PaymentID = id
			return nil
		}
	}
	return shared.ErrNotFound
}

// UsePaymentMethod selects a raw payment method such as "paypal" and
// clears any stored method selection.
func (f *Flow) UsePaymentMethod(method string) {
	f.Selection.PaymentID = ""
	f.Selection.PaymentMethod = method
}

// SetShippingMethod selects a shipping method. Free shipping is only
// accepted when the cart qualifies for it.
func (f *Flow) SetShippingMethod(method string) error {
	for _, opt := range cart.ShippingOptions(f.Cart.EffectiveSubtotal()) {
		if opt.Method != method {
			continue
		}
		if !opt.Available {
			return shared.NewDomainError("INVALID_INPUT", "Free shipping requires a subtotal of $100 or more")
		}
		f.Selection.ShippingMethod = method
		return nil
	}
	return shared.ErrInvalidInput
}

// OrderForFriend sets or clears (nil) the recipient contact.
func (f *Flow) OrderForFriend(friend *Friend) {
	f.Selection.Friend = friend
}

// Totals computes the price breakdown for the current cart and
// shipping method.
func (f *Flow) Totals() cart.Totals {
	return cart.Compute(f.Cart.EffectiveSubtotal(), f.Selection.ShippingMethod)
}

// Missing lists the selections that are still unset, for display.
func (f *Flow) Missing() []string {
	var out []string
	if f.Cart.IsEmpty() {
		out = append(out, "cart")
	}
	if f.Selection.Contact.Email == "" {
		out = append(out, "contact")
	}
	if f.Selection.Address == nil {
		out = append(out, "shipping address")
	}
	if f.Selection.ShippingMethod == "" {
		out = append(out, "shipping method")
	}
	if f.Selection.PaymentID.IsZero() && f.Selection.PaymentMethod == "" {
		out = append(out, "payment")
	}
	return out
}

var fingerprintSpace = uuid.MustParse("6f1c2a7e-3d4b-5c8e-9a0f-1b2c3d4e5f60")

// Fingerprint identifies the cart contents and selections, so two submits
// of the same checkout share it.
func (f *Flow) Fingerprint() string {
	type line struct {
		P shared.ID `json:"p"`
		Q int       `json:"q"`
		S string    `json:"s,omitempty"`
		C string    `json:"c,omitempty"`
	}
	state := struct {
		Lines    []line    `json:"l"`
		Address  shared.ID `json:"a,omitempty"`
		Payment  string    `json:"pm"`
		Shipping string    `json:"sm"`
	}{Shipping: f.Selection.ShippingMethod, Payment: paymentMethod(f.Selection)}
	if f.Cart != nil {
		for _, it := range f.Cart.Items {
			state.Lines = append(state.Lines, line{it.Product(), it.Quantity, it.Size, it.Color})
		}
	}
	if f.Selection.Address != nil {
		state.Address = f.Selection.Address.ID
	}
	data, _ := json.Marshal(state)
	return uuid.NewSHA1(fingerprintSpace, data).String()
}
