package sandbox

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"permisconnect/internal/models"
)

// Checkout opens a hosted payment page for a course and returns its URL.
type Checkout interface {
	CreateSession(ctx context.Context, course models.Course, clientID int64) (string, error)
}

// StripeCheckout creates Stripe Checkout sessions.
type StripeCheckout struct {
	api        *client.API
	successURL string
	cancelURL  string
}

// NewStripeCheckout returns a checkout using the given secret key.
func NewStripeCheckout(key, successURL, cancelURL string) *StripeCheckout {
	sc := &client.API{}
	sc.Init(key, nil)
	return &StripeCheckout{api: sc, successURL: successURL, cancelURL: cancelURL}
}

func (c *StripeCheckout) CreateSession(ctx context.Context, course models.Course, clientID int64) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(c.successURL),
		CancelURL:         stripe.String(c.cancelURL),
		ClientReferenceID: stripe.String(strconv.FormatInt(clientID, 10)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(string(stripe.CurrencyEUR)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(course.Titre),
				},
				UnitAmount: stripe.Int64(int64(math.Round(course.Prix * 100))),
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	params.AddMetadata("courseId", strconv.FormatInt(course.ID, 10))

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe checkout for course %d: %w", course.ID, err)
	}
	return s.URL, nil
}

// FakeCheckout hands out local URLs so the payment flow runs without a
// Stripe account.
type FakeCheckout struct {
	BaseURL string
}

func (c FakeCheckout) CreateSession(_ context.Context, course models.Course, clientID int64) (string, error) {
	q := url.Values{
		"session":  {uuid.NewString()},
		"courseId": {strconv.FormatInt(course.ID, 10)},
		"clientId": {strconv.FormatInt(clientID, 10)},
	}
	return c.BaseURL + "/checkout?" + q.Encode(), nil
}
