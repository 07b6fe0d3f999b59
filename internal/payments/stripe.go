package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"rentshare-backend/internal/logger"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Webhook event types the marketplace reacts to.
const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventPaymentSucceeded      = "payment_intent.succeeded"
	EventPaymentFailed         = "payment_intent.payment_failed"
	EventAccountUpdated        = "account.updated"
	metadataRentalID           = "rental_id"
	accountLinkTypeOnboarding  = "account_onboarding"
	refundReasonUnavailability = "requested_by_customer"
)

type LineItem struct {
	Name        string
	AmountCents int64
}

type CheckoutParams struct {
	RentalID      string
	CustomerEmail string
	Currency      string
	SuccessURL    string
	CancelURL     string
	LineItems     []LineItem
	// DestinationAccount routes the charge to the owner's connected account,
	// keeping ApplicationFeeCents for the platform.
	DestinationAccount  string
	ApplicationFeeCents int64
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Event is the part of a verified webhook event the marketplace uses.
type Event struct {
	ID              string
	Type            string
	RentalID        string
	SessionID       string
	PaymentIntentID string
	AccountID       string
	ChargesEnabled  bool
	FailureMessage  string
}

type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return newStripeGateway(secretKey, webhookSecret, nil)
}

func newStripeGateway(secretKey, webhookSecret string, backends *stripe.Backends) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeGateway{api: api, webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.RentalID),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{metadataRentalID: p.RentalID},
		},
	}
	params.Context = ctx
	params.AddMetadata(metadataRentalID, p.RentalID)
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	for _, li := range p.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(p.Currency),
				UnitAmount:  stripe.Int64(li.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(li.Name)},
			},
			Quantity: stripe.Int64(1),
		})
	}
	if p.DestinationAccount != "" {
		params.PaymentIntentData.ApplicationFeeAmount = stripe.Int64(p.ApplicationFeeCents)
		params.PaymentIntentData.TransferData = &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
			Destination: stripe.String(p.DestinationAccount),
		}
	}

	logger.ExternalServiceCall("stripe", "checkout.sessions.create", "rentalID", p.RentalID)
	s, err := g.api.CheckoutSessions.New(params)
	logger.ExternalServiceResult("stripe", "checkout.sessions.create", err, "rentalID", p.RentalID)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// CreateConnectAccount opens an Express account for an owner and returns its id.
func (g *StripeGateway) CreateConnectAccount(ctx context.Context, email string) (string, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Context = ctx

	logger.ExternalServiceCall("stripe", "accounts.create")
	acct, err := g.api.Accounts.New(params)
	logger.ExternalServiceResult("stripe", "accounts.create", err)
	if err != nil {
		return "", fmt.Errorf("create connect account: %w", err)
	}
	return acct.ID, nil
}

func (g *StripeGateway) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String(accountLinkTypeOnboarding),
	}
	params.Context = ctx

	logger.ExternalServiceCall("stripe", "account_links.create", "accountID", accountID)
	link, err := g.api.AccountLinks.New(params)
	logger.ExternalServiceResult("stripe", "account_links.create", err, "accountID", accountID)
	if err != nil {
		return "", fmt.Errorf("create account link: %w", err)
	}
	return link.URL, nil
}

// Refund returns amountCents of a payment; zero refunds it in full.
func (g *StripeGateway) Refund(ctx context.Context, paymentIntentID string, amountCents int64) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Reason:        stripe.String(refundReasonUnavailability),
	}
	params.Context = ctx
	if amountCents > 0 {
		params.Amount = stripe.Int64(amountCents)
	}

	logger.ExternalServiceCall("stripe", "refunds.create", "paymentIntent", paymentIntentID)
	_, err := g.api.Refunds.New(params)
	logger.ExternalServiceResult("stripe", "refunds.create", err, "paymentIntent", paymentIntentID)
	if err != nil {
		return fmt.Errorf("refund payment: %w", err)
	}
	return nil
}

// ParseWebhook verifies the signature header and extracts the fields of
// the event types the marketplace handles. Other types come back with only ID and Type.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	raw, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	ev := &Event{ID: raw.ID, Type: string(raw.Type)}
	switch ev.Type {
	case EventCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(raw.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		ev.SessionID = s.ID
		ev.RentalID = s.Metadata[metadataRentalID]
		if ev.RentalID == "" {
			ev.RentalID = s.ClientReferenceID
		}
		if s.PaymentIntent != nil {
			ev.PaymentIntentID = s.PaymentIntent.ID
		}
	case EventPaymentSucceeded, EventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(raw.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		ev.PaymentIntentID = pi.ID
		ev.RentalID = pi.Metadata[metadataRentalID]
		if pi.LastPaymentError != nil {
			ev.FailureMessage = pi.LastPaymentError.Msg
		}
	case EventAccountUpdated:
		var acct stripe.Account
		if err := json.Unmarshal(raw.Data.Raw, &acct); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		ev.AccountID = acct.ID
		ev.ChargesEnabled = acct.ChargesEnabled
	}
	return ev, nil
}
