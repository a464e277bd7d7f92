package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/greenrow/seedshop-backend/pkg/config"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

type paymentIntents interface {
	Create(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
}

// Client wraps Stripe's API client plus env-specific metadata.
type Client struct {
	intents     paymentIntents
	environment string
	currency    string
	logg        *logger.Logger
}

// ChargeParams describes a confirmed, card-present-free PaymentIntent.
type ChargeParams struct {
	AmountCents     int64
	PaymentMethodID string
	ReceiptEmail    string
	IdempotencyKey  string
	Metadata        map[string]string
}

// NewClient initializes Stripe once with the configured secret and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	api := stripe.NewClient(apiKey)

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &Client{
		intents:     api.V1PaymentIntents,
		environment: env,
		currency:    currency,
		logg:        logg,
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Charge creates and confirms a PaymentIntent. Redirect-based payment methods
// are disabled so the intent settles synchronously. A card decline comes back
// as a CodePayment error.
func (c *Client) Charge(ctx context.Context, params ChargeParams) (*stripe.PaymentIntent, error) {
	if c == nil || c.intents == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe client not configured")
	}
	req := &stripe.PaymentIntentCreateParams{
		Amount:        stripe.Int64(params.AmountCents),
		Currency:      stripe.String(c.currency),
		PaymentMethod: stripe.String(params.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	if email := strings.TrimSpace(params.ReceiptEmail); email != "" {
		req.ReceiptEmail = stripe.String(email)
	}
	if key := strings.TrimSpace(params.IdempotencyKey); key != "" {
		req.SetIdempotencyKey(key)
	}
	for k, v := range params.Metadata {
		req.AddMetadata(k, v)
	}

	intent, err := c.intents.Create(ctx, req)
	if err != nil {
		if c.logg != nil {
			c.logg.Error(c.logg.WithField(ctx, "operation", "create_payment_intent"), "stripe charge failed", err)
		}
		return nil, mapStripeError(err)
	}
	if c.logg != nil {
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"operation":         "create_payment_intent",
			"payment_intent_id": intent.ID,
			"status":            string(intent.Status),
		})
		c.logg.Info(logCtx, "stripe charge completed")
	}
	return intent, nil
}

func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stripe charge failed")
	}
	switch stripeErr.Type {
	case stripe.ErrorTypeCard:
		return pkgerrors.Wrap(pkgerrors.CodePayment, err, "card declined").
			WithDetails(map[string]any{"decline_code": string(stripeErr.DeclineCode)})
	case stripe.ErrorTypeIdempotency:
		return pkgerrors.Wrap(pkgerrors.CodeIdempotency, err, "stripe idempotency conflict")
	case stripe.ErrorTypeInvalidRequest:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "stripe rejected the request")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stripe charge failed")
	}
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
