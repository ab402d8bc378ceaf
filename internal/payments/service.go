package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/aakanshaa0/vestra/pkg/db/models"
	"github.com/aakanshaa0/vestra/pkg/enums"
	pkgerrors "github.com/aakanshaa0/vestra/pkg/errors"
	"github.com/aakanshaa0/vestra/pkg/logger"
)

// orderStore is the order-side surface the payment service drives. The
// orders service satisfies it.
type orderStore interface {
	GetForBuyer(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error)
	GetForSeller(ctx context.Context, sellerID, orderID uuid.UUID) (*models.Order, error)
	AttachPaymentIntent(ctx context.Context, buyerID, orderID uuid.UUID, intentID string) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, intentID string) (*models.Order, error)
	MarkRefunded(ctx context.Context, sellerID, orderID uuid.UUID) (*models.Order, error)
}

// IntentResult carries what the storefront needs to collect a card payment.
type IntentResult struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// StatusResult reports the order's payment state plus the live gateway view
// when an intent exists.
type StatusResult struct {
	OrderID       uuid.UUID           `json:"order_id"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	GatewayStatus string              `json:"gateway_status,omitempty"`
}

// RefundResult reports the gateway refund outcome.
type RefundResult struct {
	RefundID string        `json:"refund_id"`
	Amount   int64         `json:"amount"`
	Status   string        `json:"status"`
	Order    *models.Order `json:"-"`
}

// Service exposes the card payment flow around orders.
type Service interface {
	CreateIntent(ctx context.Context, buyerID, orderID uuid.UUID) (*IntentResult, error)
	Confirm(ctx context.Context, buyerID, orderID uuid.UUID, intentID string) (*models.Order, error)
	Status(ctx context.Context, buyerID, orderID uuid.UUID) (*StatusResult, error)
	Refund(ctx context.Context, sellerID, orderID uuid.UUID, amount *decimal.Decimal) (*RefundResult, error)
}

type service struct {
	orders  orderStore
	gateway Gateway
	logg    *logger.Logger
}

// NewService builds a payment service over the orders surface and gateway.
func NewService(orders orderStore, gateway Gateway, logg *logger.Logger) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{orders: orders, gateway: gateway, logg: logg}, nil
}

// CreateIntent opens a gateway intent for a card order awaiting payment and
// records the intent id on the order.
func (s *service) CreateIntent(ctx context.Context, buyerID, orderID uuid.UUID) (*IntentResult, error) {
	order, err := s.orders.GetForBuyer(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.PaymentMethodCard {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not a card order").
			WithDetails(map[string]any{"payment_method": order.PaymentMethod.String()})
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"status": order.Status.String()})
	}

	amount := MinorUnits(order.Total)
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(order.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("order_id", order.ID.String())
	params.AddMetadata("transaction_id", order.TransactionID)

	intent, err := s.gateway.CreateIntent(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}

	if _, err := s.orders.AttachPaymentIntent(ctx, buyerID, orderID, intent.ID); err != nil {
		return nil, err
	}

	sctx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(sctx, "payment intent created")

	return &IntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       amount,
		Currency:     order.Currency,
	}, nil
}

// Confirm verifies the gateway intent against the order and marks the order
// paid. The gateway is the source of truth: the intent must be the one opened
// for this order, carry its exact amount and have succeeded. Replays of an
// already confirmed intent are no-ops.
func (s *service) Confirm(ctx context.Context, buyerID, orderID uuid.UUID, intentID string) (*models.Order, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}

	order, err := s.orders.GetForBuyer(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentIntentID != nil && *order.PaymentIntentID != intentID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent does not belong to this order")
	}

	intent, err := s.gateway.RetrieveIntent(ctx, intentID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}

	// An order that never had an intent attached must still prove the intent
	// was opened for it, or one succeeded charge could pay several
	// same-priced orders.
	if order.PaymentIntentID == nil && intent.Metadata["order_id"] != order.ID.String() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent does not belong to this order")
	}

	expected := MinorUnits(order.Total)
	if intent.Amount != expected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount mismatch").
			WithDetails(map[string]any{
				"expected": expected,
				"charged":  intent.Amount,
			})
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment not completed").
			WithDetails(map[string]any{"gateway_status": string(intent.Status)})
	}

	updated, err := s.orders.MarkPaid(ctx, orderID, intentID)
	if err != nil {
		return nil, err
	}

	sctx := s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(sctx, "payment confirmed")
	return updated, nil
}

// Status reports the stored payment state, enriched with the live gateway
// status when an intent exists.
func (s *service) Status(ctx context.Context, buyerID, orderID uuid.UUID) (*StatusResult, error) {
	order, err := s.orders.GetForBuyer(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		OrderID:       order.ID,
		PaymentStatus: order.PaymentStatus,
	}
	if order.PaymentIntentID == nil {
		return result, nil
	}

	intent, err := s.gateway.RetrieveIntent(ctx, *order.PaymentIntentID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}
	result.GatewayStatus = string(intent.Status)
	return result, nil
}

// Refund issues a gateway refund on behalf of the seller, full by default or
// partial when an amount is given, and flips the order's payment status.
func (s *service) Refund(ctx context.Context, sellerID, orderID uuid.UUID, amount *decimal.Decimal) (*RefundResult, error) {
	order, err := s.orders.GetForSeller(ctx, sellerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != enums.PaymentStatusCompleted || order.PaymentIntentID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order payment is not refundable").
			WithDetails(map[string]any{"payment_status": order.PaymentStatus.String()})
	}

	refundAmount := MinorUnits(order.Total)
	if amount != nil {
		if amount.IsNegative() || amount.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
		}
		if amount.GreaterThan(order.Total) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds order total").
				WithDetails(map[string]any{"total": order.Total.StringFixed(2)})
		}
		refundAmount = MinorUnits(*amount)
	}

	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(*order.PaymentIntentID),
		Amount:        stripe.Int64(refundAmount),
	}
	created, err := s.gateway.CreateRefund(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}

	updated, err := s.orders.MarkRefunded(ctx, sellerID, orderID)
	if err != nil {
		return nil, err
	}

	sctx := s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(sctx, "payment refunded")

	return &RefundResult{
		RefundID: created.ID,
		Amount:   refundAmount,
		Status:   string(created.Status),
		Order:    updated,
	}, nil
}
