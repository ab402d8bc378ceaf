package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aakanshaa0/vestra/internal/cart"
	"github.com/aakanshaa0/vestra/internal/catalog"
	"github.com/aakanshaa0/vestra/pkg/db/models"
	"github.com/aakanshaa0/vestra/pkg/enums"
	pkgerrors "github.com/aakanshaa0/vestra/pkg/errors"
	"github.com/aakanshaa0/vestra/pkg/logger"
	"github.com/aakanshaa0/vestra/pkg/pagination"
	"github.com/aakanshaa0/vestra/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput carries the checkout request payload.
type CreateInput struct {
	BuyerID         uuid.UUID
	ShippingAddress types.Address
	PaymentMethod   enums.PaymentMethod
	// ClientTotal is the total the client displayed at checkout. When set it
	// must match the server-computed total or the order is rejected.
	ClientTotal *decimal.Decimal
}

// ListParams captures paging inputs for order listings.
type ListParams struct {
	Limit  int
	Cursor string
}

// Service exposes the order lifecycle: checkout, listing, fulfillment moves
// and payment-driven transitions.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	GetForBuyer(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, params ListParams) ([]models.Order, string, error)
	GetForSeller(ctx context.Context, sellerID, orderID uuid.UUID) (*models.Order, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, params ListParams) ([]models.Order, string, error)
	UpdateStatus(ctx context.Context, sellerID, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error)
	AttachPaymentIntent(ctx context.Context, buyerID, orderID uuid.UUID, intentID string) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, intentID string) (*models.Order, error)
	MarkRefunded(ctx context.Context, sellerID, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo        OrderRepository
	carts       cart.CartRepository
	products    catalog.ProductRepository
	tx          txRunner
	deliveryFee decimal.Decimal
	currency    string
	logg        *logger.Logger
}

// NewService builds an order service backed by the provided stack.
func NewService(
	repo OrderRepository,
	carts cart.CartRepository,
	products catalog.ProductRepository,
	tx txRunner,
	deliveryFee decimal.Decimal,
	currency string,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deliveryFee.IsNegative() {
		return nil, fmt.Errorf("delivery fee must not be negative")
	}
	if strings.TrimSpace(currency) == "" {
		return nil, fmt.Errorf("currency required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		carts:       carts,
		products:    products,
		tx:          tx,
		deliveryFee: deliveryFee,
		currency:    strings.ToLower(strings.TrimSpace(currency)),
		logg:        logg,
	}, nil
}

// Create runs checkout in a single transaction: it reads the cart, resolves
// and snapshots every product, computes totals server-side, inserts the order
// and clears the cart. Any unresolvable product fails the whole checkout and
// leaves the cart untouched.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method must be cod or card")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		products := s.products.WithTx(tx)

		rows, err := carts.ListByUser(ctx, input.BuyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
		}
		if len(rows) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		order, err := s.buildOrder(ctx, products, input, rows)
		if err != nil {
			return err
		}

		created, err = s.repo.WithTx(tx).Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}
		if err := carts.DeleteByUser(ctx, input.BuyerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart after checkout")
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout failed")
	}

	sctx := s.logg.WithFields(ctx, map[string]any{
		"order_id":       created.ID.String(),
		"transaction_id": created.TransactionID,
		"total":          created.Total.String(),
	})
	s.logg.Info(sctx, "order created")
	return created, nil
}

func (s *service) buildOrder(ctx context.Context, products catalog.ProductRepository, input CreateInput, rows []models.CartItem) (*models.Order, error) {
	resolved := map[string]*models.Product{}
	items := make([]models.OrderLineItem, 0, len(rows))
	subtotal := decimal.Zero
	var sellerID uuid.UUID

	for _, row := range rows {
		product, seen := resolved[row.ProductID]
		if !seen {
			loaded, err := s.resolveProduct(ctx, products, row.ProductID)
			if err != nil {
				return nil, err
			}
			product = loaded
			resolved[row.ProductID] = product
		}

		if sellerID == uuid.Nil {
			sellerID = product.SellerID
		} else if sellerID != product.SellerID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart spans multiple sellers")
		}

		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(row.Quantity)))
		var image *string
		if len(product.Images) > 0 {
			first := product.Images[0]
			image = &first
		}
		items = append(items, models.OrderLineItem{
			ProductID: product.ID,
			Name:      product.Name,
			Variant:   row.Variant,
			UnitPrice: product.Price,
			Quantity:  row.Quantity,
			Image:     image,
			LineTotal: lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}

	total := subtotal.Add(s.deliveryFee)
	if input.ClientTotal != nil && !input.ClientTotal.Equal(total) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total mismatch").
			WithDetails(map[string]any{
				"expected": total.StringFixed(2),
				"provided": input.ClientTotal.StringFixed(2),
			})
	}

	status := enums.OrderStatusPending
	if input.PaymentMethod == enums.PaymentMethodCard {
		status = enums.OrderStatusPendingPayment
	}

	return &models.Order{
		BuyerID:         input.BuyerID,
		SellerID:        sellerID,
		TransactionID:   newTransactionID(),
		Status:          status,
		PaymentStatus:   enums.PaymentStatusPending,
		PaymentMethod:   input.PaymentMethod,
		Currency:        s.currency,
		ShippingAddress: input.ShippingAddress,
		Subtotal:        subtotal,
		DeliveryFee:     s.deliveryFee,
		Total:           total,
		Items:           items,
	}, nil
}

// resolveProduct maps any failure to resolve a purchasable product to the
// same not-found answer so checkout cannot leak catalog state.
func (s *service) resolveProduct(ctx context.Context, products catalog.ProductRepository, productID string) (*models.Product, error) {
	unavailable := pkgerrors.New(pkgerrors.CodeNotFound, "product unavailable").
		WithDetails(map[string]any{"product_id": productID})

	parsed, err := uuid.Parse(productID)
	if err != nil {
		return nil, unavailable
	}
	product, err := products.FindByID(ctx, parsed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, unavailable
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if !product.IsActive {
		return nil, unavailable
	}
	return product, nil
}

// GetForBuyer loads one order restricted to its owner.
func (s *service) GetForBuyer(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error) {
	if buyerID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id and order id are required")
	}
	order, err := s.repo.FindByIDAndBuyer(ctx, orderID, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

// ListForBuyer pages through the buyer's orders newest-first.
func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params ListParams) ([]models.Order, string, error) {
	if buyerID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	return s.list(ctx, params, func(limit int, cursor *pagination.Cursor) ([]models.Order, error) {
		return s.repo.ListByBuyer(ctx, buyerID, limit, cursor)
	})
}

// GetForSeller loads one order restricted to its seller.
func (s *service) GetForSeller(ctx context.Context, sellerID, orderID uuid.UUID) (*models.Order, error) {
	if sellerID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id and order id are required")
	}
	order, err := s.repo.FindByIDAndSeller(ctx, orderID, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

// ListForSeller pages through the seller's orders newest-first.
func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, params ListParams) ([]models.Order, string, error) {
	if sellerID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	return s.list(ctx, params, func(limit int, cursor *pagination.Cursor) ([]models.Order, error) {
		return s.repo.ListBySeller(ctx, sellerID, limit, cursor)
	})
}

func (s *service) list(ctx context.Context, params ListParams, fetch func(limit int, cursor *pagination.Cursor) ([]models.Order, error)) ([]models.Order, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := fetch(limit+1, cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

// UpdateStatus applies a fulfillment transition on behalf of the seller. A
// seller that does not own the order learns only that no such order exists.
func (s *service) UpdateStatus(ctx context.Context, sellerID, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	if sellerID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id and order id are required")
	}
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": next.String()})
	}

	order, err := s.repo.FindByIDAndSeller(ctx, orderID, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition disallowed").
			WithDetails(map[string]any{
				"from": order.Status.String(),
				"to":   next.String(),
			})
	}

	affected, err := s.repo.UpdateStatus(ctx, orderID, sellerID, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	order.Status = next
	sctx := s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(sctx, "order status updated")
	return order, nil
}

// AttachPaymentIntent records the gateway intent id against a card order that
// is still waiting on payment.
func (s *service) AttachPaymentIntent(ctx context.Context, buyerID, orderID uuid.UUID, intentID string) (*models.Order, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}

	order, err := s.GetForBuyer(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"status": order.Status.String()})
	}

	order.PaymentIntentID = &intentID
	saved, err := s.repo.Save(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attaching payment intent")
	}
	return saved, nil
}

// MarkPaid moves a pending_payment order to paid exactly once. Replaying the
// same intent against an already paid order is a no-op so confirmation
// retries stay safe.
func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID, intentID string) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}

		if order.Status == enums.OrderStatusPaid {
			if order.PaymentIntentID != nil && *order.PaymentIntentID == intentID {
				updated = order
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid")
		}
		if order.Status != enums.OrderStatusPendingPayment {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
				WithDetails(map[string]any{"status": order.Status.String()})
		}

		// One intent pays at most one order.
		holder, err := repo.FindByPaymentIntent(ctx, intentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking payment intent")
		}
		if holder != nil && holder.ID != orderID {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment intent already applied to another order")
		}

		now := time.Now().UTC()
		order.Status = enums.OrderStatusPaid
		order.PaymentStatus = enums.PaymentStatusCompleted
		order.PaymentIntentID = &intentID
		order.PaidAt = &now

		updated, err = repo.Save(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order paid")
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order paid")
	}

	sctx := s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(sctx, "order marked paid")
	return updated, nil
}

// MarkRefunded flips the payment status after a successful gateway refund.
func (s *service) MarkRefunded(ctx context.Context, sellerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.GetForSeller(ctx, sellerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != enums.PaymentStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order payment is not refundable").
			WithDetails(map[string]any{"payment_status": order.PaymentStatus.String()})
	}

	order.PaymentStatus = enums.PaymentStatusRefunded
	saved, err := s.repo.Save(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order refunded")
	}
	return saved, nil
}

func newTransactionID() string {
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
