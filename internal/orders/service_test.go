package orders

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubCartRepo struct {
	rows []models.CartItem
}

func (r *stubCartRepo) WithTx(tx *gorm.DB) cart.CartRepository { return r }

func (r *stubCartRepo) FindRow(ctx context.Context, userID uuid.UUID, productID, variant string) (*models.CartItem, error) {
	for i := range r.rows {
		if r.rows[i].ProductID == productID && r.rows[i].Variant == variant {
			return &r.rows[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCartRepo) Save(ctx context.Context, row *models.CartItem) (*models.CartItem, error) {
	r.rows = append(r.rows, *row)
	return row, nil
}

func (r *stubCartRepo) DeleteRow(ctx context.Context, userID uuid.UUID, productID, variant string) error {
	return nil
}

func (r *stubCartRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	out := make([]models.CartItem, len(r.rows))
	copy(out, r.rows)
	return out, nil
}

func (r *stubCartRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	r.rows = nil
	return nil
}

func (r *stubCartRepo) ReplaceAll(ctx context.Context, userID uuid.UUID, rows []models.CartItem) error {
	r.rows = rows
	return nil
}

type stubProductRepo struct {
	products map[uuid.UUID]*models.Product
}

func (r *stubProductRepo) WithTx(tx *gorm.DB) catalog.ProductRepository { return r }

func (r *stubProductRepo) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	r.products[product.ID] = product
	return product, nil
}

func (r *stubProductRepo) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	r.products[product.ID] = product
	return product, nil
}

func (r *stubProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func (r *stubProductRepo) FindByIDAndSeller(ctx context.Context, id, sellerID uuid.UUID) (*models.Product, error) {
	product, ok := r.products[id]
	if !ok || product.SellerID != sellerID {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func (r *stubProductRepo) ListActive(ctx context.Context, category string, limit int, cursor *pagination.Cursor) ([]models.Product, error) {
	return nil, nil
}

func (r *stubProductRepo) Delete(ctx context.Context, id, sellerID uuid.UUID) (int64, error) {
	return 0, nil
}

type stubOrderRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (r *stubOrderRepo) WithTx(tx *gorm.DB) OrderRepository { return r }

func (r *stubOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	copied := *order
	r.orders[order.ID] = &copied
	return order, nil
}

func (r *stubOrderRepo) Save(ctx context.Context, order *models.Order) (*models.Order, error) {
	copied := *order
	r.orders[order.ID] = &copied
	return order, nil
}

func (r *stubOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *stubOrderRepo) FindByIDAndBuyer(ctx context.Context, id, buyerID uuid.UUID) (*models.Order, error) {
	order, ok := r.orders[id]
	if !ok || order.BuyerID != buyerID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *stubOrderRepo) FindByIDAndSeller(ctx context.Context, id, sellerID uuid.UUID) (*models.Order, error) {
	order, ok := r.orders[id]
	if !ok || order.SellerID != sellerID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *stubOrderRepo) FindByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error) {
	for _, order := range r.orders {
		if order.PaymentIntentID != nil && *order.PaymentIntentID == intentID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubOrderRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	var out []models.Order
	for _, order := range r.orders {
		if order.BuyerID == buyerID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (r *stubOrderRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	var out []models.Order
	for _, order := range r.orders {
		if order.SellerID == sellerID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (r *stubOrderRepo) UpdateStatus(ctx context.Context, id, sellerID uuid.UUID, status enums.OrderStatus) (int64, error) {
	order, ok := r.orders[id]
	if !ok || order.SellerID != sellerID {
		return 0, nil
	}
	order.Status = status
	return 1, nil
}

type fixture struct {
	svc      Service
	orders   *stubOrderRepo
	carts    *stubCartRepo
	products *stubProductRepo
	seller   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orderRepo := newStubOrderRepo()
	cartRepo := &stubCartRepo{}
	productRepo := &stubProductRepo{products: map[uuid.UUID]*models.Product{}}
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})

	svc, err := NewService(
		orderRepo,
		cartRepo,
		productRepo,
		stubTxRunner{},
		decimal.RequireFromString("10"),
		"usd",
		logg,
	)
	require.NoError(t, err)
	return &fixture{
		svc:      svc,
		orders:   orderRepo,
		carts:    cartRepo,
		products: productRepo,
		seller:   uuid.New(),
	}
}

func (f *fixture) seedProduct(price string) *models.Product {
	product := &models.Product{
		ID:       uuid.New(),
		SellerID: f.seller,
		Name:     "hoodie",
		Category: "apparel",
		Price:    decimal.RequireFromString(price),
		IsActive: true,
	}
	f.products.products[product.ID] = product
	return product
}

func (f *fixture) seedCartRow(productID string, variant string, qty int, userID uuid.UUID) {
	f.carts.rows = append(f.carts.rows, models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Variant:   variant,
		Quantity:  qty,
	})
}

func shippingAddress() types.Address {
	return types.Address{
		Name:       "Ada Lovelace",
		Line1:      "12 Analytical Way",
		City:       "London",
		State:      "LDN",
		PostalCode: "EC1A",
		Country:    "GB",
	}
}

func TestCreateComputesTotalsServerSide(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	hoodie := f.seedProduct("25.00")
	tee := f.seedProduct("10.00")
	f.seedCartRow(hoodie.ID.String(), "M", 2, buyer)
	f.seedCartRow(tee.ID.String(), "L", 1, buyer)

	order, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:         buyer,
		ShippingAddress: shippingAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)

	assert.True(t, order.Subtotal.Equal(decimal.RequireFromString("60.00")), "subtotal %s", order.Subtotal)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("70.00")), "total %s", order.Total)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, f.seller, order.SellerID)
	assert.NotEmpty(t, order.TransactionID)
	require.Len(t, order.Items, 2)

	// checkout consumed the cart
	assert.Empty(t, f.carts.rows)
}

func TestCreateRejectsClientTotalMismatch(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	hoodie := f.seedProduct("25.00")
	f.seedCartRow(hoodie.ID.String(), "M", 2, buyer)

	wrong := decimal.RequireFromString("45.00")
	_, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:         buyer,
		ShippingAddress: shippingAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
		ClientTotal:     &wrong,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	// rejected checkout leaves the cart alone
	assert.Len(t, f.carts.rows, 1)

	right := decimal.RequireFromString("60.00")
	order, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:         buyer,
		ShippingAddress: shippingAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
		ClientTotal:     &right,
	})
	require.NoError(t, err)
	assert.True(t, order.Total.Equal(right))
}

func TestCreateFailsWhollyOnUnavailableProduct(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	hoodie := f.seedProduct("25.00")
	f.seedCartRow(hoodie.ID.String(), "M", 1, buyer)
	f.seedCartRow("legacy-sku-17", "M", 2, buyer)

	_, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:         buyer,
		ShippingAddress: shippingAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	assert.Empty(t, f.orders.orders)
	assert.Len(t, f.carts.rows, 2, "failed checkout must not consume the cart")
}

func TestCreateCardOrderAwaitsPayment(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	hoodie := f.seedProduct("25.00")
	f.seedCartRow(hoodie.ID.String(), "M", 1, buyer)

	order, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:         buyer,
		ShippingAddress: shippingAddress(),
		PaymentMethod:   enums.PaymentMethodCard,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Nil(t, order.PaidAt)
}

func TestMarkPaidIsIdempotentPerIntent(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	hoodie := f.seedProduct("25.00")
	f.seedCartRow(hoodie.ID.String(), "M", 1, buyer)

	order, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:         buyer,
		ShippingAddress: shippingAddress(),
		PaymentMethod:   enums.PaymentMethodCard,
	})
	require.NoError(t, err)

	ctx := context.Background()
	paid, err := f.svc.MarkPaid(ctx, order.ID, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, paid.Status)
	assert.Equal(t, enums.PaymentStatusCompleted, paid.PaymentStatus)
	require.NotNil(t, paid.PaidAt)
	firstPaidAt := *paid.PaidAt

	// replaying the same intent is a no-op
	again, err := f.svc.MarkPaid(ctx, order.ID, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, again.Status)
	require.NotNil(t, again.PaidAt)
	assert.Equal(t, firstPaidAt, *again.PaidAt)

	// a different intent against a paid order is a conflict
	_, err = f.svc.MarkPaid(ctx, order.ID, "pi_456")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestMarkPaidRejectsIntentReuseAcrossOrders(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	hoodie := f.seedProduct("25.00")

	f.seedCartRow(hoodie.ID.String(), "M", 1, buyer)
	first, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:         buyer,
		ShippingAddress: shippingAddress(),
		PaymentMethod:   enums.PaymentMethodCard,
	})
	require.NoError(t, err)

	f.seedCartRow(hoodie.ID.String(), "M", 1, buyer)
	second, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:         buyer,
		ShippingAddress: shippingAddress(),
		PaymentMethod:   enums.PaymentMethodCard,
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = f.svc.MarkPaid(ctx, first.ID, "pi_once")
	require.NoError(t, err)

	// the same charge cannot pay a second, same-priced order
	_, err = f.svc.MarkPaid(ctx, second.ID, "pi_once")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	kept, err := f.svc.GetForBuyer(ctx, buyer, second.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingPayment, kept.Status)
}

func TestMarkPaidRejectsCODOrders(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	hoodie := f.seedProduct("25.00")
	f.seedCartRow(hoodie.ID.String(), "M", 1, buyer)

	order, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:         buyer,
		ShippingAddress: shippingAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)

	_, err = f.svc.MarkPaid(context.Background(), order.ID, "pi_123")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestUpdateStatusEnforcesTransitions(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	hoodie := f.seedProduct("25.00")
	f.seedCartRow(hoodie.ID.String(), "M", 1, buyer)

	order, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:         buyer,
		ShippingAddress: shippingAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)

	ctx := context.Background()
	updated, err := f.svc.UpdateStatus(ctx, f.seller, order.ID, enums.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, updated.Status)

	// skipping shipped is disallowed
	_, err = f.svc.UpdateStatus(ctx, f.seller, order.ID, enums.OrderStatusDelivered)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	updated, err = f.svc.UpdateStatus(ctx, f.seller, order.ID, enums.OrderStatusShipped)
	require.NoError(t, err)
	updated, err = f.svc.UpdateStatus(ctx, f.seller, updated.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, updated.Status)

	// delivered is terminal
	_, err = f.svc.UpdateStatus(ctx, f.seller, order.ID, enums.OrderStatusCancelled)
	require.Error(t, err)
}

func TestUpdateStatusCannotGrantPaid(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	hoodie := f.seedProduct("25.00")
	f.seedCartRow(hoodie.ID.String(), "M", 1, buyer)

	order, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:         buyer,
		ShippingAddress: shippingAddress(),
		PaymentMethod:   enums.PaymentMethodCard,
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), f.seller, order.ID, enums.OrderStatusPaid)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestUpdateStatusHidesForeignOrders(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	hoodie := f.seedProduct("25.00")
	f.seedCartRow(hoodie.ID.String(), "M", 1, buyer)

	order, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:         buyer,
		ShippingAddress: shippingAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), uuid.New(), order.ID, enums.OrderStatusProcessing)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code(), "foreign sellers learn nothing beyond not-found")
}

func TestGetForBuyerScopesToOwner(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	hoodie := f.seedProduct("25.00")
	f.seedCartRow(hoodie.ID.String(), "M", 1, buyer)

	order, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:         buyer,
		ShippingAddress: shippingAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)

	found, err := f.svc.GetForBuyer(context.Background(), buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = f.svc.GetForBuyer(context.Background(), uuid.New(), order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
