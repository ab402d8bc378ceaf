package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aakanshaa0/vestra/pkg/db/models"
	pkgerrors "github.com/aakanshaa0/vestra/pkg/errors"
	"github.com/aakanshaa0/vestra/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Snapshot is the nested cart view: product id -> variant -> quantity.
type Snapshot map[string]map[string]int

// Service exposes the server-held cart operations.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, productID, variant string) (Snapshot, error)
	SetQuantity(ctx context.Context, userID uuid.UUID, productID, variant string, qty int) (Snapshot, error)
	Get(ctx context.Context, userID uuid.UUID) (Snapshot, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	Replace(ctx context.Context, userID uuid.UUID, snapshot Snapshot) (Snapshot, error)
	Count(ctx context.Context, userID uuid.UUID) (int, error)
	Amount(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
	logg     *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, products productLoader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
		logg:     logg,
	}, nil
}

// Add increments the product+variant row by one, creating it when absent.
// The product must resolve in the catalog and be active.
func (s *service) Add(ctx context.Context, userID uuid.UUID, productID, variant string) (Snapshot, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	parsed, err := uuid.Parse(productID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id must be a uuid")
	}
	product, err := s.products.Get(ctx, parsed)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindRow(ctx, userID, productID, variant)
		switch {
		case err == nil:
			row.Quantity++
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = &models.CartItem{
				UserID:    userID,
				ProductID: productID,
				Variant:   variant,
				Quantity:  1,
			}
		default:
			return err
		}
		_, err = repo.Save(ctx, row)
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding to cart")
	}

	return s.Get(ctx, userID)
}

// SetQuantity sets the row quantity; zero or below deletes the row, and the
// product grouping disappears once its last variant row goes.
func (s *service) SetQuantity(ctx context.Context, userID uuid.UUID, productID, variant string, qty int) (Snapshot, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if qty <= 0 {
			return repo.DeleteRow(ctx, userID, productID, variant)
		}

		row, err := repo.FindRow(ctx, userID, productID, variant)
		switch {
		case err == nil:
			row.Quantity = qty
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = &models.CartItem{
				UserID:    userID,
				ProductID: productID,
				Variant:   variant,
				Quantity:  qty,
			}
		default:
			return err
		}
		_, err = repo.Save(ctx, row)
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart quantity")
	}

	return s.Get(ctx, userID)
}

// Get returns the nested snapshot view of the user's cart.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return snapshotFromRows(rows), nil
}

// Clear deletes every row of the user's cart.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
	}
	return nil
}

// Replace swaps the server cart for the client snapshot wholesale. Last
// writer wins; there is no per-entry merge. Unknown product ids are stored
// as-is and later skipped by Amount.
func (s *service) Replace(ctx context.Context, userID uuid.UUID, snapshot Snapshot) (Snapshot, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	rows := make([]models.CartItem, 0, len(snapshot))
	for productID, variants := range snapshot {
		productID = strings.TrimSpace(productID)
		if productID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		for variant, qty := range variants {
			if qty < 1 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantities must be at least 1").
					WithDetails(map[string]any{"product_id": productID, "variant": variant})
			}
			rows = append(rows, models.CartItem{
				UserID:    userID,
				ProductID: productID,
				Variant:   variant,
				Quantity:  qty,
			})
		}
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ReplaceAll(ctx, userID, rows)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replacing cart")
	}

	return s.Get(ctx, userID)
}

// Count sums the quantities across every row.
func (s *service) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	total := 0
	for _, row := range rows {
		total += row.Quantity
	}
	return total, nil
}

// Amount totals unit price x quantity for every row whose product still
// resolves in the catalog. Unresolvable rows are skipped, not failed, so a
// retired listing cannot wedge the cart badge; each skip is logged.
func (s *service) Amount(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	prices := map[string]decimal.Decimal{}
	total := decimal.Zero
	for _, row := range rows {
		price, seen := prices[row.ProductID]
		if !seen {
			resolved, ok := s.resolvePrice(ctx, row.ProductID)
			if !ok {
				sctx := s.logg.WithFields(ctx, map[string]any{
					"product_id": row.ProductID,
					"user_id":    userID.String(),
				})
				s.logg.Warn(sctx, "cart amount skipping unresolvable product")
				continue
			}
			price = resolved
			prices[row.ProductID] = price
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(row.Quantity))))
	}
	return total, nil
}

func (s *service) resolvePrice(ctx context.Context, productID string) (decimal.Decimal, bool) {
	parsed, err := uuid.Parse(productID)
	if err != nil {
		return decimal.Zero, false
	}
	product, err := s.products.Get(ctx, parsed)
	if err != nil {
		return decimal.Zero, false
	}
	return product.Price, true
}

func snapshotFromRows(rows []models.CartItem) Snapshot {
	snapshot := Snapshot{}
	for _, row := range rows {
		if row.Quantity <= 0 {
			continue
		}
		variants, ok := snapshot[row.ProductID]
		if !ok {
			variants = map[string]int{}
			snapshot[row.ProductID] = variants
		}
		variants[row.Variant] = row.Quantity
	}
	return snapshot
}
