package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aakanshaa0/vestra/pkg/db/models"
	pkgerrors "github.com/aakanshaa0/vestra/pkg/errors"
	"github.com/aakanshaa0/vestra/pkg/pagination"
)

// Service exposes the catalog surface consumed by the storefront, the cart,
// and the order builder.
type Service interface {
	List(ctx context.Context, params ListParams) ([]models.Product, string, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, sellerID uuid.UUID, input ProductInput) (*models.Product, error)
	Update(ctx context.Context, sellerID, id uuid.UUID, input ProductInput) (*models.Product, error)
	Delete(ctx context.Context, sellerID, id uuid.UUID) error
}

type service struct {
	repo ProductRepository
}

// NewService builds a catalog service backed by the provided repository.
func NewService(repo ProductRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

// ListParams captures public listing filters.
type ListParams struct {
	Category string
	Limit    int
	Cursor   string
}

// ProductInput carries the writable product fields for admin CRUD.
type ProductInput struct {
	Name        string
	Description *string
	Category    string
	Price       decimal.Decimal
	Images      []string
	Sizes       []string
	IsActive    *bool
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product category is required")
	}
	if in.Price.IsNegative() || in.Price.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "product price must be positive")
	}
	return nil
}

// List returns active products plus a cursor for the next page.
func (s *service) List(ctx context.Context, params ListParams) ([]models.Product, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListActive(ctx, strings.TrimSpace(params.Category), limit+1, cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

// Get loads a single product by id.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	return product, nil
}

// Create inserts a listing owned by the acting admin.
func (s *service) Create(ctx context.Context, sellerID uuid.UUID, input ProductInput) (*models.Product, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	product := &models.Product{
		SellerID:    sellerID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Category:    strings.TrimSpace(input.Category),
		Price:       input.Price,
		Images:      pq.StringArray(input.Images),
		Sizes:       pq.StringArray(input.Sizes),
		IsActive:    active,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}
	return created, nil
}

// Update rewrites a listing the acting admin owns. A seller mismatch surfaces
// as not-found.
func (s *service) Update(ctx context.Context, sellerID, id uuid.UUID, input ProductInput) (*models.Product, error) {
	if sellerID == uuid.Nil || id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id and product id are required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	product, err := s.repo.FindByIDAndSeller(ctx, id, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}

	product.Name = strings.TrimSpace(input.Name)
	product.Description = input.Description
	product.Category = strings.TrimSpace(input.Category)
	product.Price = input.Price
	product.Images = pq.StringArray(input.Images)
	product.Sizes = pq.StringArray(input.Sizes)
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product")
	}
	return updated, nil
}

// Delete removes a listing the acting admin owns.
func (s *service) Delete(ctx context.Context, sellerID, id uuid.UUID) error {
	if sellerID == uuid.Nil || id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller id and product id are required")
	}
	affected, err := s.repo.Delete(ctx, id, sellerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting product")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}
