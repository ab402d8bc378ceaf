package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aakanshaa0/vestra/pkg/db/models"
)

// CartRepository abstracts cart persistence for the service layer.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindRow(ctx context.Context, userID uuid.UUID, productID, variant string) (*models.CartItem, error)
	Save(ctx context.Context, row *models.CartItem) (*models.CartItem, error)
	DeleteRow(ctx context.Context, userID uuid.UUID, productID, variant string) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	ReplaceAll(ctx context.Context, userID uuid.UUID, rows []models.CartItem) error
}

// Repository exposes persistence operations for cart rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindRow loads one product+variant row for the user.
func (r *Repository) FindRow(ctx context.Context, userID uuid.UUID, productID, variant string) (*models.CartItem, error) {
	var row models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND variant = ?", userID, productID, variant).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Save inserts or updates a cart row.
func (r *Repository) Save(ctx context.Context, row *models.CartItem) (*models.CartItem, error) {
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// DeleteRow removes one product+variant row for the user.
func (r *Repository) DeleteRow(ctx context.Context, userID uuid.UUID, productID, variant string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND variant = ?", userID, productID, variant).
		Delete(&models.CartItem{}).Error
}

// ListByUser returns all cart rows for the user, oldest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteByUser removes every cart row for the user.
func (r *Repository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}

// ReplaceAll atomically swaps the user's cart rows for the provided set.
func (r *Repository) ReplaceAll(ctx context.Context, userID uuid.UUID, rows []models.CartItem) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].UserID = userID
	}
	return tx.Create(&rows).Error
}
