package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one product+variant row of a user's server-held cart.
// Quantities are always >= 1; removing the last unit deletes the row.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_cart_items_user_product_variant"`
	ProductID string    `gorm:"column:product_id;not null;uniqueIndex:idx_cart_items_user_product_variant"`
	Variant   string    `gorm:"column:variant;not null;uniqueIndex:idx_cart_items_user_product_variant"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
