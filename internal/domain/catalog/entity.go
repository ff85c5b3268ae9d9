// Package catalog holds the entities owned by the catalog service.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Category is an authoritative grouping of catalog items. The Sku is the
// natural key shared across services; Family scopes the row to one tenant.
type Category struct {
	Sku       uuid.UUID `json:"sku"`
	Name      string    `json:"name"`
	Family    string    `json:"family"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is a catalog product. CategoryName is a denormalized copy of the
// owning category's name, refreshed by event consumption. Orphaned marks
// items whose category was deleted; IsDeleted is the item's own tombstone.
type Item struct {
	Sku          uuid.UUID `json:"sku"`
	Name         string    `json:"name"`
	CategorySku  uuid.UUID `json:"category_sku"`
	CategoryName string    `json:"category_name"`
	Family       string    `json:"family"`
	OwnerID      string    `json:"owner_id"`
	IsDeleted    bool      `json:"is_deleted"`
	Orphaned     bool      `json:"orphaned"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
