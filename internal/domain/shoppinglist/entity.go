// Package shoppinglist holds the entities owned by the shopping-list service,
// including its denormalized copy of the catalog.
package shoppinglist

import (
	"time"

	"github.com/google/uuid"
)

// ShoppingList is a named list of groceries for one family.
type ShoppingList struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Family    string    `json:"family"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListItem is one line on a shopping list. ItemName, CategorySku and
// CategoryName are denormalized copies of catalog data, kept fresh by event
// consumption and never treated as authoritative.
type ListItem struct {
	ID             uuid.UUID `json:"id"`
	ShoppingListID uuid.UUID `json:"shopping_list_id"`
	ItemSku        uuid.UUID `json:"item_sku"`
	ItemName       string    `json:"item_name"`
	CategorySku    uuid.UUID `json:"category_sku"`
	CategoryName   string    `json:"category_name"`
	Quantity       int       `json:"quantity"`
	Picked         bool      `json:"picked"`
	Family         string    `json:"family"`
	Orphaned       bool      `json:"orphaned"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CatalogItem is the service's local read model of the catalog, populated by
// the seed snapshot and item events. It exists so lists can be composed
// without a cross-service query.
type CatalogItem struct {
	Sku          uuid.UUID `json:"sku"`
	Name         string    `json:"name"`
	CategorySku  uuid.UUID `json:"category_sku"`
	CategoryName string    `json:"category_name"`
	Family       string    `json:"family"`
	OwnerID      string    `json:"owner_id"`
	Orphaned     bool      `json:"orphaned"`
	UpdatedAt    time.Time `json:"updated_at"`
}
