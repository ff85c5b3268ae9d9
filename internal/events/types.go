// Package events defines the versionless domain event contracts exchanged
// between the grocerly services. Events carry enough denormalized data for
// consumers to update their local copies without calling back to the producer.
package events

import (
	"github.com/google/uuid"

	grocerly_errors "grocerly/pkg/errors"
)

// Kind tags follow the domain.entity.action format.
type Kind string

const (
	KindCategoryCreated Kind = "catalog.category.created"
	KindCategoryUpdated Kind = "catalog.category.updated"
	KindCategoryDeleted Kind = "catalog.category.deleted"

	KindItemCreated Kind = "catalog.item.created"
	KindItemUpdated Kind = "catalog.item.updated"
	KindItemDeleted Kind = "catalog.item.deleted"
	KindItemSeeded  Kind = "catalog.item.seeded"

	KindShoppingListCreated Kind = "shoppinglist.created"
	KindShoppingListUpdated Kind = "shoppinglist.updated"
	KindShoppingListDeleted Kind = "shoppinglist.deleted"

	KindListItemsAdded   Kind = "shoppinglist.items.added"
	KindListItemsUpdated Kind = "shoppinglist.items.updated"
	KindListItemsDeleted Kind = "shoppinglist.items.deleted"
)

// Aggregate type constants
const (
	AggregateCategory     = "category"
	AggregateItem         = "item"
	AggregateShoppingList = "shopping_list"
)

// Stream names, one per producing service.
const (
	StreamCatalog      = "grocerly:catalog:events"
	StreamShoppingList = "grocerly:shoppinglist:events"
)

// Consumer group names, one durable group per consuming service.
const (
	GroupCatalogService      = "catalog-service"
	GroupShoppingListService = "shopping-list-service"
	GroupNotifierService     = "notifier-service"
)

// CategoryEvent is the payload for catalog.category.* events.
type CategoryEvent struct {
	Sku     uuid.UUID `json:"sku"`
	Name    string    `json:"name"`
	Family  string    `json:"family"`
	OwnerID string    `json:"owner_id"`
}

func (e *CategoryEvent) Validate() error {
	if e.Sku == uuid.Nil || e.Name == "" || e.Family == "" {
		return grocerly_errors.ErrInvalidInput
	}
	return nil
}

// ItemEvent is the payload for catalog.item.created/updated/deleted events.
// PreviousCategorySku is only set on updates that moved the item between
// categories; consumers use it to detect reassignment.
type ItemEvent struct {
	Sku                 uuid.UUID `json:"sku"`
	Name                string    `json:"name"`
	CategorySku         uuid.UUID `json:"category_sku"`
	CategoryName        string    `json:"category_name"`
	PreviousCategorySku uuid.UUID `json:"previous_category_sku,omitempty"`
	Family              string    `json:"family"`
	OwnerID             string    `json:"owner_id"`
	IsDeleted           bool      `json:"is_deleted"`
}

func (e *ItemEvent) Validate() error {
	if e.Sku == uuid.Nil || e.Name == "" || e.Family == "" {
		return grocerly_errors.ErrInvalidInput
	}
	return nil
}

// ItemSeedEvent is the bulk snapshot published once at first-run.
type ItemSeedEvent struct {
	Family  string      `json:"family"`
	OwnerID string      `json:"owner_id"`
	Items   []ItemEvent `json:"items"`
}

func (e *ItemSeedEvent) Validate() error {
	if e.Family == "" || len(e.Items) == 0 {
		return grocerly_errors.ErrInvalidInput
	}
	return nil
}

// ListItemEvent describes one shopping-list line inside a list event.
type ListItemEvent struct {
	ID           uuid.UUID `json:"id"`
	ItemSku      uuid.UUID `json:"item_sku"`
	ItemName     string    `json:"item_name"`
	CategorySku  uuid.UUID `json:"category_sku"`
	CategoryName string    `json:"category_name"`
	Quantity     int       `json:"quantity"`
	Picked       bool      `json:"picked"`
}

// ShoppingListEvent is the payload for shoppinglist.* events.
type ShoppingListEvent struct {
	ShoppingListID uuid.UUID       `json:"shopping_list_id"`
	Name           string          `json:"name"`
	Family         string          `json:"family"`
	OwnerID        string          `json:"owner_id"`
	Items          []ListItemEvent `json:"items,omitempty"`
}

func (e *ShoppingListEvent) Validate() error {
	if e.ShoppingListID == uuid.Nil || e.Family == "" {
		return grocerly_errors.ErrInvalidInput
	}
	return nil
}
