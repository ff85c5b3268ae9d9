package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"grocerly/internal/domain/catalog"
	"grocerly/internal/domain/outbox"
	"grocerly/internal/domain/shoppinglist"
	"grocerly/internal/domain/user"
	"grocerly/internal/events"
)

type CategoryRepository interface {
	Create(ctx context.Context, tx DBTX, c *catalog.Category) error
	GetBySku(ctx context.Context, family string, sku uuid.UUID) (catalog.Category, error)
	List(ctx context.Context, family string) ([]catalog.Category, error)
	Update(ctx context.Context, tx DBTX, c catalog.Category) error
	Delete(ctx context.Context, tx DBTX, family string, sku uuid.UUID) error
	Count(ctx context.Context, family string) (int64, error)
}

type ItemRepository interface {
	Create(ctx context.Context, tx DBTX, i *catalog.Item) error
	GetBySku(ctx context.Context, family string, sku uuid.UUID) (catalog.Item, error)
	List(ctx context.Context, family string) ([]catalog.Item, error)
	Update(ctx context.Context, tx DBTX, i catalog.Item) error
	MarkDeleted(ctx context.Context, tx DBTX, family string, sku uuid.UUID) error

	// Consumer-side projection over the service's own items.
	RenameCategory(ctx context.Context, family string, categorySku uuid.UUID, name string) (int64, error)
	OrphanCategory(ctx context.Context, family string, categorySku uuid.UUID) (int64, error)
}

type ShoppingListRepository interface {
	Create(ctx context.Context, tx DBTX, l *shoppinglist.ShoppingList) error
	GetByID(ctx context.Context, family string, id uuid.UUID) (shoppinglist.ShoppingList, error)
	List(ctx context.Context, family string) ([]shoppinglist.ShoppingList, error)
	Update(ctx context.Context, tx DBTX, l shoppinglist.ShoppingList) error
	Delete(ctx context.Context, tx DBTX, family string, id uuid.UUID) error

	AddItem(ctx context.Context, tx DBTX, li *shoppinglist.ListItem) error
	UpdateItem(ctx context.Context, tx DBTX, li shoppinglist.ListItem) error
	RemoveItem(ctx context.Context, tx DBTX, family string, itemID uuid.UUID) error
	GetItems(ctx context.Context, family string, listID uuid.UUID) ([]shoppinglist.ListItem, error)
}

// CatalogReadModel is the shopping-list service's denormalized copy of the
// catalog, mutated exclusively by event consumption.
type CatalogReadModel interface {
	GetItem(ctx context.Context, family string, sku uuid.UUID) (shoppinglist.CatalogItem, error)
	ListItems(ctx context.Context, family string) ([]shoppinglist.CatalogItem, error)

	RenameCategory(ctx context.Context, family string, categorySku uuid.UUID, name string) (int64, error)
	OrphanCategory(ctx context.Context, family string, categorySku uuid.UUID) (int64, error)
	UpsertItem(ctx context.Context, family string, ev events.ItemEvent) (int64, error)
	ApplyItemUpdate(ctx context.Context, family string, ev events.ItemEvent) (int64, error)
	TombstoneItem(ctx context.Context, family string, sku uuid.UUID) (int64, error)
	SeedItems(ctx context.Context, family, ownerID string, items []events.ItemEvent) (bool, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, tx DBTX, rec *outbox.Record) error
	GetDeliverable(ctx context.Context, now time.Time, limit int) ([]outbox.Record, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, nextAttempt time.Time, errMsg string) error
	MarkExpired(ctx context.Context, id uuid.UUID) error
	MarkDead(ctx context.Context, id uuid.UUID, errMsg string) error
	PurgeDelivered(ctx context.Context, olderThan time.Time) (int64, error)
}

type DeadLetterRepository interface {
	Create(ctx context.Context, d *outbox.DeadLetter) error
	List(ctx context.Context, limit int) ([]outbox.DeadLetter, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByEmail(ctx context.Context, email string) (user.User, error)
}
