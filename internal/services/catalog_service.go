// Package services holds the business operations behind the HTTP handlers.
// Every state-changing operation runs its repository writes and its outbox
// enqueue inside one transaction, so an event exists exactly when the
// mutation it describes was committed.
package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"grocerly/internal/domain/catalog"
	"grocerly/internal/events"
	"grocerly/internal/outbox"
	"grocerly/internal/repository"
	"grocerly/internal/reqctx"
	grocerly_errors "grocerly/pkg/errors"
	"grocerly/pkg/logger"
)

type CatalogService struct {
	db         *sql.DB
	categories repository.CategoryRepository
	items      repository.ItemRepository
	publisher  *outbox.Publisher
	log        *logger.Logger
}

func NewCatalogService(db *sql.DB, categories repository.CategoryRepository,
	items repository.ItemRepository, publisher *outbox.Publisher, log *logger.Logger) *CatalogService {
	return &CatalogService{
		db:         db,
		categories: categories,
		items:      items,
		publisher:  publisher,
		log:        log,
	}
}

func (s *CatalogService) CreateCategory(ctx context.Context, rc reqctx.Context, name string) (catalog.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" || rc.Family == "" {
		return catalog.Category{}, grocerly_errors.ErrInvalidInput
	}

	now := time.Now()
	c := catalog.Category{
		Sku:       uuid.New(),
		Name:      name,
		Family:    rc.Family,
		OwnerID:   rc.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := repository.WithTx(ctx, s.db, func(tx repository.DBTX) error {
		if err := s.categories.Create(ctx, tx, &c); err != nil {
			return err
		}
		return s.publisher.Enqueue(ctx, tx, rc, events.KindCategoryCreated,
			events.AggregateCategory, c.Sku.String(), categoryEventOf(c))
	})
	if err != nil {
		return catalog.Category{}, err
	}

	s.log.InfoCtx(rc.WithLogFields(ctx), "catalog: created category %s (%s)", c.Name, c.Sku)
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, rc reqctx.Context, sku uuid.UUID, name string) (catalog.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.Category{}, grocerly_errors.ErrInvalidInput
	}

	c, err := s.categories.GetBySku(ctx, rc.Family, sku)
	if err != nil {
		return catalog.Category{}, err
	}
	c.Name = name
	c.UpdatedAt = time.Now()

	err = repository.WithTx(ctx, s.db, func(tx repository.DBTX) error {
		if err := s.categories.Update(ctx, tx, c); err != nil {
			return err
		}
		return s.publisher.Enqueue(ctx, tx, rc, events.KindCategoryUpdated,
			events.AggregateCategory, c.Sku.String(), categoryEventOf(c))
	})
	if err != nil {
		return catalog.Category{}, err
	}
	return c, nil
}

// DeleteCategory removes the category row. Items referencing it are not
// touched here: the CategoryDeleted event orphans them, in this service and
// in every downstream copy, through the same consumer path.
func (s *CatalogService) DeleteCategory(ctx context.Context, rc reqctx.Context, sku uuid.UUID) error {
	c, err := s.categories.GetBySku(ctx, rc.Family, sku)
	if err != nil {
		return err
	}

	return repository.WithTx(ctx, s.db, func(tx repository.DBTX) error {
		if err := s.categories.Delete(ctx, tx, rc.Family, sku); err != nil {
			return err
		}
		return s.publisher.Enqueue(ctx, tx, rc, events.KindCategoryDeleted,
			events.AggregateCategory, sku.String(), categoryEventOf(c))
	})
}

func (s *CatalogService) GetCategory(ctx context.Context, rc reqctx.Context, sku uuid.UUID) (catalog.Category, error) {
	return s.categories.GetBySku(ctx, rc.Family, sku)
}

func (s *CatalogService) ListCategories(ctx context.Context, rc reqctx.Context) ([]catalog.Category, error) {
	return s.categories.List(ctx, rc.Family)
}

func (s *CatalogService) CreateItem(ctx context.Context, rc reqctx.Context, name string, categorySku uuid.UUID) (catalog.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" || categorySku == uuid.Nil {
		return catalog.Item{}, grocerly_errors.ErrInvalidInput
	}

	c, err := s.categories.GetBySku(ctx, rc.Family, categorySku)
	if err != nil {
		return catalog.Item{}, err
	}

	now := time.Now()
	i := catalog.Item{
		Sku:          uuid.New(),
		Name:         name,
		CategorySku:  c.Sku,
		CategoryName: c.Name,
		Family:       rc.Family,
		OwnerID:      rc.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = repository.WithTx(ctx, s.db, func(tx repository.DBTX) error {
		if err := s.items.Create(ctx, tx, &i); err != nil {
			return err
		}
		return s.publisher.Enqueue(ctx, tx, rc, events.KindItemCreated,
			events.AggregateItem, i.Sku.String(), itemEventOf(i, uuid.Nil))
	})
	if err != nil {
		return catalog.Item{}, err
	}
	return i, nil
}

func (s *CatalogService) UpdateItem(ctx context.Context, rc reqctx.Context, sku uuid.UUID, name string, categorySku uuid.UUID) (catalog.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" || categorySku == uuid.Nil {
		return catalog.Item{}, grocerly_errors.ErrInvalidInput
	}

	i, err := s.items.GetBySku(ctx, rc.Family, sku)
	if err != nil {
		return catalog.Item{}, err
	}
	if i.IsDeleted {
		return catalog.Item{}, grocerly_errors.ErrNotFound
	}

	previousCategory := uuid.Nil
	if categorySku != i.CategorySku {
		previousCategory = i.CategorySku
	}

	c, err := s.categories.GetBySku(ctx, rc.Family, categorySku)
	if err != nil {
		return catalog.Item{}, err
	}

	i.Name = name
	i.CategorySku = c.Sku
	i.CategoryName = c.Name
	i.Orphaned = false
	i.UpdatedAt = time.Now()

	err = repository.WithTx(ctx, s.db, func(tx repository.DBTX) error {
		if err := s.items.Update(ctx, tx, i); err != nil {
			return err
		}
		return s.publisher.Enqueue(ctx, tx, rc, events.KindItemUpdated,
			events.AggregateItem, i.Sku.String(), itemEventOf(i, previousCategory))
	})
	if err != nil {
		return catalog.Item{}, err
	}
	return i, nil
}

// DeleteItem tombstones the item rather than removing the row, so downstream
// copies can converge on the same flag regardless of delivery order.
func (s *CatalogService) DeleteItem(ctx context.Context, rc reqctx.Context, sku uuid.UUID) error {
	i, err := s.items.GetBySku(ctx, rc.Family, sku)
	if err != nil {
		return err
	}
	i.IsDeleted = true

	return repository.WithTx(ctx, s.db, func(tx repository.DBTX) error {
		if err := s.items.MarkDeleted(ctx, tx, rc.Family, sku); err != nil {
			return err
		}
		return s.publisher.Enqueue(ctx, tx, rc, events.KindItemDeleted,
			events.AggregateItem, sku.String(), itemEventOf(i, uuid.Nil))
	})
}

func (s *CatalogService) GetItem(ctx context.Context, rc reqctx.Context, sku uuid.UUID) (catalog.Item, error) {
	return s.items.GetBySku(ctx, rc.Family, sku)
}

func (s *CatalogService) ListItems(ctx context.Context, rc reqctx.Context) ([]catalog.Item, error) {
	return s.items.List(ctx, rc.Family)
}

// defaultCatalog is the starter content written the first time a family uses
// the service.
var defaultCatalog = map[string][]string{
	"Produce":   {"Apples", "Bananas", "Tomatoes"},
	"Dairy":     {"Milk", "Butter", "Cheese"},
	"Bakery":    {"Bread"},
	"Pantry":    {"Rice", "Pasta", "Olive Oil"},
	"Household": {"Dish Soap", "Paper Towels"},
}

// SeedDefaults creates the starter categories and items for a family that has
// none yet, and publishes one ItemSeeded snapshot so the shopping-list
// service can bootstrap its local catalog copy. Returns false when the family
// already has content.
func (s *CatalogService) SeedDefaults(ctx context.Context, rc reqctx.Context) (bool, error) {
	if rc.Family == "" {
		return false, grocerly_errors.ErrInvalidInput
	}

	count, err := s.categories.Count(ctx, rc.Family)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	now := time.Now()
	seed := events.ItemSeedEvent{Family: rc.Family, OwnerID: rc.UserID}

	err = repository.WithTx(ctx, s.db, func(tx repository.DBTX) error {
		for categoryName, itemNames := range defaultCatalog {
			c := catalog.Category{
				Sku:       uuid.New(),
				Name:      categoryName,
				Family:    rc.Family,
				OwnerID:   rc.UserID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.categories.Create(ctx, tx, &c); err != nil {
				return err
			}
			for _, itemName := range itemNames {
				i := catalog.Item{
					Sku:          uuid.New(),
					Name:         itemName,
					CategorySku:  c.Sku,
					CategoryName: c.Name,
					Family:       rc.Family,
					OwnerID:      rc.UserID,
					CreatedAt:    now,
					UpdatedAt:    now,
				}
				if err := s.items.Create(ctx, tx, &i); err != nil {
					return err
				}
				seed.Items = append(seed.Items, itemEventOf(i, uuid.Nil))
			}
		}
		return s.publisher.Enqueue(ctx, tx, rc, events.KindItemSeeded,
			events.AggregateItem, rc.Family, seed)
	})
	if err != nil {
		return false, err
	}

	s.log.InfoCtx(rc.WithLogFields(ctx), "catalog: seeded %d default items for family %s", len(seed.Items), rc.Family)
	return true, nil
}

func categoryEventOf(c catalog.Category) events.CategoryEvent {
	return events.CategoryEvent{
		Sku:     c.Sku,
		Name:    c.Name,
		Family:  c.Family,
		OwnerID: c.OwnerID,
	}
}

func itemEventOf(i catalog.Item, previousCategory uuid.UUID) events.ItemEvent {
	return events.ItemEvent{
		Sku:                 i.Sku,
		Name:                i.Name,
		CategorySku:         i.CategorySku,
		CategoryName:        i.CategoryName,
		PreviousCategorySku: previousCategory,
		Family:              i.Family,
		OwnerID:             i.OwnerID,
		IsDeleted:           i.IsDeleted,
	}
}
