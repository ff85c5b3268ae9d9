package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"grocerly/internal/domain/shoppinglist"
	"grocerly/internal/events"
	"grocerly/internal/outbox"
	"grocerly/internal/repository"
	"grocerly/internal/reqctx"
	grocerly_errors "grocerly/pkg/errors"
	"grocerly/pkg/logger"
)

type ShoppingListService struct {
	db        *sql.DB
	lists     repository.ShoppingListRepository
	catalog   repository.CatalogReadModel
	publisher *outbox.Publisher
	log       *logger.Logger
}

func NewShoppingListService(db *sql.DB, lists repository.ShoppingListRepository,
	catalog repository.CatalogReadModel, publisher *outbox.Publisher, log *logger.Logger) *ShoppingListService {
	return &ShoppingListService{
		db:        db,
		lists:     lists,
		catalog:   catalog,
		publisher: publisher,
		log:       log,
	}
}

func (s *ShoppingListService) CreateList(ctx context.Context, rc reqctx.Context, name string) (shoppinglist.ShoppingList, error) {
	name = strings.TrimSpace(name)
	if name == "" || rc.Family == "" {
		return shoppinglist.ShoppingList{}, grocerly_errors.ErrInvalidInput
	}

	now := time.Now()
	l := shoppinglist.ShoppingList{
		ID:        uuid.New(),
		Name:      name,
		Family:    rc.Family,
		OwnerID:   rc.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := repository.WithTx(ctx, s.db, func(tx repository.DBTX) error {
		if err := s.lists.Create(ctx, tx, &l); err != nil {
			return err
		}
		return s.publisher.Enqueue(ctx, tx, rc, events.KindShoppingListCreated,
			events.AggregateShoppingList, l.ID.String(), listEventOf(l, nil))
	})
	if err != nil {
		return shoppinglist.ShoppingList{}, err
	}

	s.log.InfoCtx(rc.WithLogFields(ctx), "shoppinglist: created list %s (%s)", l.Name, l.ID)
	return l, nil
}

func (s *ShoppingListService) RenameList(ctx context.Context, rc reqctx.Context, id uuid.UUID, name string) (shoppinglist.ShoppingList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return shoppinglist.ShoppingList{}, grocerly_errors.ErrInvalidInput
	}

	l, err := s.lists.GetByID(ctx, rc.Family, id)
	if err != nil {
		return shoppinglist.ShoppingList{}, err
	}
	l.Name = name
	l.UpdatedAt = time.Now()

	err = repository.WithTx(ctx, s.db, func(tx repository.DBTX) error {
		if err := s.lists.Update(ctx, tx, l); err != nil {
			return err
		}
		return s.publisher.Enqueue(ctx, tx, rc, events.KindShoppingListUpdated,
			events.AggregateShoppingList, l.ID.String(), listEventOf(l, nil))
	})
	if err != nil {
		return shoppinglist.ShoppingList{}, err
	}
	return l, nil
}

func (s *ShoppingListService) DeleteList(ctx context.Context, rc reqctx.Context, id uuid.UUID) error {
	l, err := s.lists.GetByID(ctx, rc.Family, id)
	if err != nil {
		return err
	}

	return repository.WithTx(ctx, s.db, func(tx repository.DBTX) error {
		if err := s.lists.Delete(ctx, tx, rc.Family, id); err != nil {
			return err
		}
		return s.publisher.Enqueue(ctx, tx, rc, events.KindShoppingListDeleted,
			events.AggregateShoppingList, l.ID.String(), listEventOf(l, nil))
	})
}

func (s *ShoppingListService) GetList(ctx context.Context, rc reqctx.Context, id uuid.UUID) (shoppinglist.ShoppingList, []shoppinglist.ListItem, error) {
	l, err := s.lists.GetByID(ctx, rc.Family, id)
	if err != nil {
		return shoppinglist.ShoppingList{}, nil, err
	}
	items, err := s.lists.GetItems(ctx, rc.Family, id)
	if err != nil {
		return shoppinglist.ShoppingList{}, nil, err
	}
	return l, items, nil
}

func (s *ShoppingListService) ListLists(ctx context.Context, rc reqctx.Context) ([]shoppinglist.ShoppingList, error) {
	return s.lists.List(ctx, rc.Family)
}

// AddItem puts a catalog item on a list, denormalizing name and category from
// the local catalog copy at add time. The copy is eventually consistent;
// whatever it holds now is what the line gets, and later catalog events
// correct it.
func (s *ShoppingListService) AddItem(ctx context.Context, rc reqctx.Context, listID, itemSku uuid.UUID, quantity int) (shoppinglist.ListItem, error) {
	if quantity <= 0 {
		return shoppinglist.ListItem{}, grocerly_errors.ErrInvalidInput
	}

	l, err := s.lists.GetByID(ctx, rc.Family, listID)
	if err != nil {
		return shoppinglist.ListItem{}, err
	}

	ci, err := s.catalog.GetItem(ctx, rc.Family, itemSku)
	if err != nil {
		return shoppinglist.ListItem{}, err
	}

	now := time.Now()
	li := shoppinglist.ListItem{
		ID:             uuid.New(),
		ShoppingListID: l.ID,
		ItemSku:        ci.Sku,
		ItemName:       ci.Name,
		CategorySku:    ci.CategorySku,
		CategoryName:   ci.CategoryName,
		Quantity:       quantity,
		Family:         rc.Family,
		Orphaned:       ci.Orphaned,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = repository.WithTx(ctx, s.db, func(tx repository.DBTX) error {
		if err := s.lists.AddItem(ctx, tx, &li); err != nil {
			return err
		}
		return s.publisher.Enqueue(ctx, tx, rc, events.KindListItemsAdded,
			events.AggregateShoppingList, l.ID.String(), listEventOf(l, []shoppinglist.ListItem{li}))
	})
	if err != nil {
		return shoppinglist.ListItem{}, err
	}
	return li, nil
}

func (s *ShoppingListService) UpdateItem(ctx context.Context, rc reqctx.Context, listID, lineID uuid.UUID, quantity int, picked bool) (shoppinglist.ListItem, error) {
	if quantity <= 0 {
		return shoppinglist.ListItem{}, grocerly_errors.ErrInvalidInput
	}

	l, err := s.lists.GetByID(ctx, rc.Family, listID)
	if err != nil {
		return shoppinglist.ListItem{}, err
	}

	li, err := s.findLine(ctx, rc.Family, listID, lineID)
	if err != nil {
		return shoppinglist.ListItem{}, err
	}
	li.Quantity = quantity
	li.Picked = picked
	li.UpdatedAt = time.Now()

	err = repository.WithTx(ctx, s.db, func(tx repository.DBTX) error {
		if err := s.lists.UpdateItem(ctx, tx, li); err != nil {
			return err
		}
		return s.publisher.Enqueue(ctx, tx, rc, events.KindListItemsUpdated,
			events.AggregateShoppingList, l.ID.String(), listEventOf(l, []shoppinglist.ListItem{li}))
	})
	if err != nil {
		return shoppinglist.ListItem{}, err
	}
	return li, nil
}

func (s *ShoppingListService) RemoveItem(ctx context.Context, rc reqctx.Context, listID, lineID uuid.UUID) error {
	l, err := s.lists.GetByID(ctx, rc.Family, listID)
	if err != nil {
		return err
	}

	li, err := s.findLine(ctx, rc.Family, listID, lineID)
	if err != nil {
		return err
	}

	return repository.WithTx(ctx, s.db, func(tx repository.DBTX) error {
		if err := s.lists.RemoveItem(ctx, tx, rc.Family, lineID); err != nil {
			return err
		}
		return s.publisher.Enqueue(ctx, tx, rc, events.KindListItemsDeleted,
			events.AggregateShoppingList, l.ID.String(), listEventOf(l, []shoppinglist.ListItem{li}))
	})
}

// Catalog returns the service's local copy of the catalog for list
// composition.
func (s *ShoppingListService) Catalog(ctx context.Context, rc reqctx.Context) ([]shoppinglist.CatalogItem, error) {
	return s.catalog.ListItems(ctx, rc.Family)
}

func (s *ShoppingListService) findLine(ctx context.Context, family string, listID, lineID uuid.UUID) (shoppinglist.ListItem, error) {
	items, err := s.lists.GetItems(ctx, family, listID)
	if err != nil {
		return shoppinglist.ListItem{}, err
	}
	for _, li := range items {
		if li.ID == lineID {
			return li, nil
		}
	}
	return shoppinglist.ListItem{}, grocerly_errors.ErrNotFound
}

func listEventOf(l shoppinglist.ShoppingList, items []shoppinglist.ListItem) events.ShoppingListEvent {
	ev := events.ShoppingListEvent{
		ShoppingListID: l.ID,
		Name:           l.Name,
		Family:         l.Family,
		OwnerID:        l.OwnerID,
	}
	for _, li := range items {
		ev.Items = append(ev.Items, events.ListItemEvent{
			ID:           li.ID,
			ItemSku:      li.ItemSku,
			ItemName:     li.ItemName,
			CategorySku:  li.CategorySku,
			CategoryName: li.CategoryName,
			Quantity:     li.Quantity,
			Picked:       li.Picked,
		})
	}
	return ev
}
