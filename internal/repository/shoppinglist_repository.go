package repository

import (
	"context"

	"github.com/google/uuid"

	"grocerly/internal/domain/shoppinglist"
)

type shoppingListRepository struct {
	db DBTX
}

func NewShoppingListRepository(db DBTX) ShoppingListRepository {
	return &shoppingListRepository{db: db}
}

func (r *shoppingListRepository) Create(ctx context.Context, tx DBTX, l *shoppinglist.ShoppingList) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        INSERT INTO shopping_lists (id, name, family, owner_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6)
    `, l.ID, l.Name, l.Family, l.OwnerID, l.CreatedAt, l.UpdatedAt)
	return translateErr(err)
}

func (r *shoppingListRepository) GetByID(ctx context.Context, family string, id uuid.UUID) (shoppinglist.ShoppingList, error) {
	var l shoppinglist.ShoppingList
	err := r.db.QueryRowContext(ctx, `
        SELECT id, name, family, owner_id, created_at, updated_at
        FROM shopping_lists
        WHERE family = $1 AND id = $2
    `, family, id).Scan(&l.ID, &l.Name, &l.Family, &l.OwnerID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return shoppinglist.ShoppingList{}, translateErr(err)
	}
	return l, nil
}

func (r *shoppingListRepository) List(ctx context.Context, family string) ([]shoppinglist.ShoppingList, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, name, family, owner_id, created_at, updated_at
        FROM shopping_lists
        WHERE family = $1
        ORDER BY created_at DESC
    `, family)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lists []shoppinglist.ShoppingList
	for rows.Next() {
		var l shoppinglist.ShoppingList
		if err := rows.Scan(&l.ID, &l.Name, &l.Family, &l.OwnerID, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lists, nil
}

func (r *shoppingListRepository) Update(ctx context.Context, tx DBTX, l shoppinglist.ShoppingList) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	res, err := execDB.ExecContext(ctx, `
        UPDATE shopping_lists
        SET name = $1, updated_at = $2
        WHERE family = $3 AND id = $4
    `, l.Name, l.UpdatedAt, l.Family, l.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *shoppingListRepository) Delete(ctx context.Context, tx DBTX, family string, id uuid.UUID) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	res, err := execDB.ExecContext(ctx, `
        DELETE FROM shopping_lists
        WHERE family = $1 AND id = $2
    `, family, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *shoppingListRepository) AddItem(ctx context.Context, tx DBTX, li *shoppinglist.ListItem) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        INSERT INTO list_items (id, shopping_list_id, item_sku, item_name, category_sku,
            category_name, quantity, picked, family, orphaned, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
    `, li.ID, li.ShoppingListID, li.ItemSku, li.ItemName, li.CategorySku,
		li.CategoryName, li.Quantity, li.Picked, li.Family, li.Orphaned, li.CreatedAt, li.UpdatedAt)
	return translateErr(err)
}

func (r *shoppingListRepository) UpdateItem(ctx context.Context, tx DBTX, li shoppinglist.ListItem) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	res, err := execDB.ExecContext(ctx, `
        UPDATE list_items
        SET quantity = $1, picked = $2, updated_at = $3
        WHERE family = $4 AND id = $5
    `, li.Quantity, li.Picked, li.UpdatedAt, li.Family, li.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *shoppingListRepository) RemoveItem(ctx context.Context, tx DBTX, family string, itemID uuid.UUID) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	res, err := execDB.ExecContext(ctx, `
        DELETE FROM list_items
        WHERE family = $1 AND id = $2
    `, family, itemID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *shoppingListRepository) GetItems(ctx context.Context, family string, listID uuid.UUID) ([]shoppinglist.ListItem, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, shopping_list_id, item_sku, item_name, category_sku, category_name,
            quantity, picked, family, orphaned, created_at, updated_at
        FROM list_items
        WHERE family = $1 AND shopping_list_id = $2
        ORDER BY created_at ASC
    `, family, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []shoppinglist.ListItem
	for rows.Next() {
		var li shoppinglist.ListItem
		if err := rows.Scan(&li.ID, &li.ShoppingListID, &li.ItemSku, &li.ItemName, &li.CategorySku,
			&li.CategoryName, &li.Quantity, &li.Picked, &li.Family, &li.Orphaned, &li.CreatedAt, &li.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
