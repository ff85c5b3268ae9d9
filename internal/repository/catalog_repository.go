package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"grocerly/internal/domain/catalog"
)

type categoryRepository struct {
	db DBTX
}

func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, tx DBTX, c *catalog.Category) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        INSERT INTO categories (sku, name, family, owner_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6)
    `, c.Sku, c.Name, c.Family, c.OwnerID, c.CreatedAt, c.UpdatedAt)
	return translateErr(err)
}

func (r *categoryRepository) GetBySku(ctx context.Context, family string, sku uuid.UUID) (catalog.Category, error) {
	var c catalog.Category
	err := r.db.QueryRowContext(ctx, `
        SELECT sku, name, family, owner_id, created_at, updated_at
        FROM categories
        WHERE family = $1 AND sku = $2
    `, family, sku).Scan(&c.Sku, &c.Name, &c.Family, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return catalog.Category{}, translateErr(err)
	}
	return c, nil
}

func (r *categoryRepository) List(ctx context.Context, family string) ([]catalog.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT sku, name, family, owner_id, created_at, updated_at
        FROM categories
        WHERE family = $1
        ORDER BY name ASC
    `, family)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.Sku, &c.Name, &c.Family, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) Update(ctx context.Context, tx DBTX, c catalog.Category) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	res, err := execDB.ExecContext(ctx, `
        UPDATE categories
        SET name = $1, updated_at = $2
        WHERE family = $3 AND sku = $4
    `, c.Name, c.UpdatedAt, c.Family, c.Sku)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *categoryRepository) Delete(ctx context.Context, tx DBTX, family string, sku uuid.UUID) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	res, err := execDB.ExecContext(ctx, `
        DELETE FROM categories
        WHERE family = $1 AND sku = $2
    `, family, sku)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *categoryRepository) Count(ctx context.Context, family string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM categories WHERE family = $1
    `, family).Scan(&count)
	return count, err
}

type itemRepository struct {
	db DBTX
}

func NewItemRepository(db DBTX) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Create(ctx context.Context, tx DBTX, i *catalog.Item) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        INSERT INTO items (sku, name, category_sku, category_name, family, owner_id,
            is_deleted, orphaned, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, i.Sku, i.Name, i.CategorySku, i.CategoryName, i.Family, i.OwnerID,
		i.IsDeleted, i.Orphaned, i.CreatedAt, i.UpdatedAt)
	return translateErr(err)
}

func (r *itemRepository) GetBySku(ctx context.Context, family string, sku uuid.UUID) (catalog.Item, error) {
	var i catalog.Item
	err := r.db.QueryRowContext(ctx, `
        SELECT sku, name, category_sku, category_name, family, owner_id,
            is_deleted, orphaned, created_at, updated_at
        FROM items
        WHERE family = $1 AND sku = $2
    `, family, sku).Scan(&i.Sku, &i.Name, &i.CategorySku, &i.CategoryName, &i.Family,
		&i.OwnerID, &i.IsDeleted, &i.Orphaned, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return catalog.Item{}, translateErr(err)
	}
	return i, nil
}

func (r *itemRepository) List(ctx context.Context, family string) ([]catalog.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT sku, name, category_sku, category_name, family, owner_id,
            is_deleted, orphaned, created_at, updated_at
        FROM items
        WHERE family = $1 AND is_deleted = false
        ORDER BY name ASC
    `, family)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []catalog.Item
	for rows.Next() {
		var i catalog.Item
		if err := rows.Scan(&i.Sku, &i.Name, &i.CategorySku, &i.CategoryName, &i.Family,
			&i.OwnerID, &i.IsDeleted, &i.Orphaned, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepository) Update(ctx context.Context, tx DBTX, i catalog.Item) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	res, err := execDB.ExecContext(ctx, `
        UPDATE items
        SET name = $1, category_sku = $2, category_name = $3, orphaned = $4, updated_at = $5
        WHERE family = $6 AND sku = $7
    `, i.Name, i.CategorySku, i.CategoryName, i.Orphaned, i.UpdatedAt, i.Family, i.Sku)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *itemRepository) MarkDeleted(ctx context.Context, tx DBTX, family string, sku uuid.UUID) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	res, err := execDB.ExecContext(ctx, `
        UPDATE items
        SET is_deleted = true, updated_at = $1
        WHERE family = $2 AND sku = $3
    `, time.Now(), family, sku)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RenameCategory overwrites the denormalized category name on every item in
// the family that links to categorySku. Last write wins.
func (r *itemRepository) RenameCategory(ctx context.Context, family string, categorySku uuid.UUID, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE items
        SET category_name = $1, updated_at = $2
        WHERE family = $3 AND category_sku = $4
    `, name, time.Now(), family, categorySku)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *itemRepository) OrphanCategory(ctx context.Context, family string, categorySku uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE items
        SET orphaned = true, updated_at = $1
        WHERE family = $2 AND category_sku = $3
    `, time.Now(), family, categorySku)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
