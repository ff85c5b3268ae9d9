package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"grocerly/internal/domain/shoppinglist"
	"grocerly/internal/events"
)

// catalogReadModel is the shopping-list service's local copy of the catalog.
// Every mutation is a last-write-wins overwrite so duplicate or out-of-order
// deliveries converge to the same state.
type catalogReadModel struct {
	db DBTX
}

func NewCatalogReadModel(db DBTX) CatalogReadModel {
	return &catalogReadModel{db: db}
}

func (r *catalogReadModel) GetItem(ctx context.Context, family string, sku uuid.UUID) (shoppinglist.CatalogItem, error) {
	var ci shoppinglist.CatalogItem
	err := r.db.QueryRowContext(ctx, `
        SELECT sku, name, category_sku, category_name, family, owner_id, orphaned, updated_at
        FROM catalog_items
        WHERE family = $1 AND sku = $2
    `, family, sku).Scan(&ci.Sku, &ci.Name, &ci.CategorySku, &ci.CategoryName,
		&ci.Family, &ci.OwnerID, &ci.Orphaned, &ci.UpdatedAt)
	if err != nil {
		return shoppinglist.CatalogItem{}, translateErr(err)
	}
	return ci, nil
}

func (r *catalogReadModel) ListItems(ctx context.Context, family string) ([]shoppinglist.CatalogItem, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT sku, name, category_sku, category_name, family, owner_id, orphaned, updated_at
        FROM catalog_items
        WHERE family = $1
        ORDER BY name ASC
    `, family)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []shoppinglist.CatalogItem
	for rows.Next() {
		var ci shoppinglist.CatalogItem
		if err := rows.Scan(&ci.Sku, &ci.Name, &ci.CategorySku, &ci.CategoryName,
			&ci.Family, &ci.OwnerID, &ci.Orphaned, &ci.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, ci)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// RenameCategory overwrites the denormalized category name on the local
// catalog copy and on every list line that references the category.
func (r *catalogReadModel) RenameCategory(ctx context.Context, family string, categorySku uuid.UUID, name string) (int64, error) {
	var total int64
	err := WithTx(ctx, r.db, func(tx DBTX) error {
		now := time.Now()
		res, err := tx.ExecContext(ctx, `
            UPDATE catalog_items
            SET category_name = $1, updated_at = $2
            WHERE family = $3 AND category_sku = $4
        `, name, now, family, categorySku)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		total += n

		res, err = tx.ExecContext(ctx, `
            UPDATE list_items
            SET category_name = $1, updated_at = $2
            WHERE family = $3 AND category_sku = $4
        `, name, now, family, categorySku)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *catalogReadModel) OrphanCategory(ctx context.Context, family string, categorySku uuid.UUID) (int64, error) {
	var total int64
	err := WithTx(ctx, r.db, func(tx DBTX) error {
		now := time.Now()
		res, err := tx.ExecContext(ctx, `
            UPDATE catalog_items
            SET orphaned = true, updated_at = $1
            WHERE family = $2 AND category_sku = $3
        `, now, family, categorySku)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		total += n

		res, err = tx.ExecContext(ctx, `
            UPDATE list_items
            SET orphaned = true, updated_at = $1
            WHERE family = $2 AND category_sku = $3
        `, now, family, categorySku)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// UpsertItem inserts or overwrites one catalog row. The natural key is
// (family, sku), so redelivery of the same event cannot duplicate rows.
func (r *catalogReadModel) UpsertItem(ctx context.Context, family string, ev events.ItemEvent) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        INSERT INTO catalog_items (sku, name, category_sku, category_name, family, owner_id, orphaned, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,false,$7)
        ON CONFLICT (family, sku) DO UPDATE
        SET name = EXCLUDED.name,
            category_sku = EXCLUDED.category_sku,
            category_name = EXCLUDED.category_name,
            orphaned = false,
            updated_at = EXCLUDED.updated_at
    `, ev.Sku, ev.Name, ev.CategorySku, ev.CategoryName, family, ev.OwnerID, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ApplyItemUpdate overwrites name and category linkage on the catalog row and
// on list lines referencing the item.
func (r *catalogReadModel) ApplyItemUpdate(ctx context.Context, family string, ev events.ItemEvent) (int64, error) {
	var total int64
	err := WithTx(ctx, r.db, func(tx DBTX) error {
		now := time.Now()
		res, err := tx.ExecContext(ctx, `
            UPDATE catalog_items
            SET name = $1, category_sku = $2, category_name = $3, updated_at = $4
            WHERE family = $5 AND sku = $6
        `, ev.Name, ev.CategorySku, ev.CategoryName, now, family, ev.Sku)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		total += n

		res, err = tx.ExecContext(ctx, `
            UPDATE list_items
            SET item_name = $1, category_sku = $2, category_name = $3, updated_at = $4
            WHERE family = $5 AND item_sku = $6
        `, ev.Name, ev.CategorySku, ev.CategoryName, now, family, ev.Sku)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *catalogReadModel) TombstoneItem(ctx context.Context, family string, sku uuid.UUID) (int64, error) {
	var total int64
	err := WithTx(ctx, r.db, func(tx DBTX) error {
		now := time.Now()
		res, err := tx.ExecContext(ctx, `
            UPDATE catalog_items
            SET orphaned = true, updated_at = $1
            WHERE family = $2 AND sku = $3
        `, now, family, sku)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		total += n

		res, err = tx.ExecContext(ctx, `
            UPDATE list_items
            SET orphaned = true, updated_at = $1
            WHERE family = $2 AND item_sku = $3
        `, now, family, sku)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// SeedItems bulk-imports the snapshot only when the family has no catalog
// rows yet. Returns false when the store was already seeded.
func (r *catalogReadModel) SeedItems(ctx context.Context, family, ownerID string, items []events.ItemEvent) (bool, error) {
	seeded := false
	err := WithTx(ctx, r.db, func(tx DBTX) error {
		var count int64
		if err := tx.QueryRowContext(ctx, `
            SELECT COUNT(*) FROM catalog_items WHERE family = $1
        `, family).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		now := time.Now()
		for _, ev := range items {
			if _, err := tx.ExecContext(ctx, `
                INSERT INTO catalog_items (sku, name, category_sku, category_name, family, owner_id, orphaned, updated_at)
                VALUES ($1,$2,$3,$4,$5,$6,false,$7)
                ON CONFLICT (family, sku) DO NOTHING
            `, ev.Sku, ev.Name, ev.CategorySku, ev.CategoryName, family, ownerID, now); err != nil {
				return err
			}
		}
		seeded = true
		return nil
	})
	return seeded, err
}
