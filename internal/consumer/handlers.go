// Package consumer implements the validating consumers that keep each
// service's local read models converged with events produced elsewhere.
// Every handler runs the same sequence: decode and validate the payload,
// locate the local rows by natural key within the tenant, apply with
// last-write-wins semantics, and report an explicit outcome.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"grocerly/internal/events"
)

// CategoryProjection is the slice of a repository the category handlers need.
// The catalog service satisfies it with its item repository, the shopping-list
// service with its catalog read model.
type CategoryProjection interface {
	RenameCategory(ctx context.Context, family string, categorySku uuid.UUID, name string) (int64, error)
	OrphanCategory(ctx context.Context, family string, categorySku uuid.UUID) (int64, error)
}

// ItemProjection is the slice of the catalog read model the item handlers need.
type ItemProjection interface {
	UpsertItem(ctx context.Context, family string, ev events.ItemEvent) (int64, error)
	ApplyItemUpdate(ctx context.Context, family string, ev events.ItemEvent) (int64, error)
	TombstoneItem(ctx context.Context, family string, sku uuid.UUID) (int64, error)
	SeedItems(ctx context.Context, family, ownerID string, items []events.ItemEvent) (bool, error)
}

// RegisterCategoryHandlers wires the category event handlers against a
// projection that denormalizes category names onto items.
func RegisterCategoryHandlers(reg *Registry, proj CategoryProjection) {
	reg.Register(events.KindCategoryUpdated, CategoryUpdatedHandler(proj))
	reg.Register(events.KindCategoryDeleted, CategoryDeletedHandler(proj))
}

// RegisterItemHandlers wires the catalog item handlers against the
// shopping-list service's local catalog copy.
func RegisterItemHandlers(reg *Registry, proj ItemProjection) {
	reg.Register(events.KindItemCreated, ItemCreatedHandler(proj))
	reg.Register(events.KindItemUpdated, ItemUpdatedHandler(proj))
	reg.Register(events.KindItemDeleted, ItemDeletedHandler(proj))
	reg.Register(events.KindItemSeeded, ItemSeededHandler(proj))
}

func CategoryUpdatedHandler(proj CategoryProjection) HandlerFunc {
	return func(ctx context.Context, env events.Envelope) Outcome {
		var ev events.CategoryEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return Rejected(fmt.Errorf("decode category event: %w", err))
		}
		if err := ev.Validate(); err != nil {
			return Rejected(fmt.Errorf("category %s: %w", ev.Sku, err))
		}
		n, err := proj.RenameCategory(ctx, ev.Family, ev.Sku, ev.Name)
		if err != nil {
			return Failed(err)
		}
		if n == 0 {
			// No local rows reference this category yet. Benign: a later
			// item event will carry the current name.
			return NothingToApply()
		}
		return Applied()
	}
}

func CategoryDeletedHandler(proj CategoryProjection) HandlerFunc {
	return func(ctx context.Context, env events.Envelope) Outcome {
		var ev events.CategoryEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return Rejected(fmt.Errorf("decode category event: %w", err))
		}
		// Deletes carry only the natural key; the name may already be gone.
		if ev.Sku == uuid.Nil || ev.Family == "" {
			return Rejected(fmt.Errorf("category delete missing sku or family"))
		}
		n, err := proj.OrphanCategory(ctx, ev.Family, ev.Sku)
		if err != nil {
			return Failed(err)
		}
		if n == 0 {
			return NothingToApply()
		}
		return Applied()
	}
}

func ItemCreatedHandler(proj ItemProjection) HandlerFunc {
	return func(ctx context.Context, env events.Envelope) Outcome {
		var ev events.ItemEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return Rejected(fmt.Errorf("decode item event: %w", err))
		}
		if err := ev.Validate(); err != nil {
			return Rejected(fmt.Errorf("item %s: %w", ev.Sku, err))
		}
		n, err := proj.UpsertItem(ctx, ev.Family, ev)
		if err != nil {
			return Failed(err)
		}
		if n == 0 {
			return NothingToApply()
		}
		return Applied()
	}
}

func ItemUpdatedHandler(proj ItemProjection) HandlerFunc {
	return func(ctx context.Context, env events.Envelope) Outcome {
		var ev events.ItemEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return Rejected(fmt.Errorf("decode item event: %w", err))
		}
		if err := ev.Validate(); err != nil {
			return Rejected(fmt.Errorf("item %s: %w", ev.Sku, err))
		}
		n, err := proj.ApplyItemUpdate(ctx, ev.Family, ev)
		if err != nil {
			return Failed(err)
		}
		if n == 0 {
			return NothingToApply()
		}
		return Applied()
	}
}

func ItemDeletedHandler(proj ItemProjection) HandlerFunc {
	return func(ctx context.Context, env events.Envelope) Outcome {
		var ev events.ItemEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return Rejected(fmt.Errorf("decode item event: %w", err))
		}
		if ev.Sku == uuid.Nil || ev.Family == "" {
			return Rejected(fmt.Errorf("item delete missing sku or family"))
		}
		n, err := proj.TombstoneItem(ctx, ev.Family, ev.Sku)
		if err != nil {
			return Failed(err)
		}
		if n == 0 {
			// Already tombstoned or never seen. Deleting what is absent
			// converges to the same state.
			return NothingToApply()
		}
		return Applied()
	}
}

func ItemSeededHandler(proj ItemProjection) HandlerFunc {
	return func(ctx context.Context, env events.Envelope) Outcome {
		var ev events.ItemSeedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return Rejected(fmt.Errorf("decode seed event: %w", err))
		}
		if err := ev.Validate(); err != nil {
			return Rejected(fmt.Errorf("seed for family %s: %w", ev.Family, err))
		}
		seeded, err := proj.SeedItems(ctx, ev.Family, ev.OwnerID, ev.Items)
		if err != nil {
			return Failed(err)
		}
		if !seeded {
			// Redelivered or duplicate seed against a populated copy.
			return NothingToApply()
		}
		return Applied()
	}
}
