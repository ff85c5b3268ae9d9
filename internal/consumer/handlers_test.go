package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocerly/internal/domain/outbox"
	"grocerly/internal/events"
	"grocerly/pkg/logger"
)

// fakeProjection is an in-memory catalog copy with the same last-write-wins
// overwrite behavior as the SQL read model.
type fakeProjection struct {
	items map[string]events.ItemEvent // keyed by family+sku
	names map[string]string           // categorySku -> name, per family
	fail  error
}

func newFakeProjection() *fakeProjection {
	return &fakeProjection{
		items: make(map[string]events.ItemEvent),
		names: make(map[string]string),
	}
}

func (f *fakeProjection) key(family string, sku uuid.UUID) string {
	return family + "/" + sku.String()
}

func (f *fakeProjection) RenameCategory(ctx context.Context, family string, categorySku uuid.UUID, name string) (int64, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	var n int64
	for k, it := range f.items {
		if it.Family == family && it.CategorySku == categorySku {
			it.CategoryName = name
			f.items[k] = it
			n++
		}
	}
	return n, nil
}

func (f *fakeProjection) OrphanCategory(ctx context.Context, family string, categorySku uuid.UUID) (int64, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	var n int64
	for k, it := range f.items {
		if it.Family == family && it.CategorySku == categorySku {
			it.CategoryName = ""
			f.items[k] = it
			n++
		}
	}
	return n, nil
}

func (f *fakeProjection) UpsertItem(ctx context.Context, family string, ev events.ItemEvent) (int64, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	f.items[f.key(family, ev.Sku)] = ev
	return 1, nil
}

func (f *fakeProjection) ApplyItemUpdate(ctx context.Context, family string, ev events.ItemEvent) (int64, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	k := f.key(family, ev.Sku)
	if _, ok := f.items[k]; !ok {
		return 0, nil
	}
	f.items[k] = ev
	return 1, nil
}

func (f *fakeProjection) TombstoneItem(ctx context.Context, family string, sku uuid.UUID) (int64, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	k := f.key(family, sku)
	it, ok := f.items[k]
	if !ok || it.IsDeleted {
		return 0, nil
	}
	it.IsDeleted = true
	f.items[k] = it
	return 1, nil
}

func (f *fakeProjection) SeedItems(ctx context.Context, family, ownerID string, items []events.ItemEvent) (bool, error) {
	if f.fail != nil {
		return false, f.fail
	}
	for _, it := range f.items {
		if it.Family == family {
			return false, nil
		}
	}
	for _, it := range items {
		it.Family = family
		f.items[f.key(family, it.Sku)] = it
	}
	return true, nil
}

type fakeDeadLetters struct {
	letters []*outbox.DeadLetter
}

func (f *fakeDeadLetters) Create(ctx context.Context, d *outbox.DeadLetter) error {
	f.letters = append(f.letters, d)
	return nil
}

func (f *fakeDeadLetters) List(ctx context.Context, limit int) ([]outbox.DeadLetter, error) {
	out := make([]outbox.DeadLetter, 0, len(f.letters))
	for _, d := range f.letters {
		out = append(out, *d)
	}
	return out, nil
}

func envelopeOf(t *testing.T, kind events.Kind, family string, payload interface{}) events.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return events.Envelope{
		Kind:          kind,
		AggregateType: events.AggregateItem,
		AggregateID:   uuid.NewString(),
		Family:        family,
		Payload:       raw,
	}
}

func itemEvent(family string) events.ItemEvent {
	return events.ItemEvent{
		Sku:          uuid.New(),
		Name:         "Milk",
		CategorySku:  uuid.New(),
		CategoryName: "Dairy",
		Family:       family,
		OwnerID:      uuid.NewString(),
	}
}

func TestItemCreatedHandler_AppliesAndIsIdempotent(t *testing.T) {
	proj := newFakeProjection()
	h := ItemCreatedHandler(proj)
	ev := itemEvent("fam-1")
	env := envelopeOf(t, events.KindItemCreated, "fam-1", ev)

	out := h(context.Background(), env)
	require.Equal(t, StatusApplied, out.Status)
	require.Len(t, proj.items, 1)

	// Redelivery of the same event converges to the same state.
	out = h(context.Background(), env)
	require.Equal(t, StatusApplied, out.Status)
	assert.Len(t, proj.items, 1)
	assert.Equal(t, "Milk", proj.items[proj.key("fam-1", ev.Sku)].Name)
}

func TestItemCreatedHandler_RejectsInvalidPayload(t *testing.T) {
	proj := newFakeProjection()
	h := ItemCreatedHandler(proj)

	out := h(context.Background(), envelopeOf(t, events.KindItemCreated, "fam-1", events.ItemEvent{
		Name:   "Milk",
		Family: "fam-1",
	}))
	require.Equal(t, StatusRejected, out.Status)
	assert.Error(t, out.Err)
	assert.Empty(t, proj.items)

	out = h(context.Background(), events.Envelope{
		Kind:    events.KindItemCreated,
		Family:  "fam-1",
		Payload: json.RawMessage(`{not json`),
	})
	require.Equal(t, StatusRejected, out.Status)
}

func TestItemCreatedHandler_FailsOnStoreError(t *testing.T) {
	proj := newFakeProjection()
	proj.fail = errors.New("connection reset")
	h := ItemCreatedHandler(proj)

	out := h(context.Background(), envelopeOf(t, events.KindItemCreated, "fam-1", itemEvent("fam-1")))
	require.Equal(t, StatusFailed, out.Status)
	assert.ErrorContains(t, out.Err, "connection reset")
}

func TestItemUpdatedHandler_AbsentItemIsBenign(t *testing.T) {
	proj := newFakeProjection()
	h := ItemUpdatedHandler(proj)

	// Update arrives before the create it follows. Nothing local to touch.
	out := h(context.Background(), envelopeOf(t, events.KindItemUpdated, "fam-1", itemEvent("fam-1")))
	require.Equal(t, StatusNothingToApply, out.Status)
	assert.NoError(t, out.Err)
}

func TestItemDeletedHandler_OutOfOrderRedelivery(t *testing.T) {
	proj := newFakeProjection()
	ev := itemEvent("fam-1")
	_, err := proj.UpsertItem(context.Background(), "fam-1", ev)
	require.NoError(t, err)

	del := events.ItemEvent{Sku: ev.Sku, Family: "fam-1"}
	h := ItemDeletedHandler(proj)

	out := h(context.Background(), envelopeOf(t, events.KindItemDeleted, "fam-1", del))
	require.Equal(t, StatusApplied, out.Status)

	// Second delivery of the same tombstone finds nothing left to do.
	out = h(context.Background(), envelopeOf(t, events.KindItemDeleted, "fam-1", del))
	require.Equal(t, StatusNothingToApply, out.Status)
	assert.True(t, proj.items[proj.key("fam-1", ev.Sku)].IsDeleted)
}

func TestCategoryUpdatedHandler_RenamesReferencingItems(t *testing.T) {
	proj := newFakeProjection()
	ev := itemEvent("fam-1")
	_, err := proj.UpsertItem(context.Background(), "fam-1", ev)
	require.NoError(t, err)

	h := CategoryUpdatedHandler(proj)
	out := h(context.Background(), envelopeOf(t, events.KindCategoryUpdated, "fam-1", events.CategoryEvent{
		Sku:    ev.CategorySku,
		Name:   "Fridge",
		Family: "fam-1",
	}))
	require.Equal(t, StatusApplied, out.Status)
	assert.Equal(t, "Fridge", proj.items[proj.key("fam-1", ev.Sku)].CategoryName)
}

func TestCategoryUpdatedHandler_UnknownCategoryIsBenign(t *testing.T) {
	proj := newFakeProjection()
	h := CategoryUpdatedHandler(proj)

	out := h(context.Background(), envelopeOf(t, events.KindCategoryUpdated, "fam-1", events.CategoryEvent{
		Sku:    uuid.New(),
		Name:   "Fridge",
		Family: "fam-1",
	}))
	require.Equal(t, StatusNothingToApply, out.Status)
}

func TestCategoryDeletedHandler_KeyOnlyValidation(t *testing.T) {
	proj := newFakeProjection()
	ev := itemEvent("fam-1")
	_, err := proj.UpsertItem(context.Background(), "fam-1", ev)
	require.NoError(t, err)

	h := CategoryDeletedHandler(proj)

	// Deletes are valid without a name.
	out := h(context.Background(), envelopeOf(t, events.KindCategoryDeleted, "fam-1", events.CategoryEvent{
		Sku:    ev.CategorySku,
		Family: "fam-1",
	}))
	require.Equal(t, StatusApplied, out.Status)
	assert.Empty(t, proj.items[proj.key("fam-1", ev.Sku)].CategoryName)

	out = h(context.Background(), envelopeOf(t, events.KindCategoryDeleted, "fam-1", events.CategoryEvent{
		Family: "fam-1",
	}))
	require.Equal(t, StatusRejected, out.Status)
}

func TestItemSeededHandler_SeedsOnce(t *testing.T) {
	proj := newFakeProjection()
	h := ItemSeededHandler(proj)

	seed := events.ItemSeedEvent{
		Family:  "fam-1",
		OwnerID: uuid.NewString(),
		Items:   []events.ItemEvent{itemEvent("fam-1"), itemEvent("fam-1")},
	}
	env := envelopeOf(t, events.KindItemSeeded, "fam-1", seed)

	out := h(context.Background(), env)
	require.Equal(t, StatusApplied, out.Status)
	require.Len(t, proj.items, 2)

	// Redelivered seed against a populated copy must not duplicate.
	out = h(context.Background(), env)
	require.Equal(t, StatusNothingToApply, out.Status)
	assert.Len(t, proj.items, 2)

	// Another family is unaffected and still seedable.
	other := events.ItemSeedEvent{
		Family:  "fam-2",
		OwnerID: uuid.NewString(),
		Items:   []events.ItemEvent{itemEvent("fam-2")},
	}
	out = h(context.Background(), envelopeOf(t, events.KindItemSeeded, "fam-2", other))
	require.Equal(t, StatusApplied, out.Status)
	assert.Len(t, proj.items, 3)
}

func TestRegistry_DispatchUnknownKind(t *testing.T) {
	reg := NewRegistry(logger.New(logger.DevelopmentMode))
	out := reg.Dispatch(context.Background(), events.Envelope{Kind: "catalog.item.archived"})
	assert.Equal(t, StatusNothingToApply, out.Status)
}

func TestRegistry_BusHandlerOutcomeMapping(t *testing.T) {
	reg := NewRegistry(logger.New(logger.DevelopmentMode))
	proj := newFakeProjection()
	RegisterCategoryHandlers(reg, proj)
	RegisterItemHandlers(reg, proj)

	dead := &fakeDeadLetters{}
	h := reg.BusHandler(dead)

	// Applied acks.
	err := h(context.Background(), envelopeOf(t, events.KindItemCreated, "fam-1", itemEvent("fam-1")))
	assert.NoError(t, err)

	// Rejected acks but leaves an audit trail.
	err = h(context.Background(), envelopeOf(t, events.KindItemCreated, "fam-1", events.ItemEvent{Family: "fam-1"}))
	assert.NoError(t, err)
	require.Len(t, dead.letters, 1)
	assert.Equal(t, outbox.ReasonRejected, dead.letters[0].Reason)
	assert.Equal(t, string(events.KindItemCreated), dead.letters[0].Kind)

	// Failed propagates so the broker redelivers.
	proj.fail = errors.New("db down")
	err = h(context.Background(), envelopeOf(t, events.KindItemCreated, "fam-1", itemEvent("fam-1")))
	assert.Error(t, err)
	assert.Len(t, dead.letters, 1)
}

func TestDeadLetterSink_RecordsExhaustedDeliveries(t *testing.T) {
	dead := &fakeDeadLetters{}
	sink := DeadLetterSink(dead, logger.New(logger.DevelopmentMode))

	env := envelopeOf(t, events.KindItemUpdated, "fam-1", itemEvent("fam-1"))
	sink(context.Background(), env, 5)

	require.Len(t, dead.letters, 1)
	assert.Equal(t, outbox.ReasonMaxDeliveries, dead.letters[0].Reason)
	assert.Equal(t, 5, dead.letters[0].Attempts)
}
