package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-inventory-api-server/internal/models"
)

func TestMemoryStoreReadsAreCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	item := &models.Item{
		Name: "Amoxicillin", Unit: "tabs",
		Lots: []models.Lot{{LotID: "id-1", LotCode: "A1", Quantity: 10}},
	}
	id, err := store.InsertItem(ctx, Drug, item)
	require.NoError(t, err)

	// Mutating a returned value must not leak into the stored one.
	got, err := store.FindItemByID(ctx, Drug, id)
	require.NoError(t, err)
	got.Lots[0].Quantity = 0
	got.Name = "changed"

	again, err := store.FindItemByID(ctx, Drug, id)
	require.NoError(t, err)
	assert.Equal(t, "Amoxicillin", again.Name)
	assert.Equal(t, 10, again.Lots[0].Quantity)
}

func TestMemoryStoreReplaceLots(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.InsertItem(ctx, Drug, &models.Item{
		Name: "Amoxicillin",
		Lots: []models.Lot{{LotID: "id-1", LotCode: "A1", Quantity: 10}},
	})
	require.NoError(t, err)

	err = store.ReplaceLots(ctx, Drug, id, []models.Lot{{LotID: "id-1", LotCode: "A1", Quantity: 3}})
	require.NoError(t, err)

	got, err := store.FindItemByID(ctx, Drug, id)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Lots[0].Quantity)

	err = store.ReplaceLots(ctx, Drug, "aaaaaaaaaaaaaaaaaaaaaaaa", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreFindItemByIdentity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.InsertItem(ctx, Vaccine, &models.Item{Name: "Influenza", Brand: "BrandA"})
	require.NoError(t, err)

	got, err := store.FindItem(ctx, Vaccine, Identity{Name: "Influenza", Brand: "BrandA"})
	require.NoError(t, err)
	assert.Equal(t, "BrandA", got.Brand)

	_, err = store.FindItem(ctx, Vaccine, Identity{Name: "Influenza", Brand: "BrandB"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListItemsFiltersAndSorts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, name := range []string{"Ibuprofen", "Amoxicillin", "Aspirin"} {
		_, err := store.InsertItem(ctx, Drug, &models.Item{Name: name})
		require.NoError(t, err)
	}

	all, err := store.ListItems(ctx, Drug, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Amoxicillin", all[0].Name)
	assert.Equal(t, "Aspirin", all[1].Name)

	filtered, err := store.ListItems(ctx, Drug, "asp")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Aspirin", filtered[0].Name)

	// Never nil, even when empty.
	empty, err := store.ListItems(ctx, Vaccine, "")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMemoryStoreRecordFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	early := mustDate(t, "2026-01-10")
	late := mustDate(t, "2026-03-10")
	for _, rec := range []models.HistoricalRecord{
		{DispenseKind: models.DispensePatientUse, Timestamp: early},
		{DispenseKind: models.DispenseExpired, Timestamp: late},
	} {
		rec := rec
		_, err := store.AppendRecord(ctx, Drug, &rec)
		require.NoError(t, err)
	}

	byKind, err := store.ListRecords(ctx, Drug, RecordFilter{DispenseKind: models.DispenseExpired})
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	assert.Equal(t, models.DispenseExpired, byKind[0].DispenseKind)

	from := mustDate(t, "2026-02-01")
	byFrom, err := store.ListRecords(ctx, Drug, RecordFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, byFrom, 1)
	assert.Equal(t, late, byFrom[0].Timestamp)

	to := mustDate(t, "2026-02-01")
	byTo, err := store.ListRecords(ctx, Drug, RecordFilter{To: &to})
	require.NoError(t, err)
	require.Len(t, byTo, 1)
	assert.Equal(t, early, byTo[0].Timestamp)

	// Newest first.
	all, err := store.ListRecords(ctx, Drug, RecordFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, late, all[0].Timestamp)
}
