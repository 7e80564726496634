package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-inventory-api-server/internal/models"
)

// staticRefs generates predictable printable references without touching
// any external service.
type staticRefs struct{ n int }

func (s *staticRefs) LotReference(ctx context.Context, kind, itemName string) (string, error) {
	s.n++
	return fmt.Sprintf("QR-%d", s.n), nil
}

// failingStore wraps a Store and injects errors into selected persistence
// calls, to exercise the compensating rollback.
type failingStore struct {
	Store
	failAppend       bool
	failReplaceAfter int // fail on the Nth ReplaceLots call, 0 = never
	replaceCalls     int
}

var errStorage = errors.New("storage unavailable")

func (f *failingStore) ReplaceLots(ctx context.Context, kind Kind, itemID string, lots []models.Lot) error {
	f.replaceCalls++
	if f.failReplaceAfter > 0 && f.replaceCalls == f.failReplaceAfter {
		return errStorage
	}
	return f.Store.ReplaceLots(ctx, kind, itemID, lots)
}

func (f *failingStore) AppendRecord(ctx context.Context, kind Kind, rec *models.HistoricalRecord) (string, error) {
	if f.failAppend {
		return "", errStorage
	}
	return f.Store.AppendRecord(ctx, kind, rec)
}

func newTestLedger() (*Ledger, *MemoryStore) {
	store := NewMemoryStore()
	return NewLedger(store, &staticRefs{}), store
}

func addDrug(t *testing.T, ledger *Ledger, name, lotCode string, qty int) *models.Item {
	t.Helper()
	item, err := ledger.Add(context.Background(), Drug, AddRequest{
		Name:     name,
		Unit:     "tabs",
		Quantity: qty,
		Lot:      LotAttributes{LotCode: lotCode, Location: "Cabinet1"},
	})
	require.NoError(t, err)
	return item
}

func patientDispense(lines ...DispenseLine) DispenseRequest {
	return DispenseRequest{
		DispenseKind: models.DispensePatientUse,
		DispensedTo:  "patient-1",
		Site:         "Main Clinic",
		DispensedBy:  "provider@example.com",
		Lines:        lines,
	}
}

func TestDispenseExactQuantityScenario(t *testing.T) {
	ledger, store := newTestLedger()
	ctx := context.Background()
	addDrug(t, ledger, "Amoxicillin", "A1", 10)

	record, committed, err := ledger.Dispense(ctx, Drug, patientDispense(
		DispenseLine{Name: "Amoxicillin", Quantity: 10, Key: MatchKey{LotCode: "A1"}}))
	require.NoError(t, err)

	// The lot list is now empty and one historical record was appended.
	require.Len(t, committed, 1)
	assert.Empty(t, committed[0].Lots)
	require.Len(t, record.Elements, 1)
	assert.Equal(t, "Amoxicillin", record.Elements[0].Name)
	assert.Equal(t, "A1", record.Elements[0].LotCode)
	assert.Equal(t, 10, record.Elements[0].Quantity)

	records, err := store.ListRecords(ctx, Drug, RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// A second dispense against the removed lot fails with LotNotFound.
	_, _, err = ledger.Dispense(ctx, Drug, patientDispense(
		DispenseLine{Name: "Amoxicillin", Quantity: 1, Key: MatchKey{LotCode: "A1"}}))
	failure, ok := FailureOf(err)
	require.True(t, ok)
	assert.Equal(t, FailLotNotFound, failure.Kind)
}

func TestReAddAfterDepletionCreatesNewLot(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	item := addDrug(t, ledger, "Amoxicillin", "A1", 10)
	originalLotID := item.Lots[0].LotID

	_, _, err := ledger.Dispense(ctx, Drug, patientDispense(
		DispenseLine{Name: "Amoxicillin", Quantity: 10, Key: MatchKey{LotCode: "A1"}}))
	require.NoError(t, err)

	item = addDrug(t, ledger, "Amoxicillin", "A1", 5)
	require.Len(t, item.Lots, 1)
	assert.NotEqual(t, originalLotID, item.Lots[0].LotID, "depleted lot ids are never reused")
}

func TestSupplyAddCreatesThenIncrements(t *testing.T) {
	ledger, store := newTestLedger()
	ctx := context.Background()

	add := AddRequest{
		Name:     "Gloves",
		Quantity: 50,
		Lot:      LotAttributes{Locations: []string{"Cabinet1"}, Donated: false},
	}
	item, err := ledger.Add(ctx, Supply, add)
	require.NoError(t, err)
	require.Len(t, item.Lots, 1)
	assert.Equal(t, 50, item.Lots[0].Quantity)

	add.Quantity = 20
	item, err = ledger.Add(ctx, Supply, add)
	require.NoError(t, err)
	require.Len(t, item.Lots, 1, "matching add must not create a second lot")
	assert.Equal(t, 70, item.Lots[0].Quantity)

	stored, err := store.FindItem(ctx, Supply, Identity{Name: "Gloves"})
	require.NoError(t, err)
	assert.Equal(t, 70, stored.TotalQuantity())
}

func TestAddToExistingParentKeepsMetadata(t *testing.T) {
	ledger, store := newTestLedger()
	ctx := context.Background()
	_, err := ledger.Add(ctx, Drug, AddRequest{
		Name: "Ibuprofen", Unit: "tabs", MinQuantity: 20, Quantity: 10,
		Lot: LotAttributes{LotCode: "B1"},
	})
	require.NoError(t, err)

	// A later add with different metadata only touches the lot list.
	_, err = ledger.Add(ctx, Drug, AddRequest{
		Name: "Ibuprofen", Unit: "mL", MinQuantity: 99, Quantity: 5,
		Lot: LotAttributes{LotCode: "B2"},
	})
	require.NoError(t, err)

	stored, err := store.FindItem(ctx, Drug, Identity{Name: "Ibuprofen"})
	require.NoError(t, err)
	assert.Equal(t, "tabs", stored.Unit)
	assert.Equal(t, 20, stored.MinQuantity)
	assert.Len(t, stored.Lots, 2)
}

func TestMultiLineDispenseComposesOnSameParent(t *testing.T) {
	ledger, store := newTestLedger()
	ctx := context.Background()
	addDrug(t, ledger, "Amoxicillin", "A1", 10)
	_, err := ledger.Add(ctx, Drug, AddRequest{
		Name: "Amoxicillin", Unit: "tabs", Quantity: 8,
		Lot: LotAttributes{LotCode: "A2", Location: "Cabinet1"},
	})
	require.NoError(t, err)

	_, committed, err := ledger.Dispense(ctx, Drug, patientDispense(
		DispenseLine{Name: "Amoxicillin", Quantity: 4, Key: MatchKey{LotCode: "A1"}},
		DispenseLine{Name: "Amoxicillin", Quantity: 8, Key: MatchKey{LotCode: "A2"}}))
	require.NoError(t, err)
	require.Len(t, committed, 1)
	assert.Equal(t, 6, committed[0].TotalQuantity())

	stored, err := store.FindItem(ctx, Drug, Identity{Name: "Amoxicillin"})
	require.NoError(t, err)
	require.Len(t, stored.Lots, 1, "depleted A2 lot is removed")
	assert.Equal(t, "A1", stored.Lots[0].LotCode)
	assert.Equal(t, 6, stored.Lots[0].Quantity)
}

func TestMultiLineDispenseIsAtomic(t *testing.T) {
	ledger, store := newTestLedger()
	ctx := context.Background()
	addDrug(t, ledger, "Amoxicillin", "A1", 10)
	addDrug(t, ledger, "Ibuprofen", "B1", 2)

	_, _, err := ledger.Dispense(ctx, Drug, patientDispense(
		DispenseLine{Name: "Amoxicillin", Quantity: 5, Key: MatchKey{LotCode: "A1"}},
		DispenseLine{Name: "Ibuprofen", Quantity: 3, Key: MatchKey{LotCode: "B1"}}))

	failure, ok := FailureOf(err)
	require.True(t, ok)
	assert.Equal(t, FailInsufficient, failure.Kind)

	// No persisted parent reflects the first line's mutation.
	amoxicillin, err := store.FindItem(ctx, Drug, Identity{Name: "Amoxicillin"})
	require.NoError(t, err)
	assert.Equal(t, 10, amoxicillin.TotalQuantity())
	records, err := store.ListRecords(ctx, Drug, RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRollbackOnHistoricalFailure(t *testing.T) {
	memory := NewMemoryStore()
	failing := &failingStore{Store: memory, failAppend: true}
	ledger := NewLedger(failing, &staticRefs{})
	ctx := context.Background()

	_, err := ledger.Add(ctx, Drug, AddRequest{
		Name: "Amoxicillin", Unit: "tabs", Quantity: 10,
		Lot: LotAttributes{LotCode: "A1", Location: "Cabinet1"},
	})
	require.NoError(t, err)

	_, _, err = ledger.Dispense(ctx, Drug, patientDispense(
		DispenseLine{Name: "Amoxicillin", Quantity: 4, Key: MatchKey{LotCode: "A1"}}))

	failure, ok := FailureOf(err)
	require.True(t, ok)
	assert.Equal(t, FailPersistence, failure.Kind)

	// Quantities were restored to their pre-dispense values exactly.
	stored, err := memory.FindItem(ctx, Drug, Identity{Name: "Amoxicillin"})
	require.NoError(t, err)
	require.Len(t, stored.Lots, 1)
	assert.Equal(t, 10, stored.Lots[0].Quantity)
	records, err := memory.ListRecords(ctx, Drug, RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNewDrugRequiresUnit(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	_, err := ledger.Add(ctx, Drug, AddRequest{
		Name: "Amoxicillin", Quantity: 10,
		Lot: LotAttributes{LotCode: "A1"},
	})
	failure, ok := FailureOf(err)
	require.True(t, ok)
	assert.Equal(t, FailValidation, failure.Kind)

	// Adds to an existing drug do not need to repeat the unit.
	addDrug(t, ledger, "Amoxicillin", "A1", 10)
	_, err = ledger.Add(ctx, Drug, AddRequest{
		Name: "Amoxicillin", Quantity: 5,
		Lot: LotAttributes{LotCode: "A2"},
	})
	require.NoError(t, err)
}

func TestRollbackOnInvalidHistoricalElement(t *testing.T) {
	store := NewMemoryStore()
	ledger := NewLedger(store, &staticRefs{})
	ctx := context.Background()

	// A unit-less drug can only exist from legacy data; its historical
	// element fails the schema check after quantities are already persisted,
	// which must compensate exactly like a storage error.
	_, err := store.InsertItem(ctx, Drug, &models.Item{
		Name: "Amoxicillin",
		Lots: []models.Lot{{LotID: "id-1", LotCode: "A1", Quantity: 10}},
	})
	require.NoError(t, err)

	_, _, err = ledger.Dispense(ctx, Drug, patientDispense(
		DispenseLine{Name: "Amoxicillin", Quantity: 4, Key: MatchKey{LotCode: "A1"}}))

	failure, ok := FailureOf(err)
	require.True(t, ok)
	assert.Equal(t, FailSchema, failure.Kind)

	stored, err := store.FindItem(ctx, Drug, Identity{Name: "Amoxicillin"})
	require.NoError(t, err)
	require.Len(t, stored.Lots, 1)
	assert.Equal(t, 10, stored.Lots[0].Quantity)
	records, err := store.ListRecords(ctx, Drug, RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRollbackOnSecondParentPersistFailure(t *testing.T) {
	memory := NewMemoryStore()
	ledger := NewLedger(memory, &staticRefs{})
	ctx := context.Background()
	_, err := ledger.Add(ctx, Drug, AddRequest{
		Name: "Amoxicillin", Unit: "tabs", Quantity: 10,
		Lot: LotAttributes{LotCode: "A1"},
	})
	require.NoError(t, err)
	_, err = ledger.Add(ctx, Drug, AddRequest{
		Name: "Ibuprofen", Unit: "tabs", Quantity: 10,
		Lot: LotAttributes{LotCode: "B1"},
	})
	require.NoError(t, err)

	// The two adds above each issue no ReplaceLots (inserts); the dispense
	// issues one per parent. Fail the second one.
	failing := &failingStore{Store: memory, failReplaceAfter: 2}
	ledger = NewLedger(failing, &staticRefs{})

	_, _, err = ledger.Dispense(ctx, Drug, patientDispense(
		DispenseLine{Name: "Amoxicillin", Quantity: 5, Key: MatchKey{LotCode: "A1"}},
		DispenseLine{Name: "Ibuprofen", Quantity: 5, Key: MatchKey{LotCode: "B1"}}))

	failure, ok := FailureOf(err)
	require.True(t, ok)
	assert.Equal(t, FailPersistence, failure.Kind)

	for _, name := range []string{"Amoxicillin", "Ibuprofen"} {
		stored, err := memory.FindItem(ctx, Drug, Identity{Name: name})
		require.NoError(t, err)
		assert.Equal(t, 10, stored.TotalQuantity(), "%s must be back at its pre-dispense quantity", name)
	}
}

func TestNonPatientDispenseForcesSentinel(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	addDrug(t, ledger, "Amoxicillin", "A1", 10)

	record, _, err := ledger.Dispense(ctx, Drug, DispenseRequest{
		DispenseKind: models.DispenseExpired,
		DispensedBy:  "provider@example.com",
		Lines: []DispenseLine{
			{Name: "Amoxicillin", Quantity: 2, Key: MatchKey{LotCode: "A1"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.NonPatientDestination, record.DispensedTo)
	assert.Equal(t, models.NonPatientDestination, record.Site)
}

func TestPatientDispenseRequiresDestinationAndSite(t *testing.T) {
	ledger, _ := newTestLedger()
	addDrug(t, ledger, "Amoxicillin", "A1", 10)

	req := patientDispense(DispenseLine{Name: "Amoxicillin", Quantity: 1, Key: MatchKey{LotCode: "A1"}})
	req.DispensedTo = ""
	_, _, err := ledger.Dispense(context.Background(), Drug, req)

	failure, ok := FailureOf(err)
	require.True(t, ok)
	assert.Equal(t, FailValidation, failure.Kind)
}

func TestDispenseUnknownParent(t *testing.T) {
	ledger, _ := newTestLedger()

	_, _, err := ledger.Dispense(context.Background(), Drug, patientDispense(
		DispenseLine{Name: "Nothing", Quantity: 1, Key: MatchKey{LotCode: "A1"}}))

	failure, ok := FailureOf(err)
	require.True(t, ok)
	assert.Equal(t, FailParentNotFound, failure.Kind)
}

func TestConcurrentDispensesNeverOverdraw(t *testing.T) {
	ledger, store := newTestLedger()
	ctx := context.Background()
	addDrug(t, ledger, "Amoxicillin", "A1", 10)

	// Two concurrent dispenses of 7 from a lot of 10: without the
	// per-parent lock both could pass the quantity check against a stale
	// read and overdraw. Exactly one must succeed.
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, results[i] = ledger.Dispense(ctx, Drug, patientDispense(
				DispenseLine{Name: "Amoxicillin", Quantity: 7, Key: MatchKey{LotCode: "A1"}}))
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range results {
		if err != nil {
			failure, ok := FailureOf(err)
			require.True(t, ok)
			assert.Equal(t, FailInsufficient, failure.Kind)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	stored, err := store.FindItem(ctx, Drug, Identity{Name: "Amoxicillin"})
	require.NoError(t, err)
	assert.Equal(t, 3, stored.TotalQuantity())
}

func TestVaccineIdentityIsNamePlusBrand(t *testing.T) {
	ledger, store := newTestLedger()
	ctx := context.Background()

	for _, brand := range []string{"BrandA", "BrandB"} {
		_, err := ledger.Add(ctx, Vaccine, AddRequest{
			Name: "Influenza", Brand: brand, Quantity: 10,
			Lot: LotAttributes{LotCode: "V1", Locations: []string{"Refrigerator"}},
		})
		require.NoError(t, err)
	}

	record, _, err := ledger.Dispense(ctx, Vaccine, patientDispense(
		DispenseLine{Name: "Influenza", Brand: "BrandA", Quantity: 1, Dose: 2, Key: MatchKey{LotCode: "V1"}}))
	require.NoError(t, err)
	require.Len(t, record.Elements, 1)
	assert.Equal(t, "BrandA", record.Elements[0].Brand)
	assert.Equal(t, 2, record.Elements[0].Dose)

	// The same-named vaccine under the other brand is untouched.
	other, err := store.FindItem(ctx, Vaccine, Identity{Name: "Influenza", Brand: "BrandB"})
	require.NoError(t, err)
	assert.Equal(t, 10, other.TotalQuantity())
}
