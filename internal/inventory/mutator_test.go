package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-inventory-api-server/internal/models"
)

func drugItem(name, unit string, lots ...models.Lot) models.Item {
	return models.Item{Name: name, Unit: unit, Lots: lots}
}

func TestAddToLotsIncrementsExisting(t *testing.T) {
	lots := []models.Lot{{LotID: "id-1", LotCode: "A1", Quantity: 10, Note: "first"}}
	key := MatchKey{LotCode: "A1"}

	out := addToLots(Drug, lots, key, 5, LotAttributes{LotCode: "A1", Note: "ignored"}, "")

	require.Len(t, out, 1)
	assert.Equal(t, 15, out[0].Quantity)
	// Non-quantity attributes of an existing lot are never overwritten.
	assert.Equal(t, "first", out[0].Note)
	assert.Equal(t, "id-1", out[0].LotID)
	// The input slice is untouched.
	assert.Equal(t, 10, lots[0].Quantity)
}

func TestAddToLotsAppendsNewLot(t *testing.T) {
	lots := []models.Lot{{LotID: "id-1", LotCode: "A1", Quantity: 10}}

	out := addToLots(Drug, lots, MatchKey{LotCode: "B2"},
		3, LotAttributes{LotCode: "B2", Location: "Cabinet1"}, "QR-x")

	require.Len(t, out, 2)
	assert.Equal(t, "B2", out[1].LotCode)
	assert.Equal(t, 3, out[1].Quantity)
	assert.Equal(t, "Cabinet1", out[1].Location)
	assert.Equal(t, "QR-x", out[1].QRCode)
	assert.NotEmpty(t, out[1].LotID)
}

func TestDispenseNeverGoesNegative(t *testing.T) {
	item := drugItem("Amoxicillin", "tabs", models.Lot{LotID: "id-1", LotCode: "A1", Quantity: 10})

	_, _, err := dispenseFromLots(Drug, item, MatchKey{LotCode: "A1"}, 11)

	failure, ok := FailureOf(err)
	require.True(t, ok)
	assert.Equal(t, FailInsufficient, failure.Kind)
	assert.Equal(t, 10, failure.Remaining)
	assert.Equal(t, "tabs", failure.Unit)
	assert.Contains(t, failure.Message, "10")
	assert.Contains(t, failure.Message, "tabs")
	// The lot is unchanged on failure.
	assert.Equal(t, 10, item.Lots[0].Quantity)
}

func TestDispenseExactQuantityRemovesLot(t *testing.T) {
	item := drugItem("Amoxicillin", "tabs", models.Lot{LotID: "id-1", LotCode: "A1", Quantity: 10})

	out, before, err := dispenseFromLots(Drug, item, MatchKey{LotCode: "A1"}, 10)

	require.NoError(t, err)
	// Zero and absent are the same state.
	assert.Empty(t, out)
	assert.Equal(t, 10, before.Quantity)
	assert.Equal(t, "A1", before.LotCode)
}

func TestDispensePartialDecrementsInPlace(t *testing.T) {
	item := drugItem("Amoxicillin", "tabs", models.Lot{LotID: "id-1", LotCode: "A1", Quantity: 10})

	out, before, err := dispenseFromLots(Drug, item, MatchKey{LotCode: "A1"}, 4)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 6, out[0].Quantity)
	assert.Equal(t, "id-1", out[0].LotID)
	// The snapshot returned for the historical element is pre-mutation.
	assert.Equal(t, 10, before.Quantity)
}

func TestDispenseUnknownLot(t *testing.T) {
	item := drugItem("Amoxicillin", "tabs", models.Lot{LotID: "id-1", LotCode: "A1", Quantity: 10})

	_, _, err := dispenseFromLots(Drug, item, MatchKey{LotCode: "Z9"}, 1)

	failure, ok := FailureOf(err)
	require.True(t, ok)
	assert.Equal(t, FailLotNotFound, failure.Kind)
}

func TestSupplyLotsMatchByLocationAndDonated(t *testing.T) {
	lots := []models.Lot{
		{LotID: "id-1", Locations: []string{"Cabinet1"}, Donated: false, Quantity: 50},
		{LotID: "id-2", Locations: []string{"Cabinet1"}, Donated: true, Quantity: 5},
	}

	lot, found := FindLot(Supply, lots, MatchKey{Locations: []string{"Cabinet1"}, Donated: true})
	require.True(t, found)
	assert.Equal(t, "id-2", lot.LotID)

	_, found = FindLot(Supply, lots, MatchKey{Locations: []string{"Cabinet2"}, Donated: false})
	assert.False(t, found)
}
