package inventory

import (
	"fmt"

	"github.com/google/uuid"

	"clinic-inventory-api-server/internal/models"
)

func newLotID() string {
	return uuid.New().String()
}

// copyLots deep-copies a lot slice. Every mutation below works on a copy so
// the caller's pre-mutation snapshot is never aliased by the mutated value.
func copyLots(lots []models.Lot) []models.Lot {
	out := make([]models.Lot, len(lots))
	for i, lot := range lots {
		out[i] = lot
		out[i].Locations = append([]string(nil), lot.Locations...)
		if lot.Expire != nil {
			expire := *lot.Expire
			out[i].Expire = &expire
		}
	}
	return out
}

// addToLots increments the matching lot's quantity, or appends a new lot
// built from attrs when no lot matches. Non-quantity attributes of an
// existing lot are never overwritten on add. Returns a new slice.
func addToLots(k Kind, lots []models.Lot, key MatchKey, qty int, attrs LotAttributes, reference string) []models.Lot {
	out := copyLots(lots)
	for i := range out {
		if k.Matches(out[i], key) {
			out[i].Quantity += qty
			return out
		}
	}
	return append(out, k.newLot(attrs, qty, reference))
}

// dispenseFromLots decrements the matching lot by qty, removing it when the
// quantity is dispensed exactly. The second return value is a copy of the
// lot as it was before the mutation, for the historical snapshot. On
// failure the input is untouched and the caller must not persist.
func dispenseFromLots(k Kind, item models.Item, key MatchKey, qty int) ([]models.Lot, models.Lot, error) {
	out := copyLots(item.Lots)
	for i := range out {
		if !k.Matches(out[i], key) {
			continue
		}
		before := out[i]
		if qty > out[i].Quantity {
			return nil, models.Lot{}, insufficientQuantity(
				item.Name, lotLabel(k, out[i]), out[i].Quantity, item.Unit)
		}
		if qty == out[i].Quantity {
			// Zero and absent are the same state: drop the lot entirely.
			out = append(out[:i], out[i+1:]...)
			return out, before, nil
		}
		out[i].Quantity -= qty
		return out, before, nil
	}
	return nil, models.Lot{}, lotNotFound(k, item.Name, key)
}

func lotLabel(k Kind, lot models.Lot) string {
	if k == Supply {
		return fmt.Sprintf("%v", lot.Locations)
	}
	return fmt.Sprintf("%q", lot.LotCode)
}
