package inventory

import (
	"context"
	"time"

	"clinic-inventory-api-server/internal/models"
)

// ImportItem merges one bulk-imported item into the store. A missing parent
// is inserted whole; an existing parent has each imported lot merged in
// (increment on match, append otherwise). Imported lot ids and printable
// references are preserved when present and synthesized when absent, so an
// export/import round trip reproduces the data exactly.
func (l *Ledger) ImportItem(ctx context.Context, kind Kind, item models.Item) (*models.Item, error) {
	if item.Name == "" {
		return nil, validationFailure("name is required")
	}
	if kind == Vaccine && item.Brand == "" {
		return nil, validationFailure("vaccine brand is required")
	}
	for i := range item.Lots {
		if item.Lots[i].Quantity <= 0 {
			return nil, validationFailure("lot %d of %q: quantity must be positive", i+1, item.Name)
		}
		key := MatchKey{
			LotCode:   item.Lots[i].LotCode,
			Locations: item.Lots[i].Locations,
			Donated:   item.Lots[i].Donated,
		}
		if err := kind.ValidateMatchKey(key); err != nil {
			return nil, validationFailure("lot %d of %q: %s", i+1, item.Name, err.Error())
		}
		if item.Lots[i].LotID == "" {
			item.Lots[i].LotID = newLotID()
		}
		if item.Lots[i].QRCode == "" {
			ref, err := l.refs.LotReference(ctx, kind.String(), item.Name)
			if err != nil {
				return nil, persistenceFailure(err)
			}
			item.Lots[i].QRCode = ref
		}
	}

	identity := kind.IdentityOf(item)
	unlock := l.locks.lockAll([]string{kind.Key(identity)})
	defer unlock()

	existing, err := l.store.FindItem(ctx, kind, identity)
	if err == ErrNotFound {
		if kind == Drug && item.Unit == "" {
			return nil, validationFailure("drug unit is required")
		}
		now := time.Now()
		item.CreatedAt = now
		item.UpdatedAt = now
		if _, err := l.store.InsertItem(ctx, kind, &item); err != nil {
			return nil, persistenceFailure(err)
		}
		return &item, nil
	}
	if err != nil {
		return nil, persistenceFailure(err)
	}

	lots := existing.Lots
	for _, lot := range item.Lots {
		key := MatchKey{LotCode: lot.LotCode, Locations: lot.Locations, Donated: lot.Donated}
		if _, found := FindLot(kind, lots, key); found {
			lots = addToLots(kind, lots, key, lot.Quantity, LotAttributes{}, "")
			continue
		}
		lots = append(copyLots(lots), lot)
	}
	if err := l.store.ReplaceLots(ctx, kind, existing.ID.Hex(), lots); err != nil {
		return nil, persistenceFailure(err)
	}
	existing.Lots = lots
	return existing, nil
}
