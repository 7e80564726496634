package inventory

import "context"

// SetLotLabel stores the URL of an uploaded label photo on one lot. It runs
// under the parent's lock so it cannot interleave with a dispense and write
// back a stale lot list.
func (l *Ledger) SetLotLabel(ctx context.Context, kind Kind, itemID, lotID, url string) error {
	item, err := l.store.FindItemByID(ctx, kind, itemID)
	if err == ErrNotFound {
		return parentNotFound(kind, Identity{Name: itemID})
	}
	if err != nil {
		return persistenceFailure(err)
	}

	unlock := l.locks.lockAll([]string{kind.Key(kind.IdentityOf(*item))})
	defer unlock()

	// Re-read under the lock; the first read only resolved the identity.
	item, err = l.store.FindItemByID(ctx, kind, itemID)
	if err == ErrNotFound {
		return parentNotFound(kind, Identity{Name: itemID})
	}
	if err != nil {
		return persistenceFailure(err)
	}

	lots := copyLots(item.Lots)
	for i := range lots {
		if lots[i].LotID != lotID {
			continue
		}
		lots[i].LabelURL = url
		if err := l.store.ReplaceLots(ctx, kind, itemID, lots); err != nil {
			return persistenceFailure(err)
		}
		return nil
	}
	return &Failure{Kind: FailLotNotFound, Message: "lot " + lotID + " not found on " + item.Name}
}
