package inventory

import (
	"context"
	"time"

	"clinic-inventory-api-server/internal/models"
)

// Store is the persistence contract the ledger runs against. Reads return
// independent copies; ReplaceLots overwrites one parent's entire lot list
// atomically with respect to that parent only. There is no cross-parent
// atomicity, which is why the ledger keeps pre-mutation snapshots.
type Store interface {
	FindItem(ctx context.Context, kind Kind, id Identity) (*models.Item, error)
	FindItemByID(ctx context.Context, kind Kind, id string) (*models.Item, error)
	ListItems(ctx context.Context, kind Kind, nameFilter string) ([]models.Item, error)
	InsertItem(ctx context.Context, kind Kind, item *models.Item) (string, error)
	ReplaceLots(ctx context.Context, kind Kind, itemID string, lots []models.Lot) error
	RemoveItem(ctx context.Context, kind Kind, itemID string) error

	AppendRecord(ctx context.Context, kind Kind, rec *models.HistoricalRecord) (string, error)
	ListRecords(ctx context.Context, kind Kind, filter RecordFilter) ([]models.HistoricalRecord, error)
}

// RecordFilter narrows historical record queries.
type RecordFilter struct {
	DispenseKind string
	From         *time.Time
	To           *time.Time
}
