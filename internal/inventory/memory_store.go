package inventory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"clinic-inventory-api-server/internal/models"
)

// MemoryStore is a map-backed Store used by tests and local development.
// Reads and writes copy values both ways, matching the aliasing guarantees
// of the Mongo implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[Kind]map[string]models.Item
	records map[Kind][]models.HistoricalRecord
}

func NewMemoryStore() *MemoryStore {
	items := make(map[Kind]map[string]models.Item)
	records := make(map[Kind][]models.HistoricalRecord)
	for _, k := range Kinds {
		items[k] = make(map[string]models.Item)
		records[k] = nil
	}
	return &MemoryStore{items: items, records: records}
}

func copyItem(item models.Item) models.Item {
	out := item
	out.Types = append([]string(nil), item.Types...)
	out.Lots = copyLots(item.Lots)
	return out
}

func copyRecord(rec models.HistoricalRecord) models.HistoricalRecord {
	out := rec
	out.Elements = make([]models.HistoricalElement, len(rec.Elements))
	for i, e := range rec.Elements {
		out.Elements[i] = e
		out.Elements[i].Locations = append([]string(nil), e.Locations...)
		if e.Expire != nil {
			expire := *e.Expire
			out.Elements[i].Expire = &expire
		}
	}
	return out
}

func (s *MemoryStore) FindItem(ctx context.Context, kind Kind, id Identity) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items[kind] {
		if kind.IdentityOf(item) == id {
			cp := copyItem(item)
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindItemByID(ctx context.Context, kind Kind, id string) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := copyItem(item)
	return &cp, nil
}

func (s *MemoryStore) ListItems(ctx context.Context, kind Kind, nameFilter string) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Item{}
	for _, item := range s.items[kind] {
		if nameFilter != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(nameFilter)) {
			continue
		}
		out = append(out, copyItem(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) InsertItem(ctx context.Context, kind Kind, item *models.Item) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	s.items[kind][item.ID.Hex()] = copyItem(*item)
	return item.ID.Hex(), nil
}

func (s *MemoryStore) ReplaceLots(ctx context.Context, kind Kind, itemID string, lots []models.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[kind][itemID]
	if !ok {
		return ErrNotFound
	}
	item.Lots = copyLots(lots)
	item.UpdatedAt = time.Now()
	s.items[kind][itemID] = item
	return nil
}

func (s *MemoryStore) RemoveItem(ctx context.Context, kind Kind, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[kind][itemID]; !ok {
		return ErrNotFound
	}
	delete(s.items[kind], itemID)
	return nil
}

func (s *MemoryStore) AppendRecord(ctx context.Context, kind Kind, rec *models.HistoricalRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	s.records[kind] = append(s.records[kind], copyRecord(*rec))
	return rec.ID.Hex(), nil
}

func (s *MemoryStore) ListRecords(ctx context.Context, kind Kind, filter RecordFilter) ([]models.HistoricalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.HistoricalRecord{}
	for _, rec := range s.records[kind] {
		if filter.DispenseKind != "" && rec.DispenseKind != filter.DispenseKind {
			continue
		}
		if filter.From != nil && rec.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && rec.Timestamp.After(*filter.To) {
			continue
		}
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}
