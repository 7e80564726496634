package inventory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"clinic-inventory-api-server/internal/models"
)

// ReferenceGenerator produces the opaque printable reference stored on a lot
// when it is first created. Implementations live outside the core (see
// internal/labels); the ledger only consumes the string.
type ReferenceGenerator interface {
	LotReference(ctx context.Context, kind, itemName string) (string, error)
}

// Ledger orchestrates stock adds and dispenses against the store. Every
// dispense either commits fully (quantities persisted and one historical
// record appended) or leaves quantities exactly as they were, restoring
// pre-mutation snapshots when a late persistence step fails.
//
// A per-parent mutex is held from resolve through recording, so two
// concurrent dispenses of the same item cannot both pass the quantity check
// against a stale read.
type Ledger struct {
	store Store
	refs  ReferenceGenerator
	locks *keyMutex
}

func NewLedger(store Store, refs ReferenceGenerator) *Ledger {
	return &Ledger{store: store, refs: refs, locks: newKeyMutex()}
}

// AddRequest adds quantity to one lot of one item, creating the item and/or
// the lot when absent.
type AddRequest struct {
	Name        string
	Brand       string // vaccine identity
	Types       []string
	Unit        string // drug
	SupplyType  string // supply
	MinQuantity int
	Quantity    int
	Lot         LotAttributes
}

// DispenseLine names one lot of one item and a quantity to dispense.
type DispenseLine struct {
	Name     string
	Brand    string // vaccine identity
	Quantity int
	Dose     int // vaccine dose number, recorded on the historical element
	Key      MatchKey
}

// DispenseRequest is a whole (possibly multi-line) dispense operation.
type DispenseRequest struct {
	DispenseKind string
	DispensedTo  string
	Site         string
	DispensedBy  string
	Timestamp    time.Time
	Note         string
	Lines        []DispenseLine
}

// Add runs the add flow: resolve (parent may not exist), mutate, persist.
// No historical record is written for adds. Only one parent is ever touched,
// so a persistence failure surfaces directly with nothing to compensate.
// Metadata (types, unit, brand, minimum) is only set when the parent is
// created; adds to an existing parent change nothing but its lot list.
func (l *Ledger) Add(ctx context.Context, kind Kind, req AddRequest) (*models.Item, error) {
	if err := l.validateAdd(kind, req); err != nil {
		return nil, err
	}
	identity := Identity{Name: req.Name, Brand: req.Brand}
	key := addMatchKey(kind, req.Lot)

	unlock := l.locks.lockAll([]string{kind.Key(identity)})
	defer unlock()

	item, err := l.store.FindItem(ctx, kind, identity)
	if err == ErrNotFound {
		return l.insertNewItem(ctx, kind, req)
	}
	if err != nil {
		return nil, persistenceFailure(err)
	}

	lots := item.Lots
	if _, found := FindLot(kind, lots, key); found {
		lots = addToLots(kind, lots, key, req.Quantity, req.Lot, "")
	} else {
		ref, err := l.refs.LotReference(ctx, kind.String(), item.Name)
		if err != nil {
			return nil, persistenceFailure(err)
		}
		lots = addToLots(kind, lots, key, req.Quantity, req.Lot, ref)
	}

	if err := l.store.ReplaceLots(ctx, kind, item.ID.Hex(), lots); err != nil {
		return nil, persistenceFailure(err)
	}
	item.Lots = lots
	return item, nil
}

func (l *Ledger) insertNewItem(ctx context.Context, kind Kind, req AddRequest) (*models.Item, error) {
	// Drug historical elements require a unit, so a drug without one could
	// never be dispensed. Existing parents already carry theirs.
	if kind == Drug && req.Unit == "" {
		return nil, validationFailure("drug unit is required")
	}
	ref, err := l.refs.LotReference(ctx, kind.String(), req.Name)
	if err != nil {
		return nil, persistenceFailure(err)
	}
	now := time.Now()
	item := &models.Item{
		Name:        req.Name,
		Types:       req.Types,
		MinQuantity: req.MinQuantity,
		Lots:        []models.Lot{kind.newLot(req.Lot, req.Quantity, ref)},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	switch kind {
	case Drug:
		item.Unit = req.Unit
	case Vaccine:
		item.Brand = req.Brand
	case Supply:
		item.SupplyType = req.SupplyType
	}
	if _, err := l.store.InsertItem(ctx, kind, item); err != nil {
		return nil, persistenceFailure(err)
	}
	return item, nil
}

// parentState tracks one distinct parent of a dispense request through the
// transaction: the immutable snapshot for compensation, the working copy the
// lines mutate, and whether its lots have been persisted yet.
type parentState struct {
	item      *models.Item
	snapshot  []models.Lot
	persisted bool
}

// Dispense runs the full transaction for a multi-line dispense and returns
// the appended historical record plus the post-commit state of every
// touched parent (callers use it for low-stock alerting).
func (l *Ledger) Dispense(ctx context.Context, kind Kind, req DispenseRequest) (*models.HistoricalRecord, []models.Item, error) {
	// Validating.
	req, err := l.validateDispense(kind, req)
	if err != nil {
		return nil, nil, err
	}

	keys := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		keys = append(keys, kind.Key(Identity{Name: line.Name, Brand: line.Brand}))
	}
	sort.Strings(keys)
	keys = dedup(keys)
	unlock := l.locks.lockAll(keys)
	defer unlock()

	// Resolving: load every distinct parent and snapshot its current lots
	// before any mutation. Parents are never auto-created on dispense.
	parents := make(map[string]*parentState)
	order := make([]string, 0, len(keys))
	for _, line := range req.Lines {
		identity := Identity{Name: line.Name, Brand: line.Brand}
		key := kind.Key(identity)
		if _, ok := parents[key]; ok {
			continue
		}
		item, err := l.store.FindItem(ctx, kind, identity)
		if err == ErrNotFound {
			return nil, nil, parentNotFound(kind, identity)
		}
		if err != nil {
			return nil, nil, persistenceFailure(err)
		}
		parents[key] = &parentState{item: item, snapshot: copyLots(item.Lots)}
		order = append(order, key)
	}

	// Mutating: lines apply in request order against the working copies, so
	// two lines hitting the same parent compose. Any failure here aborts the
	// whole request with zero persistence side effects.
	elements := make([]models.HistoricalElement, 0, len(req.Lines))
	for _, line := range req.Lines {
		key := kind.Key(Identity{Name: line.Name, Brand: line.Brand})
		ps := parents[key]
		lots, before, err := dispenseFromLots(kind, *ps.item, line.Key, line.Quantity)
		if err != nil {
			return nil, nil, err
		}
		ps.item.Lots = lots
		elements = append(elements, kind.element(*ps.item, before, line.Quantity, line.Dose))
	}

	// Persisting: one ReplaceLots per distinct touched parent.
	for _, key := range order {
		ps := parents[key]
		if err := l.store.ReplaceLots(ctx, kind, ps.item.ID.Hex(), ps.item.Lots); err != nil {
			return nil, nil, l.abort(ctx, kind, parents, order, persistenceFailure(err))
		}
		ps.persisted = true
	}

	// Recording: element schema violations after this point must compensate
	// exactly like storage errors, since quantities are already persisted.
	for _, e := range elements {
		if err := kind.ValidateElement(e); err != nil {
			failure, _ := FailureOf(err)
			return nil, nil, l.abort(ctx, kind, parents, order, failure)
		}
	}
	record := &models.HistoricalRecord{
		DispenseKind: req.DispenseKind,
		Timestamp:    req.Timestamp,
		DispensedBy:  req.DispensedBy,
		DispensedTo:  req.DispensedTo,
		Site:         req.Site,
		Note:         req.Note,
		Elements:     elements,
	}
	if _, err := l.store.AppendRecord(ctx, kind, record); err != nil {
		return nil, nil, l.abort(ctx, kind, parents, order, persistenceFailure(err))
	}

	committed := make([]models.Item, 0, len(order))
	for _, key := range order {
		committed = append(committed, *parents[key].item)
	}
	return record, committed, nil
}

// abort reapplies the pre-mutation snapshot to every parent persisted so
// far, best-effort, then returns the original failure. A failed restore is
// logged and noted on the surfaced error rather than swallowed.
func (l *Ledger) abort(ctx context.Context, kind Kind, parents map[string]*parentState, order []string, cause *Failure) error {
	for _, key := range order {
		ps := parents[key]
		if !ps.persisted {
			continue
		}
		if err := l.store.ReplaceLots(ctx, kind, ps.item.ID.Hex(), ps.snapshot); err != nil {
			log.Printf("rollback failed for %s %q: %v", kind, ps.item.Name, err)
			cause = &Failure{
				Kind:      cause.Kind,
				Message:   fmt.Sprintf("%s (rollback failed for %q: %v)", cause.Message, ps.item.Name, err),
				Remaining: cause.Remaining,
				Unit:      cause.Unit,
			}
		}
	}
	return cause
}

func (l *Ledger) validateAdd(kind Kind, req AddRequest) error {
	if req.Name == "" {
		return validationFailure("name is required")
	}
	if kind == Vaccine && req.Brand == "" {
		return validationFailure("vaccine brand is required")
	}
	if req.Quantity <= 0 {
		return validationFailure("quantity must be positive")
	}
	return kind.ValidateMatchKey(addMatchKey(kind, req.Lot))
}

func (l *Ledger) validateDispense(kind Kind, req DispenseRequest) (DispenseRequest, error) {
	if !models.ValidDispenseKind(req.DispenseKind) {
		return req, validationFailure("unknown dispense kind %q", req.DispenseKind)
	}
	if req.DispenseKind == models.DispensePatientUse {
		if req.DispensedTo == "" {
			return req, validationFailure("destination is required for patient use")
		}
		if req.Site == "" {
			return req, validationFailure("site is required for patient use")
		}
	} else {
		// Non-patient dispenses carry the sentinel instead of being validated.
		req.DispensedTo = models.NonPatientDestination
		req.Site = models.NonPatientDestination
	}
	if req.DispensedBy == "" {
		return req, validationFailure("dispensing actor is required")
	}
	if len(req.Lines) == 0 {
		return req, validationFailure("at least one line is required")
	}
	for i, line := range req.Lines {
		if line.Name == "" {
			return req, validationFailure("line %d: name is required", i+1)
		}
		if kind == Vaccine && line.Brand == "" {
			return req, validationFailure("line %d: vaccine brand is required", i+1)
		}
		if line.Quantity <= 0 {
			return req, validationFailure("line %d: quantity must be positive", i+1)
		}
		if err := kind.ValidateMatchKey(line.Key); err != nil {
			return req, validationFailure("line %d: %s", i+1, err.Error())
		}
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	return req, nil
}

// FindLot is the lot matcher: it resolves a match key to a lot inside a
// parent's lot list. Match keys are unique within a parent; the ledger is
// the only writer and checks under the parent's lock.
func FindLot(kind Kind, lots []models.Lot, key MatchKey) (models.Lot, bool) {
	for _, lot := range lots {
		if kind.Matches(lot, key) {
			return lot, true
		}
	}
	return models.Lot{}, false
}

func addMatchKey(kind Kind, attrs LotAttributes) MatchKey {
	if kind == Supply {
		return MatchKey{Locations: attrs.Locations, Donated: attrs.Donated}
	}
	return MatchKey{LotCode: attrs.LotCode}
}

func dedup(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
