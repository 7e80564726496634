package inventory

import (
	"fmt"
	"sort"
	"time"

	"clinic-inventory-api-server/internal/models"
)

// Kind is the closed set of inventory kinds. All kind-specific behavior
// (collection names, lot match keys, new-lot construction, historical element
// shapes) hangs off this type instead of string switches spread around.
type Kind int

const (
	Drug Kind = iota
	Vaccine
	Supply
)

// Kinds lists every kind, in a fixed order.
var Kinds = []Kind{Drug, Vaccine, Supply}

func (k Kind) String() string {
	switch k {
	case Drug:
		return "drug"
	case Vaccine:
		return "vaccine"
	case Supply:
		return "supply"
	}
	return "unknown"
}

// ParseKind maps a URL path segment ("drugs", "vaccines", "supplies") to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "drug", "drugs":
		return Drug, nil
	case "vaccine", "vaccines":
		return Vaccine, nil
	case "supply", "supplies":
		return Supply, nil
	}
	return 0, fmt.Errorf("unknown inventory kind %q", s)
}

// Collection is the MongoDB collection holding this kind's items.
func (k Kind) Collection() string {
	switch k {
	case Drug:
		return "drugs"
	case Vaccine:
		return "vaccines"
	default:
		return "supplies"
	}
}

// HistoryCollection is the MongoDB collection holding this kind's
// historical dispense records.
func (k Kind) HistoryCollection() string {
	switch k {
	case Drug:
		return "history_drugs"
	case Vaccine:
		return "history_vaccines"
	default:
		return "history_supplies"
	}
}

// Identity is the natural key of an item: name for drugs and supplies,
// name+brand for vaccines.
type Identity struct {
	Name  string
	Brand string
}

// Key is a stable string form of the identity, used for per-parent locks.
func (k Kind) Key(id Identity) string {
	if k == Vaccine {
		return k.String() + "/" + id.Name + "/" + id.Brand
	}
	return k.String() + "/" + id.Name
}

// IdentityOf extracts the natural key from an item of this kind.
func (k Kind) IdentityOf(item models.Item) Identity {
	if k == Vaccine {
		return Identity{Name: item.Name, Brand: item.Brand}
	}
	return Identity{Name: item.Name}
}

// MatchKey identifies one lot inside a parent. Drugs and vaccines match by
// lot code; supply lots carry no code and match by (locations, donated).
type MatchKey struct {
	LotCode   string
	Locations []string
	Donated   bool
}

// Matches reports whether lot is the lot identified by key under this kind.
func (k Kind) Matches(lot models.Lot, key MatchKey) bool {
	if k == Supply {
		return lot.Donated == key.Donated && sameLocations(lot.Locations, key.Locations)
	}
	return lot.LotCode == key.LotCode
}

func sameLocations(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// ValidateMatchKey rejects keys that cannot identify a lot of this kind.
func (k Kind) ValidateMatchKey(key MatchKey) error {
	if k == Supply {
		if len(key.Locations) == 0 {
			return validationFailure("supply lot requires at least one location")
		}
		return nil
	}
	if key.LotCode == "" {
		return validationFailure("%s lot requires a lot code", k)
	}
	return nil
}

// ValidateElement checks a historical element against this kind's required
// shape. Returns a SchemaViolation failure when a required field is missing.
func (k Kind) ValidateElement(e models.HistoricalElement) error {
	if e.Name == "" {
		return schemaFailure("%s historical element missing name", k)
	}
	if e.Quantity <= 0 {
		return schemaFailure("%s historical element for %q has non-positive quantity", k, e.Name)
	}
	switch k {
	case Drug:
		if e.LotCode == "" {
			return schemaFailure("drug historical element for %q missing lot code", e.Name)
		}
		if e.Unit == "" {
			return schemaFailure("drug historical element for %q missing unit", e.Name)
		}
	case Vaccine:
		if e.LotCode == "" {
			return schemaFailure("vaccine historical element for %q missing lot code", e.Name)
		}
		if e.Brand == "" {
			return schemaFailure("vaccine historical element for %q missing brand", e.Name)
		}
	case Supply:
		if len(e.Locations) == 0 {
			return schemaFailure("supply historical element for %q missing locations", e.Name)
		}
	}
	return nil
}

// LotAttributes carries the non-quantity fields of a lot being added. They
// are only applied when the lot is created; adds to an existing lot never
// overwrite them.
type LotAttributes struct {
	LotCode   string
	Expire    *time.Time
	Location  string
	Locations []string
	Donated   bool
	DonatedBy string
	Note      string
}

// newLot builds a fresh lot of this kind with a newly generated id and
// printable reference.
func (k Kind) newLot(attrs LotAttributes, qty int, reference string) models.Lot {
	lot := models.Lot{
		LotID:     newLotID(),
		Quantity:  qty,
		Donated:   attrs.Donated,
		DonatedBy: attrs.DonatedBy,
		Note:      attrs.Note,
		QRCode:    reference,
	}
	switch k {
	case Drug:
		lot.LotCode = attrs.LotCode
		lot.Expire = attrs.Expire
		lot.Location = attrs.Location
	case Vaccine:
		lot.LotCode = attrs.LotCode
		lot.Expire = attrs.Expire
		lot.Locations = append([]string(nil), attrs.Locations...)
	case Supply:
		lot.Locations = append([]string(nil), attrs.Locations...)
	}
	return lot
}

// element builds the denormalized historical snapshot for a dispensed lot.
// The returned value copies everything it needs; it never aliases the lot.
func (k Kind) element(item models.Item, lot models.Lot, qty, dose int) models.HistoricalElement {
	e := models.HistoricalElement{
		Name:      item.Name,
		Quantity:  qty,
		Donated:   lot.Donated,
		DonatedBy: lot.DonatedBy,
	}
	if lot.Expire != nil {
		expire := *lot.Expire
		e.Expire = &expire
	}
	switch k {
	case Drug:
		e.LotCode = lot.LotCode
		e.Unit = item.Unit
	case Vaccine:
		e.LotCode = lot.LotCode
		e.Brand = item.Brand
		e.Dose = dose
	case Supply:
		e.SupplyType = item.SupplyType
		e.Locations = append([]string(nil), lot.Locations...)
	}
	return e
}
