package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Dispense kinds. Everything except patient use is a non-patient dispense:
// destination and site are forced to "N/A" instead of being validated.
const (
	DispensePatientUse   = "patientUse"
	DispenseBroken       = "broken"
	DispenseLost         = "lost"
	DispenseContaminated = "contaminated"
	DispenseExpired      = "expired"
	DispenseInventory    = "inventory"
)

// NonPatientDestination is the sentinel destination/site for non-patient dispenses.
const NonPatientDestination = "N/A"

// ValidDispenseKind reports whether s is one of the fixed dispense kinds.
func ValidDispenseKind(s string) bool {
	switch s {
	case DispensePatientUse, DispenseBroken, DispenseLost,
		DispenseContaminated, DispenseExpired, DispenseInventory:
		return true
	}
	return false
}

// HistoricalRecord is the append-only log entry written for every successful
// dispense. It is never updated or deleted through the API.
type HistoricalRecord struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	DispenseKind string              `bson:"dispenseKind" json:"dispenseKind"`
	Timestamp    time.Time           `bson:"timestamp" json:"timestamp"`
	DispensedBy  string              `bson:"dispensedBy" json:"dispensedBy"`
	DispensedTo  string              `bson:"dispensedTo" json:"dispensedTo"` // patient id, or "N/A"
	Site         string              `bson:"site" json:"site"`
	Note         string              `bson:"note,omitempty" json:"note,omitempty"`
	Elements     []HistoricalElement `bson:"elements" json:"elements"`
}

// HistoricalElement is a denormalized snapshot of one dispensed lot line,
// captured at dispense time. It must not alias the Lot it was derived from:
// the lot may be decremented or removed in the same transaction.
type HistoricalElement struct {
	Name       string     `bson:"name" json:"name"`
	Brand      string     `bson:"brand,omitempty" json:"brand,omitempty"` // vaccine
	LotCode    string     `bson:"lotCode,omitempty" json:"lotCode,omitempty"`
	Expire     *time.Time `bson:"expire,omitempty" json:"expire,omitempty"`
	Quantity   int        `bson:"quantity" json:"quantity"`
	Unit       string     `bson:"unit,omitempty" json:"unit,omitempty"` // drug
	Dose       int        `bson:"dose,omitempty" json:"dose,omitempty"` // vaccine dose number
	SupplyType string     `bson:"supplyType,omitempty" json:"supplyType,omitempty"`
	Locations  []string   `bson:"locations,omitempty" json:"locations,omitempty"` // supply
	Donated    bool       `bson:"donated" json:"donated"`
	DonatedBy  string     `bson:"donatedBy,omitempty" json:"donatedBy,omitempty"`
}
