package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Item is one inventory record (drug, vaccine or supply). Each kind lives in
// its own collection, so only the fields that apply to that kind are set.
// Identity: drugs and supplies are unique by name, vaccines by name+brand.
type Item struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Brand       string             `bson:"brand,omitempty" json:"brand,omitempty"`             // vaccine only
	Types       []string           `bson:"types,omitempty" json:"types,omitempty"`             // classification tags
	Unit        string             `bson:"unit,omitempty" json:"unit,omitempty"`               // drug only, e.g. "tabs"
	SupplyType  string             `bson:"supplyType,omitempty" json:"supplyType,omitempty"`   // supply only
	MinQuantity int                `bson:"minQuantity,omitempty" json:"minQuantity,omitempty"` // low-stock threshold
	Lots        []Lot              `bson:"lots" json:"lots"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Lot is the quantity-bearing leaf inside an Item. LotID and QRCode are
// generated once when the lot is first created and never change; a lot whose
// quantity reaches zero is removed from the parent, never stored as zero.
type Lot struct {
	LotID     string     `bson:"lotId" json:"lotId"`
	LotCode   string     `bson:"lotCode,omitempty" json:"lotCode,omitempty"` // drug/vaccine; supplies have none
	Expire    *time.Time `bson:"expire,omitempty" json:"expire,omitempty"`
	Quantity  int        `bson:"quantity" json:"quantity"`
	Location  string     `bson:"location,omitempty" json:"location,omitempty"`   // drug: single location
	Locations []string   `bson:"locations,omitempty" json:"locations,omitempty"` // vaccine/supply: multi
	Donated   bool       `bson:"donated" json:"donated"`
	DonatedBy string     `bson:"donatedBy,omitempty" json:"donatedBy,omitempty"`
	Note      string     `bson:"note,omitempty" json:"note,omitempty"`
	QRCode    string     `bson:"qrCode,omitempty" json:"qrCode,omitempty"`     // printable reference, immutable
	LabelURL  string     `bson:"labelUrl,omitempty" json:"labelUrl,omitempty"` // uploaded label photo (S3)
}

// TotalQuantity sums the quantities of all lots of the item.
func (i Item) TotalQuantity() int {
	total := 0
	for _, lot := range i.Lots {
		total += lot.Quantity
	}
	return total
}
