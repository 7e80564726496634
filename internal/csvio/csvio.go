// Package csvio encodes and decodes the bulk import/export format: one CSV
// row per (item, lot) pair, with kind-specific columns. Import groups rows
// sharing the same identity key back into one item with multiple lots;
// Export is its inverse.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"clinic-inventory-api-server/internal/inventory"
	"clinic-inventory-api-server/internal/models"
)

const dateLayout = "2006-01-02"

func header(kind inventory.Kind) []string {
	switch kind {
	case inventory.Drug:
		return []string{"name", "unit", "types", "minQuantity", "lotId", "lotCode",
			"expire", "location", "quantity", "donated", "donatedBy", "note", "qrCode"}
	case inventory.Vaccine:
		return []string{"name", "brand", "types", "minQuantity", "lotId", "lotCode",
			"expire", "locations", "quantity", "donated", "donatedBy", "note", "qrCode"}
	default:
		return []string{"name", "supplyType", "types", "minQuantity", "lotId",
			"locations", "quantity", "donated", "donatedBy", "note", "qrCode"}
	}
}

// Export flattens each item's lot list into one row per lot.
func Export(kind inventory.Kind, items []models.Item, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header(kind)); err != nil {
		return err
	}
	for _, item := range items {
		for _, lot := range item.Lots {
			if err := cw.Write(row(kind, item, lot)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(kind inventory.Kind, item models.Item, lot models.Lot) []string {
	expire := ""
	if lot.Expire != nil {
		expire = lot.Expire.Format(dateLayout)
	}
	common := []string{
		lot.LotID,
	}
	switch kind {
	case inventory.Drug:
		return append([]string{
			item.Name, item.Unit, strings.Join(item.Types, ";"), strconv.Itoa(item.MinQuantity),
		}, append(common, lot.LotCode, expire, lot.Location, strconv.Itoa(lot.Quantity),
			strconv.FormatBool(lot.Donated), lot.DonatedBy, lot.Note, lot.QRCode)...)
	case inventory.Vaccine:
		return append([]string{
			item.Name, item.Brand, strings.Join(item.Types, ";"), strconv.Itoa(item.MinQuantity),
		}, append(common, lot.LotCode, expire, strings.Join(lot.Locations, ";"), strconv.Itoa(lot.Quantity),
			strconv.FormatBool(lot.Donated), lot.DonatedBy, lot.Note, lot.QRCode)...)
	default:
		return append([]string{
			item.Name, item.SupplyType, strings.Join(item.Types, ";"), strconv.Itoa(item.MinQuantity),
		}, append(common, strings.Join(lot.Locations, ";"), strconv.Itoa(lot.Quantity),
			strconv.FormatBool(lot.Donated), lot.DonatedBy, lot.Note, lot.QRCode)...)
	}
}

// Import parses the bulk format and regroups rows into items. Lot ids and
// printable references are taken from the file when present; the caller
// (Ledger.ImportItem) synthesizes the missing ones.
func Import(kind inventory.Kind, r io.Reader) ([]models.Item, error) {
	cr := csv.NewReader(r)
	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	col := make(map[string]int, len(head))
	for i, name := range head {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"name", "quantity"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("CSV is missing required column %q", required)
		}
	}

	get := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var items []models.Item
	index := make(map[string]int)
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		qty, err := strconv.Atoi(get(record, "quantity"))
		if err != nil || qty <= 0 {
			return nil, fmt.Errorf("line %d: invalid quantity %q", line, get(record, "quantity"))
		}

		lot := models.Lot{
			LotID:     get(record, "lotId"),
			LotCode:   get(record, "lotCode"),
			Quantity:  qty,
			Location:  get(record, "location"),
			DonatedBy: get(record, "donatedBy"),
			Note:      get(record, "note"),
			QRCode:    get(record, "qrCode"),
		}
		if donated := get(record, "donated"); donated != "" {
			lot.Donated, err = strconv.ParseBool(donated)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid donated flag %q", line, donated)
			}
		}
		if locations := get(record, "locations"); locations != "" {
			lot.Locations = strings.Split(locations, ";")
		}
		if expire := get(record, "expire"); expire != "" {
			parsed, err := time.Parse(dateLayout, expire)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid expire date %q", line, expire)
			}
			lot.Expire = &parsed
		}

		item := models.Item{
			Name:       get(record, "name"),
			Brand:      get(record, "brand"),
			Unit:       get(record, "unit"),
			SupplyType: get(record, "supplyType"),
		}
		if item.Name == "" {
			return nil, fmt.Errorf("line %d: name is required", line)
		}
		if types := get(record, "types"); types != "" {
			item.Types = strings.Split(types, ";")
		}
		if minQty := get(record, "minQuantity"); minQty != "" {
			item.MinQuantity, err = strconv.Atoi(minQty)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid minQuantity %q", line, minQty)
			}
		}

		key := kind.Key(kind.IdentityOf(item))
		if i, ok := index[key]; ok {
			items[i].Lots = append(items[i].Lots, lot)
			continue
		}
		item.Lots = []models.Lot{lot}
		index[key] = len(items)
		items = append(items, item)
	}
	return items, nil
}
