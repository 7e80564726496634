package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-inventory-api-server/internal/inventory"
	"clinic-inventory-api-server/internal/socket"
)

type InventoryHandler struct {
	Ledger *inventory.Ledger
	Store  inventory.Store
	Hub    *socket.Hub
}

// kindFromParam resolves the :kind path segment ("drugs", "vaccines",
// "supplies"). Unknown segments are a 404, not a 400: the route does not exist.
func kindFromParam(c *gin.Context) (inventory.Kind, bool) {
	kind, err := inventory.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return 0, false
	}
	return kind, true
}

// failJSON maps a core failure to an HTTP response. Non-failure errors are
// internal.
func failJSON(c *gin.Context, err error) {
	failure, ok := inventory.FailureOf(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusInternalServerError
	switch failure.Kind {
	case inventory.FailValidation:
		status = http.StatusBadRequest
	case inventory.FailParentNotFound, inventory.FailLotNotFound:
		status = http.StatusNotFound
	case inventory.FailInsufficient:
		status = http.StatusConflict
	}
	body := gin.H{"error": failure.Message, "kind": failure.Kind}
	if failure.Kind == inventory.FailInsufficient {
		body["remaining"] = failure.Remaining
		if failure.Unit != "" {
			body["unit"] = failure.Unit
		}
	}
	c.JSON(status, body)
}

type AddStockRequest struct {
	Name        string     `json:"name" binding:"required"`
	Brand       string     `json:"brand"`
	Types       []string   `json:"types"`
	Unit        string     `json:"unit"`
	SupplyType  string     `json:"supplyType"`
	MinQuantity int        `json:"minQuantity"`
	Quantity    int        `json:"quantity" binding:"required,gt=0"`
	LotCode     string     `json:"lotCode"`
	Expire      *time.Time `json:"expire"`
	Location    string     `json:"location"`
	Locations   []string   `json:"locations"`
	Donated     bool       `json:"donated"`
	DonatedBy   string     `json:"donatedBy"`
	Note        string     `json:"note"`
}

// AddStock adds quantity to one lot, creating the item and/or lot when absent.
func (h *InventoryHandler) AddStock(c *gin.Context) {
	kind, ok := kindFromParam(c)
	if !ok {
		return
	}

	var req AddStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	locations := req.Locations
	if len(locations) == 0 && req.Location != "" && kind != inventory.Drug {
		locations = []string{req.Location}
	}

	item, err := h.Ledger.Add(context.Background(), kind, inventory.AddRequest{
		Name:        req.Name,
		Brand:       req.Brand,
		Types:       req.Types,
		Unit:        req.Unit,
		SupplyType:  req.SupplyType,
		MinQuantity: req.MinQuantity,
		Quantity:    req.Quantity,
		Lot: inventory.LotAttributes{
			LotCode:   req.LotCode,
			Expire:    req.Expire,
			Location:  req.Location,
			Locations: locations,
			Donated:   req.Donated,
			DonatedBy: req.DonatedBy,
			Note:      req.Note,
		},
	})
	if err != nil {
		failJSON(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

type DispenseLinePayload struct {
	Name      string   `json:"name" binding:"required"`
	Brand     string   `json:"brand"`
	LotCode   string   `json:"lotCode"`
	Locations []string `json:"locations"`
	Donated   bool     `json:"donated"`
	Quantity  int      `json:"quantity" binding:"required,gt=0"`
	Dose      int      `json:"dose"`
}

type DispensePayload struct {
	DispenseKind string                `json:"dispenseKind" binding:"required"`
	DispensedTo  string                `json:"dispensedTo"`
	Site         string                `json:"site"`
	Note         string                `json:"note"`
	Timestamp    time.Time             `json:"timestamp"`
	Lines        []DispenseLinePayload `json:"lines" binding:"required,dive"`
}

// Dispense runs one (possibly multi-line) dispense transaction and returns
// the appended historical record.
func (h *InventoryHandler) Dispense(c *gin.Context) {
	kind, ok := kindFromParam(c)
	if !ok {
		return
	}

	var req DispensePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines := make([]inventory.DispenseLine, len(req.Lines))
	for i, line := range req.Lines {
		lines[i] = inventory.DispenseLine{
			Name:     line.Name,
			Brand:    line.Brand,
			Quantity: line.Quantity,
			Dose:     line.Dose,
			Key: inventory.MatchKey{
				LotCode:   line.LotCode,
				Locations: line.Locations,
				Donated:   line.Donated,
			},
		}
	}

	record, committed, err := h.Ledger.Dispense(context.Background(), kind, inventory.DispenseRequest{
		DispenseKind: req.DispenseKind,
		DispensedTo:  req.DispensedTo,
		Site:         req.Site,
		DispensedBy:  c.GetString("user_email"),
		Timestamp:    req.Timestamp,
		Note:         req.Note,
		Lines:        lines,
	})
	if err != nil {
		failJSON(c, err)
		return
	}

	if h.Hub != nil {
		for _, item := range committed {
			if item.MinQuantity > 0 && item.TotalQuantity() < item.MinQuantity {
				h.Hub.BroadcastLowStock(socket.LowStockAlert{
					Kind:        kind.String(),
					Name:        item.Name,
					Brand:       item.Brand,
					Total:       item.TotalQuantity(),
					MinQuantity: item.MinQuantity,
				})
			}
		}
	}

	c.JSON(http.StatusCreated, record)
}

// ListItems returns all items of a kind, optionally filtered by name.
func (h *InventoryHandler) ListItems(c *gin.Context) {
	kind, ok := kindFromParam(c)
	if !ok {
		return
	}

	items, err := h.Store.ListItems(context.Background(), kind, c.Query("name"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query inventory"})
		return
	}

	c.JSON(http.StatusOK, items)
}

// GetItem returns one item by its document id.
func (h *InventoryHandler) GetItem(c *gin.Context) {
	kind, ok := kindFromParam(c)
	if !ok {
		return
	}

	item, err := h.Store.FindItemByID(context.Background(), kind, c.Param("id"))
	if err == inventory.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve item"})
		return
	}

	c.JSON(http.StatusOK, item)
}

// DeleteItem removes a whole parent record, lots included. Admin only.
func (h *InventoryHandler) DeleteItem(c *gin.Context) {
	kind, ok := kindFromParam(c)
	if !ok {
		return
	}

	err := h.Store.RemoveItem(context.Background(), kind, c.Param("id"))
	if err == inventory.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
}
