package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-inventory-api-server/internal/csvio"
	"clinic-inventory-api-server/internal/inventory"
)

type CSVHandler struct {
	Ledger *inventory.Ledger
	Store  inventory.Store
}

// Export streams the whole inventory of a kind as CSV, one row per lot.
func (h *CSVHandler) Export(c *gin.Context) {
	kind, ok := kindFromParam(c)
	if !ok {
		return
	}

	items, err := h.Store.ListItems(context.Background(), kind, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query inventory"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", kind.Collection()))
	if err := csvio.Export(kind, items, c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write CSV"})
		return
	}
}

// Import accepts a multipart "file" upload in the export format and merges
// it into the store, one parent at a time.
func (h *CSVHandler) Import(c *gin.Context) {
	kind, ok := kindFromParam(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A CSV file upload is required"})
		return
	}
	defer file.Close()

	items, err := csvio.Import(kind, file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	imported := 0
	for _, item := range items {
		if _, err := h.Ledger.ImportItem(context.Background(), kind, item); err != nil {
			failJSON(c, err)
			return
		}
		imported++
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "imported": imported})
}
