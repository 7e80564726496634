package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-inventory-api-server/internal/inventory"
	"clinic-inventory-api-server/internal/models"
)

type HistoryHandler struct {
	Store inventory.Store
}

// ListRecords returns a kind's historical dispense records, newest first,
// optionally filtered by dispense kind and date range (YYYY-MM-DD).
func (h *HistoryHandler) ListRecords(c *gin.Context) {
	kind, ok := kindFromParam(c)
	if !ok {
		return
	}

	filter := inventory.RecordFilter{}
	if dispenseKind := c.Query("dispenseKind"); dispenseKind != "" {
		if !models.ValidDispenseKind(dispenseKind) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown dispense kind"})
			return
		}
		filter.DispenseKind = dispenseKind
	}
	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse("2006-01-02", from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date, expected YYYY-MM-DD"})
			return
		}
		filter.From = &parsed
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse("2006-01-02", to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date, expected YYYY-MM-DD"})
			return
		}
		// Inclusive of the whole end day.
		end := parsed.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}

	records, err := h.Store.ListRecords(context.Background(), kind, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query history"})
		return
	}

	c.JSON(http.StatusOK, records)
}
