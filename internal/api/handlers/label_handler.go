package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-inventory-api-server/internal/inventory"
	"clinic-inventory-api-server/internal/s3"
)

type LabelHandler struct {
	Ledger   *inventory.Ledger
	Uploader *s3.Uploader
}

// UploadLotLabel stores a photo of a printed lot label and records its URL
// on the lot.
func (h *LabelHandler) UploadLotLabel(c *gin.Context) {
	kind, ok := kindFromParam(c)
	if !ok {
		return
	}
	if h.Uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Label uploads are not configured"})
		return
	}

	itemID := c.Param("id")
	lotID := c.Param("lotId")

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A photo upload is required"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	objectKey := fmt.Sprintf("labels/photos/%s/%s", kind, lotID)
	url, err := h.Uploader.UploadFile(context.Background(), file, objectKey, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload label photo", "details": err.Error()})
		return
	}

	if err := h.Ledger.SetLotLabel(context.Background(), kind, itemID, lotID, url); err != nil {
		failJSON(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "labelUrl": url})
}
