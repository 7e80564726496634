package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clinic-inventory-api-server/internal/models"
)

// Taxonomies the forms draw their dropdown values from, one collection each.
var dropdownCollections = map[string]string{
	"units":      "units",
	"locations":  "locations",
	"sites":      "sites",
	"brands":     "vaccine_brands",
	"drug-names": "drug_names",
}

type DropdownHandler struct {
	DB *mongo.Database
}

func (h *DropdownHandler) collection(c *gin.Context) (*mongo.Collection, bool) {
	name, ok := dropdownCollections[c.Param("type")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown dropdown type"})
		return nil, false
	}
	return h.DB.Collection(name), true
}

// ListValues returns all values of one taxonomy, sorted.
func (h *DropdownHandler) ListValues(c *gin.Context) {
	collection, ok := h.collection(c)
	if !ok {
		return
	}

	opts := options.Find().SetSort(bson.D{{Key: "value", Value: 1}})
	cursor, err := collection.Find(context.Background(), bson.M{}, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query dropdown values"})
		return
	}
	defer cursor.Close(context.Background())

	var values []models.DropdownValue
	if err = cursor.All(context.Background(), &values); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode dropdown values"})
		return
	}

	if values == nil {
		values = []models.DropdownValue{}
	}

	c.JSON(http.StatusOK, values)
}

type CreateDropdownValueRequest struct {
	Value string `json:"value" binding:"required"`
}

// CreateValue adds one value to a taxonomy, rejecting duplicates.
func (h *DropdownHandler) CreateValue(c *gin.Context) {
	collection, ok := h.collection(c)
	if !ok {
		return
	}

	var req CreateDropdownValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := collection.CountDocuments(context.Background(), bson.M{"value": req.Value})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error checking for value"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Value already exists"})
		return
	}

	value := models.DropdownValue{Value: req.Value}
	result, err := collection.InsertOne(context.Background(), bson.M{"value": req.Value, "createdAt": time.Now()})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create value"})
		return
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		value.ID = oid
	}

	c.JSON(http.StatusCreated, value)
}

// DeleteValue removes one value by id.
func (h *DropdownHandler) DeleteValue(c *gin.Context) {
	collection, ok := h.collection(c)
	if !ok {
		return
	}

	oid, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	result, err := collection.DeleteOne(context.Background(), bson.M{"_id": oid})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete value"})
		return
	}
	if result.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Value not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Value deleted successfully"})
}
