package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"clinic-inventory-api-server/internal/auth"
	"clinic-inventory-api-server/internal/models"
)

// SeedSuperAdmin makes sure the superadmin account exists so the first
// deployment can log in and create real users.
func SeedSuperAdmin(db *mongo.Database) error {
	userCollection := db.Collection("users")
	superAdminEmail := "superadmin@example.com"

	count, err := userCollection.CountDocuments(context.Background(), bson.M{"email": superAdminEmail})
	if err != nil {
		return err
	}

	if count > 0 {
		log.Println("Super admin already exists. Seeding skipped.")
		return nil
	}

	log.Println("Super admin not found. Seeding...")
	hashedPassword, err := auth.HashPassword("superadminpassword")
	if err != nil {
		return err
	}

	superAdmin := models.User{
		Email:     superAdminEmail,
		Name:      "Super Admin",
		Password:  hashedPassword,
		Role:      "superadmin",
		Status:    "active",
		CreatedAt: time.Now(),
	}

	_, err = userCollection.InsertOne(context.Background(), superAdmin)
	if err != nil {
		return err
	}

	log.Println("Super admin seeded successfully.")
	return nil
}

// Default dropdown values a fresh clinic starts with.
var defaultDropdowns = map[string][]string{
	"units":     {"tabs", "mL", "g", "each"},
	"locations": {"Cabinet1", "Cabinet2", "Refrigerator"},
	"sites":     {"Main Clinic"},
}

// SeedDropdowns inserts the default taxonomy values into any empty
// dropdown collection.
func SeedDropdowns(db *mongo.Database) error {
	for collectionName, values := range defaultDropdowns {
		collection := db.Collection(collectionName)
		count, err := collection.CountDocuments(context.Background(), bson.M{})
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		docs := make([]interface{}, len(values))
		for i, value := range values {
			docs[i] = bson.M{"value": value, "createdAt": time.Now()}
		}
		if _, err := collection.InsertMany(context.Background(), docs); err != nil {
			return err
		}
		log.Printf("Seeded %d default values into %s", len(values), collectionName)
	}
	return nil
}
