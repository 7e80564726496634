package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clinic-inventory-api-server/config"
	"clinic-inventory-api-server/internal/api/routes"
	"clinic-inventory-api-server/internal/auth"
	"clinic-inventory-api-server/internal/database"
	"clinic-inventory-api-server/internal/inventory"
	"clinic-inventory-api-server/internal/labels"
	"clinic-inventory-api-server/internal/mailer"
	"clinic-inventory-api-server/internal/s3"
	"clinic-inventory-api-server/internal/socket"
)

func main() {
	// 1. Load configuration (.env is optional, for local development)
	godotenv.Load()
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	// 2. Connect to MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	db := client.Database(cfg.Mongo.DBName)

	// 3. Seed the superadmin account and default dropdown values
	if err := database.SeedSuperAdmin(db); err != nil {
		log.Fatalf("Failed to seed super admin: %v", err)
	}
	if err := database.SeedDropdowns(db); err != nil {
		log.Fatalf("Failed to seed dropdowns: %v", err)
	}

	// 4. Auth service
	authService, err := auth.NewService(cfg.JWT)
	if err != nil {
		log.Fatalf("Failed to initialize auth service: %v", err)
	}

	// 5. S3 uploader and label reference generator (S3 is optional; labels
	// fall back to locally generated references)
	var s3Uploader *s3.Uploader
	var refGenerator inventory.ReferenceGenerator = labels.Local{}
	if cfg.S3.Bucket != "" {
		s3Uploader, err = s3.NewUploader(cfg.S3)
		if err != nil {
			log.Fatalf("Failed to initialize S3 uploader: %v", err)
		}
		refGenerator = &labels.S3{Uploader: s3Uploader}
	}

	// 6. Inventory store and ledger
	store := inventory.NewMongoStore(db)
	ledger := inventory.NewLedger(store, refGenerator)

	// 7. Mailer and WebSocket hub
	mail := mailer.New(cfg.Mailer)
	wsHub := socket.NewHub()

	// 8. Router
	router := routes.SetupRouter(authService, ledger, store, db, s3Uploader, mail, wsHub)

	// 9. Start server
	log.Printf("Starting API server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
