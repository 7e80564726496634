package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"clinic-inventory-api-server/internal/api/handlers"
	"clinic-inventory-api-server/internal/api/middleware"
	"clinic-inventory-api-server/internal/auth"
	"clinic-inventory-api-server/internal/inventory"
	"clinic-inventory-api-server/internal/mailer"
	"clinic-inventory-api-server/internal/s3"
	"clinic-inventory-api-server/internal/socket"
)

// SetupRouter wires the handlers and their dependencies into the route tree.
func SetupRouter(
	authService *auth.Service,
	ledger *inventory.Ledger,
	store inventory.Store,
	db *mongo.Database,
	s3Uploader *s3.Uploader,
	mail *mailer.Mailer,
	wsHub *socket.Hub,
) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	inventoryHandler := &handlers.InventoryHandler{Ledger: ledger, Store: store, Hub: wsHub}
	historyHandler := &handlers.HistoryHandler{Store: store}
	csvHandler := &handlers.CSVHandler{Ledger: ledger, Store: store}
	dropdownHandler := &handlers.DropdownHandler{DB: db}
	userHandler := &handlers.UserHandler{DB: db, Auth: authService, Mailer: mail}
	labelHandler := &handlers.LabelHandler{Ledger: ledger, Uploader: s3Uploader}
	webSocketHandler := &handlers.WebSocketHandler{Hub: wsHub, Auth: authService}

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/ws", webSocketHandler.ServeWs)

		// === ROUTES WITHOUT AUTHENTICATION ===
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/login", userHandler.Login)
			authRoutes.POST("/enroll", userHandler.Enroll)
		}

		// === PROTECTED ROUTES ===

		// Administration, requires "superadmin" or "admin" role.
		admin := apiV1.Group("/admin")
		admin.Use(middleware.Authenticate(authService))
		admin.Use(middleware.Authorize("superadmin", "admin"))
		{
			admin.POST("/users", userHandler.CreateUser)
			admin.GET("/users", userHandler.ListUsers)

			// Dropdown taxonomy management.
			dropdowns := admin.Group("/dropdowns/:type")
			{
				dropdowns.POST("/", dropdownHandler.CreateValue)
				dropdowns.DELETE("/:id", dropdownHandler.DeleteValue)
			}

			// Destructive inventory operations stay admin-only.
			admin.DELETE("/inventory/:kind/:id", inventoryHandler.DeleteItem)

			// Bulk import.
			admin.POST("/inventory/:kind/import", csvHandler.Import)
		}

		// Main business routes for clinic staff.
		businessRoutes := apiV1.Group("/")
		businessRoutes.Use(middleware.Authenticate(authService))
		businessRoutes.Use(middleware.Authorize("superadmin", "admin", "provider"))
		{
			businessRoutes.GET("/me", userHandler.GetMe)

			inventoryRoutes := businessRoutes.Group("/inventory/:kind")
			{
				inventoryRoutes.GET("/", inventoryHandler.ListItems)
				inventoryRoutes.GET("/:id", inventoryHandler.GetItem)
				inventoryRoutes.POST("/add", inventoryHandler.AddStock)
				inventoryRoutes.POST("/dispense", inventoryHandler.Dispense)
				inventoryRoutes.GET("/history", historyHandler.ListRecords)
				inventoryRoutes.GET("/export.csv", csvHandler.Export)
				inventoryRoutes.POST("/:id/lots/:lotId/label", labelHandler.UploadLotLabel)
			}

			dropdowns := businessRoutes.Group("/dropdowns/:type")
			{
				dropdowns.GET("/", dropdownHandler.ListValues)
			}
		}
	}

	return router
}
