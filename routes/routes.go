package routes

import (
	"database/sql"

	"github.com/gin-gonic/gin"

	"github.com/ilyosdev/smeta-api/handlers"
	"github.com/ilyosdev/smeta-api/services"
)

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, db *sql.DB) {
	authHandler := &handlers.AuthHandler{DB: db}

	rg.POST("/auth/signup", authHandler.Signup)
	rg.POST("/auth/login", authHandler.Login)
}

// SetupRequestRoutes sets up the protected procurement request routes,
// including the physical-handling sub-flow.
func SetupRequestRoutes(rg *gin.RouterGroup, db *sql.DB, ws *handlers.WSHandler) {
	requestService := services.NewRequestService(db)
	h := handlers.NewRequestHandler(requestService, ws)

	rg.GET("/requests", h.ListRequests)
	rg.POST("/requests", h.CreateRequest)
	rg.GET("/requests/:id", h.GetRequest)
	rg.PUT("/requests/:id", h.UpdateRequest)
	rg.DELETE("/requests/:id", h.DeleteRequest)

	rg.POST("/requests/:id/approve", h.ApproveRequest)
	rg.POST("/requests/:id/reject", h.RejectRequest)
	rg.POST("/requests/:id/fulfill", h.FulfillRequest)

	// Fulfillment sub-flow
	rg.POST("/requests/:id/assign", h.ApproveAndAssign)
	rg.POST("/requests/:id/collect", h.MarkCollected)
	rg.POST("/requests/:id/deliver", h.MarkDelivered)
	rg.POST("/requests/:id/receive", h.ConfirmReceipt)
	rg.POST("/requests/:id/finalize", h.FinalizeRequest)
}

// SetupSmetaRoutes sets up project/smeta/budget-line management routes.
func SetupSmetaRoutes(rg *gin.RouterGroup, db *sql.DB) {
	smetaService := services.NewSmetaService(db)
	h := handlers.NewSmetaHandler(smetaService)

	rg.GET("/projects", h.ListProjects)
	rg.POST("/projects", h.CreateProject)
	rg.POST("/smetas", h.CreateSmeta)
	rg.GET("/smetas/:id/items", h.ListItems)

	rg.POST("/items", h.CreateItem)
	rg.GET("/items/:id", h.GetItem)
	rg.PUT("/items/:id", h.UpdateItem)
	rg.DELETE("/items/:id", h.DeleteItem)
	rg.GET("/items/:id/remaining", h.GetItemRemaining)
}

// SetupUserRoutes sets up protected user and member management routes.
func SetupUserRoutes(rg *gin.RouterGroup, db *sql.DB) {
	userHandler := &handlers.UserHandler{DB: db}

	rg.GET("/user/profile", userHandler.GetProfile)
	rg.POST("/user/password", userHandler.ChangePassword)
	rg.POST("/user/2fa/setup", userHandler.SetupTOTP)
	rg.POST("/user/2fa/verify", userHandler.VerifyTOTP)
	rg.POST("/user/2fa/disable", userHandler.DisableTOTP)

	rg.GET("/members", userHandler.ListMembers)
	rg.POST("/members", userHandler.CreateMember)
}
