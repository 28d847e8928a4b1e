package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"instrument-rental-backend/config"
	"instrument-rental-backend/controllers"
	"instrument-rental-backend/middleware"
	"instrument-rental-backend/models"
)

// SetupRouter wires controllers onto the HTTP surface. The Stripe webhook
// stays outside the auth group: its signature check is the auth.
func SetupRouter(
	cfg config.Config,
	bc *controllers.BookingController,
	pc *controllers.PaymentController,
	ic *controllers.InstrumentController,
	oc *controllers.OwnerController,
	requestLogger gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger)

	origins := cfg.AllowedOrigins()
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Public catalogue
	instruments := api.Group("/instruments")
	{
		instruments.GET("/search", ic.Search)
		instruments.GET("/:id", ic.GetOne)
	}

	// Webhook: no bearer token, the signature check authenticates it
	api.POST("/payments/webhook", pc.StripeWebhook)

	auth := api.Group("")
	auth.Use(middleware.RequireAuth(cfg.JWTSecret))
	{
		bookings := auth.Group("/bookings")
		{
			bookings.POST("", bc.Create)
			bookings.GET("/my", bc.ListMine)
			bookings.GET("/owner", bc.ListForOwner)
			bookings.GET("/:id", bc.GetOne)
			bookings.PUT("/:id/dates", bc.UpdateDates)
			bookings.POST("/:id/cancel", bc.Cancel)
			bookings.PATCH("/:id/status", bc.ChangeStatus)
			bookings.POST("/:id/pickup", bc.MarkPickup)
			bookings.POST("/:id/return", bc.MarkReturn)
		}

		payments := auth.Group("/payments")
		{
			payments.POST("/checkout", pc.CreateCheckoutSession)
			payments.POST("/:id/sync", pc.SyncPayment)
			payments.GET("/my", pc.ListMine)
			payments.GET("", pc.ListAll)
		}

		auth.POST("/users/become-owner", oc.BecomeOwner)

		owner := auth.Group("/owner")
		owner.Use(middleware.RequireRole(models.RoleOwner))
		{
			owner.GET("/dashboard", oc.Dashboard)
			owner.GET("/instruments", oc.MyInstruments)
			owner.POST("/instruments", oc.AddInstrument)
			owner.PUT("/instruments/:id", oc.UpdateInstrument)
			owner.PATCH("/instruments/:id/availability", oc.ToggleInstrument)
			owner.DELETE("/instruments/:id", oc.DelistInstrument)
		}
	}

	return r
}
