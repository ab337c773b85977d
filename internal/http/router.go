// README: HTTP router registration.
package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kiloadmin/internal/http/handlers"
	"kiloadmin/internal/http/middleware"
	"kiloadmin/internal/infra"
	"kiloadmin/internal/modules/auth"
)

type RouterDeps struct {
	Verifier  infra.TokenVerifier
	Auth      handlers.SignInService
	Drivers   handlers.DriverService
	Customers handlers.CustomerService
	Fees      handlers.FeeService

	// Ready, when set, backs /health; a non-nil error answers 503.
	Ready func(ctx context.Context) error
	Log   *zap.Logger
}

// gate restricts a group to the roles of the dashboard menu at path.
func gate(path string) gin.HandlerFunc {
	return middleware.RequireRole(auth.MenuRoles(path)...)
}

func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(middleware.Logging(log), middleware.Recovery(log))

	r.GET("/health", func(c *gin.Context) {
		if deps.Ready != nil {
			if err := deps.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	authHandler := handlers.NewAuthHandler(deps.Auth)
	api.POST("/auth/signin", authHandler.SignIn)

	secured := api.Group("")
	secured.Use(middleware.Auth(deps.Verifier))
	secured.GET("/menus", authHandler.Menus)

	driverHandler := handlers.NewDriverHandler(deps.Drivers)
	drivers := secured.Group("", gate("/drivers"))
	drivers.GET("/tiers", driverHandler.Tiers)
	drivers.GET("/drivers", driverHandler.List)
	drivers.GET("/drivers/:id", driverHandler.Get)
	drivers.PATCH("/drivers/:id", driverHandler.Update)
	drivers.DELETE("/drivers/:id", driverHandler.Delete)
	secured.POST("/drivers", gate("/create-account"), driverHandler.Create)

	customerHandler := handlers.NewCustomerHandler(deps.Customers)
	customers := secured.Group("/customers", gate("/customers"))
	customers.GET("", customerHandler.List)
	customers.GET("/:id", customerHandler.Get)

	feeHandler := handlers.NewFeeHandler(deps.Fees)
	fees := secured.Group("", gate("/setup-fees"))
	fees.GET("/fee-configs", feeHandler.List)
	fees.POST("/fee-configs", feeHandler.Create)
	fees.GET("/fee-configs/:id", feeHandler.Get)
	fees.PUT("/fee-configs/:id", feeHandler.Save)
	fees.GET("/fee-configs/:id/quote", feeHandler.Quote)
	fees.POST("/fee-configs/:id/time-fees", feeHandler.AddSlot)
	fees.PUT("/time-fees/:id", feeHandler.UpdateSlot)
	fees.DELETE("/time-fees/:id", feeHandler.DeleteSlot)

	return r
}
