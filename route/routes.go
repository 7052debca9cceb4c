package route

import (
	"net/http"
	"time"

	"cafereview/auth"
	"cafereview/config"
	"cafereview/controller"
	"cafereview/storage"
	"cafereview/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter builds the engine with middleware and every route.
func SetupRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestLogger(), utils.MetricsMiddleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if storage.Public != nil {
		router.Static("/storage", storage.Public.Root())
	}
	router.GET("/metrics", utils.MetricsHandler())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	AuthRoutes(router)
	AddressRoutes(router)
	ReviewRoutes(router)
	ReviewImageRoutes(router)
	return router
}

// resource registers the five CRUD routes on group, with PATCH as an alias of PUT.
func resource(group *gin.RouterGroup, list, create, get, update, remove gin.HandlerFunc) {
	group.GET("", list)
	group.POST("", create)
	group.GET("/:id", get)
	group.PUT("/:id", update)
	group.PATCH("/:id", update)
	group.DELETE("/:id", remove)
}

func AuthRoutes(router *gin.Engine) {
	router.POST("/login", auth.Login)
	router.POST("/register", auth.Register)

	authGroup := router.Group("")
	authGroup.Use(utils.AuthMiddleware())
	{
		authGroup.POST("/logout", auth.Logout)
		authGroup.GET("/profile", auth.Profile)
		authGroup.POST("/edit-profile", auth.EditProfile)
	}
}

func AddressRoutes(router *gin.Engine) {
	addressGroup := router.Group("/address")
	addressGroup.Use(utils.AuthMiddleware())
	{
		addressGroup.POST("/import", controller.ImportAddresses)
		resource(addressGroup,
			controller.GetAddresses,
			controller.CreateAddress,
			controller.GetAddressByID,
			controller.UpdateAddress,
			controller.DeleteAddress,
		)
	}
}

func ReviewRoutes(router *gin.Engine) {
	reviewGroup := router.Group("/review")
	reviewGroup.Use(utils.AuthMiddleware())
	{
		reviewGroup.GET("/export", controller.ExportReviews)
		resource(reviewGroup,
			controller.GetReviews,
			controller.CreateReview,
			controller.GetReviewByID,
			controller.UpdateReview,
			controller.DeleteReview,
		)
	}
}

func ReviewImageRoutes(router *gin.Engine) {
	imageGroup := router.Group("/review-image")
	imageGroup.Use(utils.AuthMiddleware())
	{
		resource(imageGroup,
			controller.GetReviewImages,
			controller.CreateReviewImage,
			controller.GetReviewImageByID,
			controller.UpdateReviewImage,
			controller.DeleteReviewImage,
		)
	}
}
