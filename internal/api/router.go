package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"swisswheels/app/internal/api/handlers"
	"swisswheels/app/internal/api/middleware"
	"swisswheels/app/internal/attest"
	"swisswheels/app/internal/config"
	"swisswheels/app/internal/realtime"
	"swisswheels/app/internal/services"
	"swisswheels/app/internal/sms"
	"swisswheels/app/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, broker realtime.Broker, taskClient *asynq.Client) *gin.Engine {
	listingService := services.NewListingService(db, cfg, rdb, broker)
	favoriteService := services.NewFavoriteService(db, broker)
	userService := services.NewUserService(db, cfg)
	discoveryService := services.NewDiscoveryService(listingService, favoriteService, services.NewRedisSeenStore(rdb, cfg.SeenSetTTL))

	var smsSender sms.Sender = &sms.LoggingSender{}
	verificationService := services.NewVerificationService(cfg, services.NewRedisCodeStore(rdb), smsSender, userService)

	s3StorageService, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
	}
	attestVerifier := attest.NewVerifier(cfg)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.AttestMiddleware(attestVerifier))
	r.Use(rateLimiter.Limit())

	listingHandler := handlers.NewListingHandler(listingService)
	favoriteHandler := handlers.NewFavoriteHandler(favoriteService)
	discoveryHandler := handlers.NewDiscoveryHandler(discoveryService)
	profileHandler := handlers.NewProfileHandler(userService)
	authHandler := handlers.NewAuthHandler(cfg, userService)
	verificationHandler := handlers.NewVerificationHandler(cfg, verificationService, userService)
	contactHandler := handlers.NewContactHandler(listingService, userService, taskClient)
	attestHandler := handlers.NewAttestHandler(cfg, attestVerifier)
	uploadHandler := handlers.NewUploadHandler(listingService, s3StorageService, taskClient)
	streamHandler := handlers.NewStreamHandler(broker)

	v1 := r.Group("/v1")
	{
		// Public routes; listing reads tailor to the viewer when a token is present.
		public := v1.Group("")
		public.Use(middleware.OptionalAuthMiddleware(cfg.JwtSecret))
		{
			public.GET("/listings", listingHandler.SearchListings)
			public.GET("/listings/:id", listingHandler.GetListingByID)
			public.GET("/listings/:id/contact", contactHandler.GetContactOptions)
			public.GET("/makes/:make/models", listingHandler.GetModelsForMake)
			public.GET("/stream/listings", streamHandler.StreamListings)
		}

		v1.POST("/auth/anonymous", authHandler.CreateAnonymousSession)
		v1.POST("/auth/login", authHandler.Login)
		v1.POST("/attest/verify", attestHandler.VerifyDevice)

		// Registration promotes an anonymous session in place when one is presented.
		register := v1.Group("")
		register.Use(middleware.OptionalAuthMiddleware(cfg.JwtSecret))
		register.POST("/auth/register", authHandler.Register)

		// Authenticated routes. Anonymous sessions qualify.
		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authed.GET("/me/profile", profileHandler.GetProfile)
			authed.PUT("/me/profile", profileHandler.UpdateProfile)
			authed.POST("/me/phone/verify", verificationHandler.StartVerification)
			authed.POST("/me/phone/confirm", verificationHandler.ConfirmVerification)

			authed.GET("/me/favorites", favoriteHandler.ListFavorites)
			authed.GET("/me/favorites/:id", favoriteHandler.CheckFavorite)
			authed.PUT("/me/favorites/:id", favoriteHandler.AddFavorite)
			authed.DELETE("/me/favorites/:id", favoriteHandler.RemoveFavorite)

			authed.GET("/discovery/next", discoveryHandler.NextCandidate)
			authed.POST("/discovery/:id/pass", discoveryHandler.Pass)
			authed.POST("/discovery/:id/like", discoveryHandler.Like)
			authed.POST("/discovery/reset", discoveryHandler.Reset)

			authed.GET("/me/listings", listingHandler.GetMyListings)
			authed.GET("/stream/favorites", streamHandler.StreamFavorites)

			// Selling requires a verified phone; mutations are additionally
			// gated on device attestation when enforcement is on.
			mutating := authed.Group("")
			mutating.Use(middleware.RequireVerifiedPhone(), middleware.RequireTrustedDevice(cfg))
			{
				mutating.POST("/listings", listingHandler.CreateListing)
				mutating.PUT("/listings/:id", listingHandler.UpdateListing)
				mutating.PATCH("/listings/:id/published", listingHandler.SetPublished)
				mutating.DELETE("/listings/:id", listingHandler.DeleteListing)
				mutating.POST("/listings/:id/images", uploadHandler.PresignUpload)
				mutating.POST("/listings/:id/images/complete", uploadHandler.CompleteUpload)
			}

			// Contacting a seller requires a verified phone.
			verified := authed.Group("")
			verified.Use(middleware.RequireVerifiedPhone())
			verified.POST("/listings/:id/enquiry", contactHandler.SendEnquiry)
		}

		// Moderation surface.
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			admin.GET("/listings/pending", listingHandler.GetPendingListings)
			admin.POST("/listings/:id/approve", listingHandler.ApproveListing)
			admin.POST("/listings/:id/reject", listingHandler.RejectListing)
		}

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
	}

	return r
}
