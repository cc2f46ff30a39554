package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/config"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/handlers"
	"github.com/smarttransit/bus-booking-backend/internal/middleware"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/internal/services"
	"github.com/smarttransit/bus-booking-backend/pkg/jwt"
	"github.com/smarttransit/bus-booking-backend/pkg/mailer"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SmartTransit Bus Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	mailGateway := mailer.New(mailer.Config{
		Mode:      cfg.Mail.Mode,
		APIURL:    cfg.Mail.APIURL,
		APIKey:    cfg.Mail.APIKey,
		FromEmail: cfg.Mail.FromEmail,
		FromName:  cfg.Mail.FromName,
		SiteURL:   cfg.Mail.SiteURL,
	}, logger)
	logger.Infof("Mail gateway: %s", mailGateway.GetName())

	// Initialize repositories
	userRepository := database.NewUserRepository(db)
	refreshTokenRepository := database.NewRefreshTokenRepository(db)
	busRepository := database.NewBusRepository(db)
	routeRepository := database.NewRouteRepository(db)
	bookingRepository := database.NewBookingRepository(db)
	permitRepository := database.NewPermitRepository(db)

	bookingConfig := services.BookingConfig{
		CancellationWindow: cfg.Booking.CancellationWindow,
		PaymentCategories:  paymentCategories(cfg.Booking.PaymentCategories),
		SiteURL:            cfg.Mail.SiteURL,
	}

	authService := services.NewAuthService(userRepository, refreshTokenRepository, jwtService, logger)
	busService := services.NewBusService(busRepository, logger)
	seatService := services.NewSeatService(busRepository, logger)
	routeService := services.NewRouteService(routeRepository, busRepository, logger)
	bookingService := services.NewBookingService(
		routeRepository,
		busRepository,
		bookingRepository,
		userRepository,
		mailGateway,
		bookingConfig,
		logger,
	)
	permitService := services.NewPermitService(permitRepository, logger)
	logger.Info("Services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	busHandler := handlers.NewBusHandler(busService)
	seatHandler := handlers.NewSeatHandler(seatService)
	routeHandler := handlers.NewRouteHandler(routeService)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	permitHandler := handlers.NewPermitHandler(permitService)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Authentication routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)

			protected := auth.Group("")
			protected.Use(middleware.AuthMiddleware(jwtService))
			{
				protected.POST("/logout", authHandler.Logout)
			}
		}

		// Route browsing and availability (public)
		routes := v1.Group("/routes")
		{
			routes.GET("", routeHandler.GetAllRoutes)
			routes.GET("/:id", routeHandler.GetRouteByID)
			routes.GET("/:id/availability", bookingHandler.CheckAvailability)
			routes.GET("/:id/fare", bookingHandler.CalculateFare)

			// Route management (admin)
			routesAdmin := routes.Group("")
			routesAdmin.Use(middleware.AuthMiddleware(jwtService))
			routesAdmin.Use(middleware.RequireRole("admin"))
			{
				routesAdmin.POST("", routeHandler.CreateRoute)
				routesAdmin.PUT("/:id", routeHandler.UpdateRoute)
				routesAdmin.DELETE("/:id", routeHandler.DeleteRoute)
				routesAdmin.POST("/:id/buses", routeHandler.AssignBus)
			}
		}

		// Bus fleet routes (operators and admins)
		buses := v1.Group("/buses")
		buses.Use(middleware.AuthMiddleware(jwtService))
		buses.Use(middleware.RequireRole("operator", "admin"))
		{
			buses.POST("", busHandler.CreateBus)
			buses.GET("", busHandler.GetMyBuses)
			buses.GET("/:id", busHandler.GetBusByID)

			// Seat layout management
			buses.POST("/:id/seats", seatHandler.CreateMatrix)
			buses.GET("/:id/seats", seatHandler.GetMatrix)
			buses.PUT("/:id/seats", seatHandler.UpdateMatrix)
			buses.DELETE("/:id/seats", seatHandler.DeleteMatrix)
			buses.GET("/:id/seats/:row/:column", seatHandler.GetSeat)
			buses.PATCH("/:id/seats/:row/:column", seatHandler.PatchSeat)
		}

		// Booking routes (any authenticated user)
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService))
		{
			bookings.POST("", bookingHandler.BookSeats)
			bookings.GET("", bookingHandler.GetMyBookings)
			bookings.GET("/:id", bookingHandler.GetBookingByID)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
		}

		// Permit routes (admin)
		permits := v1.Group("/permits")
		permits.Use(middleware.AuthMiddleware(jwtService))
		{
			permits.GET("/validity/:number", permitHandler.CheckValidity)

			permitsAdmin := permits.Group("")
			permitsAdmin.Use(middleware.RequireRole("admin"))
			{
				permitsAdmin.POST("", permitHandler.CreatePermit)
				permitsAdmin.GET("", permitHandler.GetAllPermits)
				permitsAdmin.GET("/:id", permitHandler.GetPermitByID)
				permitsAdmin.PUT("/:id", permitHandler.UpdatePermit)
				permitsAdmin.DELETE("/:id", permitHandler.DeletePermit)
			}
		}

		// Admin views
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService))
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.GET("/bookings", bookingHandler.GetAllBookings)
		}
	}

	// Periodic cleanup of expired refresh tokens
	stopCleanup := make(chan struct{})
	go func() {
		ticker := time.NewTicker(12 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, err := refreshTokenRepository.DeleteExpired(time.Now())
				if err != nil {
					logger.Errorf("Refresh token cleanup failed: %v", err)
					continue
				}
				if deleted > 0 {
					logger.Infof("Deleted %d expired refresh tokens", deleted)
				}
			case <-stopCleanup:
				return
			}
		}
	}()

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	close(stopCleanup)

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

func paymentCategories(names []string) []models.BusType {
	categories := make([]models.BusType, 0, len(names))
	for _, name := range names {
		if models.ValidBusType(models.BusType(name)) {
			categories = append(categories, models.BusType(name))
		}
	}
	return categories
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID.String()
			fields["role"] = userCtx.Role
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
