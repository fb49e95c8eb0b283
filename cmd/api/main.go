package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campus/internal/attendance"
	"campus/internal/auth"
	"campus/internal/campaign"
	"campus/internal/config"
	"campus/internal/directory"
	"campus/internal/feedback"
	"campus/internal/handler"
	"campus/internal/httpmiddleware"
	"campus/internal/metrics"
	"campus/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

// submissionChecker lets the campaign registry ask "has this student already
// submitted?" without the registry depending on the feedback service.
type submissionChecker struct {
	store feedback.Store
}

func (s submissionChecker) HasSubmitted(ctx context.Context, studentID, facultyID, subjectID string, semester int) (bool, error) {
	return s.store.Exists(ctx, studentID, facultyID, subjectID, semester)
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()
	if db != nil {
		if err := db.Migrate(context.Background()); err != nil {
			log.Printf("warning: migrate failed: %v", err)
		}
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	mx := metrics.New()
	dir := directory.New(cfg.DirectoryURL, cfg.DirectorySkip, redisClient.Client, cfg.DirectoryCacheTTL, mx)

	attRepo := attendance.NewRepository(db.Client)
	campRepo := campaign.NewRepository(db.Client)
	fbRepo := feedback.NewRepository(db.Client)

	attSvc := attendance.NewService(attRepo, mx)
	campSvc := campaign.NewService(campRepo, submissionChecker{store: fbRepo}, mx)
	fbSvc := feedback.NewService(fbRepo, campSvc, mx)

	h := handler.New(attSvc, campSvc, fbSvc, dir)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	if cfg.RateLimitBackend == "redis" {
		r.Use(httpmiddleware.NewRedisLimiter(redisClient.Client, cfg.RateLimitPerMin).GinMiddleware())
	} else {
		r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil && db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	// Dev-only token mint. Real deployments put an identity service in front
	// and this route never exists.
	if cfg.Env == "dev" {
		r.POST("/v1/auth/token", func(c *gin.Context) {
			var req struct {
				Subject string `json:"subject" binding:"required"`
				Role    string `json:"role" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			token, exp, err := auth.Issue(req.Subject, req.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
				return
			}
			c.JSON(http.StatusCreated, gin.H{"access_token": token, "expires_at": exp.Unix()})
		})
	}

	v1 := r.Group("/v1", auth.Require(cfg.JWTSigningKey, cfg.JWTIssuer))

	att := v1.Group("/attendance")
	{
		att.POST("/mark", auth.RequireRole(auth.RoleFaculty, auth.RoleAdmin), h.MarkAttendance)
		att.GET("/subject", auth.RequireRole(auth.RoleFaculty, auth.RoleAdmin), h.AttendanceBySubject)
		att.GET("/my", auth.RequireRole(auth.RoleStudent), h.MyAttendance)
		att.GET("/student/:studentId", auth.RequireRole(auth.RoleFaculty, auth.RoleAdmin), h.StudentAttendance)
		att.GET("/report", auth.RequireRole(auth.RoleFaculty, auth.RoleAdmin), h.AttendanceReport)
		att.DELETE("/:id", auth.RequireRole(auth.RoleFaculty, auth.RoleAdmin), h.DeleteAttendance)
	}

	camp := v1.Group("/feedback-campaigns")
	{
		camp.POST("", auth.RequireRole(auth.RoleAdmin), h.CreateCampaign)
		camp.GET("", auth.RequireRole(auth.RoleAdmin), h.ListCampaigns)
		camp.GET("/available", auth.RequireRole(auth.RoleStudent), h.AvailableCampaigns)
		camp.PUT("/:id", auth.RequireRole(auth.RoleAdmin), h.UpdateCampaign)
		camp.PATCH("/:id/toggle", auth.RequireRole(auth.RoleAdmin), h.ToggleCampaign)
		camp.DELETE("/:id", auth.RequireRole(auth.RoleAdmin), h.DeleteCampaign)
	}

	fb := v1.Group("/feedback")
	{
		fb.POST("", auth.RequireRole(auth.RoleStudent), h.SubmitFeedback)
		fb.GET("/my", auth.RequireRole(auth.RoleStudent), h.MyFeedback)
		fb.GET("/faculty", auth.RequireRole(auth.RoleFaculty, auth.RoleAdmin), h.FacultyFeedback)
		fb.GET("", auth.RequireRole(auth.RoleAdmin), h.AllFeedback)
		fb.GET("/summary/:facultyId", auth.RequireRole(auth.RoleAdmin), h.FeedbackSummary)
		fb.PATCH("/:id/status", auth.RequireRole(auth.RoleAdmin), h.UpdateFeedbackStatus)
		fb.DELETE("/:id", auth.RequireRole(auth.RoleAdmin), h.DeleteFeedback)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
