package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"anoa.com/campusfix/internal/config"
	"anoa.com/campusfix/internal/entity"
	"anoa.com/campusfix/internal/middleware"
	"anoa.com/campusfix/internal/policy"
	"anoa.com/campusfix/pkg/storage"

	departmentHttp "anoa.com/campusfix/internal/modules/department/delivery/http"
	departmentRepo "anoa.com/campusfix/internal/modules/department/repository"
	departmentService "anoa.com/campusfix/internal/modules/department/service"

	issueHttp "anoa.com/campusfix/internal/modules/issue/delivery/http"
	issueRepo "anoa.com/campusfix/internal/modules/issue/repository"
	issueService "anoa.com/campusfix/internal/modules/issue/service"

	notiHttp "anoa.com/campusfix/internal/modules/notification/delivery/http"
	notifRepo "anoa.com/campusfix/internal/modules/notification/repository"
	notifService "anoa.com/campusfix/internal/modules/notification/service"

	profileHttp "anoa.com/campusfix/internal/modules/profile/delivery/http"
	profileService "anoa.com/campusfix/internal/modules/profile/service"

	searchService "anoa.com/campusfix/internal/modules/search/service"

	upvoteHttp "anoa.com/campusfix/internal/modules/upvote/delivery/http"
	upvoteRepo "anoa.com/campusfix/internal/modules/upvote/repository"
	upvoteService "anoa.com/campusfix/internal/modules/upvote/service"

	userHttp "anoa.com/campusfix/internal/modules/user/delivery/http"
	userRepo "anoa.com/campusfix/internal/modules/user/repository"
	userService "anoa.com/campusfix/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	imageStorage, err := storage.NewCloudinaryStorage(cfg.CloudinaryUploadFolder)
	if err != nil {
		// Submissions with a photo fail with a storage error; the rest keeps working.
		slog.Warn("cloudinary storage unavailable", "error", err)
		imageStorage = nil
	}

	var meiliSvc searchService.MeiliSearchService
	if cfg.MeiliSearchHost != "" {
		meiliHost := cfg.MeiliSearchHost
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		meiliSvc = searchService.NewMeiliSearchService(meiliClient)
	} else {
		slog.Info("MEILISEARCH_HOST not set, issue search disabled")
	}

	departmentRepository := departmentRepo.NewDepartmentRepository(db)
	departmentSvc := departmentService.NewDepartmentService(departmentRepository)
	departmentHandler := departmentHttp.NewDepartmentHandler(departmentSvc)

	userRepository := userRepo.NewUserRepository(db)
	authSvc := userService.NewAuthService(userRepository, departmentRepository, cfg.JWTSecret, cfg.JWTTTL)
	authHandler := userHttp.NewAuthHandler(authSvc)
	roleSvc := userService.NewRoleService(userRepository)
	roleHandler := userHttp.NewRoleHandler(roleSvc)

	profileSvc := profileService.NewProfileService(userRepository, departmentRepository)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	// Notification Module
	notificationRepository := notifRepo.NewNotificationRepository(db)
	notificationSvc := notifService.NewNotificationService(notificationRepository, redisClient)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, redisClient, cfg.AllowedOrigins)

	issueRepository := issueRepo.NewRepository(db)

	upvoteRepository := upvoteRepo.NewUpvoteRepository(db)
	upvoteSvc := upvoteService.NewUpvoteService(upvoteRepository, issueRepository, redisClient, cfg.FeedCacheTTL)
	upvoteHandler := upvoteHttp.NewUpvoteHandler(upvoteSvc)

	issueSvc := issueService.NewService(
		issueRepository,
		departmentRepository,
		upvoteSvc,
		imageStorage,
		redisClient,
		notificationSvc,
		meiliSvc,
		issueService.Options{
			ResolutionRule: policy.ResolutionRuleFromName(cfg.ResolutionPolicy),
			SubmitCooldown: cfg.RateLimitIssue,
		},
	)
	issueHandler := issueHttp.NewIssueHandler(issueSvc)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Logger(slog.Default(), "/health", "/api/notifications/ws"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.NewAuthMiddleware(roleSvc, cfg.JWTSecret)
	principalOnly := authMiddleware.RequireRole(entity.RolePrincipal)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/departments", departmentHandler.ListDepartments)
		protected.POST("/departments", principalOnly, departmentHandler.CreateDepartment)

		// Profile routes
		protected.GET("/profile/me", profileHandler.GetCurrentProfile)
		protected.PUT("/profile", profileHandler.UpdateProfile)
		protected.GET("/profile/:user_id", profileHandler.GetProfile)

		// Role routes
		protected.GET("/users/:user_id/roles", roleHandler.GetRoles)
		protected.POST("/users/:user_id/roles", principalOnly, roleHandler.GrantRole)
		protected.DELETE("/users/:user_id/roles/:role", principalOnly, roleHandler.RevokeRole)
		protected.PUT("/users/:user_id/department", principalOnly, roleHandler.AssignDepartment)

		// Issue routes
		protected.GET("/issues", issueHandler.GetFeed)
		protected.POST("/issues", issueHandler.SubmitIssue)
		protected.GET("/issues/me", issueHandler.GetMyIssues)
		protected.GET("/issues/search", issueHandler.SearchIssues)
		protected.GET("/issues/:issue_id", issueHandler.GetIssue)
		protected.PATCH("/issues/:issue_id/status", issueHandler.UpdateStatus)
		protected.DELETE("/issues/:issue_id", issueHandler.DeleteIssue)
		protected.POST("/issues/:issue_id/upvote", upvoteHandler.ToggleUpvote)

		// Dashboard routes
		dashboard := protected.Group("/dashboard")
		{
			dashboard.GET("/hod", authMiddleware.RequireRole(entity.RoleHod), issueHandler.HodDashboard)
			dashboard.GET("/principal", principalOnly, issueHandler.PrincipalDashboard)

			staff := authMiddleware.RequireRole(entity.RoleHod, entity.RolePrincipal)
			dashboard.GET("/stats", staff, issueHandler.Stats)
			dashboard.GET("/export", staff, issueHandler.ExportIssues)
		}

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

// Handler exposes the router for an http.Server owned by the caller.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
