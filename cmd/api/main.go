package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/careerplatform/admissions-api/api/swagger"
	"github.com/careerplatform/admissions-api/internal/handler"
	"github.com/careerplatform/admissions-api/internal/middleware"
	"github.com/careerplatform/admissions-api/internal/models"
	"github.com/careerplatform/admissions-api/internal/repository"
	"github.com/careerplatform/admissions-api/internal/service"
	"github.com/careerplatform/admissions-api/pkg/cache"
	"github.com/careerplatform/admissions-api/pkg/config"
	"github.com/careerplatform/admissions-api/pkg/database"
	"github.com/careerplatform/admissions-api/pkg/logger"
	corsmiddleware "github.com/careerplatform/admissions-api/pkg/middleware/cors"
	reqidmiddleware "github.com/careerplatform/admissions-api/pkg/middleware/requestid"
)

// @title Admissions API
// @version 1.0.0
// @description Course admissions portal: catalog, eligibility and application decisions
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	scale := models.NewGradeScale(cfg.Admissions.GradeScale)

	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Catalog.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, true)
		}
	}

	userRepo := repository.NewUserRepository(db)
	institutionRepo := repository.NewInstitutionRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	institutionSvc := service.NewInstitutionService(institutionRepo, userRepo, authSvc, validate, logr)
	facultySvc := service.NewFacultyService(facultyRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, facultyRepo, scale, cfg.Admissions.Subjects, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, userRepo, authSvc, scale, cfg.Admissions.Subjects, validate, logr)
	eligibilitySvc := service.NewEligibilityService(scale)
	admissionSvc := service.NewAdmissionService(applicationRepo, courseRepo, studentRepo, eligibilitySvc, validate, logr)
	exportSvc := service.NewExportService(admissionSvc, nil, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	institutionHandler := handler.NewInstitutionHandler(institutionSvc)
	facultyHandler := handler.NewFacultyHandler(facultySvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	applicationHandler := handler.NewApplicationHandler(admissionSvc, exportSvc, metrics)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", middleware.JWT(authSvc), authHandler.Me)

	api.POST("/institutions/register", institutionHandler.Register)
	api.GET("/institutions", institutionHandler.List)
	api.GET("/institutions/:id", institutionHandler.Get)

	api.POST("/students/register", studentHandler.Register)
	api.GET("/courses", courseHandler.List)
	api.GET("/courses/:id", courseHandler.Get)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	students := authed.Group("/students")
	students.Use(middleware.RequireRoles(models.RoleStudent))
	students.GET("/me", studentHandler.Profile)

	institute := authed.Group("")
	institute.Use(middleware.RequireRoles(models.RoleInstitute, models.RoleAdmin))
	institute.GET("/faculties", facultyHandler.List)
	institute.POST("/faculties", facultyHandler.Create)
	institute.PUT("/faculties/:id", facultyHandler.Rename)
	institute.DELETE("/faculties/:id", facultyHandler.Delete)
	institute.POST("/courses", courseHandler.Create)
	institute.PUT("/courses/:id", courseHandler.Update)
	institute.DELETE("/courses/:id", courseHandler.Delete)

	applications := authed.Group("/applications")
	applications.GET("", applicationHandler.List)
	applications.POST("", middleware.RequireRoles(models.RoleStudent), applicationHandler.Apply)
	applications.GET("/eligibility/:courseId", middleware.RequireRoles(models.RoleStudent), applicationHandler.Eligibility)

	decisions := applications.Group("")
	decisions.Use(middleware.RequireRoles(models.RoleInstitute, models.RoleAdmin))
	decisions.Use(middleware.Audit(userRepo, models.AuditActionApplicationDecide, "application"))
	decisions.POST("/:id/approve", applicationHandler.Approve)
	decisions.POST("/:id/reject", applicationHandler.Reject)

	if cfg.Exports.Enabled {
		applications.GET("/export",
			middleware.RequireRoles(models.RoleInstitute, models.RoleAdmin),
			applicationHandler.Export)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
