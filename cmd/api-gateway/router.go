package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/LDThien999/ptitclassroom-score-api/internal/handler"
	"github.com/LDThien999/ptitclassroom-score-api/internal/middleware"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/config"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/logger"
	corsmiddleware "github.com/LDThien999/ptitclassroom-score-api/pkg/middleware/cors"
	reqidmiddleware "github.com/LDThien999/ptitclassroom-score-api/pkg/middleware/requestid"
)

func newRouter(a *app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(corsmiddleware.New(a.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))

	metricsHandler := handler.NewMetricsHandler(a.metrics, a.readinessChecks())
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if a.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		r.GET("/debug/metrics", metricsHandler.Snapshot)
	}

	classroomHandler := handler.NewClassroomHandler(a.classrooms)
	scoreHandler := handler.NewScoreHandler(a.scores)
	notificationHandler := handler.NewNotificationHandler(a.notifications)
	exportHandler := handler.NewExportHandler(nil)
	if a.exportJobs != nil {
		exportHandler = handler.NewExportHandler(a.exportJobs)
	}

	api := r.Group(a.cfg.APIPrefix)
	// Download links are capability tokens and work without a session.
	api.GET("/exports/download/:token", exportHandler.Download)

	secured := api.Group("")
	secured.Use(
		middleware.ForwardRequestID(),
		middleware.Auth(a.tokens, a.cfg.JWT.Required),
		middleware.WithResponseMeta(),
	)

	secured.GET("/classrooms", classroomHandler.List)
	secured.GET("/subjects", classroomHandler.Subjects)
	secured.GET("/classrooms/:id/students", classroomHandler.Students)
	secured.GET("/students/:username/report-card", classroomHandler.ReportCard)

	secured.GET("/classrooms/:id/scores", scoreHandler.Scores)
	secured.GET("/classrooms/:id/composites", scoreHandler.Composites)
	stats := secured.Group("/classrooms/:id/stats")
	stats.GET("/threshold", scoreHandler.Threshold)
	stats.GET("/histogram", scoreHandler.Histogram)
	stats.GET("/averages", scoreHandler.Averages)
	stats.GET("/summary", scoreHandler.Summary)

	exports := secured.Group("")
	exports.Use(middleware.RequireScope(a.cfg.JWT.ExportScopes...))
	exports.POST("/exports", exportHandler.Create)
	exports.POST("/classrooms/:id/exports", exportHandler.CreateForClassroom)
	exports.GET("/exports/:id", exportHandler.Status)

	secured.GET("/notifications", notificationHandler.List)
	secured.DELETE("/notifications/:id", notificationHandler.Dismiss)

	return r
}
