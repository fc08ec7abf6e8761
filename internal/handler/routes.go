package handler

import "github.com/gin-gonic/gin"

// Handlers groups the API handlers mounted by Register.
type Handlers struct {
	MagicLinks    *MagicLinkHandler
	WeeklyReports *WeeklyReportHandler
	Students      *StudentHandler
	Configuration *ConfigurationHandler
	Audit         *AuditHandler
	Jobs          *JobHandler
}

// Register mounts the versioned API on group.
func Register(group gin.IRouter, h Handlers) {
	links := group.Group("/magic-links")
	links.GET("/validate", h.MagicLinks.Validate)
	links.POST("/send/:id", h.MagicLinks.Send)

	reports := group.Group("/weekly-reports")
	reports.POST("", h.WeeklyReports.Submit)
	reports.GET("", h.WeeklyReports.List)
	reports.GET("/student/:id", h.WeeklyReports.ListByStudent)

	students := group.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", h.Students.Update)
	students.DELETE("/:id", h.Students.Delete)
	students.PATCH("/:id/status", h.Students.UpdateStatus)
	students.POST("/:id/recompute", h.Students.Recompute)

	group.GET("/config", h.Configuration.Get)
	group.PUT("/config", h.Configuration.Update)

	group.GET("/audit", h.Audit.Full)
	group.GET("/audit/export", h.Audit.Export)

	group.POST("/jobs/:type", h.Jobs.Trigger)
	group.GET("/jobs/:type/last", h.Jobs.Last)
}

// RegisterOps mounts the health, readiness and metrics endpoints.
func RegisterOps(r gin.IRouter, h *MetricsHandler) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", h.Prometheus)
}
