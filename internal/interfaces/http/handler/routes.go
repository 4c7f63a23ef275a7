package handler

import (
	"github.com/printdesk/backend/internal/interfaces/http/router"
)

// DocumentRoutes creates the route group for document endpoints
func DocumentRoutes(handler *PrintHandler) *router.DomainGroup {
	group := router.NewDomainGroup("documents", "/documents")
	group.POST("", handler.UploadDocument)
	group.GET("", handler.ListDocuments)
	group.GET("/:name", handler.GetDocument)
	return group
}

// PrintRoutes creates the route group for print submission
func PrintRoutes(handler *PrintHandler) *router.DomainGroup {
	group := router.NewDomainGroup("print", "/print")
	group.POST("", handler.Print)
	return group
}

// PrinterRoutes creates the route group for printer endpoints
func PrinterRoutes(handler *PrintHandler) *router.DomainGroup {
	group := router.NewDomainGroup("printers", "/printers")
	group.GET("", handler.ListPrinters)
	group.GET("/default", handler.GetDefaultPrinter)
	group.PUT("/default", handler.SetDefaultPrinter)
	return group
}

// JobRoutes creates the route group for spooler job endpoints
func JobRoutes(handler *PrintHandler) *router.DomainGroup {
	group := router.NewDomainGroup("jobs", "/jobs")
	group.GET("", handler.ListJobs)
	group.GET("/:jobId", handler.GetJob)
	return group
}

// SystemRoutes creates the route group for health endpoints
func SystemRoutes(handler *SystemHandler) *router.DomainGroup {
	group := router.NewDomainGroup("system", "/")
	group.GET("/health", handler.Health)
	return group
}
