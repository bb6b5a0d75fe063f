package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fabtrack/sheetstock/api-gateway/config"
	"github.com/fabtrack/sheetstock/api-gateway/health"
	"github.com/fabtrack/sheetstock/api-gateway/proxy"
)

// RouteDefinition defines a route mapping
type RouteDefinition struct {
	Prefix      string
	ServiceName string
	Description string
}

// Routes holds all route definitions
var Routes = []RouteDefinition{
	{
		Prefix:      "/api/allocations",
		ServiceName: "stock",
		Description: "Stock allocation against jobs",
	},
	{
		Prefix:      "/api/groups",
		ServiceName: "stock",
		Description: "Order group intake and receipt",
	},
	{
		Prefix:      "/api/adjustments",
		ServiceName: "stock",
		Description: "Manual quantity corrections",
	},
	{
		Prefix:      "/api/ledger",
		ServiceName: "stock",
		Description: "Per-material transaction ledger",
	},
	{
		Prefix:      "/api/summary",
		ServiceName: "stock",
		Description: "On-hand and ordered stock summary",
	},
	{
		Prefix:      "/api/units",
		ServiceName: "stock",
		Description: "Raw inventory unit listing",
	},
	{
		Prefix:      "/api/snapshots",
		ServiceName: "stock",
		Description: "Backup, restore, export and import",
	},
	{
		Prefix:      "/api/repair",
		ServiceName: "stock",
		Description: "Referential key and catalog repair",
	},
}

// SetupRoutes configures all routes in the gateway
func SetupRoutes(app *fiber.App, cfg *config.GatewayConfig) {
	// Create reverse proxy
	reverseProxy := proxy.NewReverseProxy(cfg)

	// Create health checker
	healthChecker := health.NewHealthChecker(cfg)

	// Gateway quick health check (no downstream checks)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(healthChecker.QuickCheck())
	})

	// Liveness probe (for Kubernetes)
	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "alive",
		})
	})

	// Readiness probe (checks downstream instances)
	app.Get("/health/ready", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		healthStatus := healthChecker.CheckAllInstances(ctx)

		statusCode := fiber.StatusOK
		if healthStatus.Status == "unhealthy" {
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(healthStatus)
	})

	// Detailed instance health checks
	app.Get("/health/services", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		return c.JSON(healthChecker.CheckAllInstances(ctx))
	})

	// Load balancer statistics
	app.Get("/gateway/stats", func(c *fiber.Ctx) error {
		stats := make(map[string]interface{})
		for name, lb := range reverseProxy.GetLoadBalancers() {
			stats[name] = lb.GetStats()
		}
		return c.JSON(stats)
	})

	// API routes overview
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Stock Gateway",
			"version": "1.0.0",
			"routes":  Routes,
		})
	})

	// Register all service routes
	for _, route := range Routes {
		registerServiceRoutes(app, route, reverseProxy)
	}
}

// registerServiceRoutes registers all HTTP methods for a service prefix
func registerServiceRoutes(app *fiber.App, route RouteDefinition, proxyHandler *proxy.ReverseProxy) {
	handler := func(c *fiber.Ctx) error {
		return proxyHandler.ProxyRequest(c, route.ServiceName)
	}

	// Create a route group for this service
	group := app.Group(route.Prefix)

	// Handle all HTTP methods with wildcard path
	group.All("/*", handler)

	// Also handle the exact prefix path (without /*)
	app.All(route.Prefix, handler)
}
