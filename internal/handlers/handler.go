package handlers

import (
	"telemetry_dashboard/internal/logger"
	"telemetry_dashboard/internal/metrics"
	"telemetry_dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services, the event hub and logging.
type Handler struct {
	services *service.Service
	hub      *Hub
	log      *logger.Logger
	gatherer prometheus.Gatherer
}

// NewHandler constructs a new HTTP handler with dependencies. A nil gatherer
// disables /metrics.
func NewHandler(services *service.Service, hub *Hub, log *logger.Logger, gatherer prometheus.Gatherer) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{services: services, hub: hub, log: log, gatherer: gatherer}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Liveness of the process itself
	router.GET("/healthz", h.healthz)

	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(h.gatherer)))
	}

	// Event socket, same port
	if h.hub != nil {
		router.GET("/events", h.hub.Serve)
	}

	h.registerAPIRoutes(router)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		h.registerMapRoutes(api)
		h.registerGPSRoutes(api)
		h.registerTrackRoutes(api)
		api.GET("/health", h.getHealth)
		api.GET("/daylight", h.getDaylight)
	}
}

func (h *Handler) registerMapRoutes(api *gin.RouterGroup) {
	m := api.Group("/map")
	{
		m.GET("/config", h.getMapConfig)
		m.GET("/geojson", h.getGeoJSON)
		m.GET("/:z/:x/:y", h.getTile)
	}
}

func (h *Handler) registerGPSRoutes(api *gin.RouterGroup) {
	gps := api.Group("/gps")
	{
		gps.GET("", h.getGPSData)
		gps.GET("/position", h.getPosition)
		gps.GET("/meta", h.getMetaInfo)
		gps.GET("/track", h.getTrack)
	}
}

func (h *Handler) registerTrackRoutes(api *gin.RouterGroup) {
	tracks := api.Group("/tracks")
	{
		tracks.GET("", h.listTracks)
		tracks.GET("/:id", h.getTrackPoints)
	}
}
