package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/autopool/service-rides/internal/application"
	"github.com/autopool/service-rides/internal/common/auth"
	"github.com/autopool/service-rides/internal/common/middleware"
	"github.com/autopool/service-rides/internal/common/response"
	"github.com/autopool/service-rides/internal/domain/catalog"
)

// PoolHandler handles HTTP requests for the pool surface.
type PoolHandler struct {
	service *application.PoolService
}

// NewPoolHandler creates a new PoolHandler.
func NewPoolHandler(service *application.PoolService) *PoolHandler {
	return &PoolHandler{service: service}
}

// RegisterRoutes registers all pool routes on the given router group.
func (h *PoolHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	pools := r.Group("/api/v1/pools")
	pools.Use(authMW)
	{
		pools.GET("", h.ListOpenPools)
		pools.POST("/confirm", middleware.RequireRole(auth.RoleDriver), h.ConfirmPartialPool)
	}
}

// ListOpenPools handles GET /api/v1/pools. Riders use it to join a filling
// pool, drivers to spot partial pools worth claiming.
func (h *PoolHandler) ListOpenPools(c *gin.Context) {
	pools, err := h.service.ListOpenPools(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, pools)
}

// ConfirmPartialPool handles POST /api/v1/pools/confirm. The calling driver
// claims an unfilled pool and its members are confirmed immediately.
func (h *PoolHandler) ConfirmPartialPool(c *gin.Context) {
	driverID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		DestinationID string `json:"destination_id" binding:"required"`
		VehicleClass  string `json:"vehicle_class" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	class, err := catalog.ParseVehicleClass(req.VehicleClass)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.ConfirmPartialPool(c.Request.Context(), req.DestinationID, class, driverID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"confirmed": true})
}
