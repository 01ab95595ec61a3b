package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/autopool/service-rides/internal/application"
	"github.com/autopool/service-rides/internal/common/auth"
	"github.com/autopool/service-rides/internal/common/middleware"
	"github.com/autopool/service-rides/internal/common/response"
)

// LocationHandler handles live position reports.
type LocationHandler struct {
	service *application.LocationService
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(service *application.LocationService) *LocationHandler {
	return &LocationHandler{service: service}
}

// RegisterRoutes registers location routes on the given router group.
func (h *LocationHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	r.POST("/api/v1/locations", middleware.AuthMiddleware(jwtManager), h.ReportLocation)
}

// ReportLocation handles POST /api/v1/locations. Drivers report while on a
// ride; riders may report so drivers can find them at pickup.
func (h *LocationHandler) ReportLocation(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Lat float64 `json:"lat" binding:"required"`
		Lng float64 `json:"lng" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.ReportLocation(c.Request.Context(), userID, req.Lat, req.Lng); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"reported": true})
}
