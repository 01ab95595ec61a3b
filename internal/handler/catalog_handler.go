package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/autopool/service-rides/internal/common/response"
	"github.com/autopool/service-rides/internal/domain/catalog"
)

// CatalogHandler serves the destination catalog and fare quotes. Both are
// public: the booking screen renders them before login.
type CatalogHandler struct {
	catalog *catalog.Catalog
	fares   catalog.FareCalculator
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(cat *catalog.Catalog, fares catalog.FareCalculator) *CatalogHandler {
	return &CatalogHandler{catalog: cat, fares: fares}
}

// RegisterRoutes registers catalog routes on the given router group.
func (h *CatalogHandler) RegisterRoutes(r *gin.RouterGroup) {
	destinations := r.Group("/api/v1/destinations")
	{
		destinations.GET("", h.ListDestinations)
		destinations.GET("/:id/fare", h.QuoteFare)
	}
}

// ListDestinations handles GET /api/v1/destinations.
func (h *CatalogHandler) ListDestinations(c *gin.Context) {
	response.Success(c, h.catalog.All())
}

// QuoteFare handles GET /api/v1/destinations/:id/fare.
func (h *CatalogHandler) QuoteFare(c *gin.Context) {
	dest, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	class, err := catalog.ParseVehicleClass(c.Query("vehicle_class"))
	if err != nil {
		response.Error(c, err)
		return
	}

	tier, err := dest.Tier(class)
	if err != nil {
		response.Error(c, err)
		return
	}

	passengers, err := strconv.Atoi(c.DefaultQuery("passengers", "1"))
	if err != nil {
		response.BadRequest(c, "invalid passenger count")
		return
	}

	fare, err := h.fares.Fare(tier, passengers)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"destination_id": dest.ID,
		"vehicle_class":  class.String(),
		"passengers":     passengers,
		"fare":           fare,
	})
}
