package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/autopool/service-rides/internal/application"
	"github.com/autopool/service-rides/internal/common/auth"
	"github.com/autopool/service-rides/internal/common/domain"
	"github.com/autopool/service-rides/internal/common/middleware"
	"github.com/autopool/service-rides/internal/common/response"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service  *application.BookingService
	location *application.LocationService
	events   *EventStreamHandler
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(
	service *application.BookingService,
	location *application.LocationService,
	events *EventStreamHandler,
) *BookingHandler {
	return &BookingHandler{service: service, location: location, events: events}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW)
	{
		bookings.POST("", middleware.RequireRole(auth.RoleRider), h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/cancel", h.CancelBooking)
		bookings.POST("/:id/complete", middleware.RequireRole(auth.RoleDriver), h.CompleteBooking)
		bookings.GET("/:id/driver-location", middleware.RequireRole(auth.RoleRider), h.GetDriverLocation)
		bookings.GET("/:id/events", h.events.StreamBookingEvents)
	}
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	riderID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), riderID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListBookings handles GET /api/v1/bookings. Riders see their own history,
// drivers see their assigned bookings.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	role, ok := middleware.GetUserRole(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	page, limit := parsePagination(c)

	var result *domain.PaginatedResult[application.BookingDTO]
	var err error
	switch role {
	case auth.RoleDriver:
		result, err = h.service.GetDriverBookings(c.Request.Context(), userID, page, limit)
	default:
		result, err = h.service.GetRiderBookings(c.Request.Context(), userID, page, limit)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/bookings/:id. Riders may read their own
// bookings, drivers their assigned ones, admins any.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := authorizeBookingRead(c, result); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, err := h.service.CancelBooking(c.Request.Context(), bookingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CompleteBooking handles POST /api/v1/bookings/:id/complete (driver drops
// the pool off; the rider's OTP verifies the right passenger was picked up).
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	driverID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body struct {
		OTP string `json:"otp"`
	}
	_ = c.ShouldBindJSON(&body)

	result, err := h.service.CompleteBooking(c.Request.Context(), bookingID, driverID, body.OTP)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetDriverLocation handles GET /api/v1/bookings/:id/driver-location.
func (h *BookingHandler) GetDriverLocation(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	riderID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	loc, err := h.location.GetDriverLocation(c.Request.Context(), bookingID, riderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, loc)
}

func authorizeBookingRead(c *gin.Context, bk *application.BookingDTO) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return domain.NewForbiddenError("unauthenticated")
	}
	role, _ := middleware.GetUserRole(c)

	switch role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleDriver:
		if bk.DriverID != nil && *bk.DriverID == userID {
			return nil
		}
	default:
		if bk.RiderID == userID {
			return nil
		}
	}
	return domain.NewForbiddenError("booking does not belong to this user")
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
