package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/autopool/service-rides/internal/application"
	"github.com/autopool/service-rides/internal/common/auth"
	"github.com/autopool/service-rides/internal/common/middleware"
	"github.com/autopool/service-rides/internal/common/response"
	"github.com/autopool/service-rides/internal/domain/booking"
	"github.com/autopool/service-rides/internal/statussync"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsSendBuffer   = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Mobile clients connect from app webviews, not browser origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventStreamHandler upgrades booking watchers to websockets fed by the
// status synchronizer.
type EventStreamHandler struct {
	service *application.BookingService
	sync    *statussync.Synchronizer
	logger  *zap.Logger
}

// NewEventStreamHandler creates a new EventStreamHandler.
func NewEventStreamHandler(
	service *application.BookingService,
	sync *statussync.Synchronizer,
	logger *zap.Logger,
) *EventStreamHandler {
	return &EventStreamHandler{service: service, sync: sync, logger: logger}
}

// RegisterRoutes registers the driver-side event stream. The per-booking
// stream is mounted by BookingHandler under /bookings/:id/events.
func (h *EventStreamHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	r.GET("/api/v1/drivers/events",
		authMW, middleware.RequireRole(auth.RoleDriver), h.StreamDriverEvents)
}

// StreamBookingEvents handles GET /api/v1/bookings/:id/events. The current
// status is sent first so the client never misses a transition that landed
// between the HTTP fetch and the subscription; once the booking is terminal
// that snapshot is the only frame and the stream closes.
func (h *EventStreamHandler) StreamBookingEvents(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	bk, err := h.service.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := authorizeBookingRead(c, bk); err != nil {
		response.Error(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	send := make(chan statussync.StatusChange, wsSendBuffer)
	send <- statussync.StatusChange{
		BookingID:  bk.ID,
		RiderID:    bk.RiderID,
		DriverID:   bk.DriverID,
		Status:     booking.Status(bk.Status),
		OccurredAt: bk.UpdatedAt,
	}

	if booking.Status(bk.Status).IsTerminal() {
		close(send)
		h.writeLoop(conn, send)
		return
	}

	unsubscribe := h.sync.Subscribe(bookingID, func(change statussync.StatusChange) {
		select {
		case send <- change:
		default:
			h.logger.Warn("dropping status change for slow subscriber",
				zap.String("booking_id", change.BookingID.String()),
			)
		}
		if change.Status.IsTerminal() {
			close(send)
		}
	})
	defer unsubscribe()

	h.writeLoop(conn, send)
}

// StreamDriverEvents handles GET /api/v1/drivers/events: every transition on
// bookings assigned to the connected driver.
func (h *EventStreamHandler) StreamDriverEvents(c *gin.Context) {
	driverID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	send := make(chan statussync.StatusChange, wsSendBuffer)
	unsubscribe := h.sync.SubscribeDriver(driverID, func(change statussync.StatusChange) {
		select {
		case send <- change:
		default:
			h.logger.Warn("dropping status change for slow driver subscriber",
				zap.String("driver_id", driverID.String()),
			)
		}
	})
	defer unsubscribe()

	h.writeLoop(conn, send)
}

func (h *EventStreamHandler) writeLoop(conn *websocket.Conn, send <-chan statussync.StatusChange) {
	defer conn.Close()

	// Reader drains control frames and signals client disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case change, ok := <-send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(change); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
