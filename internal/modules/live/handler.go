package live

import (
	"context"
	"net/http"

	"hotelrides/internal/domain"
	"hotelrides/internal/pkg/jwt"
	"hotelrides/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type BookingReader interface {
	Get(ctx context.Context, ref string) (*domain.Booking, error)
}

// Snapshot is the first frame a client receives.
type Snapshot struct {
	Type    string          `json:"type"`
	Booking *domain.Booking `json:"booking"`
}

type Handler struct {
	hub      *Hub
	bookings BookingReader
	tokens   *jwt.Service
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHandler accepts any origin when origins is empty.
func NewHandler(hub *Hub, bookings BookingReader, tokens *jwt.Service, origins []string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &Handler{
		hub:      hub,
		bookings: bookings,
		tokens:   tokens,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// RegisterRoutes mounts the stream on a public group. Browsers cannot set
// headers on websocket requests, so the token comes in the query.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/live/bookings/:ref", h.Stream)
}

func (h *Handler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "AUTH_TOKEN_MISSING", "token query parameter is required")
		return
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	ref := c.Param("ref")
	b, err := h.bookings.Get(c.Request.Context(), ref)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if !canWatch(claims, b) {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not a participant of this booking")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("booking_reference", ref), zap.Error(err))
		return
	}

	cl := &client{conn: conn, send: make(chan interface{}, sendBuffer)}
	cl.send <- Snapshot{Type: "snapshot", Booking: b}
	h.hub.register(ref, cl)
	h.log.Debug("live client connected", zap.String("booking_reference", ref), zap.String("actor_id", claims.ActorID))

	go h.hub.writePump(cl)
	h.hub.readPump(ref, cl)
}

func canWatch(claims *jwt.Claims, b *domain.Booking) bool {
	switch domain.ActorRole(claims.Role) {
	case domain.RoleGuest:
		return claims.ActorID == b.GuestID
	case domain.RoleProvider:
		return claims.ActorID == b.ProviderID
	case domain.RoleHotelStaff:
		return claims.HotelID != "" && claims.HotelID == b.HotelID
	}
	return false
}
