package payment

import (
	"errors"
	"io"
	"net/http"

	"hotelrides/internal/domain"
	"hotelrides/internal/middleware"
	"hotelrides/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, log: log}
}

// RegisterProtectedRoutes expects rg to be behind JWTAuth.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/bookings/:ref/session", middleware.GuestOnly(), h.StartSession)
	rg.POST("/payments/checkout", middleware.GuestOnly(), h.Checkout)
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/webhook", h.Webhook)
	rg.GET("/payments/redirect", h.Redirect)
}

func (h *Handler) StartSession(c *gin.Context) {
	resp, err := h.service.StartSession(c.Request.Context(), c.Param("ref"), middleware.ActorFrom(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err.Error())
		return
	}
	resp, err := h.service.Checkout(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp)
}

// Webhook acknowledges every notification that passed signature checks.
// Processing failures are logged, never surfaced to the gateway.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unreadable body")
		return
	}

	n, err := ParseWebhook(body)
	if err != nil {
		response.FromError(c, err)
		return
	}

	res, err := h.service.HandleWebhook(c.Request.Context(), n, c.GetHeader(SignatureHeader))
	switch {
	case errors.Is(err, domain.ErrSignatureVerification):
		response.FromError(c, err)
		return
	case err != nil:
		h.log.Error("webhook processing failed", zap.Error(err))
		response.Success(c, http.StatusOK, gin.H{"received": true, "processed": false})
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"received":          true,
		"processed":         !res.Ignored,
		"already_processed": res.AlreadyProcessed,
		"payment_status":    res.Status,
	})
}

func (h *Handler) Redirect(c *gin.Context) {
	res, n, err := h.service.HandleRedirect(c.Request.Context(), c.Request.URL.Query())
	if errors.Is(err, domain.ErrSignatureVerification) {
		response.FromError(c, err)
		return
	}

	out := OutcomeResponse{OrderReference: n.OrderReference}
	if err != nil {
		h.log.Error("redirect processing failed", zap.String("order_reference", n.OrderReference), zap.Error(err))
		out.Message = "Payment is being processed"
		response.Success(c, http.StatusOK, out)
		return
	}
	out.Processed = !res.Ignored
	out.AlreadyProcessed = res.AlreadyProcessed
	out.PaymentStatus = res.Status
	out.Booking = res.Booking
	response.Success(c, http.StatusOK, out)
}
