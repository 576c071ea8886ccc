package booking

import (
	"net/http"

	"hotelrides/internal/domain"
	"hotelrides/internal/middleware"
	"hotelrides/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes expects rg to be behind JWTAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	b := rg.Group("/bookings")
	b.POST("", middleware.GuestOnly(), h.CreateBooking)
	b.GET("/:ref", h.GetBooking)

	b.POST("/:ref/quote", middleware.ProviderOnly(), h.CreateQuote)
	b.POST("/:ref/quote/send", middleware.ProviderOnly(), h.SendQuote)
	b.POST("/:ref/quote/accept", middleware.GuestOnly(), h.AcceptQuote)
	b.POST("/:ref/quote/reject", middleware.GuestOnly(), h.RejectQuote)
	b.POST("/:ref/payment-method", middleware.GuestOnly(), h.ProceedToPayment)
	b.POST("/:ref/cash/confirm", middleware.ProviderOnly(), h.ConfirmCash)
	b.POST("/:ref/start", middleware.ProviderOnly(), h.StartService)
	b.POST("/:ref/complete", middleware.ProviderOnly(), h.Complete)
	b.POST("/:ref/cancel", h.Cancel)
	b.POST("/:ref/messages", h.AddMessage)
	b.POST("/:ref/feedback", middleware.GuestOnly(), h.SubmitFeedback)
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if !bind(c, &req) {
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"booking": b})
}

func (h *Handler) GetBooking(c *gin.Context) {
	b, err := h.service.Get(c.Request.Context(), c.Param("ref"))
	respond(c, b, err)
}

func (h *Handler) CreateQuote(c *gin.Context) {
	var req QuoteRequest
	if !bind(c, &req) {
		return
	}
	b, err := h.service.CreateQuote(c.Request.Context(), c.Param("ref"), middleware.ActorFrom(c), req)
	respond(c, b, err)
}

func (h *Handler) SendQuote(c *gin.Context) {
	var req QuoteRequest
	if !bind(c, &req) {
		return
	}
	b, err := h.service.SendQuote(c.Request.Context(), c.Param("ref"), middleware.ActorFrom(c), req)
	respond(c, b, err)
}

func (h *Handler) AcceptQuote(c *gin.Context) {
	b, err := h.service.AcceptQuote(c.Request.Context(), c.Param("ref"), middleware.ActorFrom(c))
	respond(c, b, err)
}

func (h *Handler) RejectQuote(c *gin.Context) {
	var req ReasonRequest
	if !bindOptional(c, &req) {
		return
	}
	b, err := h.service.RejectQuote(c.Request.Context(), c.Param("ref"), middleware.ActorFrom(c), req.Reason)
	respond(c, b, err)
}

func (h *Handler) ProceedToPayment(c *gin.Context) {
	var req PaymentMethodRequest
	if !bind(c, &req) {
		return
	}
	b, err := h.service.ProceedToPayment(c.Request.Context(), c.Param("ref"), middleware.ActorFrom(c), req.Method)
	respond(c, b, err)
}

func (h *Handler) ConfirmCash(c *gin.Context) {
	b, err := h.service.ConfirmCash(c.Request.Context(), c.Param("ref"), middleware.ActorFrom(c))
	respond(c, b, err)
}

func (h *Handler) StartService(c *gin.Context) {
	b, err := h.service.StartService(c.Request.Context(), c.Param("ref"), middleware.ActorFrom(c))
	respond(c, b, err)
}

func (h *Handler) Complete(c *gin.Context) {
	b, err := h.service.Complete(c.Request.Context(), c.Param("ref"), middleware.ActorFrom(c))
	respond(c, b, err)
}

func (h *Handler) Cancel(c *gin.Context) {
	var req ReasonRequest
	if !bindOptional(c, &req) {
		return
	}
	b, err := h.service.Cancel(c.Request.Context(), c.Param("ref"), middleware.ActorFrom(c), req.Reason)
	respond(c, b, err)
}

func (h *Handler) AddMessage(c *gin.Context) {
	var req MessageRequest
	if !bind(c, &req) {
		return
	}
	b, err := h.service.AddMessage(c.Request.Context(), c.Param("ref"), middleware.ActorFrom(c), req.Message)
	respond(c, b, err)
}

func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req FeedbackRequest
	if !bind(c, &req) {
		return
	}
	b, err := h.service.SubmitFeedback(c.Request.Context(), c.Param("ref"), middleware.ActorFrom(c), req)
	respond(c, b, err)
}

func respond(c *gin.Context, b *domain.Booking, err error) {
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err.Error())
		return false
	}
	return true
}

// bindOptional accepts an empty body.
func bindOptional(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bind(c, req)
}
