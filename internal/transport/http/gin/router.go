package httpgin

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/ceylontix/internal/payhere"
	redisrepo "github.com/kirinyoku/ceylontix/internal/repository/redis"
	"github.com/kirinyoku/ceylontix/internal/service"
	"github.com/kirinyoku/ceylontix/internal/service/admin"
	"github.com/kirinyoku/ceylontix/internal/service/booking"
	"github.com/kirinyoku/ceylontix/internal/service/payment"
	"github.com/kirinyoku/ceylontix/internal/service/query"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Plain-text bodies returned to the gateway.
const (
	msgOK              = "OK"
	msgInvalidBody     = "Invalid body"
	msgMissingFields   = "Missing fields"
	msgUnauthorized    = "Unauthorized"
	msgConfigError     = "Server configuration error."
	msgBookingTxFailed = "Booking transaction failed."
)

const maxNotificationBytes = 64 << 10

type Options struct {
	Idempotency    *redisrepo.IdempotencyStore
	AdminJWTSecret []byte
}

func NewRouter(
	svcs *service.Services,
	opts Options,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Payment gateway
	ph := r.Group("/payhere")
	{
		ph.POST("/notify", handleNotify(svcs))
		ph.OPTIONS("/notify", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		ph.POST("/hash", handleHash(svcs))
		ph.POST("/checkout", handleCheckout(svcs, opts.Idempotency))
	}

	// Public API
	r.GET("/events/:id", handleGetEvent(svcs))
	r.GET("/bookings/:id", handleGetBooking(svcs))

	// Admin API
	adm := r.Group("/admin", AdminJWT(opts.AdminJWTSecret))
	{
		adm.POST("/events", handleCreateEvent(svcs))
		adm.POST("/events/:id/tiers/:tier/restock", handleRestock(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  PayHere payment notification
// @Accept   x-www-form-urlencoded
// @Accept   json
// @Produce  plain
// @Param    merchant_id       formData  string  true  "Merchant ID"
// @Param    order_id          formData  string  true  "Order ID"
// @Param    payhere_amount    formData  string  true  "Paid amount"
// @Param    payhere_currency  formData  string  true  "Currency"
// @Param    status_code       formData  string  true  "2 = success"
// @Param    md5sig            formData  string  true  "Signature"
// @Success  200  {string}  string  "OK"
// @Failure  400  {string}  string  "Invalid body / Missing fields"
// @Failure  401  {string}  string  "Unauthorized"
// @Failure  500  {string}  string  "Server configuration error. / Booking transaction failed."
// @Router   /payhere/notify [post]
func handleNotify(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxNotificationBytes))
		if err != nil {
			c.String(http.StatusBadRequest, msgInvalidBody)
			return
		}

		n, err := payhere.ParseNotification(c.ContentType(), raw)
		if err != nil {
			if errors.Is(err, payhere.ErrMissingFields) {
				c.String(http.StatusBadRequest, msgMissingFields)
				return
			}
			c.String(http.StatusBadRequest, msgInvalidBody)
			return
		}

		if _, err := svcs.Payment.Notify(c.Request.Context(), n); err != nil {
			switch {
			case errors.Is(err, payhere.ErrSecretNotConfigured):
				c.String(http.StatusInternalServerError, msgConfigError)
			case errors.Is(err, payhere.ErrSignatureMismatch):
				c.String(http.StatusUnauthorized, msgUnauthorized)
			default:
				_ = c.Error(err)
				c.String(http.StatusInternalServerError, msgBookingTxFailed)
			}
			return
		}

		c.String(http.StatusOK, msgOK)
	}
}

// @Summary  Checkout hash for a client-built payment form
// @Accept   json
// @Produce  json
// @Param    req  body  HashRequest  true  "payload"
// @Success  200  {object}  payment.HashResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  500  {object}  ErrorResponse
// @Router   /payhere/hash [post]
func handleHash(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req HashRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		resp, err := svcs.Payment.Hash(payment.HashRequest{
			MerchantID: req.MerchantID,
			OrderID:    req.OrderID,
			Amount:     req.Amount.String(),
			Currency:   req.Currency,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// @Summary  Create a pending reservation and its signed checkout payload (idempotent)
// @Accept   json
// @Produce  json
// @Param    req  body  CheckoutRequest  true  "payload"
// @Header   200  {string}  Idempotency-Key  "echo"
// @Success  200  {object}  payment.CheckoutResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "sold out / order exists / idem in progress"
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Router   /payhere/checkout [post]
func handleCheckout(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemCheckout(idemKey)

			if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
				return
			}

			locked, err := idem.AcquireLock(ctx, idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		resp, err := svcs.Payment.Checkout(ctx, payment.CheckoutRequest{
			OrderID:   req.OrderID,
			EventID:   req.EventID,
			TierName:  req.TierName,
			Quantity:  req.Quantity,
			UserEmail: req.UserEmail,
			UserName:  req.UserName,
		}, "ip:"+c.ClientIP())
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(ctx, idemStorageKey, b)
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusOK, resp)
	}
}

// @Summary  Get event with remaining tier quantities
// @Produce  json
// @Param    id  path  string  true  "Event ID"
// @Success  200  {object}  domain.Event
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id} [get]
func handleGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := svcs.Query.GetEvent(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, e, "public, max-age=15")
	}
}

// @Summary  Get confirmed booking
// @Produce  json
// @Param    id  path  string  true  "Order ID"
// @Success  200  {object}  domain.Booking
// @Failure  404  {object}  ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := svcs.Query.GetBooking(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Create event with ticket tiers
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    req  body  CreateEventRequest  true  "payload"
// @Success  201  {object}  domain.Event
// @Failure  400  {object}  ErrorResponse
// @Failure  401  {object}  ErrorResponse
// @Failure  403  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/events [post]
func handleCreateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		e, err := svcs.Admin.CreateEvent(c.Request.Context(), req.ID, req.Name, req.tiers())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, e)
	}
}

// @Summary  Adjust the remaining quantity of a tier
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    id    path  string          true  "Event ID"
// @Param    tier  path  string          true  "Tier name"
// @Param    req   body  RestockRequest  true  "payload"
// @Success  200  {object}  RestockResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "would go below zero"
// @Router   /admin/events/{id}/tiers/{tier}/restock [post]
func handleRestock(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RestockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		eventID, tier := c.Param("id"), c.Param("tier")

		remaining, err := svcs.Admin.Restock(c.Request.Context(), eventID, tier, req.Delta)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, RestockResponse{EventID: eventID, Tier: tier, Remaining: remaining})
	}
}

// --- Helpers ---

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rl payment.RateLimitedError
	if errors.As(err, &rl) {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
		return
	}

	switch {
	// configuration
	case errors.Is(err, payhere.ErrSecretNotConfigured):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgConfigError})
	// payment service
	case errors.Is(err, payment.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, payment.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
	case errors.Is(err, payment.ErrTierNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket tier not found"})
	case errors.Is(err, payment.ErrSoldOut):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "not enough tickets available"})
	case errors.Is(err, payment.ErrOrderExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "order id already used"})
	// query service
	case errors.Is(err, query.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
	case errors.Is(err, query.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	// admin service
	case errors.Is(err, admin.ErrInvalidTiers):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, admin.ErrEventConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "event conflict"})
	case errors.Is(err, admin.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
	case errors.Is(err, admin.ErrTierNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket tier not found"})
	case errors.Is(err, admin.ErrNegativeStock):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "tier quantity cannot go below zero"})
	// booking engine
	case errors.Is(err, booking.ErrReconciliationConflict), errors.Is(err, booking.ErrRetriesExhausted):
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "booking transaction failed"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
