package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/karmagully/checkout-backend/internal/gateway"
	"github.com/karmagully/checkout-backend/internal/metrics"
	"github.com/karmagully/checkout-backend/internal/notify"
	"github.com/karmagully/checkout-backend/internal/orders"
	"github.com/karmagully/checkout-backend/internal/signature"
	"github.com/karmagully/checkout-backend/internal/validation"
	"github.com/karmagully/checkout-backend/internal/webhook"
)

// OrderGateway creates remote payment-provider orders. *gateway.Razorpay is
// the production implementation; a nil one reports itself unconfigured.
type OrderGateway interface {
	CreateRemoteOrder(ctx context.Context, amountMinor int64, currency string) (gateway.RemoteOrder, error)
}

// HandlerConfig groups dependencies for the payment handlers. Everything is
// injected; there is no ambient gateway or store singleton.
type HandlerConfig struct {
	Store         *orders.Store
	Gateway       OrderGateway      // nil when Razorpay keys are not configured
	Notify        *notify.Publisher // nil when no notification queue is configured
	Metrics       *metrics.Emitter  // nil disables metrics
	KeySecret     string            // Razorpay key secret, signs verify-payment confirmations
	WebhookSecret string            // shared secret for webhook HMAC
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	OrderDBID         string `json:"order_db_id"`
}

// RegisterPaymentRoutes registers the checkout, verification, webhook and
// order-lookup routes.
func RegisterPaymentRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	pipeline := webhook.NewPipeline(cfg.WebhookSecret, cfg.Store, cfg.Notify, cfg.Metrics)

	r.POST("/create-order", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		if cfg.Gateway == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "gateway_not_configured"})
			return
		}
		remote, err := cfg.Gateway.CreateRemoteOrder(ctx, req.Amount, req.Currency)
		if errors.Is(err, gateway.ErrNotConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "gateway_not_configured"})
			return
		}
		if err != nil {
			log.Printf("create-order: gateway error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "details": err.Error()})
			return
		}

		// Best-effort persistence: payment correctness is carried by the
		// signature, not by storage uptime, so a store failure degrades to a
		// warning and a null order_db_id.
		var orderDBID interface{}
		created, serr := cfg.Store.Create(ctx, orders.Draft{
			Items:           toLineItems(req.Items),
			Amount:          req.Amount,
			Currency:        remote.Currency,
			Customer:        toCustomer(req.Customer),
			Status:          orders.StatusPending,
			RazorpayOrderID: remote.ID,
		})
		if serr != nil {
			if orders.IsUnavailable(serr) {
				log.Printf("create-order: store unavailable, order not persisted: %v", serr)
			} else {
				log.Printf("create-order: order not persisted: %v", serr)
			}
		} else {
			orderDBID = created.OrderID
		}

		c.JSON(http.StatusOK, gin.H{
			"id":          remote.ID,
			"amount":      remote.Amount,
			"currency":    remote.Currency,
			"receipt":     remote.Receipt,
			"order_db_id": orderDBID,
		})
	})

	r.POST("/create-cod-order", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CreateCODOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		method := req.PaymentMethod
		if method == "" {
			method = orders.MethodCOD
		}

		created, err := cfg.Store.Create(ctx, orders.Draft{
			Items:         toLineItems(req.Items),
			Amount:        req.Amount,
			Currency:      req.Currency,
			Customer:      toCustomer(req.Customer),
			PaymentMethod: method,
			Status:        orders.StatusCODPending,
		})
		if err != nil {
			log.Printf("create-cod-order: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"orderId": created.OrderID,
			"message": "COD order placed successfully",
			"order": gin.H{
				"id":       created.OrderID,
				"amount":   created.Amount,
				"currency": created.Currency,
				"status":   created.Status,
				"customer": created.Customer,
				"items":    created.Items,
			},
		})
	})

	r.POST("/verify-payment", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req verifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"verified": false, "error": "missing_fields"})
			return
		}
		if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
			c.JSON(http.StatusBadRequest, gin.H{"verified": false, "error": "missing_fields"})
			return
		}
		if cfg.KeySecret == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"verified": false, "error": "razorpay_secret_not_configured"})
			return
		}

		msg := signature.PaymentMessage(req.RazorpayOrderID, req.RazorpayPaymentID)
		if !signature.Verify([]byte(cfg.KeySecret), msg, req.RazorpaySignature) {
			log.Printf("verify-payment: invalid signature for %s", req.RazorpayOrderID)
			cfg.Metrics.SignatureFailure(ctx, "verify-payment")
			c.JSON(http.StatusBadRequest, gin.H{"verified": false, "error": "invalid_signature"})
			return
		}

		// The signature is valid, so the payment is verified no matter what
		// happens below. Store lookups and writes degrade to warnings.
		order := lookupOrder(ctx, cfg.Store, req.OrderDBID, req.RazorpayOrderID)
		if order == nil {
			c.JSON(http.StatusOK, gin.H{
				"verified":            true,
				"message":             "Payment verified (database unavailable)",
				"razorpay_order_id":   req.RazorpayOrderID,
				"razorpay_payment_id": req.RazorpayPaymentID,
			})
			return
		}

		prevStatus := order.Status
		updated, err := cfg.Store.Transition(ctx, order, orders.PaymentCaptured{
			PaymentID:  req.RazorpayPaymentID,
			Signature:  req.RazorpaySignature,
			CapturedAt: time.Now(),
		})
		if err != nil {
			log.Printf("verify-payment: transition failed for %s: %v", order.OrderID, err)
			c.JSON(http.StatusOK, gin.H{
				"verified":            true,
				"message":             "Payment verified (database unavailable)",
				"razorpay_order_id":   req.RazorpayOrderID,
				"razorpay_payment_id": req.RazorpayPaymentID,
			})
			return
		}

		if updated.Status == orders.StatusPaid && prevStatus != orders.StatusPaid {
			if err := cfg.Notify.OrderPaid(ctx, updated, c.GetHeader("X-Request-Id")); err != nil {
				log.Printf("verify-payment: notification enqueue failed for %s: %v", updated.OrderID, err)
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"verified": true,
			"orderId":  updated.OrderID,
			"message":  "Payment verified and order updated",
		})
	})

	r.POST("/webhook", func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.String(http.StatusBadRequest, "bad payload")
			return
		}

		disp, err := pipeline.Handle(c.Request.Context(), body, c.GetHeader("X-Razorpay-Signature"))
		switch disp {
		case webhook.Rejected:
			log.Printf("webhook: rejected: %v", err)
			if errors.Is(err, signature.ErrInvalidSignature) {
				c.String(http.StatusBadRequest, "invalid signature")
			} else {
				c.String(http.StatusBadRequest, "bad payload")
			}
		case webhook.Errored:
			log.Printf("webhook: dispatch error: %v", err)
			c.String(http.StatusInternalServerError, "internal_error")
		default:
			c.JSON(http.StatusOK, gin.H{"ok": true})
		}
	})

	r.GET("/orders", func(c *gin.Context) {
		list, err := cfg.Store.List(c.Request.Context())
		if err != nil {
			log.Printf("get-orders: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "orders": list})
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		order, err := cfg.Store.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			log.Printf("get-order: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}
		if order == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	})
}

// lookupOrder tries the internal id first, then the provider order id.
// Store failures degrade to nil so verification success is never downgraded
// by storage issues.
func lookupOrder(ctx context.Context, store *orders.Store, dbID, rzpOrderID string) *orders.Order {
	if dbID != "" {
		order, err := store.GetByID(ctx, dbID)
		if err != nil {
			log.Printf("verify-payment: lookup by db id %s failed: %v", dbID, err)
		} else if order != nil {
			return order
		}
	}
	order, err := store.GetByProviderOrderID(ctx, rzpOrderID)
	if err != nil {
		log.Printf("verify-payment: lookup by razorpay order id %s failed: %v", rzpOrderID, err)
		return nil
	}
	return order
}

func toLineItems(items []validation.Item) []orders.LineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]orders.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, orders.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Image:     it.Image,
		})
	}
	return out
}

func toCustomer(c *validation.CustomerPayload) orders.Customer {
	if c == nil {
		return orders.Customer{}
	}
	return orders.Customer{
		Name:            c.Name,
		Email:           c.Email,
		Phone:           c.Phone,
		ShippingAddress: c.ShippingAddress,
	}
}
