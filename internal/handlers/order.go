package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/ambre/internal/cache"
	"github.com/example/ambre/internal/middleware"
	"github.com/example/ambre/internal/models"
	"github.com/example/ambre/internal/services"
	"github.com/example/ambre/internal/utils"
)

// OrderHandler manages customer-facing order endpoints.
type OrderHandler struct {
	db       *gorm.DB
	checkout *services.CheckoutService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, checkout *services.CheckoutService) *OrderHandler {
	return &OrderHandler{db: db, checkout: checkout}
}

type checkoutItemRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type checkoutRequest struct {
	Items            []checkoutItemRequest  `json:"items"`
	Customer         services.CustomerInfo  `json:"customer"`
	ShippingAddress  services.AddressInput  `json:"shipping_address"`
	BillingAddress   *services.AddressInput `json:"billing_address"`
	PaymentMethod    string                 `json:"payment_method"`
	CouponCode       string                 `json:"coupon_code"`
	ReferralCode     string                 `json:"referral_code"`
	ShippingOptionID string                 `json:"shipping_option_id"`
	Notes            string                 `json:"notes"`
}

// Checkout places an order. Guests may check out without a token; a valid
// token attaches the order to the account.
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Customer.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "customer email is required")
	}

	input := services.SubmitOrderInput{
		Customer:        req.Customer,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
		CouponCode:      req.CouponCode,
		ReferralCode:    req.ReferralCode,
		Notes:           req.Notes,
	}

	if userID, ok := middleware.GetCurrentUserID(c); ok {
		input.UserID = &userID
	}

	for _, item := range req.Items {
		variantID, err := uuid.Parse(item.VariantID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid variant id")
		}
		input.Items = append(input.Items, services.CartLine{
			VariantID: variantID,
			Quantity:  item.Quantity,
		})
	}

	if req.ShippingOptionID != "" {
		optionID, err := uuid.Parse(req.ShippingOptionID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid shipping option id")
		}
		input.ShippingOptionID = &optionID
	}

	result, err := h.checkout.SubmitOrder(c.Context(), input)
	if err != nil {
		var invalid *services.InvalidItemError
		switch {
		case errors.Is(err, services.ErrEmptyCart):
			return fiber.NewError(fiber.StatusBadRequest, "cart is empty")
		case errors.As(err, &invalid):
			return fiber.NewError(fiber.StatusBadRequest, invalid.Error())
		case errors.Is(err, services.ErrInsufficientStock):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case errors.Is(err, services.ErrUnknownPaymentMethod):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrProviderUnavailable):
			// The order exists; surface it so the client can retry payment.
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"success": false,
				"error":   "payment provider is unavailable, order saved as pending",
				"data":    checkoutResponse(result),
			})
		default:
			return err
		}
	}

	if input.UserID != nil {
		// Checkout consumes the saved cart; a cache failure here is not
		// worth failing the order.
		_ = cache.ClearCart(c.Context(), input.UserID.String())
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    checkoutResponse(result),
	})
}

func checkoutResponse(result *services.SubmitOrderResult) fiber.Map {
	if result == nil || result.Order == nil {
		return fiber.Map{}
	}

	data := fiber.Map{
		"id":              result.Order.ID,
		"order_number":    result.Order.OrderNumber,
		"status":          result.Order.Status,
		"payment_status":  result.Order.PaymentStatus,
		"payment_method":  result.Order.PaymentMethod,
		"currency":        result.Order.Currency,
		"subtotal":        result.Order.Subtotal,
		"discount_amount": result.Order.DiscountAmount,
		"shipping_cost":   result.Order.ShippingCost,
		"total_amount":    result.Order.TotalAmount,
		"placed_at":       result.Order.PlacedAt,
	}
	if result.PaymentURL != "" {
		data["payment_url"] = result.PaymentURL
	}
	if result.BankReference != "" {
		data["bank_reference"] = result.BankReference
	}
	return data
}

// SyncPayment polls the payment provider and aligns the local payment
// status. Callers may poll it repeatedly, e.g. after returning from the
// provider's payment page.
func (h *OrderHandler) SyncPayment(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	if err := h.db.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}
	if !middleware.IsAdmin(c) {
		if order.UserID == nil || *order.UserID != userID {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
	}

	synced, err := h.checkout.SyncPaymentStatus(c.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		case errors.Is(err, services.ErrNoPaymentReference):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case errors.Is(err, services.ErrProviderUnavailable):
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		default:
			return err
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":             synced.ID,
			"order_number":   synced.OrderNumber,
			"status":         synced.Status,
			"payment_status": synced.PaymentStatus,
		},
	})
}

// ListMyOrders returns the caller's orders, newest first.
func (h *OrderHandler) ListMyOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{}).Where("user_id = ?", userID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetOrder returns one order. Customers only see their own; admins see any.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	if err := h.db.Preload("Items").Preload("Events").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if !middleware.IsAdmin(c) {
		if order.UserID == nil || *order.UserID != userID {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    order,
	})
}
