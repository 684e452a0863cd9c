package handlers

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/ambre/internal/models"
	"github.com/example/ambre/internal/services"
	"github.com/example/ambre/internal/utils"
)

// AdminHandler manages back-office order operations and the dashboard.
type AdminHandler struct {
	db     *gorm.DB
	orders services.OrderPersistence
	refund *services.RefundService
	mailer *services.EmailService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, orders services.OrderPersistence, refund *services.RefundService, mailer *services.EmailService) *AdminHandler {
	return &AdminHandler{db: db, orders: orders, refund: refund, mailer: mailer}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	var totalUsers int64
	if err := h.db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	var totalOrders int64
	if err := h.db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		return err
	}

	var totalProducts int64
	if err := h.db.Model(&models.Product{}).Where("is_active = ?", true).Count(&totalProducts).Error; err != nil {
		return err
	}

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var statusCounts []statusCount
	if err := h.db.Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return err
	}

	ordersByStatus := make(map[string]int64)
	for _, sc := range statusCounts {
		ordersByStatus[sc.Status] = sc.Count
	}

	// Revenue counts captured money only: refunded and cancelled orders
	// are excluded.
	var totalRevenue decimal.Decimal
	if err := h.db.Model(&models.Order{}).
		Where("status <> ? AND payment_status = ?", models.OrderStatusCancelled, models.PaymentStatusCompleted).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&totalRevenue).Error; err != nil {
		return err
	}

	var todayRevenue decimal.Decimal
	if err := h.db.Model(&models.Order{}).
		Where("status <> ? AND payment_status = ? AND placed_at::date = CURRENT_DATE",
			models.OrderStatusCancelled, models.PaymentStatusCompleted).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&todayRevenue).Error; err != nil {
		return err
	}

	var refundedTotal decimal.Decimal
	if err := h.db.Model(&models.Order{}).
		Where("payment_status = ?", models.PaymentStatusRefunded).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&refundedTotal).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_users":      totalUsers,
			"total_orders":     totalOrders,
			"total_products":   totalProducts,
			"total_revenue":    totalRevenue,
			"today_revenue":    todayRevenue,
			"refunded_total":   refundedTotal,
			"orders_by_status": ordersByStatus,
		},
	})
}

// ListAllOrders returns all orders with pagination and filtering.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if paymentStatus := c.Query("payment_status"); paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}
	if method := c.Query("payment_method"); method != "" {
		query = query.Where("payment_method = ?", method)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where(
			"order_number ILIKE ? OR customer_name ILIKE ? OR customer_email ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%",
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").Preload("User").
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

// updatableOrderFields is the strict allow-list for admin order edits.
// Monetary columns and line items are frozen after checkout and can never
// be patched.
var updatableOrderFields = map[string]struct{}{
	"status":          {},
	"payment_status":  {},
	"tracking_number": {},
	"admin_notes":     {},
}

var validOrderStatuses = map[string]struct{}{
	models.OrderStatusPending:        {},
	models.OrderStatusPendingPayment: {},
	models.OrderStatusProcessing:     {},
	models.OrderStatusShipped:        {},
	models.OrderStatusCompleted:      {},
	models.OrderStatusCancelled:      {},
}

var validPaymentStatuses = map[string]struct{}{
	models.PaymentStatusPending:   {},
	models.PaymentStatusCompleted: {},
	models.PaymentStatusRefunded:  {},
	models.PaymentStatusFailed:    {},
}

// UpdateOrder applies a partial order edit. Unknown fields are rejected
// rather than ignored, so a typo cannot silently drop an intended change.
func (h *AdminHandler) UpdateOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(body) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	updates := map[string]any{}
	for key, value := range body {
		if _, ok := updatableOrderFields[key]; !ok {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("field %q cannot be updated", key))
		}
		str, ok := value.(string)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("field %q must be a string", key))
		}
		updates[key] = str
	}

	if status, ok := updates["status"].(string); ok {
		if _, valid := validOrderStatuses[status]; !valid {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown order status %q", status))
		}
	}
	if paymentStatus, ok := updates["payment_status"].(string); ok {
		if _, valid := validPaymentStatuses[paymentStatus]; !valid {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown payment status %q", paymentStatus))
		}
	}

	order, err := h.orders.UpdateOrder(c.Context(), orderID, updates)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if status, ok := updates["status"].(string); ok && status == models.OrderStatusShipped {
		h.notifyShipped(c, order)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    order,
	})
}

// notifyShipped sends the shipping email once per order. Best-effort.
func (h *AdminHandler) notifyShipped(c *fiber.Ctx, order *models.Order) {
	if h.mailer == nil || order.CustomerEmail == "" {
		return
	}

	sent, err := h.orders.HasEvent(c.Context(), order.ID, models.EventShippingSent)
	if err != nil || sent {
		return
	}
	if err := h.mailer.ShippingNotice(order); err != nil {
		log.Printf("[Admin] shipping email failed for order %s: %v", order.OrderNumber, err)
		return
	}
	if err := h.orders.RecordEvent(c.Context(), order.ID, models.EventShippingSent, order.CustomerEmail); err != nil {
		log.Printf("[Admin] failed to record shipping email event for order %s: %v", order.OrderNumber, err)
	}
}

// CancelAndRefund cancels an order and refunds any captured payment
// through the original provider.
func (h *AdminHandler) CancelAndRefund(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	outcome, err := h.refund.CancelAndRefund(c.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		case errors.Is(err, services.ErrNoRefundableCapture):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case errors.Is(err, services.ErrNoPaymentReference):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case errors.Is(err, services.ErrProviderUnavailable):
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		case errors.Is(err, services.ErrProviderRefundFailed):
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		default:
			return err
		}
	}

	data := fiber.Map{
		"order_id": orderID,
		"status":   models.OrderStatusCancelled,
	}
	if outcome != nil {
		data["payment_status"] = models.PaymentStatusRefunded
		data["refund_provider"] = outcome.Provider
		data["refund_amount"] = outcome.Amount
		data["manual"] = outcome.Manual
		if outcome.RefundID != "" {
			data["refund_id"] = outcome.RefundID
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// DeleteOrder removes an order entirely. Refund first where money was
// captured; deletion does not talk to the payment provider.
func (h *AdminHandler) DeleteOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	if err := h.orders.DeleteOrder(c.Context(), orderID); err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}

// ListAllUsers returns registered users with pagination and search.
func (h *AdminHandler) ListAllUsers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.User{})

	if search := c.Query("search"); search != "" {
		query = query.Where(
			"first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%",
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var users []models.User
	if err := query.
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&users).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    users,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}
