package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/ambre/internal/cache"
	"github.com/example/ambre/internal/middleware"
)

// CartHandler manages the server-side cart stored in Redis. The cart only
// remembers variant IDs and quantities; prices come from the catalog at
// checkout.
type CartHandler struct{}

// NewCartHandler constructs CartHandler.
func NewCartHandler() *CartHandler {
	return &CartHandler{}
}

// GetCart returns the caller's saved cart.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	cart, err := cache.GetCart(c.Context(), userID.String())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    cart,
	})
}

type saveCartRequest struct {
	Items []cache.CartEntry `json:"items"`
}

// SaveCart replaces the caller's saved cart.
func (h *CartHandler) SaveCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req saveCartRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	for _, entry := range req.Items {
		if _, err := uuid.Parse(entry.VariantID); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid variant id in cart")
		}
		if entry.Quantity < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "quantity must be at least 1")
		}
	}

	if err := cache.SaveCart(c.Context(), userID.String(), req.Items); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    req.Items,
	})
}

// ClearCart empties the caller's saved cart.
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	if err := cache.ClearCart(c.Context(), userID.String()); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}
