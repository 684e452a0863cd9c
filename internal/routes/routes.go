package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/ambre/internal/config"
	"github.com/example/ambre/internal/handlers"
	"github.com/example/ambre/internal/middleware"
	"github.com/example/ambre/internal/models"
	"github.com/example/ambre/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)

	catalogService := services.NewCatalogService(db)
	pricingService := services.NewPricingService(catalogService)
	orderStore := services.NewOrderStore(db)

	stripeProvider := services.NewStripeProvider(cfg.CheckoutSuccess, cfg.CheckoutCancel)
	paypalService := services.NewPayPalService(cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalSecret)

	checkoutService := services.NewCheckoutService(
		catalogService, catalogService, pricingService, orderStore,
		stripeProvider, paypalService, emailService, telegramService,
		cfg.StoreCurrency,
	)
	refundService := services.NewRefundService(
		orderStore,
		map[string]services.RefundProvider{
			models.PaymentMethodCard:   stripeProvider,
			models.PaymentMethodPayPal: paypalService,
		},
		emailService, telegramService,
	)

	authHandler := handlers.NewAuthHandler(db, cfg)
	profileHandler := handlers.NewProfileHandler(db)
	catalogHandler := handlers.NewCatalogHandler(db)
	productHandler := handlers.NewProductHandler(db)
	cartHandler := handlers.NewCartHandler()
	orderHandler := handlers.NewOrderHandler(db, checkoutService)
	adminHandler := handlers.NewAdminHandler(db, orderStore, refundService, emailService)
	partnerHandler := handlers.NewPartnerHandler(db)
	marketingHandler := handlers.NewMarketingHandler(db)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Public catalog
	api.Get("/products", productHandler.ListProducts)
	api.Get("/products/:id", productHandler.GetProduct)
	api.Get("/categories", catalogHandler.ListCategories)
	api.Get("/brands", catalogHandler.ListBrands)
	api.Get("/fragrance-notes", catalogHandler.ListFragranceNotes)
	api.Get("/seasons", catalogHandler.ListSeasons)
	api.Get("/shipping-options", partnerHandler.ListShippingOptions)
	api.Get("/banners", marketingHandler.ListBanners)
	api.Get("/pickup-branches", marketingHandler.ListPickupBranches)

	// Checkout accepts guests; a supplied token attaches the order to the
	// account.
	api.Post("/orders", middleware.OptionalAuthMiddleware(cfg), orderHandler.Checkout)

	// Authenticated customer routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))
	protected.Get("/auth/me", authHandler.Me)
	protected.Get("/orders", orderHandler.ListMyOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Post("/orders/:id/sync-payment", orderHandler.SyncPayment)

	protected.Put("/profile", profileHandler.UpdateProfile)
	protected.Get("/profile/addresses", profileHandler.ListAddresses)
	protected.Post("/profile/addresses", profileHandler.CreateAddress)
	protected.Put("/profile/addresses/:id", profileHandler.UpdateAddress)
	protected.Delete("/profile/addresses/:id", profileHandler.DeleteAddress)

	protected.Get("/cart", cartHandler.GetCart)
	protected.Post("/cart", cartHandler.SaveCart)
	protected.Delete("/cart", cartHandler.ClearCart)

	// Admin routes
	admin := api.Group("/admin", middleware.AuthMiddleware(cfg), middleware.RequireAdmin())
	admin.Get("/stats", adminHandler.DashboardStats)
	admin.Get("/users", adminHandler.ListAllUsers)

	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Patch("/orders/:id", adminHandler.UpdateOrder)
	admin.Post("/orders/:id/cancel-and-refund", adminHandler.CancelAndRefund)
	admin.Delete("/orders/:id", adminHandler.DeleteOrder)

	admin.Post("/products", productHandler.CreateProduct)
	admin.Put("/products/:id", productHandler.UpdateProduct)
	admin.Delete("/products/:id", productHandler.DeleteProduct)
	admin.Post("/products/:id/variants", productHandler.CreateVariant)
	admin.Put("/variants/:id", productHandler.UpdateVariant)
	admin.Delete("/variants/:id", productHandler.DeleteVariant)

	admin.Post("/categories", catalogHandler.CreateCategory)
	admin.Put("/categories/:id", catalogHandler.UpdateCategory)
	admin.Delete("/categories/:id", catalogHandler.DeleteCategory)
	admin.Post("/brands", catalogHandler.CreateBrand)
	admin.Put("/brands/:id", catalogHandler.UpdateBrand)
	admin.Delete("/brands/:id", catalogHandler.DeleteBrand)
	admin.Post("/fragrance-notes", catalogHandler.CreateFragranceNote)
	admin.Delete("/fragrance-notes/:id", catalogHandler.DeleteFragranceNote)
	admin.Post("/seasons", catalogHandler.CreateSeason)
	admin.Delete("/seasons/:id", catalogHandler.DeleteSeason)

	admin.Get("/partners", partnerHandler.ListPartners)
	admin.Post("/partners", partnerHandler.CreatePartner)
	admin.Put("/partners/:id", partnerHandler.UpdatePartner)
	admin.Delete("/partners/:id", partnerHandler.DeletePartner)

	admin.Get("/coupons", partnerHandler.ListCoupons)
	admin.Post("/coupons", partnerHandler.CreateCoupon)
	admin.Put("/coupons/:id", partnerHandler.UpdateCoupon)
	admin.Delete("/coupons/:id", partnerHandler.DeleteCoupon)

	admin.Post("/shipping-options", partnerHandler.CreateShippingOption)
	admin.Put("/shipping-options/:id", partnerHandler.UpdateShippingOption)
	admin.Delete("/shipping-options/:id", partnerHandler.DeleteShippingOption)

	admin.Post("/banners", marketingHandler.CreateBanner)
	admin.Put("/banners/:id", marketingHandler.UpdateBanner)
	admin.Delete("/banners/:id", marketingHandler.DeleteBanner)
	admin.Post("/pickup-branches", marketingHandler.CreatePickupBranch)
	admin.Put("/pickup-branches/:id", marketingHandler.UpdatePickupBranch)
	admin.Delete("/pickup-branches/:id", marketingHandler.DeletePickupBranch)
}
