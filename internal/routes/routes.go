package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Handlers struct {
	Auth   *handlers.AuthHandler
	Items  *handlers.ItemHandler
	Users  *handlers.UserHandler
	Health *handlers.HealthHandler
}

func Setup(app *fiber.App, cfg *config.Config, h Handlers) {
	api := app.Group("/api")

	// General API rate limit per IP
	if cfg.RateLimit > 0 {
		api.Use(ipLimiter(cfg.RateLimit))
	}

	api.Get("/health", h.Health.Check)

	protected := middleware.JWTProtected(cfg)

	// Auth, with a stricter limit
	auth := api.Group("/auth")
	if cfg.AuthRateLimit > 0 {
		auth.Use(ipLimiter(cfg.AuthRateLimit))
	}
	auth.Post("/register", h.Auth.Register)
	auth.Post("/verify-email", h.Auth.VerifyEmail)
	auth.Post("/resend-otp", h.Auth.ResendOTP)
	auth.Post("/login", h.Auth.Login)
	auth.Get("/profile", protected, h.Auth.Profile)

	// Items. Browsing is public; the detail view shows contact numbers to
	// signed-in users.
	items := api.Group("/items")
	items.Get("/", h.Items.List)
	items.Get("/:id", middleware.OptionalAuth(cfg), h.Items.Get)
	items.Post("/", protected, h.Items.Create)
	items.Put("/:id", protected, h.Items.Update)
	items.Delete("/:id", protected, h.Items.Delete)
	items.Post("/:id/favorite", protected, h.Items.ToggleFavorite)
	items.Post("/:id/sold", protected, h.Items.MarkSold)

	me := api.Group("/users/me", protected)
	me.Get("/listings", h.Users.MyListings)
	me.Get("/favorites", h.Users.MyFavorites)

	admin := api.Group("/admin", protected, middleware.AdminRequired(cfg))
	admin.Delete("/users", h.Users.DeleteUser)
}

func ipLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}
