package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aspida-health/aspida-backend/api/controllers"
	"github.com/aspida-health/aspida-backend/api/middleware"
	"github.com/aspida-health/aspida-backend/internal/accounts"
	"github.com/aspida-health/aspida-backend/internal/addresses"
	"github.com/aspida-health/aspida-backend/internal/cart"
	"github.com/aspida-health/aspida-backend/internal/catalog"
	checkoutsvc "github.com/aspida-health/aspida-backend/internal/checkout"
	"github.com/aspida-health/aspida-backend/internal/orders"
	"github.com/aspida-health/aspida-backend/internal/wishlist"
	"github.com/aspida-health/aspida-backend/pkg/auth/session"
	"github.com/aspida-health/aspida-backend/pkg/config"
	"github.com/aspida-health/aspida-backend/pkg/db"
	"github.com/aspida-health/aspida-backend/pkg/logger"
	"github.com/aspida-health/aspida-backend/pkg/redis"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Accounts *accounts.Service
	Catalog  *catalog.Service
	Address  *addresses.Service
	Cart     *cart.Service
	Wishlist *wishlist.Service
	Orders   *orders.Service
	Checkout *checkoutsvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginIDLimit,
		"login",
	)
	otpPolicy := middleware.NewAuthRateLimitPolicy(
		"otp",
		cfg.AuthRateLimit.OTPWindow,
		cfg.AuthRateLimit.OTPIPLimit,
		cfg.AuthRateLimit.OTPChannelLimit,
		"login", "identifier",
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterIDLimit,
		"login",
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(otpPolicy, redisClient, logg)).
				Post("/register/request-otp", controllers.AuthRequestRegistrationOTP(svcs.Accounts, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).
				Post("/register", controllers.AuthRegister(svcs.Accounts, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).
				Post("/login", controllers.AuthLogin(svcs.Accounts, logg))
			r.Post("/token/refresh", controllers.AuthRefresh(svcs.Accounts, logg))
			r.Post("/token/verify", controllers.AuthVerify(svcs.Accounts, logg))
			r.With(middleware.AuthRateLimit(otpPolicy, redisClient, logg)).
				Post("/password/forgot", controllers.PasswordForgot(svcs.Accounts, logg))
			r.Post("/password/reset", controllers.PasswordReset(svcs.Accounts, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, sessions, logg))
				r.Post("/logout", controllers.AuthLogout(svcs.Accounts, logg))
				r.Post("/change-password", controllers.PasswordChange(svcs.Accounts, logg))
			})
		})

		r.Get("/products", controllers.ProductsList(svcs.Catalog, logg))
		r.Get("/products/{slug}", controllers.ProductGet(svcs.Catalog, logg))
		r.Get("/categories", controllers.CategoriesList(svcs.Catalog, logg))
		r.Get("/brands", controllers.BrandsList(svcs.Catalog, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))

			r.Get("/profile", controllers.ProfileGet(svcs.Accounts, logg))
			r.Patch("/profile", controllers.ProfileUpdate(svcs.Accounts, logg))

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressesList(svcs.Address, logg))
				r.Post("/", controllers.AddressCreate(svcs.Address, logg))
				r.Put("/{id}", controllers.AddressUpdate(svcs.Address, logg))
				r.Delete("/{id}", controllers.AddressDelete(svcs.Address, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartView(svcs.Cart, logg))
				r.Post("/", controllers.CartAdd(svcs.Cart, logg))
				r.Patch("/{productId}", controllers.CartUpdateItem(svcs.Cart, logg))
				r.Delete("/{productId}", controllers.CartRemoveItem(svcs.Cart, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistList(svcs.Wishlist, logg))
				r.Post("/", controllers.WishlistAdd(svcs.Wishlist, logg))
				r.Delete("/{productId}", controllers.WishlistRemove(svcs.Wishlist, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(svcs.Orders, logg))
				r.Get("/{id}", controllers.OrderGet(svcs.Orders, logg))
			})

			r.Post("/checkout", controllers.CheckoutPlaceOrder(svcs.Checkout, logg))
		})
	})

	return r
}
