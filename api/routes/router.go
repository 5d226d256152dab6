package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forgecraft/craftvault-backend/api/controllers"
	"github.com/forgecraft/craftvault-backend/api/middleware"
	authsvc "github.com/forgecraft/craftvault-backend/internal/auth"
	playersvc "github.com/forgecraft/craftvault-backend/internal/players"
	playtimesvc "github.com/forgecraft/craftvault-backend/internal/playtime"
	promosvc "github.com/forgecraft/craftvault-backend/internal/promocodes"
	serversvc "github.com/forgecraft/craftvault-backend/internal/server"
	shopsvc "github.com/forgecraft/craftvault-backend/internal/shop"
	transfersvc "github.com/forgecraft/craftvault-backend/internal/transfers"
	"github.com/forgecraft/craftvault-backend/pkg/auth/session"
	"github.com/forgecraft/craftvault-backend/pkg/config"
	"github.com/forgecraft/craftvault-backend/pkg/db"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
	"github.com/forgecraft/craftvault-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	authService authsvc.Service,
	playerService playersvc.Service,
	shopService shopsvc.Service,
	promoService promosvc.Service,
	transferService transfersvc.Service,
	serverService serversvc.Service,
	playtimeService playtimesvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginNickLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterNickLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.With(middleware.Auth(cfg.JWT, sessionChecker, logg)).Post("/logout", controllers.AuthLogout(authService, logg))
	})

	r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).
		Post("/api/v1/players/register", controllers.PlayerRegister(playerService, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))

		r.Get("/players/me", controllers.PlayerProfile(playerService, logg))

		r.Route("/shop", func(r chi.Router) {
			r.Get("/products", controllers.ListProducts(shopService, logg))
			r.Get("/products/{productId}", controllers.GetProduct(shopService, logg))
			r.Get("/promocodes/validate", controllers.PromocodeValidate(promoService, logg))
			r.Post("/purchase", controllers.ShopPurchase(shopService, logg))
			r.Get("/purchases", controllers.PurchaseHistory(shopService, logg))
			r.Get("/purchases/{purchaseId}", controllers.PurchaseByID(shopService, logg))
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", controllers.TransferSend(transferService, logg))
			r.Get("/", controllers.TransferHistory(transferService, logg))
			r.Get("/stats", controllers.TransferStats(transferService, logg))
			r.Get("/commission", controllers.TransferCommission(transferService, logg))
		})

		r.Route("/rewards", func(r chi.Router) {
			r.Get("/stats", controllers.RewardsStats(playtimeService, logg))
			r.Get("/top", controllers.RewardsTop(playtimeService, logg))
		})

		r.Get("/server/players/online", controllers.ServerOnlinePlayers(serverService, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))

			r.Post("/server/message", controllers.AdminBroadcast(serverService, logg))
			r.Post("/server/gamemode", controllers.AdminGamemode(serverService, logg))

			r.Route("/products", func(r chi.Router) {
				r.Post("/", controllers.AdminCreateProduct(shopService, logg))
				r.Put("/{productId}", controllers.AdminUpdateProduct(shopService, logg))
				r.Delete("/{productId}", controllers.AdminDeleteProduct(shopService, logg))
			})

			r.Route("/promocodes", func(r chi.Router) {
				r.Post("/", controllers.AdminCreatePromocode(promoService, logg))
				r.Get("/", controllers.AdminListPromocodes(promoService, logg))
				r.Patch("/{promocodeId}/deactivate", controllers.AdminDeactivatePromocode(promoService, logg))
			})

			r.Get("/purchases/stats", controllers.AdminPurchaseStats(shopService, logg))

			r.Route("/executions", func(r chi.Router) {
				r.Get("/", controllers.AdminPendingExecutions(serverService, logg))
				r.Post("/{executionId}/approve", controllers.AdminApproveExecution(serverService, logg))
			})

			r.Post("/players/{playerId}/confirm-referral", controllers.AdminConfirmReferral(playerService, logg))
			r.Post("/chat/message", controllers.BotChatMessage(playerService, logg))
		})
	})

	return r
}
