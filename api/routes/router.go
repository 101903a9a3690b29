package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velesmarket/backend/api/controllers"
	"github.com/velesmarket/backend/api/middleware"
	cartsvc "github.com/velesmarket/backend/internal/cart"
	marketplacesvc "github.com/velesmarket/backend/internal/marketplace"
	productsvc "github.com/velesmarket/backend/internal/products"
	reconcilesvc "github.com/velesmarket/backend/internal/reconcile"
	settingssvc "github.com/velesmarket/backend/internal/settings"
	"github.com/velesmarket/backend/pkg/config"
	"github.com/velesmarket/backend/pkg/logger"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Products    productsvc.Service
	Cart        cartsvc.Service
	Settings    settingssvc.Service
	Marketplace marketplacesvc.Service
	Reconcile   reconcilesvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	services Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(services.Products, logg))
			r.Post("/", controllers.ProductCreate(services.Products, logg))
			r.Get("/{productId}", controllers.ProductGet(services.Products, logg))
			r.Patch("/{productId}", controllers.ProductUpdate(services.Products, logg))
			r.Delete("/{productId}", controllers.ProductDelete(services.Products, logg))
			r.Put("/{productId}/auto-price", controllers.ProductAutoPrice(services.Products, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			// The stateless quote needs no session header.
			r.Post("/quote", controllers.CartQuote(services.Cart, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.SessionContext(logg))
				r.Get("/", controllers.CartFetch(services.Cart, logg))
				r.Delete("/", controllers.CartClear(services.Cart, logg))
				r.Post("/lines", controllers.CartAddLine(services.Cart, logg))
				r.Put("/lines/{productId}", controllers.CartSetQuantity(services.Cart, logg))
				r.Delete("/lines/{productId}", controllers.CartRemoveLine(services.Cart, logg))
			})
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/order-minimums", controllers.OrderMinimumsGet(services.Settings, logg))
			r.Put("/order-minimums", controllers.OrderMinimumsPut(services.Settings, logg))
			r.Get("/gradation-rules", controllers.GradationRulesGet(services.Settings, logg))
			r.Put("/gradation-rules", controllers.GradationRulesPut(services.Settings, logg))
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", controllers.AccountList(services.Marketplace, logg))
			r.Post("/", controllers.AccountCreate(services.Marketplace, logg))
			r.Route("/{marketplace}/{accountName}", func(r chi.Router) {
				r.Get("/", controllers.AccountGet(services.Marketplace, logg))
				r.Patch("/", controllers.AccountUpdate(services.Marketplace, logg))
				r.Delete("/", controllers.AccountDelete(services.Marketplace, logg))
				r.Put("/credentials/{capability}", controllers.CredentialSet(services.Marketplace, logg))
				r.Delete("/credentials/{capability}", controllers.CredentialRemove(services.Marketplace, logg))
				r.Post("/test-connection", controllers.AccountTestConnection(services.Marketplace, logg))
			})
		})

		r.Route("/price-checks/{marketplace}/{accountName}", func(r chi.Router) {
			r.Post("/", controllers.PriceCheckRun(services.Reconcile, logg))
			r.Get("/latest", controllers.PriceCheckLatest(services.Reconcile, logg))
		})

		r.Post("/price-updates/{marketplace}/{accountName}", controllers.PriceUpdateRun(services.Reconcile, logg))
	})

	return r
}
