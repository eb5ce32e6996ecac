package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Tooba-Farooq/4eyes/internal/metrics"
	"github.com/Tooba-Farooq/4eyes/internal/middleware"
)

const serviceName = "storefront"

type Deps struct {
	Logger  *zap.Logger
	Metrics *metrics.Recorder
	DB      Pinger

	JWTSecret        []byte
	CORSAllowOrigins []string
	RequestTimeout   time.Duration

	Orders     OrderService
	Verifier   WebhookVerifier
	Confirmer  PaymentConfirmer
	Addresses  AddressStore
	Favourites FavouriteStore
	Coupons    CouponStore
	Stock      StockStore
}

func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	orders := NewOrderHandler(d.Orders, log, d.RequestTimeout)
	webhook := NewWebhookHandler(d.Verifier, d.Confirmer, log, 2*d.RequestTimeout)
	acct := NewAccountHandler(d.Addresses, d.Favourites, d.Coupons, log, d.RequestTimeout)
	inv := NewInventoryHandler(d.Stock, log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Logging(log, d.Metrics))
	r.Use(middleware.Recover(log))
	r.Use(middleware.CORS(d.CORSAllowOrigins))
	r.Use(chimw.StripSlashes)
	r.Use(chimw.RequestSize(maxBodyBytes))

	r.Get("/health", healthHandler(serviceName, d.DB))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	// Signed by the provider, not by a user token.
	r.With(chimw.RequestSize(maxWebhookBytes)).Post("/stripe-webhook", webhook.Stripe)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(d.JWTSecret))

		r.Post("/place-order", orders.PlaceOrder)
		r.Post("/create-checkout-session", orders.CreateCheckoutSession)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)

			r.Get("/orders/my-orders", orders.ListMyOrders)
			r.Get("/orders/{id}", orders.GetOrder)

			r.Get("/addresses/my-addresses", acct.ListAddresses)
			r.Post("/addresses", acct.CreateAddress)
			r.Put("/addresses/{id}", acct.UpdateAddress)
			r.Delete("/addresses/{id}", acct.DeleteAddress)

			r.Get("/favourites/my-favourites", acct.ListFavourites)
			r.Post("/favourites/{productId}", acct.AddFavourite)
			r.Delete("/favourites/{productId}", acct.RemoveFavourite)

			r.Get("/coupons/my-coupons", acct.ListCoupons)
			r.Post("/coupons/apply", acct.ApplyCoupon)
		})

		r.Route("/api/inventory", func(r chi.Router) {
			r.Use(middleware.RequireStaff)
			r.Get("/{productId}", inv.GetAvailability)
			r.Post("/adjust", inv.AdjustAvailability)
		})
	})

	return r
}
