package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/pos-kiosk/api/background"
	"github.com/irsalhamdi/pos-kiosk/api/middleware"
	"github.com/irsalhamdi/pos-kiosk/api/web"
	"github.com/irsalhamdi/pos-kiosk/api/weberr"
	"github.com/irsalhamdi/pos-kiosk/core/auth"
	"github.com/irsalhamdi/pos-kiosk/core/cart"
	"github.com/irsalhamdi/pos-kiosk/core/catalog"
	"github.com/irsalhamdi/pos-kiosk/core/checkout"
	"github.com/irsalhamdi/pos-kiosk/core/claims"
	"github.com/irsalhamdi/pos-kiosk/core/events"
	"github.com/irsalhamdi/pos-kiosk/core/kiosk"
	"github.com/irsalhamdi/pos-kiosk/core/order"
	"github.com/irsalhamdi/pos-kiosk/database"
	"github.com/irsalhamdi/pos-kiosk/metrics"
	"github.com/irsalhamdi/pos-kiosk/rate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin  string
	Log         logrus.FieldLogger
	DB          *sqlx.DB
	Verifier    *auth.Verifier
	Guard       *kiosk.Guard
	Checkout    *checkout.Engine
	Metrics     *metrics.Metrics
	InitLimiter *rate.Limiter
	Background  *background.Background
	Publisher   events.Publisher
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, middleware.RequestID())
	if cfg.Metrics != nil {
		a.mw = append(a.mw, middleware.Metrics(cfg.Metrics))
	}
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Verifier)
	admin := auth.Require(claims.RoleAdmin)
	user := auth.Require(claims.RoleUser)

	notify := checkout.Notifier{Log: cfg.Log, Background: cfg.Background, Publisher: cfg.Publisher}

	a.Handle(http.MethodGet, "/health", handleHealth(cfg.DB))
	if cfg.Metrics != nil {
		a.Router.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	a.Handle(http.MethodGet, "/variants/{id}", catalog.HandleShowVariant(cfg.DB))

	owned := cart.UserResolver(cfg.DB)
	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.DB, owned), authen, user)
	a.Handle(http.MethodPost, "/cart/items", cart.HandleCreateItem(cfg.DB, owned), authen, user)
	a.Handle(http.MethodPut, "/cart/items/{id}", cart.HandleUpdateItem(cfg.DB, owned), authen, user)
	a.Handle(http.MethodDelete, "/cart/items/{id}", cart.HandleDeleteItem(cfg.DB, owned), authen, user)
	a.Handle(http.MethodDelete, "/cart/clear", cart.HandleClear(cfg.DB, owned), authen, user)
	a.Handle(http.MethodPost, "/checkout", checkout.HandleCheckout(cfg.Checkout, owned, notify), authen, user)
	a.Handle(http.MethodGet, "/orders", order.HandleList(cfg.DB), authen, user)
	a.Handle(http.MethodGet, "/orders/{id}", order.HandleShow(cfg.DB), authen, user)

	var initMw []web.Middleware
	if cfg.InitLimiter != nil {
		initMw = append(initMw, middleware.RateLimit(cfg.InitLimiter))
	}
	session := cfg.Guard.Resolver()
	a.Handle(http.MethodPost, "/kiosk/cart/init", kiosk.HandleInit(cfg.DB), initMw...)
	a.Handle(http.MethodPost, "/kiosk/cart/ping", kiosk.HandlePing(cfg.Guard))
	a.Handle(http.MethodGet, "/kiosk/cart", cart.HandleShow(cfg.DB, session))
	a.Handle(http.MethodPost, "/kiosk/cart/items", cart.HandleCreateItem(cfg.DB, session))
	a.Handle(http.MethodPut, "/kiosk/cart/items/{id}", cart.HandleUpdateItem(cfg.DB, session))
	a.Handle(http.MethodDelete, "/kiosk/cart/items/{id}", cart.HandleDeleteItem(cfg.DB, session))
	a.Handle(http.MethodDelete, "/kiosk/cart/clear", cart.HandleClear(cfg.DB, session))
	a.Handle(http.MethodPost, "/kiosk/checkout", checkout.HandleCheckout(cfg.Checkout, session, notify))
	a.Handle(http.MethodGet, "/kiosk/orders/{orderNo}", order.HandleReceipt(cfg.DB))

	a.Handle(http.MethodGet, "/admin/orders/export", order.HandleAdminExport(cfg.DB), authen, admin)
	a.Handle(http.MethodGet, "/admin/orders", order.HandleAdminList(cfg.DB), authen, admin)
	a.Handle(http.MethodPut, "/admin/orders/{id}/status", order.HandleAdminUpdateStatus(cfg.DB), authen, admin)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}

func handleHealth(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := database.StatusCheck(ctx, db); err != nil {
			return weberr.Unavailable(err, "database not ready")
		}

		status := struct {
			Status string `json:"status"`
		}{Status: "ok"}
		return web.Respond(ctx, w, status, http.StatusOK)
	}
}
