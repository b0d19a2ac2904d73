package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Metrics is the Prometheus surface the router reports to and exposes.
type Metrics interface {
	HTTPObserver
	SessionCounter
	OrderCounter
	Handler() http.Handler
}

type DelayPolicy interface {
	Delayer
	DelayTable
}

type RouterDeps struct {
	Sessions    SessionManager
	Delays      DelayPolicy
	Orders      OrderService
	Cancels     OrderCanceller
	Messages    MessagePoster
	Pingers     map[string]Pinger
	Metrics     Metrics
	Logger      *slog.Logger
	CORSOrigins []string
}

// NewRouter wires every route. Session-protected routes check the Session-ID
// header before any configured delay is applied.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	var observer HTTPObserver
	var sessionCounter SessionCounter
	var orderCounter OrderCounter
	if d.Metrics != nil {
		observer, sessionCounter, orderCounter = d.Metrics, d.Metrics, d.Metrics
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Logger, observer))
	r.Use(middleware.Recoverer)
	r.Use(CORS(d.CORSOrigins))

	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HandleHealth(d.Pingers))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/session/create", HandleCreateSession(d.Sessions, d.Delays, sessionCounter))
	r.With(RequireSession(d.Sessions)).Delete("/session/delete", HandleDeleteSession(d.Sessions, d.Delays))

	r.Route("/order", func(r chi.Router) {
		r.Get("/Check", HandleCheckSession(d.Sessions, d.Delays))

		r.Group(func(r chi.Router) {
			r.Use(RequireSession(d.Sessions))
			r.Get("/getProducts", HandleGetProducts(d.Orders, d.Delays))
			r.Post("/create", HandleCreateOrder(d.Orders, d.Delays, orderCounter))
			r.Get("/getOrder", HandleGetOrder(d.Orders, d.Delays))
			r.Post("/cancel", HandleCancelOrder(d.Cancels))
		})
	})

	r.Get("/delay", HandleGetDelays(d.Delays))
	r.Post("/delay", HandleSetDelays(d.Delays))
	r.Post("/post-message", HandlePostMessage(d.Messages))

	return r
}
