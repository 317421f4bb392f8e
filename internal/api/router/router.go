package router

import (
	"context"
	"net/http"
	"time"

	"github.com/RoyceAzure/lab/checkout/internal/api"
	m "github.com/RoyceAzure/lab/checkout/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type HealthChecker func(ctx context.Context) error

type Options struct {
	Logger *zerolog.Logger
	// 結帳相關路由的限流, nil 時不限流
	RateLimit func(http.Handler) http.Handler
	Admins    m.AdminChecker
	Health    HealthChecker
	Timeout   time.Duration
}

func SetupRouter(server *api.Server, opts Options) *chi.Mux {
	r := chi.NewRouter()

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	rateLimit := opts.RateLimit
	if rateLimit == nil {
		rateLimit = func(next http.Handler) http.Handler { return next }
	}

	// 全局中間件
	r.Use(m.RequestIdMiddleware)
	r.Use(middleware.RealIP)
	r.Use(m.UserMiddleware)
	r.Use(m.LoggerMiddleware(opts.Logger))
	r.Use(middleware.Timeout(opts.Timeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Health != nil {
			if err := opts.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("unhealthy"))
				return
			}
		}
		w.Write([]byte("ok"))
	})

	// API 路由
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.With(rateLimit).Post("/preorder", server.CheckoutHandler.PreOrder)
			r.With(rateLimit).Post("/virtual-account", server.CheckoutHandler.VirtualAccount)
			r.Get("/{orderID}", server.OrderHandler.Get)
			r.Post("/{orderID}/cancellation", server.OrderHandler.RequestCancellation)
			r.Post("/{orderID}/exchange-refund", server.OrderHandler.RequestExchangeRefund)
		})

		r.Route("/payments", func(r chi.Router) {
			r.With(rateLimit).Post("/request", server.CheckoutHandler.RequestPayment)
			r.With(rateLimit).Post("/points", server.CheckoutHandler.AttachPoints)
			r.With(rateLimit).Post("/point-only", server.CheckoutHandler.PointOnly)
			r.Get("/toss/confirm", server.CheckoutHandler.Confirm)
			r.Post("/toss/confirm", server.CheckoutHandler.Confirm)
			r.Get("/toss/fail", server.CheckoutHandler.Fail)
		})

		r.Get("/points/balance", server.CheckoutHandler.PointBalance)

		//管理者路由
		r.Route("/admin/orders/{orderID}", func(r chi.Router) {
			r.Use(m.AdminMiddleware(opts.Admins))
			r.Post("/cancellation/approve", server.OrderHandler.ApproveCancellation)
			r.Post("/cancellation/reject", server.OrderHandler.RejectCancellation)
			r.Post("/exchange-refund/approve", server.OrderHandler.ApproveExchangeRefund)
			r.Post("/exchange-refund/reject", server.OrderHandler.RejectExchangeRefund)
			r.Post("/shipping", server.OrderHandler.UpdateShipping)
		})
	})

	return r
}

// PrintRoutes 在設置完所有路由後打印路由樹
func PrintRoutes(r chi.Routes, logger *zerolog.Logger) error {
	return chi.Walk(r, func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		logger.Info().Str("method", method).Str("route", route).Msg("route registered")
		return nil
	})
}
