package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/paygate/docs"
	"github.com/fatflowers/paygate/internal/app/api/handlers"
	mw "github.com/fatflowers/paygate/internal/app/api/middleware"
	"github.com/fatflowers/paygate/internal/app/service/invoice"
	nh "github.com/fatflowers/paygate/internal/app/service/notification_handler"
	"github.com/fatflowers/paygate/internal/app/service/order"
	"github.com/fatflowers/paygate/internal/app/service/statistics"
	cfgpkg "github.com/fatflowers/paygate/pkg/config"
	metrics "github.com/fatflowers/paygate/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func newRateLimiter(lc fx.Lifecycle, cfg *cfgpkg.Config) *mw.IPRateLimiter {
	l := mw.NewIPRateLimiter(cfg.Server.InvoiceRatePerSecond, cfg.Server.InvoiceRateBurst)
	stop := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go l.Run(stop)
			return nil
		},
		OnStop: func(context.Context) error {
			close(stop)
			return nil
		},
	})
	return l
}

// newHTTPMetrics instruments the engine when metrics_addr is set and serves
// the scrape endpoint on that separate address.
func newHTTPMetrics(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) error {
	if cfg.MetricsAddr == "" {
		return nil
	}
	m, err := metrics.NewHTTP(metrics.HTTPOptions{Subsystem: "paygate"})
	if err != nil {
		return err
	}
	r.Use(m.Middleware())
	srv := m.Server(cfg.MetricsAddr)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Infow("starting metrics server", "addr", cfg.MetricsAddr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("metrics server stopped", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
	return nil
}

type routeDeps struct {
	fx.In

	Log      *zap.SugaredLogger
	Cfg      *cfgpkg.Config
	Invoices *invoice.Service
	Webhooks *nh.NotificationHandler
	Orders   *order.Repository
	Stats    *statistics.Service
	Limiter  *mw.IPRateLimiter
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	log, cfg := d.Log, d.Cfg
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	invoices := r.Group("/invoices")
	invoices.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), d.Limiter.Middleware(), mw.JWTAuthMiddleware(cfg.Auth.JWTSecret))
	handlers.RegisterInvoiceRoutes(invoices, d.Invoices, log)

	// Gateways authenticate by signature and API key, not by bearer token.
	webhooks := r.Group("/webhooks")
	webhooks.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterWebhookRoutes(webhooks, d.Webhooks, log)

	admin := r.Group("/api/v1/admin")
	admin.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), mw.JWTAuthMiddleware(cfg.Auth.JWTSecret))
	handlers.RegisterAdminOrderRoutes(admin, d.Orders, d.Stats, log)
	if cfg.Auth.JWTSecret == "" {
		log.Warnw("invoice and admin routes are not protected, auth.jwt_secret is empty")
	}
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Provide(newRateLimiter),
	fx.Invoke(newHTTPMetrics),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
