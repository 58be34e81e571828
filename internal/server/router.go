package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"crmgateway/internal/config"
	"crmgateway/internal/proxy"
)

// RouteMounter is implemented by the module controllers.
type RouteMounter interface {
	Routes(r chi.Router)
}

type Modules struct {
	Orders   RouteMounter
	Products RouteMounter
}

func NewRouter(cfg config.ProxyConfig, modules Modules, logger *zap.Logger) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(proxy.CORS(cfg.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		if modules.Orders != nil {
			r.Route("/orders", modules.Orders.Routes)
		}
		if modules.Products != nil {
			r.Route("/products", modules.Products.Routes)
		}
	})

	if err := proxy.Mount(r, proxy.Routes(cfg), logger); err != nil {
		return nil, err
	}

	if cfg.StaticDir != "" {
		r.NotFound(proxy.SPA(cfg.StaticDir).ServeHTTP)
	}

	return otelhttp.NewHandler(r, "crmgateway"), nil
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("requestId", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
			)
		})
	}
}
