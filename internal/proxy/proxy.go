package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"crmgateway/internal/config"
)

// Route forwards every request under Prefix to Target. When StripPrefix is
// set the prefix is removed before forwarding.
type Route struct {
	Prefix      string
	Target      string
	StripPrefix bool
}

// Routes returns the forwarding table of the admin frontend. /api keeps its
// prefix since the document store serves under /api itself.
func Routes(cfg config.ProxyConfig) []Route {
	return []Route{
		{Prefix: "/api", Target: cfg.APITarget},
		{Prefix: "/email-api", Target: cfg.EmailTarget, StripPrefix: true},
		{Prefix: "/whatsapp-api", Target: cfg.WhatsAppTarget, StripPrefix: true},
	}
}

// Mount registers one reverse proxy per route on r. A route without a target
// answers 502 so the frontend sees a clear failure.
func Mount(r chi.Router, routes []Route, logger *zap.Logger) error {
	for _, route := range routes {
		h, err := NewHandler(route, logger)
		if err != nil {
			return err
		}
		r.Handle(route.Prefix, h)
		r.Handle(route.Prefix+"/*", h)
	}
	return nil
}

func NewHandler(route Route, logger *zap.Logger) (http.Handler, error) {
	log := logger.With(zap.String("prefix", route.Prefix))

	if strings.TrimSpace(route.Target) == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Warn("proxy target not configured", zap.String("path", r.URL.Path))
			http.Error(w, "proxy target not configured", http.StatusBadGateway)
		}), nil
	}

	target, err := url.Parse(route.Target)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy target %q: %w", route.Target, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("proxy target %q must be an absolute URL", route.Target)
	}

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			if route.StripPrefix {
				pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, route.Prefix)
				pr.Out.URL.RawPath = ""
				if pr.Out.URL.Path == "" {
					pr.Out.URL.Path = "/"
				}
			}
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		ModifyResponse: func(resp *http.Response) error {
			// The upstream's own CORS headers would clash with ours.
			for key := range resp.Header {
				if strings.HasPrefix(http.CanonicalHeaderKey(key), "Access-Control-") {
					resp.Header.Del(key)
				}
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error("proxy request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		},
	}

	return rp, nil
}
