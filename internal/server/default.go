package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/f3nation/f3map/pkg/application"
	"github.com/f3nation/f3map/pkg/composables"
	"github.com/f3nation/f3map/pkg/configuration"
	"github.com/f3nation/f3map/pkg/httpapi"
	"github.com/f3nation/f3map/pkg/metrics"
	"github.com/f3nation/f3map/pkg/middleware"
	"github.com/f3nation/f3map/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, middleware.LoggerOptions{
			RequestIDHeader: conf.RequestIDHeader,
			RealIPHeader:    conf.RealIPHeader,
		}),
		middleware.WithPool(options.Pool),
		middleware.Cors(conf.CORS.Origins()...),
	}

	if conf.RateLimit.Enabled {
		var store limiter.Store
		switch conf.RateLimit.Storage {
		case "redis":
			var err error
			store, err = middleware.NewRedisStore(conf.RateLimit.RedisURL)
			if err != nil {
				options.Logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}
		middlewares = append(middlewares, writesOnly(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerPeriod: conf.RateLimit.SubmitRPM,
			Store:             store,
			RealIPHeader:      conf.RealIPHeader,
		})))
	}

	app.RegisterMiddleware(middlewares...)

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	return server.NewHTTPServer(app, NotFound(), MethodNotAllowed()), nil
}

// writesOnly applies mw to mutating requests and lets reads pass through.
func writesOnly(mw mux.MiddlewareFunc) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				limited.ServeHTTP(w, r)
			}
		})
	}
}

func NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID, _ := composables.UseRequestID(r.Context())
		_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "route not found", httpapi.RequestMeta(requestID))
	})
}

func MethodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID, _ := composables.UseRequestID(r.Context())
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", httpapi.RequestMeta(requestID))
	})
}
