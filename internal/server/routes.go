package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"dms_sales/pkg/httpx/reply"
	"dms_sales/pkg/logx"
	"dms_sales/pkg/middlewarex"
)

type RouterOptions struct {
	AllowedOrigins      []string
	SensitiveDataMasker logx.SensitiveDataMaskerInterface
	LogFieldMaxLen      int
}

// NewRouter собирает цепочку middleware и регистрирует маршруты API.
func NewRouter(s Server, opts RouterOptions) http.Handler {
	if opts.SensitiveDataMasker == nil {
		opts.SensitiveDataMasker = logx.NewSensitiveDataMasker()
	}

	r := chi.NewRouter()

	r.Use(
		middlewarex.TraceID,
		middlewarex.Logger,
		middlewarex.UserID,
		middlewarex.Recovery,
		middlewarex.RequestLogging(opts.SensitiveDataMasker, opts.LogFieldMaxLen),
		middlewarex.ResponseLogging(opts.SensitiveDataMasker, opts.LogFieldMaxLen),
		cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{
				http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
			},
			AllowedHeaders: []string{
				"Accept", "Content-Type", middlewarex.HeaderNameUserID, headerNameIdempotencyKey, "X-Trace-Id",
			},
			ExposedHeaders: []string{"X-Trace-Id"},
			MaxAge:         300,
		}),
	)

	s.RegisterRoutes(r)

	return r
}

func (s Server) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Route("/deals", func(r chi.Router) {
			r.Get("/", handler(s.getV1Deals))
			r.Post("/", handler(s.postV1Deals))
			r.Post("/calculate", handler(s.postV1Calculate))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", handler(s.getV1Deal))
				r.Put("/", handler(s.putV1Deal))
				r.Post("/status", handler(s.postV1DealStatus))
				r.Post("/calculate", handler(s.postV1DealCalculate))

				r.Get("/addons", handler(s.getV1DealAddOns))
				r.Post("/addons", handler(s.postV1DealAddOns))
				r.Get("/addons/{addOnId}", handler(s.getV1DealAddOn))
				r.Delete("/addons/{addOnId}", handler(s.deleteV1DealAddOn))
			})
		})
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			reply.Error(r.Context(), w, err)
		}
	}
}
