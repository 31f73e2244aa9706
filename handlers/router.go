package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterOptions configures the API middleware.
type RouterOptions struct {
	AuthUser         string
	AuthPasswordHash string
	RateLimit        float64
	RateBurst        int
	// AccessLog enables chi's request logger.
	AccessLog bool
}

// NewRouter mounts every route. Setup must have been called.
func NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)

	// API routes with basic auth
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(opts.RateLimit, opts.RateBurst))
		r.Use(BasicAuth(opts.AuthUser, opts.AuthPasswordHash))

		r.Get("/field-types", ListFieldTypes)

		// Contracts
		r.Get("/contracts", ListContracts)
		r.Post("/contracts", CreateContract)
		r.Route("/contracts/{id}", func(r chi.Router) {
			r.Get("/", GetContract)
			r.Put("/", UpdateContract)
			r.Delete("/", DeleteContract)

			// Contract field schema
			r.Get("/fields", ListContractFields)
			r.Post("/fields", CreateContractField)
			r.Post("/fields/reorder", ReorderContractFields)
			r.Get("/fields/schema", GetContractFieldSchema)
			r.Get("/fields/{fieldId}", GetContractField)
			r.Put("/fields/{fieldId}", UpdateContractField)
			r.Delete("/fields/{fieldId}", DeleteContractField)
			r.Put("/fields/{fieldId}/active", SetContractFieldActive)

			// Forms
			r.Post("/form", RenderContractForm)
			r.Post("/form/validate", ValidateContractForm)

			r.Get("/activities", ListContractActivities)
			r.Post("/activities", CreateActivity)
		})

		// Global fields
		r.Get("/fields", ListGlobalFields)
		r.Post("/fields", CreateGlobalField)
		r.Put("/fields/{fieldId}", UpdateGlobalField)
		r.Delete("/fields/{fieldId}", DeleteGlobalField)

		// Activities
		r.Get("/activities", ListActivities)
		r.Get("/activities/{id}", GetActivity)
		r.Put("/activities/{id}", UpdateActivity)
		r.Delete("/activities/{id}", DeleteActivity)

		// Dashboard
		r.Get("/dashboard", GetDashboard)
	})

	// Swagger UI
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
