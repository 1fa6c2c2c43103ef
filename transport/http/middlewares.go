package http

import (
	"context"
	"net/http"
	"time"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/gorilla/mux"
)

// openAPIValidator rejects requests that do not match a route of the openapi specification
func (s *Server) openAPIValidator() mux.MiddlewareFunc {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.specMu.RLock()
			router := s.openapiRouter
			s.specMu.RUnlock()
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				httpError(w, errors.Wrap(err, errors.NotFound, "route not found"))
				return
			}
			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options: &openapi3filter.Options{
					AuthenticationFunc: func(ctx context.Context, input *openapi3filter.AuthenticationInput) error {
						return nil
					},
				},
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				httpError(w, errors.Wrap(err, errors.Validation, "request failed validation"))
				return
			}
			handler.ServeHTTP(w, r)
		})
	}
}

func (s *Server) loggerWare() mux.MiddlewareFunc {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			handler.ServeHTTP(w, r)
			s.db.Logger().Debug(r.Context(), "served request", map[string]any{
				"request.method": r.Method,
				"request.path":   r.URL.Path,
				"request.vars":   mux.Vars(r),
				"duration":       float64(time.Since(start).Microseconds()) / float64(1000),
			})
		})
	}
}
