package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/blockbattle/internal/api/apierr"
	"github.com/mcoot/blockbattle/internal/middleware"
)

// Common returns the middleware shared by every API route. Logging is
// outermost so a recovered panic is logged with its request id and 500.
func Common(logger *slog.Logger) []mux.MiddlewareFunc {
	return []mux.MiddlewareFunc{
		Logging(logger),
		Recovery(logger),
	}
}

// Logging creates request logging middleware for the API
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger)
}

// Recovery creates panic recovery middleware for the API.
// Panics become JSON INTERNAL_ERROR responses.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, apiPanicHandler)
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
