package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Recover converts handler panics into a 500 JSON error
func Recover(logger *zap.Logger, production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("requestId", GetRequestID(r.Context())),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"))

				message := fmt.Sprint(rec)
				if production {
					message = "Internal Server Error"
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": message})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
