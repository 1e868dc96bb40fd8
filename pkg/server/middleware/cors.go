package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
)

// CORS allows cross-origin requests from the listed origins, credentials included.
// Preflight requests are answered here with 204 and never reach the routes.
func CORS(origins []string) gin.HandlerFunc {
	handler := cors.Handler(cors.Options{
		AllowedOrigins:     origins,
		AllowedMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:     []string{"*"},
		AllowCredentials:   true,
		MaxAge:             600,
		OptionsPassthrough: true,
	})

	return func(c *gin.Context) {
		passed := false
		handler(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			if isPreflight(r) {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
		}
	}
}

func isPreflight(r *http.Request) bool {
	_, hasOrigin := r.Header["Origin"]
	return r.Method == http.MethodOptions && hasOrigin && r.Header.Get("Access-Control-Request-Method") != ""
}
