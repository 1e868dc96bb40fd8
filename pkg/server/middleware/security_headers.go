package middleware

import (
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

const (
	DefaultContentSecurityPolicy = "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self'; connect-src 'self'; frame-ancestors 'none'; form-action 'self'; base-uri 'self'; object-src 'none'"
	DefaultPermissionsPolicy     = "geolocation=(), microphone=(), camera=(), payment=(), usb=(), magnetometer=(), gyroscope=(), accelerometer=()"
	DefaultReferrerPolicy        = "strict-origin-when-cross-origin"
)

// SecurityConfig tunes SecurityHeaders. The zero value yields the defaults above.
type SecurityConfig struct {
	ContentSecurityPolicy string
	PermissionsPolicy     string
	ReferrerPolicy        string
	// HSTSSeconds is the Strict-Transport-Security max-age, one year when zero
	HSTSSeconds int64
}

func (c SecurityConfig) withDefaults() SecurityConfig {
	if c.ContentSecurityPolicy == "" {
		c.ContentSecurityPolicy = DefaultContentSecurityPolicy
	}
	if c.PermissionsPolicy == "" {
		c.PermissionsPolicy = DefaultPermissionsPolicy
	}
	if c.ReferrerPolicy == "" {
		c.ReferrerPolicy = DefaultReferrerPolicy
	}
	if c.HSTSSeconds == 0 {
		c.HSTSSeconds = 31536000
	}
	return c
}

// SecurityHeaders adds common security headers to every response and removes the Server header.
func SecurityHeaders(cfg SecurityConfig) gin.HandlerFunc {
	cfg = cfg.withDefaults()
	headers := secure.New(secure.Config{
		STSSeconds:            cfg.HSTSSeconds,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: cfg.ContentSecurityPolicy,
		ReferrerPolicy:        cfg.ReferrerPolicy,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	return func(c *gin.Context) {
		headers(c)
		if c.IsAborted() {
			return
		}

		c.Header("Permissions-Policy", cfg.PermissionsPolicy)
		c.Header("Cross-Origin-Opener-Policy", "same-origin")
		c.Header("Cross-Origin-Embedder-Policy", "require-corp")
		c.Header("Cross-Origin-Resource-Policy", "same-origin")

		c.Writer = &serverHeaderStripper{ResponseWriter: c.Writer}
		c.Next()
		c.Writer.Header().Del("Server")
	}
}

// serverHeaderStripper drops the Server header right before the headers are flushed.
type serverHeaderStripper struct {
	gin.ResponseWriter
}

func (w *serverHeaderStripper) WriteHeaderNow() {
	w.Header().Del("Server")
	w.ResponseWriter.WriteHeaderNow()
}

func (w *serverHeaderStripper) Write(b []byte) (int, error) {
	w.Header().Del("Server")
	return w.ResponseWriter.Write(b)
}

func (w *serverHeaderStripper) WriteString(s string) (int, error) {
	w.Header().Del("Server")
	return w.ResponseWriter.WriteString(s)
}
