// Package security provides security and CORS middleware for the billing API.
package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeadersMiddleware adds security headers to all responses
func HeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent MIME type sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		c.Header("X-Frame-Options", "DENY")

		// Referrer policy
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// This service serves JSON only; forbid everything else
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		c.Next()
	}
}

// SuffixPrefix marks an allow-list entry as a wildcard suffix match,
// e.g. "suffix:.example.com" allows any origin ending in ".example.com".
const SuffixPrefix = "suffix:"

const defaultAllowHeaders = "Authorization, Content-Type, X-Request-ID, X-User-Id"

// CORSConfig configures the cross-origin negotiation.
type CORSConfig struct {
	// AllowedOrigins holds literal origins and SuffixPrefix-tagged suffixes.
	AllowedOrigins []string
	// AllowAll echoes any request origin unconditionally (permissive override).
	AllowAll bool
	// DefaultOrigin is emitted when the request origin matches nothing.
	DefaultOrigin string
}

type corsNegotiator struct {
	exact         map[string]struct{}
	suffixes      []string
	allowAll      bool
	defaultOrigin string
}

func newNegotiator(cfg CORSConfig) *corsNegotiator {
	n := &corsNegotiator{
		exact:         make(map[string]struct{}),
		allowAll:      cfg.AllowAll,
		defaultOrigin: cfg.DefaultOrigin,
	}
	for _, entry := range cfg.AllowedOrigins {
		if suffix, ok := strings.CutPrefix(entry, SuffixPrefix); ok {
			if suffix != "" {
				n.suffixes = append(n.suffixes, suffix)
			}
			continue
		}
		n.exact[entry] = struct{}{}
	}
	return n
}

// allowOrigin computes the Access-Control-Allow-Origin value for a request
// origin. Precedence: permissive override, exact match, suffix match, then
// the configured default.
func (n *corsNegotiator) allowOrigin(origin string) string {
	if n.allowAll {
		if origin == "" {
			return "*"
		}
		return origin
	}
	if origin != "" {
		if _, ok := n.exact[origin]; ok {
			return origin
		}
		for _, suffix := range n.suffixes {
			if strings.HasSuffix(origin, suffix) {
				return origin
			}
		}
	}
	return n.defaultOrigin
}

// CORSMiddleware negotiates cross-origin access for all boundary endpoints.
// Preflight OPTIONS requests are answered with 204 and no body; every other
// response carries the computed headers as well.
func CORSMiddleware(cfg CORSConfig) gin.HandlerFunc {
	n := newNegotiator(cfg)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := n.allowOrigin(origin)

		if allowed != "" {
			c.Header("Access-Control-Allow-Origin", allowed)
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if requested := c.GetHeader("Access-Control-Request-Headers"); requested != "" {
			c.Header("Access-Control-Allow-Headers", requested)
		} else {
			c.Header("Access-Control-Allow-Headers", defaultAllowHeaders)
		}
		c.Header("Access-Control-Max-Age", "86400")
		// Wildcard + credentials is forbidden by the CORS spec
		if allowed != "*" && allowed != "" {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
