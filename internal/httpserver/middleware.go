package httpserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

const (
	requestIDHeader = "X-Request-ID"
	callerKey       = "storefront.caller"
)

// requestLogger attaches a request-scoped logger to the context and emits
// one line per request once the handler chain has finished.
func requestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(requestIDHeader, rid)

		l := base.With(
			"request_id", rid,
			"method", c.Request.Method,
			"url", c.Request.URL.Path,
			"remote_ip", c.ClientIP(),
		)
		c.Request = c.Request.WithContext(logging.IntoContext(c.Request.Context(), l))

		start := time.Now()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()

		attrs := []any{"route", c.FullPath(), "status", status, "duration_ms", dur.Milliseconds()}
		switch {
		case status >= 500:
			l.Error("request completed", append(attrs, "error", c.Errors.String())...)
		case status >= 400:
			l.Warn("request completed", attrs...)
		default:
			l.Info("request completed", append(attrs, "bytes", c.Writer.Size())...)
		}
	}
}

func recoveryHandler(c *gin.Context, recovered any) {
	logging.FromContext(c.Request.Context()).Error("panic recovered", "panic", recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
}

// authMiddleware resolves the bearer token into a domain.Caller and rejects
// the request with 401 when it cannot.
func authMiddleware(users UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			writeError(c, domain.ErrUnauthenticated)
			return
		}
		caller, err := users.ResolveCaller(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set(callerKey, caller)
		l := logging.FromContext(c.Request.Context()).With("user_id", caller.UserID, "role", caller.Role.String())
		c.Request = c.Request.WithContext(logging.IntoContext(c.Request.Context(), l))
		c.Next()
	}
}

// adminOnly rejects non-admin callers before the handler reads the body.
// Services repeat the check; this keeps the 403 ahead of any 400.
func adminOnly(c *gin.Context) {
	if !callerFrom(c).IsAdmin() {
		writeError(c, domain.ErrForbidden)
		return
	}
	c.Next()
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// callerFrom returns the identity set by authMiddleware.
func callerFrom(c *gin.Context) domain.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(domain.Caller); ok {
			return caller
		}
	}
	return domain.Caller{}
}
