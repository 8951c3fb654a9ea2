// sentry.go — Sentry error tracking for the CineVerse API.
//
// Usage in main.go:
//
//	telemetry.InitSentry(os.Getenv("SENTRY_DSN"), "api", version)
//	defer telemetry.Flush()
//
// Usage in handlers:
//
//	telemetry.CaptureError(err, map[string]string{"operation": "personalized"})
package telemetry

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry initializes the Sentry SDK for a named service. Call once at
// process startup. dsn may be empty — Sentry is then disabled and every
// Capture* call becomes a no-op.
func InitSentry(dsn, serviceName, release string) error {
	env := os.Getenv("CINEVERSE_ENV")
	if env == "" {
		env = "development"
	}

	if dsn == "" {
		fmt.Fprintf(os.Stderr, "[telemetry] SENTRY_DSN not set — Sentry disabled for %s\n", serviceName)
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Release:          release,
		TracesSampleRate: 0.2,
		AttachStacktrace: true,
		Tags: map[string]string{
			"service": serviceName,
		},
	})
	if err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}
	return nil
}

// CaptureError sends an error to Sentry with optional context tags.
// Safe to call when Sentry is disabled.
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush waits for buffered Sentry events to be sent. Call with defer in main().
func Flush() {
	sentry.Flush(2 * time.Second)
}

// PanicRecoveryMiddleware catches panics, reports them to Sentry with request
// context, and returns a 500 response.
func PanicRecoveryMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					hub := sentry.CurrentHub().Clone()
					hub.Scope().SetRequest(r)
					hub.Scope().SetTag("service", serviceName)
					hub.Scope().SetTag("panic", "true")

					var err error
					switch v := rec.(type) {
					case error:
						err = v
					default:
						err = fmt.Errorf("panic: %v", v)
					}
					hub.CaptureException(err)
					hub.Flush(2 * time.Second)

					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
