package sentry

import (
	"os"

	sentry "github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Init configures the global hub. With no SENTRY_DSN set the client stays
// in no-op mode, so local development needs no account.
func Init() {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              os.Getenv("SENTRY_DSN"),
		TracesSampleRate: 1.0,
	}); err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
}

// GetSentryGin returns the middleware that binds a request-scoped hub to
// each gin context.
func GetSentryGin() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{})
}
