package app

import (
	"context"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/melody/internal/pkg/account"
	"github.com/shandysiswandi/melody/internal/pkg/clock"
	"github.com/shandysiswandi/melody/internal/pkg/config"
	"github.com/shandysiswandi/melody/internal/pkg/goroutine"
	"github.com/shandysiswandi/melody/internal/pkg/hash"
	"github.com/shandysiswandi/melody/internal/pkg/idempotency"
	"github.com/shandysiswandi/melody/internal/pkg/instrument"
	"github.com/shandysiswandi/melody/internal/pkg/mail"
	"github.com/shandysiswandi/melody/internal/pkg/messaging"
	"github.com/shandysiswandi/melody/internal/pkg/otp"
	"github.com/shandysiswandi/melody/internal/pkg/otpstore"
	"github.com/shandysiswandi/melody/internal/pkg/router"
	"github.com/shandysiswandi/melody/internal/pkg/uid"
	"github.com/shandysiswandi/melody/internal/pkg/validator"
)

// closer releases one resource during Stop.
type closer struct {
	name string
	fn   func(context.Context) error
}

func closerOf(name string, c interface{ Close() error }) closer {
	return closer{name: name, fn: func(context.Context) error { return c.Close() }}
}

// App owns every long-lived dependency of the OTP service and its lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      *hash.HMACSHA256
	password  hash.Hash
	uuid      uid.StringID
	generator otp.Generator

	// resources
	cacheConn *redis.Client
	store     otpstore.Store
	idemp     idempotency.Idempotency
	mail      mail.Mail
	messaging messaging.Messaging
	accounts  account.Provider

	// server
	router     *router.Router
	httpServer *http.Server

	// released in order by Stop
	closers []closer
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initCache()
	app.initOTPStore()
	app.initMail()
	app.initMessaging()
	app.initAccounts()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
