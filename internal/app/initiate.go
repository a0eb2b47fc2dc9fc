package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
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
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const pubsubScope = "https://www.googleapis.com/auth/pubsub"

// fatal aborts startup. Every init step is mandatory, so there is nothing
// to unwind yet.
func fatal(step string, err error, attrs ...any) {
	slog.Error("startup failed", append([]any{"step", step, "error", err}, attrs...)...)
	os.Exit(1)
}

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		fatal("config", err, "path", path)
	}

	if tz := cfg.GetString("app.tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			fatal("timezone", err, "tz", tz)
		}
		time.Local = loc
	}

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
		LogLevel:         a.config.GetString("instrument.log_level"),
	})
	if err != nil {
		fatal("instrument", err)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	a.generator = otp.NewNumeric()
	a.password = hash.New(
		a.config.GetString("hash.password.algorithm"),
		a.config.GetInt("hash.bcrypt.cost"),
		a.config.GetString("hash.pepper"),
	)
	if secret := a.config.GetString("modules.otp.store.key_secret"); secret != "" {
		a.hmac = hash.NewHMACSHA256(secret)
	}

	v, err := validator.NewV10Validator()
	if err != nil {
		fatal("validator", err)
	}
	a.validator = v
}

// initCache connects to Redis only when an URL is configured. Without it the
// OTP store and idempotency tracker stay in process.
func (a *App) initCache() {
	url := strings.TrimSpace(a.config.GetString("redis.url"))
	if url == "" {
		a.idemp = idempotency.NewMemory(a.clock)
		return
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		fatal("redis url", err)
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		fatal("redis ping", err, "addr", opt.Addr)
	}

	a.cacheConn = rdb
	a.idemp = idempotency.New(a.cacheConn)
}

func (a *App) initOTPStore() {
	cfg := otpstore.Config{
		Driver: a.config.GetString("modules.otp.store.driver"),
		Options: otpstore.Options{
			CodeTTL:     a.config.GetSecond("modules.otp.store.code_ttl_seconds"),
			GrantTTL:    a.config.GetSecond("modules.otp.store.grant_ttl_seconds"),
			MaxAttempts: a.config.GetInt("modules.otp.store.max_attempts"),
		},
		Clock: a.clock,
	}
	if a.cacheConn != nil {
		cfg.Redis = a.cacheConn
	}
	if a.hmac != nil {
		cfg.KeyFunc = a.hmac.Key
	}

	store, err := otpstore.New(cfg)
	if err != nil {
		fatal("otp store", err, "driver", cfg.Driver)
	}

	if mem, ok := store.(*otpstore.Memory); ok {
		interval := a.config.GetSecond("modules.otp.store.sweep_interval_seconds")
		a.goroutine.Go(a.ctx, func(ctx context.Context) error {
			return mem.RunJanitor(ctx, interval)
		})
	}

	a.store = store
}

func (a *App) initMail() {
	driver := a.config.GetString("mail.driver")
	m, err := mail.NewFromDriver(driver, mail.Config{
		Host:               a.config.GetString("mail.host"),
		Port:               a.config.GetInt("mail.port"),
		Username:           a.config.GetString("mail.username"),
		Password:           a.config.GetString("mail.password"),
		From:               a.config.GetString("mail.from"),
		MaxConns:           a.config.GetInt("mail.pool.max_conns"),
		IdleTimeoutSeconds: a.config.GetInt("mail.pool.idle_timeout_seconds"),
		WaitTimeoutSeconds: a.config.GetInt("mail.pool.wait_timeout_seconds"),
	})
	if err != nil {
		fatal("mail", err, "driver", driver)
	}

	a.mail = m
}

func (a *App) pubsubOptions() []option.ClientOption {
	var opts []option.ClientOption
	if a.config.GetBool("messaging.pubsub.without_auth") {
		opts = append(opts, option.WithoutAuthentication())
	}
	if v := strings.TrimSpace(a.config.GetString("messaging.pubsub.credentials_file")); v != "" {
		// #nosec G304 -- path is from trusted config file.
		credsJSON, err := os.ReadFile(v)
		if err != nil {
			fatal("pubsub credentials", err, "path", v)
		}
		creds, err := google.CredentialsFromJSON(a.ctx, credsJSON, pubsubScope)
		if err != nil {
			fatal("pubsub credentials", err, "path", v)
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	if v := strings.TrimSpace(a.config.GetString("messaging.pubsub.endpoint")); v != "" {
		opts = append(opts, option.WithEndpoint(v))
	}
	return opts
}

func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")

	var pubsubOpts []option.ClientOption
	if strings.TrimSpace(driver) == messaging.DriverGooglePubSub {
		pubsubOpts = a.pubsubOptions()
	}

	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			ProducerAddr:         a.config.GetString("messaging.nsq.producer_addr"),
			ConsumerNSQDAddrs:    a.config.GetArray("messaging.nsq.consumer_nsqd_addrs"),
			ConsumerLookupdAddrs: a.config.GetArray("messaging.nsq.consumer_lookupd_addrs"),
		},
		Kafka: messaging.KafkaConfig{
			Brokers:  a.config.GetArray("messaging.kafka.brokers"),
			ClientID: a.config.GetString("messaging.kafka.client_id"),
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("messaging.nats.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		PubSub: messaging.PubSubConfig{
			ProjectID:     a.config.GetString("messaging.pubsub.project_id"),
			ClientOptions: pubsubOpts,
		},
	})
	if err != nil {
		fatal("messaging", err, "driver", driver)
	}

	a.messaging = client
}

func (a *App) initAccounts() {
	cfg := account.Config{
		Driver: a.config.GetString("account.driver"),
		Postgres: account.PostgresConfig{
			DSN:      a.config.GetString("account.postgres.url"),
			Migrate:  a.config.GetBool("account.postgres.migrate"),
			MaxConns: int32(a.config.GetInt("account.postgres.max_conns")), //nolint:gosec // small config value
		},
		Zitadel: account.ZitadelConfig{
			Domain:         a.config.GetString("account.zitadel.domain"),
			InsecurePort:   a.config.GetString("account.zitadel.insecure_port"),
			PAT:            a.config.GetString("account.zitadel.pat"),
			KeyPath:        a.config.GetString("account.zitadel.key_path"),
			OrganizationID: a.config.GetString("account.zitadel.organization_id"),
		},
	}

	provider, err := account.NewFromDriver(a.ctx, cfg, a.password)
	if err != nil {
		fatal("accounts", err, "driver", cfg.Driver)
	}

	a.accounts = provider
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		Instrument: a.ins,
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

// initClosers releases producers of work before what they depend on:
// the broker before Redis, telemetry last so shutdown errors still export.
func (a *App) initClosers() {
	a.closers = []closer{
		closerOf("messaging", a.messaging),
		closerOf("mail", a.mail),
		closerOf("accounts", a.accounts),
		{name: "redis", fn: func(context.Context) error {
			if a.cacheConn == nil {
				return nil
			}
			return a.cacheConn.Close()
		}},
		closerOf("config", a.config),
		{name: "instrument", fn: a.ins.Shutdown},
	}
}
