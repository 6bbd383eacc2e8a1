package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/gin-gonic/gin"
	"github.com/hamidoujand/usersadmin/internal/auth"
	"github.com/hamidoujand/usersadmin/internal/debug"
	addrbus "github.com/hamidoujand/usersadmin/internal/domains/address/bus"
	addrhandler "github.com/hamidoujand/usersadmin/internal/domains/address/handler"
	"github.com/hamidoujand/usersadmin/internal/domains/address/store/addressdb"
	eventhandler "github.com/hamidoujand/usersadmin/internal/domains/event/handler"
	healthhandler "github.com/hamidoujand/usersadmin/internal/domains/health/handler"
	usrbus "github.com/hamidoujand/usersadmin/internal/domains/user/bus"
	usrhandler "github.com/hamidoujand/usersadmin/internal/domains/user/handler"
	"github.com/hamidoujand/usersadmin/internal/domains/user/store/userdb"
	"github.com/hamidoujand/usersadmin/internal/metrics"
	"github.com/hamidoujand/usersadmin/internal/mid"
	"github.com/hamidoujand/usersadmin/internal/migrate"
	"github.com/hamidoujand/usersadmin/internal/notify"
	"github.com/hamidoujand/usersadmin/internal/sqldb"
	"github.com/hamidoujand/usersadmin/pkg/keystore"
	"github.com/hamidoujand/usersadmin/pkg/logger"
	"github.com/hamidoujand/usersadmin/pkg/telemetry"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

var build = "development"

// Notification backends.
const (
	backendLocal = "local"
	backendRedis = "redis"
	backendAMQP  = "amqp"
)

func main() {
	traceIDFn := func(ctx context.Context) string {
		return telemetry.GetTraceID(ctx)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New(os.Stdout, logger.LevelDebug, "usersadmin", traceIDFn)

	if err := run(ctx, log); err != nil {
		log.Error(ctx, "main failed to execute run", "err", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger) error {
	log.Info(ctx, "run", "build", build, "GOMAXPROCS", runtime.GOMAXPROCS(0))

	//a missing .env is fine, the environment wins anyway.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	//configuration
	cfg := struct {
		Web struct {
			ReadTimeout     time.Duration `conf:"default:10s"`
			WriteTimeout    time.Duration `conf:"default:30s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:3000"`
			APIHost         string        `conf:"default:0.0.0.0:8000"`
			HealthCheck     string        `conf:"default:0.0.0.0:9000"`
		}

		DB struct {
			User        string `conf:"default:postgres"`
			Password    string `conf:"default:postgres,mask"`
			Host        string `conf:"default:database:5432"`
			Name        string `conf:"default:postgres"`
			MaxIdleConn int    `conf:"default:0"`
			MaxOpenConn int    `conf:"default:0"`
			DisableTLS  bool   `conf:"default:true"`
			Migrate     bool   `conf:"default:true"`
		}

		Auth struct {
			Keys      string `conf:"default:/etc/rsa-keys"`
			ActiveKid string `conf:"default:f7b7936a-1ca3-4015-811b-ec31b61e3071"`
			Issuer    string `conf:"default:usersadmin"`
		}

		Notify struct {
			Backend   string        `conf:"default:local,help:local|redis|amqp"`
			Heartbeat time.Duration `conf:"default:15s"`
		}

		Redis struct {
			Host     string `conf:"default:redis:6379"`
			Password string `conf:"mask"`
			DB       int    `conf:"default:0"`
			Channel  string `conf:"default:usersadmin.events"`
		}

		AMQP struct {
			Host     string `conf:"default:rabbitmq:5672"`
			User     string `conf:"default:guest"`
			Password string `conf:"default:guest,mask"`
			Exchange string `conf:"default:usersadmin.events"`
		}

		Tempo struct {
			Host        string  `conf:"default:tempo:4317"`
			ServiceName string  `conf:"default:usersadmin"`
			Probability float64 `conf:"default:1"`
		}
	}{}

	const prefix = "USERSADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing conf: %w", err)
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("conf to string: %w", err)
	}

	log.Info(ctx, "app configuration", "cfg", out)

	expvar.NewString("build").Set(build)

	//==========================================================================
	// Trace init
	cleanup, err := telemetry.SetupOTelSDK(telemetry.Config{
		ServiceName: cfg.Tempo.ServiceName,
		Host:        cfg.Tempo.Host,
		Build:       build,
		Probability: cfg.Tempo.Probability,
		ExcludedRoutes: map[string]struct{}{
			"/v1/readiness": {},
			"/v1/liveness":  {},
			"/v1/events":    {},
		},
	})
	if err != nil {
		return fmt.Errorf("setupOTelSDK: %w", err)
	}

	defer cleanup(context.Background())

	tracer := otel.Tracer(cfg.Tempo.ServiceName)

	log.Info(ctx, "tracer initialized", "host", cfg.Tempo.Host, "probability", cfg.Tempo.Probability)

	//==========================================================================
	// Metrics and debug server
	m := metrics.New()

	go func() {
		log.Info(ctx, "debug server starting", "host", cfg.Web.DebugHost)
		h := otelhttp.NewHandler(debug.Register(m.Handler()), "debug")
		if err := http.ListenAndServe(cfg.Web.DebugHost, h); err != nil {
			log.Error(ctx, "debug server failed", "host", cfg.Web.DebugHost, "err", err.Error())
		}
	}()

	//==========================================================================
	// Database init
	db, err := sqldb.Open(sqldb.Config{
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		Host:         cfg.DB.Host,
		Name:         cfg.DB.Name,
		MaxIdleConns: cfg.DB.MaxIdleConn,
		MaxOpenConns: cfg.DB.MaxOpenConn,
		DisableTLS:   cfg.DB.DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("failed to open connection to database: %w", err)
	}

	defer db.Close()

	log.Info(ctx, "database initialized", "host", cfg.DB.Host)

	if cfg.DB.Migrate {
		checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := sqldb.ConnCheck(checkCtx, db)
		cancel()
		if err != nil {
			return fmt.Errorf("connCheck: %w", err)
		}

		version, err := migrate.Migrate(db, cfg.DB.Name)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		log.Info(ctx, "database migrated", "version", version)
	}

	//==========================================================================
	// Auth init
	ks := keystore.New()

	count, err := ks.LoadFromFileSystem(os.DirFS(cfg.Auth.Keys))
	if err != nil {
		return fmt.Errorf("loadFromFileSystem: %w", err)
	}

	if err := ks.SetActiveKid(cfg.Auth.ActiveKid); err != nil {
		return fmt.Errorf("setActiveKid: %w", err)
	}

	a := auth.New(ks, cfg.Auth.Issuer)

	log.Info(ctx, "auth initialized", "keyCount", count, "activeKid", ks.ActiveKid())

	//==========================================================================
	// Change notification
	hub := notify.NewHub()

	var notifier notify.Publisher
	switch cfg.Notify.Backend {
	case backendLocal:
		notifier = hub

	case backendRedis:
		client, err := notify.NewRedisClient(ctx, notify.RedisConfig{
			Host:     cfg.Redis.Host,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("newRedisClient: %w", err)
		}
		defer client.Close()

		relay, err := notify.NewRelay(ctx, log, client, cfg.Redis.Channel)
		if err != nil {
			return fmt.Errorf("newRelay: %w", err)
		}
		defer relay.Close()

		//every instance, this one included, hears its own events back through redis.
		go relay.Run(ctx, hub)

		notifier = notify.NewRedisPublisher(log, client, cfg.Redis.Channel)

	case backendAMQP:
		pub, err := notify.NewAMQPPublisher(ctx, log, notify.AMQPConfig{
			Host:     cfg.AMQP.Host,
			User:     cfg.AMQP.User,
			Password: cfg.AMQP.Password,
			Exchange: cfg.AMQP.Exchange,
		})
		if err != nil {
			return fmt.Errorf("newAMQPPublisher: %w", err)
		}
		defer pub.Close()

		notifier = notify.Fanout{hub, pub}

	default:
		return fmt.Errorf("unknown notify backend %q", cfg.Notify.Backend)
	}

	log.Info(ctx, "change notification initialized", "backend", cfg.Notify.Backend)

	//==========================================================================
	// Business layer
	userBus := usrbus.New(userdb.NewStore(db, tracer), notifier)
	addrBus := addrbus.New(addressdb.NewStore(db, tracer), userBus, notifier)

	//==========================================================================
	// Router init
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(mid.Telemetry(tracer))
	r.Use(mid.Logger(log))
	r.Use(mid.Metrics(m))
	r.Use(mid.Error(log))
	r.Use(mid.Panic(m))

	usrhandler.RegisterRoutes(usrhandler.Conf{
		Router:  r,
		UserBus: userBus,
		Auth:    a,
		Tracer:  tracer,
	})

	addrhandler.RegisterRoutes(addrhandler.Conf{
		Router:  r,
		AddrBus: addrBus,
		Auth:    a,
		Tracer:  tracer,
	})

	eventhandler.RegisterRoutes(eventhandler.Conf{
		Router:    r,
		Hub:       hub,
		Auth:      a,
		Log:       log,
		Heartbeat: cfg.Notify.Heartbeat,
	})

	//==========================================================================
	// Health check server
	healthMux := healthhandler.RegisterRoutes(healthhandler.Conf{
		DB:    db,
		Log:   log,
		Build: build,
	})

	go func() {
		log.Info(ctx, "health check server starting", "host", cfg.Web.HealthCheck)
		if err := http.ListenAndServe(cfg.Web.HealthCheck, otelhttp.NewHandler(healthMux, "health")); err != nil {
			log.Error(ctx, "health check server failed", "err", err)
		}
	}()

	//==========================================================================
	// API Server
	server := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      r,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     log.StdLogger(logger.LevelError),
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	serverErrs := make(chan error, 1)

	go func() {
		log.Info(ctx, "API server starting", "host", cfg.Web.APIHost)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrs <- fmt.Errorf("listenAndServe: %w", err)
		}
	}()

	select {
	case err := <-serverErrs:
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		log.Info(ctx, "server received a shutdown signal")
		defer log.Info(ctx, "server completed the shutdown process")

		//ends the open event streams so shutdown does not wait on them.
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			_ = server.Close()
			return fmt.Errorf("failed to gracefully shutdown the server: %w", err)
		}
	}

	return nil
}
