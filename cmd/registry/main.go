package main

import (
	"context"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nostrid/nip05-registry/internal/common/clock"
	"github.com/nostrid/nip05-registry/internal/common/config"
	"github.com/nostrid/nip05-registry/internal/common/constants"
	"github.com/nostrid/nip05-registry/internal/common/crypto"
	"github.com/nostrid/nip05-registry/internal/common/db"
	commonhttp "github.com/nostrid/nip05-registry/internal/common/http"
	"github.com/nostrid/nip05-registry/internal/common/logger"
	"github.com/nostrid/nip05-registry/internal/common/server"
	identityhttp "github.com/nostrid/nip05-registry/internal/identity/http"
	identityrepo "github.com/nostrid/nip05-registry/internal/identity/repository"
	identityservice "github.com/nostrid/nip05-registry/internal/identity/service"
	relayhttp "github.com/nostrid/nip05-registry/internal/relay/http"
	relayservice "github.com/nostrid/nip05-registry/internal/relay/service"
	"github.com/nostrid/nip05-registry/internal/session"
	"github.com/nostrid/nip05-registry/internal/signer"
	statshttp "github.com/nostrid/nip05-registry/internal/stats/http"
	statsservice "github.com/nostrid/nip05-registry/internal/stats/service"
	zaphttp "github.com/nostrid/nip05-registry/internal/zap/http"
	zapservice "github.com/nostrid/nip05-registry/internal/zap/service"
)

func main() {
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}
	log, err := logger.New(logDir, "registry", os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}

	cfg, err := config.LoadRegistryConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	pool := db.NewPool(log, cfg.DatabaseURL)

	clk := clock.NewRealClock()

	repo := identityrepo.NewPgRepository(pool)
	identitySvc := identityservice.NewIdentityService(repo, clk, log)
	identityHandler := identityhttp.NewHandler(identitySvc, log)

	sgn, err := signer.FromConfig(cfg.SignerSecretKey)
	if err != nil {
		log.Fatalf("failed to initialize signer: %v", err)
	}
	if sgn.Capability() == signer.Available {
		log.Info("zap signer available")
	} else {
		log.Warn("no signer key configured, wallet-mediated zaps disabled")
	}

	zapSvc := zapservice.NewService(
		&http.Client{Timeout: cfg.LnurlTimeout},
		sgn,
		cfg.DefaultRelays,
		log,
	)

	var sessions *session.Manager
	if sgn.Capability() == signer.Available {
		tokens := session.NewTokenSource([]byte(cfg.SessionSecret), crypto.NewUUIDGenerator(), clk)
		sessions = session.NewManager(
			session.NewMemoryStore(),
			session.NewMemoryStore(),
			tokens, sgn, clk, log,
			session.DefaultConfig(),
		)
	}
	zapHandler := zaphttp.NewHandler(zapSvc, sessions, log)

	watchCtx, stopWatch := context.WithCancel(context.Background())
	if sessions != nil {
		go sessions.Watch(watchCtx, constants.SessionCheckInterval, func(s session.Session) {
			log.Infof("signer session is now %s", s.State)
		})
	}

	prober := relayservice.NewProber(clk, log)
	relayHandler := relayhttp.NewHandler(prober, cfg.DefaultRelays, log)

	statsSvc := statsservice.NewStatsService(repo, clk, log)
	statsHandler := statshttp.NewHandler(statsSvc, log)

	mux := http.NewServeMux()
	identityHandler.RegisterRoutes(mux, cfg.RequestTimeout)
	zapHandler.RegisterRoutes(mux, cfg.RequestTimeout)
	relayHandler.RegisterRoutes(mux, cfg.RequestTimeout)
	statsHandler.RegisterRoutes(mux, cfg.RequestTimeout)
	mux.HandleFunc("/health", commonhttp.HealthHandler(log))
	mux.Handle("/metrics", promhttp.Handler())

	rateLimiter := commonhttp.NewStrictRateLimiter()
	handler := commonhttp.BuildBaseHandler(log, rateLimiter.Middleware(mux))

	srv := server.NewServer(server.DefaultServerConfig(cfg.HTTPPort), handler)

	hooks := []server.ShutdownHook{
		func(ctx context.Context) error {
			stopWatch()
			pool.Close()
			return nil
		},
	}

	server.StartWithGracefulShutdownAndHooks(srv, log, "registry", hooks)
}
