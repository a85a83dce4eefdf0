package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/avvvet/arenax-services/configs"
	"github.com/avvvet/arenax-services/internal/arenasvc/broker"
	svcconfig "github.com/avvvet/arenax-services/internal/arenasvc/config"
	handlers "github.com/avvvet/arenax-services/internal/arenasvc/handlers"
	"github.com/avvvet/arenax-services/internal/arenasvc/metrics"
	"github.com/avvvet/arenax-services/internal/arenasvc/service"
	"github.com/avvvet/arenax-services/internal/arenasvc/store"
	"github.com/avvvet/arenax-services/internal/db"
	nats "github.com/avvvet/arenax-services/internal/nats"
	sockethandlers "github.com/avvvet/arenax-services/internal/socketsvc/handlers"
	"github.com/avvvet/arenax-services/internal/socketsvc/ws"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "arena"

func init() {
	config.Logging(SERVICE_NAME + "_service")
	config.LoadEnv(SERVICE_NAME)
}

type stores struct {
	players store.PlayerStore
	games   store.GameStore
	admins  store.AdminStore
	close   func()
}

func openStores(ctx context.Context, cfg svcconfig.Config) stores {
	if cfg.MongoURI == "" {
		log.Warn("MONGODB_URI not set, running on the in-memory store; data is lost on restart")
		return stores{
			players: store.NewPlayerMemoryStore(),
			games:   store.NewGameMemoryStore(),
			admins:  store.NewAdminMemoryStore(),
			close:   func() {},
		}
	}

	database, err := db.ConnectToDB(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}
	log.Infof("mongo connection established, database %s", database.Name())

	return stores{
		players: store.NewPlayerStore(database),
		games:   store.NewGameStore(database),
		admins:  store.NewAdminStore(database),
		close:   func() { db.Disconnect(database) },
	}
}

func main() {
	cfg, err := svcconfig.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	instanceId := config.CreateUniqueInstance(SERVICE_NAME)
	m := metrics.New("arena")

	ctx := context.Background()
	st := openStores(ctx, cfg)
	defer st.close()

	// dashboards connected to this instance get events straight from the hub
	hub := ws.NewWs(instanceId)
	notifiers := service.Notifiers{hub}

	// Connect to NATS, optional: without it only local dashboards are notified
	if cfg.NatsURL != "" {
		n, err := nats.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"_service")
		if err != nil {
			log.Errorf("unable to connect to NATS server, continuing without it: %v", err)
		} else {
			defer n.Conn.Close()
			log.Infof("NATS connection established successfully %s", n.Url)
			notifiers = append(notifiers, broker.NewBroker(n.Conn, instanceId, m))
		}
	}

	ledger := service.NewLedgerService(st.players, notifiers, service.LedgerOptions{
		PlayerIDPrefix: cfg.PlayerIDPrefix,
		StartingTokens: cfg.StartingTokens,
	})
	if err := ledger.SyncSequence(ctx); err != nil {
		log.Fatalf("unable to sync player id sequence: %v", err)
	}

	catalog := service.NewCatalogService(st.games, notifiers)
	tokenAuth := handlers.InitAuth(cfg.JWTSecret)

	svc := handlers.Services{
		Ledger:     ledger,
		Catalog:    catalog,
		Attempts:   service.NewAttemptEngine(st.players, st.games, catalog, notifiers, m),
		Settlement: service.NewSettlementProcessor(st.players, st.games, notifiers, m),
		Admin:      service.NewAdminService(st.players, st.games, ledger, catalog, notifiers),
		Auth:       service.NewAuthService(st.admins, tokenAuth),
	}

	// settle whatever a previous run left half done
	if n, err := svc.Settlement.Reconcile(ctx); err != nil {
		log.Errorf("startup reconcile failed: %v", err)
	} else if n > 0 {
		log.Infof("startup reconcile closed %d open attempts", n)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.AllowedOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	socket := sockethandlers.NewHandler(hub, SERVICE_NAME, sockethandlers.OriginChecker(cfg.AllowedOrigins))
	h := handlers.NewHandler(svc, tokenAuth, socket, m, SERVICE_NAME)

	h.SetRoutes(r)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
