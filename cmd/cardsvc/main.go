package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/vblancom/tullave-services/configs"
	"github.com/vblancom/tullave-services/internal/cardsvc/broker"
	cardconfig "github.com/vblancom/tullave-services/internal/cardsvc/config"
	"github.com/vblancom/tullave-services/internal/cardsvc/db"
	"github.com/vblancom/tullave-services/internal/cardsvc/handlers"
	"github.com/vblancom/tullave-services/internal/cardsvc/service"
	"github.com/vblancom/tullave-services/internal/cardsvc/store"
	"github.com/vblancom/tullave-services/internal/cardsvc/ws"
	mongodb "github.com/vblancom/tullave-services/internal/db"
	"github.com/vblancom/tullave-services/internal/location"
	nats "github.com/vblancom/tullave-services/internal/nats"
	"github.com/vblancom/tullave-services/internal/remote/otp"
	"github.com/vblancom/tullave-services/internal/remote/tullave"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "card"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
	config.CreateUniqueInstance(SERVICE_NAME)
}

func main() {
	cfg := cardconfig.Load()

	// card repository: Postgres when configured, in-memory otherwise
	var repo store.CardRepository
	if cfg.PostgresURL != "" {
		dbpool, err := db.Connect(cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer db.ClosePool()
		log.Printf("pg connection established successfully")
		repo = store.NewCardStore(dbpool)
	} else {
		log.Warn("POSTGRES_URL not set, cards are kept in memory")
		repo = store.NewMemoryStore()
	}

	// remote API clients
	cardAPI := tullave.NewClient(cfg.CardAPIBaseURL, cfg.CardAPIToken, cfg.HTTPTimeout, cfg.BalanceTTL)
	defer cardAPI.Close()
	planner := otp.NewClient(cfg.OTPBaseURL, cfg.HTTPTimeout)

	// device location feed and stop set
	locations := location.NewProvider()
	stops := location.NewStopIndex()
	if cfg.StopsFile != "" {
		if err := stops.LoadFile(cfg.StopsFile); err != nil {
			log.Warnf("unable to load stops file, keeping built-in set: %v", err)
		}
	}
	log.Infof("%d transit stops loaded", stops.Count())

	// trip history (optional)
	var history service.TripHistory
	if cfg.MongoURI != "" {
		mdb, cancelMongo, err := mongodb.ConnectToDB()
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer cancelMongo()
		mongodb.CreateTTLIndexForCollection(mdb, "trips")
		history = store.NewTripStore(mdb)
		log.Printf("mongo connection established successfully")
	} else {
		log.Warn("MONGODB_URI not set, trip history disabled")
	}

	cardService := service.NewCardService(repo, cardAPI)
	planService := service.NewPlanService(planner, history, stops, locations, cfg.TripHistoryTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := cardService.Reload(ctx); err != nil {
		log.Errorf("Error loading active card: %v", err)
	}
	cancel()

	// Connect to NATS for card events and peer location reports
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
	} else {
		defer n.Conn.Close()
		log.Printf("NATS connection established successfully %s", n.Url)

		b := broker.NewBroker(n.Conn, locations)
		cardService.SetPublisher(b)

		sub, err := b.SubscribeLocationReports("location.reports")
		if err != nil {
			log.Errorf("Error: unable to subscribe to location reports %v", err)
		} else {
			defer sub.Unsubscribe()
		}
	}

	// WebSocket fan-out of state snapshots and location fixes
	hub := ws.NewHub()
	states, cancelStates := cardService.Subscribe()
	defer cancelStates()
	go hub.PumpStates(states)

	fixes, cancelFixes := locations.Subscribe()
	defer cancelFixes()
	go hub.PumpLocations(fixes)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(cardService, planService, hub)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
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
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
