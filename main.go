package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codearena-realtime/auth"
	"codearena-realtime/collab"
	"codearena-realtime/gitsync"
	"codearena-realtime/handlers/api/files"
	"codearena-realtime/handlers/api/sync"
	"codearena-realtime/locks"
	authMiddleware "codearena-realtime/middleware"
	"codearena-realtime/realtime"
	"codearena-realtime/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func waitForShutdown(hub *realtime.Hub) {
	exit := make(chan struct{})
	signalC := make(chan os.Signal, 1)

	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-signalC
		close(exit)
	}()

	<-exit
	logrus.Info("Shutting down...")
	hub.Close()
	os.Exit(0)
}

func lockTimeoutFromEnv() time.Duration {
	raw := os.Getenv("LOCK_TIMEOUT")
	if raw == "" {
		return locks.DefaultTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		logrus.WithFields(logrus.Fields{"value": raw, "error": err}).Warn("Invalid LOCK_TIMEOUT, using default")
		return locks.DefaultTimeout
	}
	return d
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	auth.Init()
	store := stores.GetStore()

	engine := gitsync.NewEngine(store, gitsync.Config{
		BotName:                os.Getenv("GIT_BOT_NAME"),
		BotEmail:               os.Getenv("GIT_BOT_EMAIL"),
		RetainScratchOnFailure: os.Getenv("GIT_RETAIN_SCRATCH_ON_FAILURE") == "true",
	})

	hub := realtime.NewHub(locks.NewMemoryStore(), lockTimeoutFromEnv(), collab.NewMemoryProvider())

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Origin", "Host", "Connection", "Accept-Encoding", "Accept-Language", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api/workspaces/{workspaceID}", func(r chi.Router) {
		r.Use(authMiddleware.AuthJWT)
		r.Route("/git", func(r chi.Router) {
			r.Post("/clone", sync.HandleClone(engine))
			r.Post("/push", sync.HandlePush(engine))
			r.Post("/pull", sync.HandlePull(engine))
		})
		r.Get("/files", files.HandleList(store))
		r.Get("/files/*", files.HandleGet(store))
		r.Put("/files/*", files.HandleSave(store))
		r.Delete("/files/*", files.HandleDelete(store))
	})

	r.Mount("/socket.io/", hub.ServeHandler())

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddress, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(hub)
}
