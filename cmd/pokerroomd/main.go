package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decred/slog"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"pokerroom/config"
	"pokerroom/pkg/ledger"
	"pokerroom/pkg/server"
	"pokerroom/pkg/ws"
)

func main() {
	var (
		configPath string
		addr       string
		seed       int64
		debugLevel string
	)
	flag.StringVar(&configPath, "config", "", "Path to config file (default config/config.yaml)")
	flag.StringVar(&addr, "addr", "", "Listen address, overrides config")
	flag.Int64Var(&seed, "seed", 0, "Deterministic RNG seed for decks (0 = random)")
	flag.StringVar(&debugLevel, "debuglevel", "", "Logging level: trace, debug, info, warn, error")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if debugLevel == "" {
		debugLevel = cfg.Logging.Level
	}

	backend := slog.NewBackend(os.Stdout)
	log := backend.Logger("PKRM")
	if level, ok := slog.LevelFromString(debugLevel); ok {
		log.SetLevel(level)
	}

	var rec server.HandRecorder
	if cfg.Ledger.Enabled {
		l, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			log.Errorf("failed to open ledger: %v", err)
			os.Exit(1)
		}
		defer l.Close()
		rec = l
	}

	hub := ws.NewHub(log)
	registry := server.NewRegistry(log, hub, server.RoomConfig{
		Retention:      time.Duration(cfg.Room.RetentionSeconds) * time.Second,
		AutoStartDelay: time.Duration(cfg.Room.AutoStartDelaySeconds) * time.Second,
		RevealInterval: time.Duration(cfg.Room.RevealIntervalMillis) * time.Millisecond,
		RITVoteTimeout: time.Duration(cfg.Room.RITVoteTimeoutSeconds) * time.Second,
		Seed:           seed,
		Ledger:         rec,
	})
	hub.OnIncoming = registry.HandleIncoming
	hub.OnDisconnect = registry.HandleDisconnect
	go hub.Run()

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": registry.RoomCount()})
	})

	router.POST("/rooms", func(c *gin.Context) {
		settings := server.DefaultSettings()
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&settings); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		room, err := registry.CreateRoom(settings)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, room.Info())
	})

	router.GET("/rooms/:id", func(c *gin.Context) {
		room, ok := registry.Room(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, room.Info())
	})

	router.GET("/ws", ws.ServeWS(hub))

	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		log.Infof("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infof("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	registry.Close()
	hub.Close()
}
