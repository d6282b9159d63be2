package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ordersync/config"
	"ordersync/internal/api"
	"ordersync/internal/apiclient"
	"ordersync/internal/models"
	"ordersync/internal/push"
	"ordersync/internal/repo"
	"ordersync/internal/session"
	"ordersync/internal/util"
	"ordersync/internal/view"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting ordersync agent")

	tp, err := util.InitTracer("ordersync-agent", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	actor := models.Actor{
		ID:   cfg.Session.ActorID,
		Name: cfg.Session.ActorName,
		Role: models.Role(cfg.Session.Role),
	}
	sess := session.New(actor, cfg.Session.Token)
	if !sess.IsAuthenticated() {
		log.Println("No actor token configured; upstream requests will be anonymous")
	}

	client := apiclient.NewClient(
		cfg.Upstream.BaseURL,
		time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second,
		sess,
		logger,
	)

	repository := repo.New(client, logger)
	selection, untrack := view.Track(repository)
	defer untrack()

	transport, err := buildTransport(cfg)
	if err != nil {
		log.Fatalf("Failed to build push transport: %v", err)
	}

	channel := push.NewChannel(transport, actor, &push.Options{
		BackoffBase: time.Duration(cfg.Push.BackoffBaseMillis) * time.Millisecond,
		BackoffMax:  time.Duration(cfg.Push.BackoffMaxMillis) * time.Millisecond,
	}, logger)

	// Handlers are registered before the channel starts so no event can
	// fire into an empty registry. All three kinds are freshness hints.
	markStale := func(models.PushEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		repository.MarkStale(ctx)
	}
	channel.Subscribe(models.EventOrderCreated, markStale)
	channel.Subscribe(models.EventOrderStatusChanged, markStale)
	channel.Subscribe(models.EventAggregateDirty, markStale)

	channelCtx, channelCancel := context.WithCancel(context.Background())
	defer channelCancel()
	channel.Acquire(channelCtx)
	defer channel.Release()

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repository.Refresh(initCtx); err != nil {
		log.Printf("Initial refresh failed, waiting for push events: %v", err)
	}
	initCancel()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(repository, selection)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down agent...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Agent exited")
}

// buildTransport selects the push transport from config.
func buildTransport(cfg *config.Config) (push.Transport, error) {
	logger := util.GetLogger()
	switch cfg.Push.Transport {
	case "redis":
		return push.NewRedisTransport(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	case "websocket":
		return push.NewWebsocketTransport(cfg.Hub.URL, cfg.Session.Token, logger), nil
	case "kafka":
		return push.NewKafkaTransport(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup, logger), nil
	default:
		return nil, fmt.Errorf("unknown push transport %q", cfg.Push.Transport)
	}
}
