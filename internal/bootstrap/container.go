package bootstrap

import (
	"context"
	"log"

	"actually-colab-be/internal/config"
	"actually-colab-be/internal/controller"
	"actually-colab-be/internal/handler"
	"actually-colab-be/internal/pkg/logger"
	"actually-colab-be/internal/pkg/mailer"
	"actually-colab-be/internal/repository/memory"
	"actually-colab-be/internal/repository/unitofwork"
	"actually-colab-be/internal/service"
	"actually-colab-be/internal/websocket"

	pktNats "actually-colab-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	HealthController   controller.IHealthController
	NotebookController controller.INotebookController
	UserController     controller.IUserController

	// WebSockets
	CollabHandler *handler.CollabHandler
	WebSocketHub  *websocket.Hub

	// Background services (started by Start)
	ReconcilerService   service.IReconcilerService
	NotificationService service.INotificationService

	RepositoryFactory unitofwork.RepositoryFactory
	Logger            logger.ILogger

	closers []func()
}

// NewContainer wires the application. A nil db selects the in-memory store.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	socketLogger := logger.NewIsolatedLogger(cfg.App.SocketLogFilePath)

	var uowFactory unitofwork.RepositoryFactory
	driver := "postgres"
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	} else {
		driver = "memory"
		uowFactory = unitofwork.NewMemoryRepositoryFactory(memory.NewStore())
		log.Printf("[INFO] Using in-memory store, data is lost on restart")
	}

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
		cfg.App.ClientURL,
	)

	c := &Container{RepositoryFactory: uowFactory, Logger: sysLogger}

	// 2. Infrastructure
	// Disconnect queue
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: int64(cfg.Collab.SendBufferSize)},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// NATS
	var publisher service.EventPublisher
	var subscriber service.EventSubscriber
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			publisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			subscriber = natsSub
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// Redis
	rdb := connectRedis(cfg.App.RedisURL)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// WebSocket Hub
	wsHub := websocket.NewHub(rdb, cfg.Collab.SendBufferSize, socketLogger)

	// 3. Services
	registry := service.NewSessionRegistry(uowFactory)
	identity := service.NewIdentityService(uowFactory, memory.NewIdentityCache(cfg.Collab.IdentityCacheTTL))
	access := service.NewAccessService(uowFactory)
	cells := service.NewCellService(uowFactory, access)
	notebooks := service.NewNotebookService(uowFactory, access)
	notifications := service.NewNotificationService(publisher, subscriber, emailService, sysLogger)
	shares := service.NewShareService(uowFactory, access, notifications)
	fanout := service.NewFanoutService(registry, wsHub, cfg.Collab.FanoutParallelism, socketLogger)
	reconciler := service.NewReconcilerService(
		pubSub,
		cfg.Collab.DisconnectTopic,
		cfg.Collab.DisconnectRetryWait,
		registry,
		fanout,
		identity,
		socketLogger,
	)
	collab := service.NewCollabService(registry, identity, access, cells, notebooks, shares, fanout, reconciler, socketLogger)

	// 4. Controllers
	c.HealthController = controller.NewHealthController(driver)
	c.NotebookController = controller.NewNotebookController(notebooks, cfg.Auth.JWTSecret)
	c.UserController = controller.NewUserController(service.NewUserService(uowFactory), cfg.Auth.JWTSecret)
	c.CollabHandler = handler.NewCollabHandler(collab, wsHub, cfg.Auth.JWTSecret, socketLogger)
	c.WebSocketHub = wsHub
	c.ReconcilerService = reconciler
	c.NotificationService = notifications
	return c
}

// Start launches the hub loop and the background consumers.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.ReconcilerService.Consume(ctx); err != nil {
		return err
	}
	return c.NotificationService.Start()
}

func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

// connectRedis returns nil when no URL is configured or the server is unreachable,
// which limits delivery to sockets held by this instance.
func connectRedis(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Running as a single instance", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
