package main

import (
	"context"
	"log"

	"bus-booking/cmd"
	"bus-booking/internal/data/cache"
	"bus-booking/internal/data/repository"
	"bus-booking/internal/event"
	"bus-booking/internal/wire"
	"bus-booking/pkg/database"
	"bus-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using production defaults.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Postgres is the source of truth; nothing works without it
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected successfully")

	repos := repository.NewRepository(db, config.Database.TxTimeout, logger)

	// Redis and RabbitMQ are optional
	bookingCache := cache.NewNoopCache()
	if rdb, err := database.InitRedis(config.Redis); err != nil {
		logger.Warn("Redis unavailable, caching disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		bookingCache = cache.NewRedisCache(rdb, config.Redis.CacheTTL, logger)
		logger.Info("Redis connected", zap.String("addr", config.Redis.Addr))
	}

	publisher := event.NewNoopPublisher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.RabbitMQ.URL != "" {
		p, err := event.NewAMQPPublisher(config.RabbitMQ.URL, config.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, events disabled", zap.Error(err))
		} else {
			publisher = p
			go event.RunAuditConsumer(ctx, config.RabbitMQ.URL, config.RabbitMQ.Exchange, logger)
			logger.Info("RabbitMQ connected", zap.String("exchange", config.RabbitMQ.Exchange))
		}
	}
	defer publisher.Close()

	app := wire.Wiring(wire.Deps{
		Repo:      repos,
		Cache:     bookingCache,
		Publisher: publisher,
	}, config, logger)

	if err := cmd.APIServer(app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
}
