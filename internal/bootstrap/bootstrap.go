// Package bootstrap turns a Config into connected stores, an event
// publisher and the reservation service shared by the binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/library-seat-reservation/internal/config"
	"github.com/iliyamo/library-seat-reservation/internal/database"
	"github.com/iliyamo/library-seat-reservation/internal/logger"
	"github.com/iliyamo/library-seat-reservation/internal/repository"
	"github.com/iliyamo/library-seat-reservation/internal/reservation"
	"github.com/iliyamo/library-seat-reservation/internal/service"
	"github.com/iliyamo/library-seat-reservation/internal/token"
)

// App holds everything opened from the configuration.  Close releases it.
type App struct {
	Seats     repository.SeatStore
	Nonces    repository.NonceStore
	Publisher EventPublisher
	Service   *reservation.Service

	closers []func() error
}

// EventPublisher is a reservation.Publisher that owns a connection.
type EventPublisher interface {
	reservation.Publisher
	Close() error
}

// Open connects the configured stores and broker and builds the service.
func Open(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	app := &App{}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	var (
		mongoDB *mongo.Database
		sqlDB   *sql.DB
		rdb     *redis.Client
	)
	needs := func(driver string) bool { return cfg.StoreDriver == driver || cfg.NonceDriver == driver }

	if needs(config.DriverMongo) {
		client, err := database.ConnectMongo(cfg.MongoURI, cfg.MongoConnTimeout)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() error { return client.Disconnect(context.Background()) })
		mongoDB = client.Database(cfg.MongoDatabase)
		log.Info("connected to MongoDB", "database", cfg.MongoDatabase)
	}
	if needs(config.DriverMySQL) {
		db, err := database.Open(ctx, database.MySQLOptions{
			User: cfg.DBUser,
			Pass: cfg.DBPass,
			Host: cfg.DBHost,
			Port: cfg.DBPort,
			Name: cfg.DBName,
		})
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db.Close)
		if err := database.Migrate(ctx, db); err != nil {
			return nil, err
		}
		sqlDB = db
		log.Info("connected to MySQL", "database", cfg.DBName)
	}
	if cfg.NonceDriver == config.DriverRedis {
		client, err := config.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		rdb = client
		log.Info("connected to Redis", "addr", cfg.Redis.Addr)
	}

	switch cfg.StoreDriver {
	case config.DriverMongo:
		seats := repository.NewMongoSeatRepo(mongoDB, cfg.StoreTimeout)
		if err := seats.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		app.Seats = seats
	case config.DriverMySQL:
		app.Seats = repository.NewSQLSeatRepo(sqlDB, cfg.StoreTimeout)
	case config.DriverMemory:
		app.Seats = repository.NewMemorySeatRepo()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	switch cfg.NonceDriver {
	case config.DriverMongo:
		app.Nonces = repository.NewMongoNonceRepo(mongoDB, cfg.StoreTimeout)
	case config.DriverMySQL:
		app.Nonces = repository.NewSQLNonceRepo(sqlDB, cfg.StoreTimeout)
	case config.DriverRedis:
		app.Nonces = repository.NewRedisNonceRepo(rdb, cfg.NonceRetention, cfg.StoreTimeout)
	case config.DriverMemory:
		app.Nonces = repository.NewMemoryNonceRepo()
	default:
		return nil, fmt.Errorf("unknown nonce driver %q", cfg.NonceDriver)
	}

	switch cfg.EventBroker {
	case config.BrokerRabbitMQ:
		app.Publisher = service.NewAMQPPublisher(cfg.RabbitMQURL, cfg.EventQueue)
	case config.BrokerKafka:
		p, err := service.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return nil, err
		}
		app.Publisher = p
	}
	if app.Publisher != nil {
		app.closers = append(app.closers, app.Publisher.Close)
	}

	opts := reservation.Options{
		Seats:          app.Seats,
		Nonces:         app.Nonces,
		Codec:          token.NewCodec(cfg.JWTSecret, cfg.ReservationTTL),
		Log:            log.With("component", "reservation"),
		ExpiringWindow: cfg.ExpiringWindow,
		AdminDomain:    cfg.AdminEmailDomain,
		PublishTimeout: cfg.EventPublishTimeout,
	}
	if app.Publisher != nil {
		opts.Events = app.Publisher
	}
	app.Service = reservation.New(opts)

	ok = true
	return app, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Sweep runs one expiry pass; it matches the sweeper callback signature.
func (a *App) Sweep(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := a.Service.ExpireReservations(ctx)
	return err
}
