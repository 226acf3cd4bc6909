package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/campus/apps/api/echo"
	"github.com/trezcool/campus/apps/shared"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
	emailsvc "github.com/trezcool/campus/services/email"
	eventsvc "github.com/trezcool/campus/services/events"
	logsvc "github.com/trezcool/campus/services/logger"
	metricsvc "github.com/trezcool/campus/services/metrics"
	"github.com/trezcool/campus/storage/database"
	dummydb "github.com/trezcool/campus/storage/database/dummy"
	mongodb "github.com/trezcool/campus/storage/database/mongo"
	sqlxrepos "github.com/trezcool/campus/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(os.Stdout, conf, logsvc.ComponentAPI)
	defer logger.Close()
	dbLogger := logsvc.NewRollbarLogger(os.Stdout, conf, logsvc.ComponentDB)
	defer dbLogger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthChecks := make(map[string]echoapi.HealthCheck)

	// set up storage
	repos, closeDB, err := setUpRepos(conf, healthChecks)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err := closeDB(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	if conf.Mongo.URI != "" {
		mdb, err := mongodb.Open(ctx, conf.Mongo.URI, conf.Mongo.Database)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up mongo: %v", err), err)
		}
		defer func() {
			if err := mongodb.Close(context.Background(), mdb); err != nil {
				dbLogger.Error("Failed to close mongo", err)
			}
		}()
		repos.Library = mongodb.NewLibraryRepository(mdb)
		healthChecks["mongo"] = func(ctx context.Context) error { return mdb.Client().Ping(ctx, nil) }
	}

	// set up event broker
	var broker core.EventBroker
	if conf.Redis.Address != "" {
		rb, err := eventsvc.NewRedisBroker(ctx, eventsvc.NewRedisClient(conf), conf.Redis.Channel, logger)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis broker: %v", err), err)
		}
		defer rb.Close()
		broker = rb
		healthChecks["redis"] = rb.Healthy
	} else {
		broker = eventsvc.NewInMemBroker()
	}

	mailSvc := emailsvc.NewService(conf, logger)
	svcs := shared.NewServices(conf, logger, repos, mailSvc, broker)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := shared.NewValidator()

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(logger)

	metrics := metricsvc.New(conf)
	if err = metrics.WatchBroker(ctx, broker); err != nil {
		logger.Error("watching event broker", err)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", metrics.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			Validate:     validate,
			Translator:   translator,
			Services:     svcs,
			Broker:       broker,
			Metrics:      metrics,
			HealthChecks: healthChecks,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRepos opens the configured database engine and returns its repositories.
func setUpRepos(conf *core.Config, healthChecks map[string]echoapi.HealthCheck) (shared.Repos, func() error, error) {
	if conf.Database.Engine == "dummy" {
		db, err := dummydb.Open()
		if err != nil {
			return shared.Repos{}, nil, errors.Wrap(err, "opening dummy database")
		}
		return shared.DummyRepos(db), func() error { return nil }, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return shared.Repos{}, nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return shared.Repos{}, nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return shared.Repos{}, nil, err
	}

	healthChecks["database"] = func(ctx context.Context) error { return database.StatusCheck(ctx, db) }
	return shared.PostgresRepos(sqlxrepos.Open(db)), db.Close, nil
}
