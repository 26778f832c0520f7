package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"employeedb/internal/codec"
	"employeedb/internal/config"
	"employeedb/internal/repository/sqlite"
	"employeedb/internal/service"
)

// app holds the dependencies of a single mode invocation.
type app struct {
	cfg   *config.Config
	repo  *sqlite.Repository
	codec *codec.Codec
	svc   *service.EmployeeService

	events chan service.Event
	done   chan struct{}
	stop   context.CancelFunc
}

// startup loads configuration, applies flag overrides and opens the
// database. The returned context is cancelled on SIGINT or SIGTERM.
func (c *cli) startup() (context.Context, *app, error) {
	cfg, path, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	log.WithFields(log.Fields{
		"config":   path,
		"database": cfg.Database.Path,
		"codec":    cfg.Compression.Codec,
	}).Debug("starting")

	compression, err := codec.ParseCompression(cfg.Compression.Codec)
	if err != nil {
		return nil, nil, err
	}
	cdc, err := codec.New(compression)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "building payload codec")
	}

	db := sqlite.NewDatabase(cfg.Database.Path, cfg.SQLitePragmas())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if _, err := db.Connect(ctx); err != nil {
		stop()
		cdc.Close()
		return nil, nil, errors.WithMessagef(err, "opening %s", cfg.Database.Path)
	}

	a := &app{
		cfg:    cfg,
		repo:   sqlite.New(db),
		codec:  cdc,
		events: make(chan service.Event, 100),
		done:   make(chan struct{}),
		stop:   stop,
	}

	eventBus := service.NewEventBus()
	eventBus.Subscribe(a.events)
	go func() {
		defer close(a.done)
		for event := range a.events {
			log.WithField("event", event.Type).Debug("published")
		}
	}()

	a.svc = service.NewEmployeeService(a.repo, cdc, eventBus, service.Options{
		BatchSize: cfg.Ingest.BatchSize,
		Filter:    cfg.Filter,
	})
	return ctx, a, nil
}

// loadConfig reads the config file, applies flag overrides and initializes
// logging. path is "" when defaults were used.
func (c *cli) loadConfig() (cfg *config.Config, path string, err error) {
	if c.opts.Config != "" {
		cfg, path, err = config.LoadFromPath(c.opts.Config)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, path, errors.WithMessage(err, "loading configuration")
	}

	if c.opts.Database != "" {
		cfg.Database.Path = c.opts.Database
	}
	if c.opts.Log.Level != "" {
		cfg.Log.Level = c.opts.Log.Level
	}
	if c.opts.Log.Format != "" {
		cfg.Log.Format = c.opts.Log.Format
	}
	config.InitLog(cfg.Log)
	return cfg, path, nil
}

// Close releases the database and codec and flushes pending event logs.
// Nothing may publish events after Close is called.
func (a *app) Close() {
	close(a.events)
	<-a.done

	if err := a.repo.Close(); err != nil {
		log.WithField("err", err).Warn("failed to close database")
	}
	a.codec.Close()
	a.stop()
}
